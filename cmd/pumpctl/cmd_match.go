package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/pumpmatch/internal/adapters/catalogfile"
	"github.com/okian/pumpmatch/internal/domain/curve"
	"github.com/okian/pumpmatch/internal/domain/matching"
	"github.com/okian/pumpmatch/internal/domain/pump"
	"github.com/okian/pumpmatch/pkg/logger"
)

type matchOptions struct {
	catalog    string
	req        pump.Requirement
	convention string
	format     string
	limit      int
}

func newMatchCommand() *cobra.Command {
	o := &matchOptions{}
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Rank catalog pumps for a duty point",
		Long: `Scores every pump in the catalog against the required flow (m3/h) and
head (m), drops pumps that cannot reach the duty point and prints the rest
from best to worst.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMatch(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.catalog, "catalog", "c", "", "Path to the YAML pump catalog")
	f.Float64Var(&o.req.Flow, "flow", 0, "Required flow (m3/h)")
	f.Float64Var(&o.req.Head, "head", 0, "Required head (m)")
	f.StringVar(&o.req.Application, "application", "", "Application tag, e.g. irrigation")
	f.StringVar(&o.req.Fluid, "fluid", "", "Fluid tag, e.g. water")
	f.StringVar(&o.req.PumpType, "type", "", "Only consider pumps of this type")
	f.Float64Var(&o.req.PreferredPower, "power", 0, "Preferred motor power (kW)")
	f.StringVar(&o.convention, "convention", curve.ConventionEstimate.String(), "Curve convention: estimate or max_head")
	f.StringVarP(&o.format, "format", "f", formatTable, "Output format: table or json")
	f.IntVarP(&o.limit, "limit", "n", 0, "Maximum results to print (0 for all)")
	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("flow")
	_ = cmd.MarkFlagRequired("head")

	return cmd
}

func runMatch(ctx context.Context, w io.Writer, o *matchOptions) error {
	if err := checkFormat(o.format); err != nil {
		return err
	}
	conv, err := curve.ParseConvention(o.convention)
	if err != nil {
		return err
	}
	specs, err := catalogfile.Load(o.catalog)
	if err != nil {
		return err
	}
	if t := strings.TrimSpace(o.req.PumpType); t != "" {
		specs = filterType(specs, t)
	}

	ranker := matching.NewRanker(matching.NewScorer(matching.WithConvention(conv)))
	results, err := ranker.Rank(&o.req, specs)
	if err != nil {
		return err
	}
	logger.Get().Debug(ctx, "ranked catalog",
		logger.Int("evaluated", len(specs)),
		logger.Int("viable", len(results)),
	)
	if o.limit > 0 && len(results) > o.limit {
		results = results[:o.limit]
	}

	if o.format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return printMatchTable(w, results)
}

func filterType(specs []pump.Spec, t string) []pump.Spec {
	out := specs[:0:0]
	for _, s := range specs {
		if strings.EqualFold(s.Type, t) {
			out = append(out, s)
		}
	}
	return out
}

func printMatchTable(w io.Writer, results []matching.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "no pump reaches the duty point")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPUMP\tTYPE\tSCORE\tHEAD@Q\tRATIO\tDIAG\tTIER")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%.2f\t%.2f\t%.1f\t%s\n",
			i+1, r.PumpID, r.PumpType, r.Score, r.CurveHead, r.HeadRatio,
			r.Diagnostic.Composite, r.Tier.Label())
	}
	return tw.Flush()
}
