package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/pumpmatch/internal/adapters/catalogfile"
	"github.com/okian/pumpmatch/internal/domain/curve"
	"github.com/okian/pumpmatch/internal/domain/types"
)

type curveOptions struct {
	catalog    string
	pumpID     string
	step       float64
	convention string
	format     string
}

func newCurveCommand() *cobra.Command {
	o := &curveOptions{}
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Print the estimated performance curve of one pump",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCurve(cmd.OutOrStdout(), o)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&o.catalog, "catalog", "c", "", "Path to the YAML pump catalog")
	f.StringVarP(&o.pumpID, "pump", "p", "", "Pump id")
	f.Float64Var(&o.step, "step", curve.DefaultStep, "Flow step between points (m3/h)")
	f.StringVar(&o.convention, "convention", curve.ConventionMaxHead.String(), "Curve convention: estimate or max_head")
	f.StringVarP(&o.format, "format", "f", formatTable, "Output format: table or json")
	_ = cmd.MarkFlagRequired("catalog")
	_ = cmd.MarkFlagRequired("pump")

	return cmd
}

func runCurve(w io.Writer, o *curveOptions) error {
	if err := checkFormat(o.format); err != nil {
		return err
	}
	if o.step <= 0 {
		return fmt.Errorf("step must be positive, got %v", o.step)
	}
	conv, err := curve.ParseConvention(o.convention)
	if err != nil {
		return err
	}
	specs, err := catalogfile.Load(o.catalog)
	if err != nil {
		return err
	}
	spec, ok := catalogfile.Find(specs, o.pumpID)
	if !ok {
		return fmt.Errorf("pump %q not found in %s", o.pumpID, o.catalog)
	}

	model, err := curve.Build(&spec, conv)
	if err != nil {
		return err
	}
	points := curve.Sample(model, o.step)

	if o.format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(types.CurveResponse{PumpID: spec.ID, Points: points})
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FLOW\tHEAD\tPOWER\tEFFICIENCY")
	for _, p := range points {
		fmt.Fprintf(tw, "%.2f\t%.2f\t%s\t%s\n", p.Flow, p.Head, optional(p.Power, "%.2f"), optional(p.Efficiency, "%.1f"))
	}
	return tw.Flush()
}

func optional(v *float64, format string) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf(format, *v)
}
