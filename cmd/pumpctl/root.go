package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/pumpmatch/pkg/logger"
)

var version = "dev"

const (
	formatTable = "table"
	formatJSON  = "json"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pumpctl",
		Short: "Match pumps against a duty point",
		Long: `pumpctl scores a YAML pump catalog against a required flow and head,
and prints estimated performance curves for individual pumps.`,
		Version:      version,
		SilenceUsage: true,
	}

	logLevel := cmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn or error")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := logger.InitWith(cmd.ErrOrStderr(), logger.FormatText); err != nil {
			return err
		}
		return logger.SetLevelString(*logLevel)
	}

	cmd.AddCommand(newMatchCommand())
	cmd.AddCommand(newCurveCommand())
	return cmd
}

func checkFormat(format string) error {
	if format != formatTable && format != formatJSON {
		return fmt.Errorf("unsupported format %q: must be table or json", format)
	}
	return nil
}
