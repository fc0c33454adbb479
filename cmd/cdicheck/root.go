package main

import (
	"github.com/spf13/cobra"
)

var (
	flagLogLevel  string
	flagLogFormat string
)

var rootCmd = &cobra.Command{
	Use:   "cdicheck",
	Short: "Multi-payer CDI compliance checker for medical charts",
	Long: "Classifies medical chart documents, extracts case data, and evaluates\n" +
		"documented procedures against multiple payer guideline sets with\n" +
		"evidence citations back into the chart.",
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&flagLogFormat, "log-format", "", "Log format: console or json (overrides config)")
}
