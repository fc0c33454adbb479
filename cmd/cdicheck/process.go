package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cdicheck/internal/ingest"
	"cdicheck/internal/report"
)

var (
	flagDir  string
	flagOut  string
	flagXLSX string
)

var processCmd = &cobra.Command{
	Use:   "process [chart files...]",
	Short: "Run the compliance pipeline over a batch of chart files",
	Long: "Reads the given chart files (or every supported file in --dir),\n" +
		"classifies and extracts each document, merges them into one case, and\n" +
		"evaluates every documented procedure against all configured payers.",
	RunE: runProcess,
}

func init() {
	processCmd.Flags().StringVar(&flagDir, "dir", "", "Directory of chart files (used when no files are given)")
	processCmd.Flags().StringVar(&flagOut, "out", "", "Write the JSON result to this file instead of stdout")
	processCmd.Flags().StringVar(&flagXLSX, "xlsx", "", "Also write an Excel report to this file")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		if flagDir == "" {
			return fmt.Errorf("no input: pass chart files or --dir")
		}
		paths, err = ingest.ListDocuments(flagDir)
		if err != nil {
			return err
		}
	}

	result := a.processor.ProcessDocuments(cmd.Context(), paths)

	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if flagOut != "" {
		if err := writeFile(flagOut, raw); err != nil {
			return err
		}
		a.log.Info().Str("path", flagOut).Msg("result written")
	} else {
		fmt.Println(string(raw))
	}

	if flagXLSX != "" {
		if err := report.WriteWorkbook(result, flagXLSX); err != nil {
			return fmt.Errorf("writing Excel report: %w", err)
		}
		a.log.Info().Str("path", flagXLSX).Msg("Excel report written")
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("processing failed: %s", result.Errors[0])
	}
	return nil
}

func writeFile(path string, raw []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output dir: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
