// Command cdicheck evaluates medical charts for multi-payer CDI compliance.
// It runs as a one-shot batch processor (process) or an HTTP service (serve).
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
