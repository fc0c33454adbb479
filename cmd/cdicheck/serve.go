package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"cdicheck/internal/handler"
	"cdicheck/internal/router"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the compliance pipeline as an HTTP service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}

	if a.cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	processH := handler.NewProcessHandler(a.processor)
	systemH := handler.NewSystemHandler(a.cfg, a.cache)
	healthH := handler.NewHealthHandler(a.cfg.SortedPayers(), a.store)

	r := router.Setup(processH, systemH, healthH, a.log)

	a.log.Info().Str("port", a.cfg.Server.Port).Msg("server starting")
	if err := r.Run(a.cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}
