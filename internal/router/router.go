package router

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"cdicheck/internal/handler"
	"cdicheck/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	processH *handler.ProcessHandler,
	systemH *handler.SystemHandler,
	healthH *handler.HealthHandler,
	log zerolog.Logger,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS())

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")
	v1.POST("/process", processH.Process)
	v1.GET("/system", systemH.Info)
	v1.POST("/cache/sweep", systemH.SweepCache)

	return r
}
