package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cdicheck/internal/config"
	"cdicheck/internal/guidelines"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	payers []config.PayerConfig
	store  *guidelines.Store
}

func NewHealthHandler(payers []config.PayerConfig, store *guidelines.Store) *HealthHandler {
	return &HealthHandler{payers: payers, store: store}
}

// Liveness handles GET /healthz.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz. The service is ready when at least one
// payer has guidelines loaded; without any, every evaluation would run on an
// empty context.
func (h *HealthHandler) Readiness(c *gin.Context) {
	counts := make(map[string]int, len(h.payers))
	total := 0
	for _, p := range h.payers {
		n := h.store.Count(p.Key)
		counts[p.Key] = n
		total += n
	}
	if total == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "no guidelines loaded", "guidelines": counts})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "guidelines": counts})
}
