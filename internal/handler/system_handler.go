package handler

import (
	"github.com/gin-gonic/gin"

	"cdicheck/internal/cache"
	"cdicheck/internal/config"
)

// SystemHandler reports runtime configuration and cache statistics.
type SystemHandler struct {
	cfg   *config.Config
	cache *cache.Service
}

func NewSystemHandler(cfg *config.Config, cacheSvc *cache.Service) *SystemHandler {
	return &SystemHandler{cfg: cfg, cache: cacheSvc}
}

type systemInfo struct {
	ModelID     string      `json:"model_id"`
	Region      string      `json:"region"`
	Payers      []string    `json:"payers"`
	CacheStats  cache.Stats `json:"cache_stats"`
	Environment string      `json:"environment"`
}

// Info handles GET /api/v1/system.
func (h *SystemHandler) Info(c *gin.Context) {
	payers := make([]string, 0, len(h.cfg.Payers))
	for _, p := range h.cfg.SortedPayers() {
		payers = append(payers, p.Name)
	}
	RespondOK(c, systemInfo{
		ModelID:     h.cfg.Bedrock.ModelID,
		Region:      h.cfg.Bedrock.Region,
		Payers:      payers,
		CacheStats:  h.cache.StatsSnapshot(),
		Environment: h.cfg.Server.Environment,
	})
}

// SweepCache handles POST /api/v1/cache/sweep.
func (h *SystemHandler) SweepCache(c *gin.Context) {
	evicted := h.cache.Sweep()
	RespondOK(c, gin.H{"evicted": evicted})
}
