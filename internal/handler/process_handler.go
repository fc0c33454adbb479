package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cdicheck/internal/domain"
	"cdicheck/internal/ingest"
)

// DocumentProcessor runs a full compliance pipeline over chart files.
type DocumentProcessor interface {
	ProcessDocuments(ctx context.Context, paths []string) *domain.ProcessingResult
}

// ProcessHandler exposes the compliance pipeline over HTTP.
type ProcessHandler struct {
	processor DocumentProcessor
}

func NewProcessHandler(processor DocumentProcessor) *ProcessHandler {
	return &ProcessHandler{processor: processor}
}

// ProcessRequest names the chart files for one run. Either a list of file
// paths or a directory; with both, the explicit paths win.
type ProcessRequest struct {
	Paths []string `json:"paths"`
	Dir   string   `json:"dir"`
}

// Process handles POST /api/v1/process.
func (h *ProcessHandler) Process(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "request body must be JSON with paths or dir")
		return
	}

	paths := req.Paths
	if len(paths) == 0 && strings.TrimSpace(req.Dir) != "" {
		var err error
		paths, err = ingest.ListDocuments(req.Dir)
		if err != nil {
			HandleError(c, err)
			return
		}
	}
	if len(paths) == 0 {
		RespondError(c, http.StatusBadRequest, "NO_DOCUMENTS", "provide paths or a dir containing chart files")
		return
	}

	result := h.processor.ProcessDocuments(c.Request.Context(), paths)
	RespondOK(c, result)
}
