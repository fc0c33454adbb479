package port

import (
	"context"

	"cdicheck/internal/domain"
)

// LLMRequest carries one prompt to the model.
type LLMRequest struct {
	Prompt        string
	System        string
	MaxTokens     int
	Temperature   float64
	CacheCategory string
}

// LLMResponse is the raw model output plus usage accounting. Callers are
// responsible for parsing Text as JSON and handling parse failure locally.
type LLMResponse struct {
	Text  string           `json:"text"`
	Usage domain.UsageInfo `json:"usage"`
}

// LLMGateway abstracts the hosted model behind a single narrow call.
type LLMGateway interface {
	Invoke(ctx context.Context, req LLMRequest) (*LLMResponse, error)
}

// LLMClient is the cache-aware model client pipeline stages depend on. The
// bool return reports whether the response was served from cache.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (*LLMResponse, bool, error)
}
