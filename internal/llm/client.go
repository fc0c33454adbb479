package llm

import (
	"context"

	"github.com/rs/zerolog"

	"cdicheck/internal/cache"
	"cdicheck/internal/logging"
	"cdicheck/internal/port"
)

// CachedClient wraps an LLMGateway with the response cache and the audit log.
// Every model call in the pipeline goes through Complete so caching and cost
// accounting are uniform.
type CachedClient struct {
	gateway     port.LLMGateway
	cache       *cache.Service
	inputPer1K  float64
	outputPer1K float64
	log         zerolog.Logger
}

func NewCachedClient(gateway port.LLMGateway, cache *cache.Service, inputPer1K, outputPer1K float64, log zerolog.Logger) *CachedClient {
	return &CachedClient{
		gateway:     gateway,
		cache:       cache,
		inputPer1K:  inputPer1K,
		outputPer1K: outputPer1K,
		log:         log,
	}
}

// Complete runs req through the cache and the gateway. The second return
// reports whether the response came from cache.
func (c *CachedClient) Complete(ctx context.Context, req port.LLMRequest) (*port.LLMResponse, bool, error) {
	fp := c.cache.Fingerprint(req.CacheCategory, req.Prompt, req.System, req.MaxTokens, req.Temperature)
	resp, fromCache, err := c.cache.GetOrCompute(ctx, fp, req.CacheCategory, func(ctx context.Context) (*port.LLMResponse, error) {
		return c.gateway.Invoke(ctx, req)
	})
	if err != nil {
		return nil, false, err
	}
	cost := resp.Usage.Cost(c.inputPer1K, c.outputPer1K)
	logging.LLMCall(c.log, req.CacheCategory, resp.Usage.ModelID, resp.Usage.InputTokens, resp.Usage.OutputTokens, cost, fromCache)
	return resp, fromCache, nil
}
