package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"cdicheck/internal/port"
)

// entry is the on-disk cache record. Committed only after a call succeeds.
type entry struct {
	Response  port.LLMResponse `json:"response"`
	Category  string           `json:"category"`
	CreatedAt time.Time        `json:"created_at"`
}

// call tracks one in-flight computation so concurrent callers with the same
// fingerprint share a single underlying model call.
type call struct {
	done chan struct{}
	resp *port.LLMResponse
	err  error
}

// Stats tracks cache effectiveness per category.
type Stats struct {
	Hits       map[string]int `json:"hits"`
	Misses     map[string]int `json:"misses"`
	Evictions  int            `json:"evictions"`
	SavingsUSD float64        `json:"savings_usd"`
}

// Service is a content-addressed store of model responses with a TTL
// staleness policy. Expired entries are evicted lazily on lookup.
type Service struct {
	dir         string
	ttl         time.Duration
	enabled     bool
	modelID     string
	inputPer1K  float64
	outputPer1K float64
	log         zerolog.Logger

	mu       sync.Mutex
	inflight map[string]*call
	stats    Stats
}

// Options configures a cache Service.
type Options struct {
	Dir         string
	TTL         time.Duration
	Enabled     bool
	ModelID     string
	InputPer1K  float64
	OutputPer1K float64
}

// NewService creates a cache Service, creating the cache directory if needed.
func NewService(opts Options, log zerolog.Logger) (*Service, error) {
	if opts.Enabled {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}
	return &Service{
		dir:         opts.Dir,
		ttl:         opts.TTL,
		enabled:     opts.Enabled,
		modelID:     opts.ModelID,
		inputPer1K:  opts.InputPer1K,
		outputPer1K: opts.OutputPer1K,
		log:         log,
		inflight:    map[string]*call{},
		stats:       Stats{Hits: map[string]int{}, Misses: map[string]int{}},
	}, nil
}

// fingerprintKey is the canonical input to the fingerprint hash. Field order
// is fixed so the encoding is deterministic.
type fingerprintKey struct {
	Category    string  `json:"category"`
	Prompt      string  `json:"prompt"`
	System      string  `json:"system"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	ModelID     string  `json:"model_id"`
}

// Fingerprint derives the deterministic cache key for a prompt. It depends
// only on prompt content, the caller's cache category, and the model, never
// on call order or wall-clock time.
func (s *Service) Fingerprint(category, prompt, system string, maxTokens int, temperature float64) string {
	raw, _ := json.Marshal(fingerprintKey{
		Category:    category,
		Prompt:      prompt,
		System:      system,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		ModelID:     s.modelID,
	})
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// GetOrCompute returns the cached response for fingerprint, or runs compute
// and commits its result. At most one computation runs per fingerprint at a
// time; concurrent callers await the in-flight call. A result is committed
// to disk only after compute fully succeeds, so an abandoned or failed call
// never corrupts cache state.
func (s *Service) GetOrCompute(
	ctx context.Context,
	fingerprint, category string,
	compute func(ctx context.Context) (*port.LLMResponse, error),
) (*port.LLMResponse, bool, error) {
	if !s.enabled {
		resp, err := compute(ctx)
		return resp, false, err
	}

	s.mu.Lock()
	if c, ok := s.inflight[fingerprint]; ok {
		s.mu.Unlock()
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-c.done:
		}
		if c.err != nil {
			return nil, false, c.err
		}
		return c.resp, true, nil
	}

	if resp := s.lookupLocked(fingerprint); resp != nil {
		s.stats.Hits[category]++
		s.stats.SavingsUSD += resp.Usage.Cost(s.inputPer1K, s.outputPer1K)
		s.mu.Unlock()
		return resp, true, nil
	}

	c := &call{done: make(chan struct{})}
	s.inflight[fingerprint] = c
	s.stats.Misses[category]++
	s.mu.Unlock()

	resp, err := compute(ctx)

	s.mu.Lock()
	delete(s.inflight, fingerprint)
	if err == nil {
		s.commitLocked(fingerprint, category, resp)
	}
	s.mu.Unlock()

	c.resp, c.err = resp, err
	close(c.done)

	if err != nil {
		return nil, false, err
	}
	return resp, false, nil
}

// lookupLocked reads a valid entry from disk, lazily evicting expired ones.
func (s *Service) lookupLocked(fingerprint string) *port.LLMResponse {
	path := s.entryPath(fingerprint)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		_ = os.Remove(path)
		return nil
	}
	if time.Since(e.CreatedAt) > s.ttl {
		_ = os.Remove(path)
		s.stats.Evictions++
		return nil
	}
	resp := e.Response
	return &resp
}

func (s *Service) commitLocked(fingerprint, category string, resp *port.LLMResponse) {
	raw, err := json.Marshal(entry{Response: *resp, Category: category, CreatedAt: time.Now()})
	if err != nil {
		return
	}
	if err := os.WriteFile(s.entryPath(fingerprint), raw, 0o644); err != nil {
		s.log.Warn().Err(err).Str("fingerprint", fingerprint).Msg("cache write failed")
	}
}

func (s *Service) entryPath(fingerprint string) string {
	return filepath.Join(s.dir, fingerprint+".json")
}

// Sweep removes all expired entries and returns how many were evicted.
func (s *Service) Sweep() int {
	if !s.enabled {
		return 0
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	evicted := 0
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, de.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var e entry
		if err := json.Unmarshal(raw, &e); err != nil || time.Since(e.CreatedAt) > s.ttl {
			if os.Remove(path) == nil {
				evicted++
			}
		}
	}
	s.mu.Lock()
	s.stats.Evictions += evicted
	s.mu.Unlock()
	if evicted > 0 {
		s.log.Info().Int("evicted", evicted).Msg("cache sweep complete")
	}
	return evicted
}

// StatsSnapshot returns a copy of the current cache statistics.
func (s *Service) StatsSnapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Stats{
		Hits:       make(map[string]int, len(s.stats.Hits)),
		Misses:     make(map[string]int, len(s.stats.Misses)),
		Evictions:  s.stats.Evictions,
		SavingsUSD: s.stats.SavingsUSD,
	}
	for k, v := range s.stats.Hits {
		out.Hits[k] = v
	}
	for k, v := range s.stats.Misses {
		out.Misses[k] = v
	}
	return out
}
