package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup initializes a zerolog.Logger based on the requested format and level.
// format can be "console" (human-friendly) or "json" (structured).
func Setup(format, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return logger.Level(lvl)
}

// LLMCall logs one model invocation with its usage accounting, mirroring the
// audit trail kept for every call.
func LLMCall(log zerolog.Logger, purpose, model string, inputTokens, outputTokens int, costUSD float64, cacheHit bool) {
	log.Info().
		Str("purpose", purpose).
		Str("model", model).
		Int("input_tokens", inputTokens).
		Int("output_tokens", outputTokens).
		Float64("cost_usd", costUSD).
		Bool("cache_hit", cacheHit).
		Msg("llm call")
}
