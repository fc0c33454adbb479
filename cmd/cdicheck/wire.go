package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"cdicheck/internal/cache"
	"cdicheck/internal/config"
	"cdicheck/internal/guidelines"
	"cdicheck/internal/ingest"
	"cdicheck/internal/llm"
	"cdicheck/internal/llm/bedrock"
	"cdicheck/internal/logging"
	"cdicheck/internal/pipeline"
)

// app holds the wired dependency graph shared by the process and serve
// commands.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	cache     *cache.Service
	store     *guidelines.Store
	processor *pipeline.Processor
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if flagLogFormat != "" {
		cfg.Log.Format = flagLogFormat
	}
	log := logging.Setup(cfg.Log.Format, cfg.Log.Level)

	gateway, err := bedrock.NewGateway(ctx, &cfg.Bedrock, log)
	if err != nil {
		return nil, fmt.Errorf("initializing bedrock gateway: %w", err)
	}

	cacheSvc, err := cache.NewService(cache.Options{
		Dir:         cfg.Cache.Dir,
		TTL:         cfg.Cache.TTL,
		Enabled:     cfg.Cache.Enabled,
		ModelID:     cfg.Bedrock.ModelID,
		InputPer1K:  cfg.Bedrock.InputPer1K,
		OutputPer1K: cfg.Bedrock.OutputPer1K,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("initializing response cache: %w", err)
	}

	client := llm.NewCachedClient(gateway, cacheSvc, cfg.Bedrock.InputPer1K, cfg.Bedrock.OutputPer1K, log)

	guidelinePaths := map[string]string{"general": cfg.General.GuidelineDir}
	for key, payer := range cfg.Payers {
		guidelinePaths[key] = payer.GuidelineDir
	}
	store := guidelines.NewStore(guidelinePaths, cfg.Pipeline.MinRelevance, log)

	reader := ingest.NewFileReader(log)
	processor := pipeline.NewProcessor(
		reader, client, store,
		cfg.SortedPayers(), cfg.Pipeline,
		cfg.Bedrock.InputPer1K, cfg.Bedrock.OutputPer1K,
		log,
	)

	return &app{cfg: cfg, log: log, cache: cacheSvc, store: store, processor: processor}, nil
}
