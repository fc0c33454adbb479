package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"cdicheck/internal/classify"
	"cdicheck/internal/config"
	"cdicheck/internal/domain"
	"cdicheck/internal/evaluate"
	"cdicheck/internal/extract"
	"cdicheck/internal/improve"
	"cdicheck/internal/ingest"
	"cdicheck/internal/merge"
	"cdicheck/internal/port"
)

// Processor orchestrates one full run: read, classify and extract every
// document, merge into a case, evaluate compliance per procedure, and
// optionally improve the chart. It never panics on bad input; per-document
// failures become warnings and batch-fatal conditions land in Errors on a
// structurally complete result.
type Processor struct {
	reader      port.DocumentReader
	client      port.LLMClient
	source      port.GuidelineSource
	payers      []config.PayerConfig
	cfg         config.PipelineConfig
	inputPer1K  float64
	outputPer1K float64
	log         zerolog.Logger
}

func NewProcessor(reader port.DocumentReader, client port.LLMClient, source port.GuidelineSource, payers []config.PayerConfig, cfg config.PipelineConfig, inputPer1K, outputPer1K float64, log zerolog.Logger) *Processor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Processor{
		reader:      reader,
		client:      client,
		source:      source,
		payers:      payers,
		cfg:         cfg,
		inputPer1K:  inputPer1K,
		outputPer1K: outputPer1K,
		log:         log,
	}
}

// usageTracker wraps the shared client so one run's token totals and cost
// can be reported independently of concurrent runs. Cached responses count
// toward usage but not toward cost.
type usageTracker struct {
	inner       port.LLMClient
	inputPer1K  float64
	outputPer1K float64

	mu    sync.Mutex
	usage domain.UsageInfo
	cost  float64
}

func (t *usageTracker) Complete(ctx context.Context, req port.LLMRequest) (*port.LLMResponse, bool, error) {
	resp, fromCache, err := t.inner.Complete(ctx, req)
	if err != nil {
		return nil, false, err
	}
	t.mu.Lock()
	t.usage.Add(resp.Usage)
	if !fromCache {
		t.cost += resp.Usage.Cost(t.inputPer1K, t.outputPer1K)
	}
	t.mu.Unlock()
	return resp, fromCache, nil
}

func (t *usageTracker) snapshot() (domain.UsageInfo, float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage, t.cost
}

type readDocument struct {
	id   string
	path string
	text string
}

// ProcessDocuments runs the full pipeline over the given chart files.
// The returned result is always non-nil and structurally complete.
func (p *Processor) ProcessDocuments(ctx context.Context, paths []string) *domain.ProcessingResult {
	started := time.Now()
	result := &domain.ProcessingResult{
		RunID:            uuid.NewString(),
		ProcedureResults: []*domain.ProcedureComplianceResult{},
		ExecutionSecs:    map[string]float64{},
	}
	log := p.log.With().Str("run_id", result.RunID).Logger()

	if len(paths) == 0 {
		result.Errors = append(result.Errors, "no documents provided")
		return result
	}

	tracker := &usageTracker{inner: p.client, inputPer1K: p.inputPer1K, outputPer1K: p.outputPer1K}
	classifier := classify.NewClassifier(tracker, p.cfg.SampleWords, log)
	extractor := extract.NewEngine(tracker, p.cfg.MaxChartWords, p.cfg.ContextWords, log)
	evaluator := evaluate.NewEvaluator(tracker, p.source, p.payers, p.cfg.TopK, p.cfg.MaxContextChars, log)
	improver := improve.NewImprover(tracker, log)

	// Read phase. Unreadable files are skipped with a warning, not fatal.
	phase := time.Now()
	read := make([]readDocument, 0, len(paths))
	for _, path := range paths {
		if !p.reader.ValidateDocument(path) {
			warn := "skipping unsupported or unreadable file: " + path
			log.Warn().Str("path", path).Msg("document skipped, unsupported or unreadable")
			result.Warnings = append(result.Warnings, warn)
			continue
		}
		text, err := p.reader.ReadDocument(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("document skipped, read failed")
			result.Warnings = append(result.Warnings, "skipping "+path+": "+err.Error())
			continue
		}
		read = append(read, readDocument{id: ingest.DocumentID(path), path: path, text: text})
	}
	result.ExecutionSecs["read"] = time.Since(phase).Seconds()
	if len(read) == 0 {
		result.Errors = append(result.Errors, "no readable documents in batch")
		result.ExecutionSecs["total"] = time.Since(started).Seconds()
		return result
	}

	// Classify and extract fan out with bounded concurrency. Results are
	// stored by input index so document order survives scheduling order.
	phase = time.Now()
	docs := make([]*domain.ChartDocument, len(read))
	records := make([]*domain.ExtractionRecord, len(read))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, rd := range read {
		g.Go(func() error {
			cls := classifier.Classify(gctx, rd.id, rd.text)
			doc := &domain.ChartDocument{
				ID:             rd.id,
				Path:           rd.path,
				RawText:        rd.text,
				SampleText:     classifier.Sample(rd.text),
				ChartType:      cls.ChartType,
				TypeConfidence: cls.Confidence,
				DisplayTitle:   cls.DisplayTitle,
			}
			docs[i] = doc
			records[i] = extractor.Extract(gctx, doc)
			return nil
		})
	}
	_ = g.Wait()
	result.ExecutionSecs["classify_extract"] = time.Since(phase).Seconds()

	// Merge into the canonical case and build the numbered combined chart.
	phase = time.Now()
	inputs := make([]merge.Input, len(read))
	for i := range read {
		inputs[i] = merge.Input{Doc: docs[i], Record: records[i]}
	}
	result.CaseRecord = merge.Merge(inputs, log)
	result.CombinedChart = merge.BuildCombinedText(docs)
	result.PerDocument = make(map[string]*domain.PerDocumentDetail, len(docs))
	for i, doc := range docs {
		result.PerDocument[doc.ID] = &domain.PerDocumentDetail{
			ChartType:      doc.ChartType,
			TypeConfidence: doc.TypeConfidence,
			DisplayTitle:   doc.DisplayTitle,
			ExtractionData: records[i],
		}
	}
	result.ExecutionSecs["merge"] = time.Since(phase).Seconds()

	if len(result.CaseRecord.Procedures) == 0 {
		result.Warnings = append(result.Warnings, "no procedures identified; compliance evaluation skipped")
		log.Warn().Msg("no procedures identified, skipping compliance evaluation")
	} else {
		phase = time.Now()
		result.ProcedureResults = evaluator.Evaluate(ctx, result.CaseRecord, result.CombinedChart)
		result.ExecutionSecs["evaluate"] = time.Since(phase).Seconds()

		if p.cfg.ImproveChart {
			phase = time.Now()
			chartText := merge.RemoveLineNumbers(result.CombinedChart.Text)
			result.ImprovedChartText = improver.Improve(ctx, chartText, result.ProcedureResults)
			result.ExecutionSecs["improve"] = time.Since(phase).Seconds()
		}
	}

	result.PayerSummary = BuildPayerSummary(result.ProcedureResults, p.payers)
	result.Usage, result.TotalCostUSD = tracker.snapshot()
	result.ExecutionSecs["total"] = time.Since(started).Seconds()

	log.Info().
		Int("documents", len(docs)).
		Int("procedures", len(result.CaseRecord.Procedures)).
		Float64("cost_usd", result.TotalCostUSD).
		Float64("secs", result.ExecutionSecs["total"]).
		Msg("processing run complete")
	return result
}
