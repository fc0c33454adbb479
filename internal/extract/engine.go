package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"cdicheck/internal/domain"
	"cdicheck/internal/llm"
	"cdicheck/internal/port"
)

const (
	maxTokens   = 1500
	temperature = 0.0
)

// Engine extracts structured case data from a typed chart document. Like
// classification, extraction never fails the pipeline: any error yields a
// defaulted record so one bad chart cannot abort the batch.
type Engine struct {
	client        port.LLMClient
	maxChartWords int
	contextWords  int
	log           zerolog.Logger
}

func NewEngine(client port.LLMClient, maxChartWords, contextWords int, log zerolog.Logger) *Engine {
	if maxChartWords <= 0 {
		maxChartWords = 100000
	}
	if contextWords <= 0 {
		contextWords = 2000
	}
	return &Engine{client: client, maxChartWords: maxChartWords, contextWords: contextWords, log: log}
}

// rawPayload is the extraction response before defaulting. Arrays may come
// back as single strings from the model; coerce handles both.
type rawPayload map[string]any

// Extract runs the type-specific template for doc and returns the parsed
// record. The cache partition includes the chart type so identical text
// classified differently never collides.
func (e *Engine) Extract(ctx context.Context, doc *domain.ChartDocument) *domain.ExtractionRecord {
	tmpl := templateFor(doc.ChartType)
	chartText := TruncateByWords(strings.TrimSpace(doc.RawText), e.maxChartWords, e.contextWords)

	resp, _, err := e.client.Complete(ctx, port.LLMRequest{
		Prompt:        tmpl.build(chartText),
		MaxTokens:     maxTokens,
		Temperature:   temperature,
		CacheCategory: "extraction_" + string(doc.ChartType),
	})
	if err != nil {
		e.log.Warn().Err(err).Str("document", doc.ID).Str("chart_type", string(doc.ChartType)).Msg("extraction failed")
		return domain.EmptyExtractionRecord()
	}

	record, err := parseExtraction(resp.Text, tmpl.extensionKeys)
	if err != nil {
		e.log.Warn().Err(err).Str("document", doc.ID).Str("chart_type", string(doc.ChartType)).Msg("malformed extraction response")
		return domain.EmptyExtractionRecord()
	}

	e.log.Debug().
		Str("document", doc.ID).
		Str("patient_name", record.PatientName).
		Int("procedures", len(record.Procedures)).
		Int("cpt_codes", len(record.CPTCodes)).
		Msg("extraction complete")
	return record
}

func parseExtraction(responseText string, extensionKeys []string) (*domain.ExtractionRecord, error) {
	raw, err := llm.FirstJSONObject(responseText)
	if err != nil {
		return nil, err
	}
	var payload rawPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("parsing extraction JSON: %w", err)
	}

	record := domain.EmptyExtractionRecord()
	if v := stringField(payload, "patient_name"); v != "" {
		record.PatientName = v
	}
	if v := stringField(payload, "patient_age"); v != "" {
		record.PatientAge = v
	}
	if v := stringField(payload, "chart_specialty"); v != "" {
		record.Specialty = v
	}
	record.CPTCodes = stringList(payload, "cpt")
	record.Procedures = stringList(payload, "procedure")
	record.Summary = stringField(payload, "summary")

	for _, key := range extensionKeys {
		if v, ok := payload[key]; ok && v != nil {
			if record.Extensions == nil {
				record.Extensions = map[string]any{}
			}
			record.Extensions[key] = v
		}
	}
	return record, nil
}

func stringField(payload rawPayload, key string) string {
	if v, ok := payload[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// stringList coerces a field to []string, tolerating a bare string value.
func stringList(payload rawPayload, key string) []string {
	switch v := payload[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}
		}
		return []string{strings.TrimSpace(v)}
	default:
		return []string{}
	}
}
