package classify

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"cdicheck/internal/domain"
	"cdicheck/internal/llm"
	"cdicheck/internal/port"
)

const (
	// minSampleChars is the floor under which a sample is too thin to type.
	minSampleChars = 10

	maxTokens   = 200
	temperature = 0.0
)

// Classifier assigns a chart type to a document from a bounded text sample.
// Classification never fails the pipeline: on any error the document is typed
// other/low with the error recorded in the reason.
type Classifier struct {
	client      port.LLMClient
	sampleWords int
	log         zerolog.Logger
}

func NewClassifier(client port.LLMClient, sampleWords int, log zerolog.Logger) *Classifier {
	if sampleWords <= 0 {
		sampleWords = 100
	}
	return &Classifier{client: client, sampleWords: sampleWords, log: log}
}

// Sample returns the classification sample for text: its first n words.
func (c *Classifier) Sample(text string) string {
	words := strings.Fields(text)
	if len(words) > c.sampleWords {
		words = words[:c.sampleWords]
	}
	return strings.Join(words, " ")
}

type classificationPayload struct {
	ChartType  string `json:"chart_type"`
	Confidence string `json:"confidence"`
	Reason     string `json:"reason"`
}

// Classify types one document. docID is used for logging only.
func (c *Classifier) Classify(ctx context.Context, docID, text string) *domain.Classification {
	sample := c.Sample(text)
	if len(strings.TrimSpace(sample)) < minSampleChars {
		return fallback("Insufficient text sample")
	}

	resp, _, err := c.client.Complete(ctx, port.LLMRequest{
		Prompt:        classificationPrompt(sample),
		MaxTokens:     maxTokens,
		Temperature:   temperature,
		CacheCategory: "classification",
	})
	if err != nil {
		c.log.Warn().Err(err).Str("document", docID).Msg("chart type identification failed")
		return fallback("Identification error: " + err.Error())
	}

	raw, err := llm.FirstJSONObject(resp.Text)
	if err != nil {
		c.log.Warn().Err(err).Str("document", docID).Msg("no JSON in classification response")
		return fallback("Identification error: " + err.Error())
	}
	var payload classificationPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		c.log.Warn().Err(err).Str("document", docID).Msg("malformed classification response")
		return fallback("Identification error: " + err.Error())
	}

	if !domain.ValidChartType(payload.ChartType) {
		return fallback("Invalid chart type returned, defaulting to 'other'")
	}

	chartType := domain.ChartType(payload.ChartType)
	result := &domain.Classification{
		ChartType:    chartType,
		Confidence:   domain.ParseConfidence(payload.Confidence),
		Reason:       payload.Reason,
		DisplayTitle: chartType.DisplayTitle(),
	}
	c.log.Debug().
		Str("document", docID).
		Str("chart_type", string(result.ChartType)).
		Str("confidence", string(result.Confidence)).
		Msg("chart type identified")
	return result
}

func fallback(reason string) *domain.Classification {
	return &domain.Classification{
		ChartType:    domain.ChartTypeOther,
		Confidence:   domain.ConfidenceLow,
		Reason:       reason,
		DisplayTitle: domain.ChartTypeOther.DisplayTitle(),
	}
}
