package improve

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
	maxTokens   = 8000
	temperature = 0.1

	// maxChartChars bounds the original chart embedded in the prompt.
	maxChartChars = 8000
)

const improvementSystemPrompt = `You are an expert medical documentation specialist and clinical documentation improvement (CDI) professional.

Your task is to improve medical charts to meet payer compliance requirements while maintaining medical accuracy and completeness.

Key principles:
1. Never fabricate clinical information
2. MANDATORY: Use [AI ADDED: description] markers for ALL content you add or improve that was not in the original chart
3. MANDATORY: Use [NEEDS PHYSICIAN INPUT: description] placeholders for information that ONLY the treating physician can provide
4. Suggest specific improvements based on actual CDI recommendations
5. Maintain proper medical documentation format and terminology
6. Ensure transparency by clearly distinguishing AI-generated content from areas requiring physician input`

// Improver rewrites a chart with compliance gaps surfaced as marked
// additions. It never fabricates clinical facts: anything only the treating
// physician can supply becomes a [NEEDS PHYSICIAN INPUT: ...] placeholder.
// On any failure the original chart text is returned unchanged.
type Improver struct {
	client port.LLMClient
	log    zerolog.Logger
}

func NewImprover(client port.LLMClient, log zerolog.Logger) *Improver {
	return &Improver{client: client, log: log}
}

type improvementPayload struct {
	ImprovedChart string `json:"improved_chart"`
	Success       bool   `json:"success"`
}

// Improve generates the improved chart text from the compliance results.
// chartText is the clean (un-numbered) combined chart.
func (im *Improver) Improve(ctx context.Context, chartText string, results []*domain.ProcedureComplianceResult) string {
	gaps := summarizeGaps(results)
	if gaps == "" {
		gaps = "No specific recommendations available."
	}

	resp, _, err := im.client.Complete(ctx, port.LLMRequest{
		Prompt:        improvementPrompt(chartText, gaps),
		System:        improvementSystemPrompt,
		MaxTokens:     maxTokens,
		Temperature:   temperature,
		CacheCategory: "chart_improvement",
	})
	if err != nil {
		im.log.Warn().Err(err).Msg("chart improvement failed, returning original chart")
		return chartText
	}

	raw, err := llm.FirstJSONObject(resp.Text)
	if err != nil {
		im.log.Warn().Err(err).Msg("no JSON in improvement response, returning original chart")
		return chartText
	}
	var payload improvementPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil || strings.TrimSpace(payload.ImprovedChart) == "" {
		im.log.Warn().Msg("malformed improvement response, returning original chart")
		return chartText
	}
	return payload.ImprovedChart
}

// summarizeGaps flattens the compliance findings into the recommendation
// block of the prompt: per payer decisions, unmet requirements, and the main
// rationale lines.
func summarizeGaps(results []*domain.ProcedureComplianceResult) string {
	var b strings.Builder
	n := 0
	for _, proc := range results {
		for _, payerResult := range proc.PayerResults {
			if payerResult.Error != "" {
				continue
			}
			n++
			fmt.Fprintf(&b, "\n### Recommendation %d: %s - %s\n", n, payerResult.PayerName, proc.ProcedureName)
			fmt.Fprintf(&b, "Decision: %s\n", payerResult.Decision)
			if len(payerResult.Rationale) > 0 {
				b.WriteString("**Primary Reasons:**\n")
				for _, reason := range payerResult.Rationale {
					fmt.Fprintf(&b, "  - %s\n", reason)
				}
			}
			unmet := false
			for _, check := range payerResult.Checklist {
				if check.Status == domain.RequirementMet {
					continue
				}
				if !unmet {
					b.WriteString("**Unmet Requirements:**\n")
					unmet = true
				}
				fmt.Fprintf(&b, "  - %s: %s\n", check.RequirementID, check.MissingToMeet)
				if check.Suggestion != "" {
					fmt.Fprintf(&b, "    Suggestion: %s\n", check.Suggestion)
				}
			}
			b.WriteString("---\n")
		}
	}
	return b.String()
}

func improvementPrompt(chartText, gaps string) string {
	if len(chartText) > maxChartChars {
		chartText = chartText[:maxChartChars]
	}
	return fmt.Sprintf(`# MEDICAL CHART IMPROVEMENT TASK

You are reviewing a medical chart and will improve it based on CDI compliance recommendations from multiple payers.

## ORIGINAL MEDICAL CHART:
%s

## RECOMMENDATIONS FROM ALL PAYERS:
%s

## YOUR TASK:

Generate a JSON response with this structure:
{
  "improved_chart": "STRING - the improved medical chart text",
  "success": true
}

## GUIDELINES FOR IMPROVEMENT:

1. DO NOT FABRICATE CLINICAL DATA: never invent patient symptoms, test results, or clinical findings
2. Mark ALL content you add or improve with [AI ADDED: description] markers
3. Embed [NEEDS PHYSICIAN INPUT: description] placeholders DIRECTLY IN THE CHART TEXT wherever missing information can only come from the treating physician
4. Improve structure and terminology, marking every such change with [AI ADDED: ...]
5. Preserve all original clinical information intact
6. Do NOT add line numbers (L001:, L002:) to the chart text
7. NEVER mention insurance company names in the chart text; document clinical criteria and medical necessity without referencing specific payers

Example:
Original: "Conservative treatment tried"
Improved: "[AI ADDED: Clarified wording] Conservative treatment attempted [NEEDS PHYSICIAN INPUT: type of treatment, duration in weeks, frequency, patient response]"

Return ONLY valid JSON, no other text.`, chartText, gaps)
}
