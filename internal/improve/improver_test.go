package improve

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cdicheck/internal/domain"
	"cdicheck/internal/port"
	"cdicheck/mocks"
)

const originalChart = "PROCEDURE: Knee arthroscopy\nConservative treatment tried"

func resultsWithGaps() []*domain.ProcedureComplianceResult {
	return []*domain.ProcedureComplianceResult{
		{
			ProcedureName: "Knee arthroscopy",
			PayerResults: map[string]*domain.PayerComplianceResult{
				"uhc": {
					PayerName: "UnitedHealthcare",
					Decision:  domain.DecisionInsufficient,
					Rationale: []string{"Imaging not documented"},
					Checklist: []domain.RequirementCheck{
						{
							RequirementID: "imaging",
							Status:        domain.RequirementUnmet,
							MissingToMeet: "MRI report confirming the tear",
							Suggestion:    "Attach the MRI report",
						},
						{
							RequirementID: "conservative_mgmt",
							Status:        domain.RequirementMet,
						},
					},
				},
				"cigna": {
					PayerName: "Cigna",
					Decision:  domain.DecisionInsufficient,
					Error:     "evaluation failed: boom",
				},
			},
		},
	}
}

func TestImproveBuildsPromptFromGaps(t *testing.T) {
	client := new(mocks.MockLLMClient)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(req port.LLMRequest) bool {
		return req.CacheCategory == "chart_improvement" &&
			req.MaxTokens == 8000 &&
			strings.Contains(req.Prompt, originalChart) &&
			strings.Contains(req.Prompt, "UnitedHealthcare - Knee arthroscopy") &&
			strings.Contains(req.Prompt, "imaging: MRI report confirming the tear") &&
			strings.Contains(req.Prompt, "Suggestion: Attach the MRI report") &&
			// errored payer entries carry no usable recommendation
			!strings.Contains(req.Prompt, "Cigna - Knee arthroscopy") &&
			strings.Contains(req.System, "[AI ADDED: description]")
	})).Return(&port.LLMResponse{
		Text: `{"improved_chart": "PROCEDURE: Knee arthroscopy\n[AI ADDED: Clarified wording] Conservative treatment attempted [NEEDS PHYSICIAN INPUT: duration]", "success": true}`,
	}, false, nil).Once()

	im := NewImprover(client, zerolog.Nop())
	improved := im.Improve(context.Background(), originalChart, resultsWithGaps())

	assert.Contains(t, improved, "[AI ADDED: Clarified wording]")
	assert.Contains(t, improved, "[NEEDS PHYSICIAN INPUT: duration]")
	client.AssertExpectations(t)
}

func TestImproveMetChecklistItemsExcluded(t *testing.T) {
	var captured string
	client := new(mocks.MockLLMClient)
	client.On("Complete", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.Get(1).(port.LLMRequest).Prompt
		}).
		Return(&port.LLMResponse{Text: `{"improved_chart": "ok", "success": true}`}, false, nil)

	im := NewImprover(client, zerolog.Nop())
	im.Improve(context.Background(), originalChart, resultsWithGaps())

	require.NotEmpty(t, captured)
	assert.NotContains(t, captured, "conservative_mgmt")
}

func TestImproveTransportErrorReturnsOriginal(t *testing.T) {
	client := new(mocks.MockLLMClient)
	client.On("Complete", mock.Anything, mock.Anything).Return(nil, false, assert.AnError)

	im := NewImprover(client, zerolog.Nop())
	improved := im.Improve(context.Background(), originalChart, resultsWithGaps())

	assert.Equal(t, originalChart, improved)
}

func TestImproveMalformedResponseReturnsOriginal(t *testing.T) {
	for _, text := range []string{"no json here", `{"success": true}`, `{"improved_chart": "  "}`} {
		client := new(mocks.MockLLMClient)
		client.On("Complete", mock.Anything, mock.Anything).
			Return(&port.LLMResponse{Text: text}, false, nil)

		im := NewImprover(client, zerolog.Nop())
		assert.Equal(t, originalChart, im.Improve(context.Background(), originalChart, resultsWithGaps()), text)
	}
}

func TestImproveNoGapsStillCalls(t *testing.T) {
	client := new(mocks.MockLLMClient)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(req port.LLMRequest) bool {
		return strings.Contains(req.Prompt, "No specific recommendations available.")
	})).Return(&port.LLMResponse{Text: `{"improved_chart": "improved", "success": true}`}, false, nil)

	im := NewImprover(client, zerolog.Nop())
	improved := im.Improve(context.Background(), originalChart, nil)

	assert.Equal(t, "improved", improved)
}
