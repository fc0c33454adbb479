package evaluate

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cdicheck/internal/config"
	"cdicheck/internal/domain"
	"cdicheck/internal/port"
	"cdicheck/mocks"
)

var testPayers = []config.PayerConfig{
	{Key: "cigna", Name: "Cigna", Priority: 1},
	{Key: "uhc", Name: "UnitedHealthcare", Priority: 2},
	{Key: "anthem", Name: "Anthem", Priority: 3},
}

func emptyGuidelineSource() *mocks.MockGuidelineSource {
	source := new(mocks.MockGuidelineSource)
	source.On("Search", mock.Anything, mock.Anything, mock.Anything).Return([]port.GuidelineHit{})
	source.On("SearchByCPT", mock.Anything, mock.Anything, mock.Anything).Return([]port.GuidelineHit{})
	source.On("BuildContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(port.GuidelineContext{Text: "guideline context", HasGuidelines: true})
	return source
}

func caseWith(procedures, cptCodes []string) *domain.CaseRecord {
	return &domain.CaseRecord{
		PatientName: "Sarah Johnson",
		Procedures:  procedures,
		CPTCodes:    cptCodes,
	}
}

func evalCombined() *domain.CombinedChartText {
	return &domain.CombinedChartText{
		Text:      "L001: === BEGIN DOCUMENT: op (operative_note) ===\nL002: Procedure: knee arthroscopy\nL003: Conservative therapy 8 weeks\nL004: === END DOCUMENT: op ===",
		LineCount: 4,
		Segments: []domain.ChartSegment{
			{DocumentID: "op", ChartType: domain.ChartTypeOperative, StartLine: 2, EndLine: 3},
		},
	}
}

const goodResponse = `{
  "cigna": {
    "procedure_evaluated": "Knee arthroscopy",
    "policy_name": "Cigna Arthroscopy Policy",
    "decision": "Sufficient",
    "primary_reasons": ["Conservative therapy documented"],
    "requirement_checklist": [
      {
        "requirement_id": "conservative_mgmt",
        "status": "met",
        "evidence": [{"line_reference": "L003"}],
        "missing_to_meet": "",
        "suggestion": ""
      }
    ]
  },
  "uhc": {
    "procedure_evaluated": "Knee arthroscopy",
    "policy_name": "UHC Knee Policy",
    "decision": "Insufficient",
    "primary_reasons": ["Imaging not documented"],
    "requirement_checklist": [
      {
        "requirement_id": "imaging",
        "status": "unmet",
        "evidence": [],
        "missing_to_meet": "MRI report",
        "suggestion": "Attach the MRI report confirming the tear"
      }
    ]
  },
  "anthem": {
    "procedure_evaluated": "Knee arthroscopy",
    "policy_name": "Anthem Policy",
    "decision": "Sufficient",
    "primary_reasons": [],
    "requirement_checklist": []
  }
}`

func TestEvaluateSingleCallAllPayers(t *testing.T) {
	client := new(mocks.MockLLMClient)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(req port.LLMRequest) bool {
		return req.CacheCategory == "compliance" &&
			req.MaxTokens == 4000 &&
			strings.Contains(req.Prompt, "=== CIGNA GUIDELINES") &&
			strings.Contains(req.Prompt, "=== UNITEDHEALTHCARE GUIDELINES") &&
			strings.Contains(req.Prompt, "=== ANTHEM GUIDELINES") &&
			strings.Contains(req.System, "MULTI-PAYER TASK")
	})).Return(&port.LLMResponse{Text: goodResponse, Usage: domain.UsageInfo{InputTokens: 2000, OutputTokens: 900, ModelID: "m"}}, false, nil).Once()

	e := NewEvaluator(client, emptyGuidelineSource(), testPayers, 6, 12000, zerolog.Nop())
	results := e.Evaluate(context.Background(), caseWith([]string{"Knee arthroscopy"}, nil), evalCombined())

	require.Len(t, results, 1)
	require.Len(t, results[0].PayerResults, 3)

	cigna := results[0].PayerResults["cigna"]
	assert.Equal(t, domain.DecisionSufficient, cigna.Decision)
	assert.Equal(t, "Cigna Arthroscopy Policy", cigna.PolicyName)
	require.Len(t, cigna.Citations, 1)
	assert.Equal(t, "op", cigna.Citations[0].DocumentID)
	assert.Equal(t, 3, cigna.Citations[0].StartLine)
	require.Len(t, cigna.Checklist, 1)
	assert.Equal(t, domain.RequirementMet, cigna.Checklist[0].Status)

	uhc := results[0].PayerResults["uhc"]
	assert.Equal(t, domain.DecisionInsufficient, uhc.Decision)
	assert.Equal(t, []string{"Imaging not documented"}, uhc.Rationale)

	// one model call for all three payers
	client.AssertNumberOfCalls(t, "Complete", 1)
}

func TestEvaluateCallCountScalesWithProcedures(t *testing.T) {
	client := new(mocks.MockLLMClient)
	client.On("Complete", mock.Anything, mock.Anything).
		Return(&port.LLMResponse{Text: goodResponse, Usage: domain.UsageInfo{}}, false, nil)

	e := NewEvaluator(client, emptyGuidelineSource(), testPayers, 6, 12000, zerolog.Nop())
	procs := []string{"Knee arthroscopy", "Meniscectomy", "Chondroplasty"}
	results := e.Evaluate(context.Background(), caseWith(procs, nil), evalCombined())

	require.Len(t, results, 3)
	client.AssertNumberOfCalls(t, "Complete", len(procs))
}

func TestEvaluateCPTBasedRetrieval(t *testing.T) {
	source := new(mocks.MockGuidelineSource)
	hit := []port.GuidelineHit{{Score: 150, ID: "cigna_0", Payer: "cigna"}}
	source.On("SearchByCPT", "cigna", []string{"29881"}, 6).Return(hit)
	source.On("SearchByCPT", mock.Anything, mock.Anything, mock.Anything).Return([]port.GuidelineHit{})
	source.On("Search", mock.Anything, mock.Anything, mock.Anything).Return([]port.GuidelineHit{})
	source.On("BuildContext", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(port.GuidelineContext{Text: "ctx", HasGuidelines: true})

	client := new(mocks.MockLLMClient)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(req port.LLMRequest) bool {
		return strings.Contains(req.Prompt, "=== CIGNA GUIDELINES FOR CPT CODES 29881 ===") &&
			strings.Contains(req.Prompt, "=== UNITEDHEALTHCARE GUIDELINES FOR PROCEDURE 'Knee arthroscopy' ===")
	})).Return(&port.LLMResponse{Text: goodResponse, Usage: domain.UsageInfo{}}, false, nil)

	e := NewEvaluator(client, source, testPayers, 6, 12000, zerolog.Nop())
	results := e.Evaluate(context.Background(), caseWith([]string{"Knee arthroscopy"}, []string{"29881"}), evalCombined())

	require.Len(t, results, 1)
	client.AssertExpectations(t)
}

func TestEvaluateTransportErrorPerPayerEntries(t *testing.T) {
	client := new(mocks.MockLLMClient)
	client.On("Complete", mock.Anything, mock.Anything).Return(nil, false, assert.AnError)

	e := NewEvaluator(client, emptyGuidelineSource(), testPayers, 6, 12000, zerolog.Nop())
	results := e.Evaluate(context.Background(), caseWith([]string{"Knee arthroscopy"}, nil), evalCombined())

	require.Len(t, results, 1)
	for _, payer := range testPayers {
		pr := results[0].PayerResults[payer.Key]
		require.NotNil(t, pr)
		assert.Equal(t, domain.DecisionInsufficient, pr.Decision)
		assert.NotEmpty(t, pr.Error)
	}
}

func TestEvaluateMissingPayerInResponse(t *testing.T) {
	partial := `{
  "cigna": {"procedure_evaluated": "Knee arthroscopy", "decision": "Sufficient", "primary_reasons": [], "requirement_checklist": []}
}`
	client := new(mocks.MockLLMClient)
	client.On("Complete", mock.Anything, mock.Anything).
		Return(&port.LLMResponse{Text: partial, Usage: domain.UsageInfo{}}, false, nil)

	e := NewEvaluator(client, emptyGuidelineSource(), testPayers, 6, 12000, zerolog.Nop())
	results := e.Evaluate(context.Background(), caseWith([]string{"Knee arthroscopy"}, nil), evalCombined())

	assert.Empty(t, results[0].PayerResults["cigna"].Error)
	assert.Contains(t, results[0].PayerResults["uhc"].Error, `missing "uhc"`)
	assert.Contains(t, results[0].PayerResults["anthem"].Error, `missing "anthem"`)
}

func TestEvaluateUnverifiableCitationsDowngrade(t *testing.T) {
	bogus := `{
  "cigna": {
    "procedure_evaluated": "Knee arthroscopy",
    "decision": "Sufficient",
    "primary_reasons": ["All criteria met"],
    "requirement_checklist": [
      {"requirement_id": "imaging", "status": "met", "evidence": [{"line_reference": "L950"}]}
    ]
  },
  "uhc": {"procedure_evaluated": "Knee arthroscopy", "decision": "Insufficient", "primary_reasons": [], "requirement_checklist": []},
  "anthem": {"procedure_evaluated": "Knee arthroscopy", "decision": "Insufficient", "primary_reasons": [], "requirement_checklist": []}
}`
	client := new(mocks.MockLLMClient)
	client.On("Complete", mock.Anything, mock.Anything).
		Return(&port.LLMResponse{Text: bogus, Usage: domain.UsageInfo{}}, false, nil)

	e := NewEvaluator(client, emptyGuidelineSource(), testPayers, 6, 12000, zerolog.Nop())
	results := e.Evaluate(context.Background(), caseWith([]string{"Knee arthroscopy"}, nil), evalCombined())

	cigna := results[0].PayerResults["cigna"]
	assert.Equal(t, domain.DecisionInsufficient, cigna.Decision)
	assert.Equal(t, []string{"L950"}, cigna.Unverifiable)
	assert.Empty(t, cigna.Citations)
	assert.Contains(t, cigna.Rationale[len(cigna.Rationale)-1], "could not be verified")
}

func TestEvaluateDuplicateProceduresEvaluatedEach(t *testing.T) {
	client := new(mocks.MockLLMClient)
	client.On("Complete", mock.Anything, mock.Anything).
		Return(&port.LLMResponse{Text: goodResponse, Usage: domain.UsageInfo{}}, false, nil)

	e := NewEvaluator(client, emptyGuidelineSource(), testPayers, 6, 12000, zerolog.Nop())
	procs := []string{"Knee arthroscopy", "Knee arthroscopy"}
	results := e.Evaluate(context.Background(), caseWith(procs, nil), evalCombined())

	require.Len(t, results, 2)
	assert.Equal(t, "Knee arthroscopy", results[0].ProcedureName)
	assert.Equal(t, "Knee arthroscopy", results[1].ProcedureName)
}

func TestEvaluateNoProcedures(t *testing.T) {
	client := new(mocks.MockLLMClient)

	e := NewEvaluator(client, emptyGuidelineSource(), testPayers, 6, 12000, zerolog.Nop())
	results := e.Evaluate(context.Background(), caseWith(nil, nil), evalCombined())

	assert.Empty(t, results)
	client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}
