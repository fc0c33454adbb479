package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdicheck/internal/domain"
)

func payerResult(decision domain.Decision, errMsg string) *domain.PayerComplianceResult {
	return &domain.PayerComplianceResult{Decision: decision, Error: errMsg}
}

func TestBuildPayerSummaryTallies(t *testing.T) {
	results := []*domain.ProcedureComplianceResult{
		{
			ProcedureName: "Knee arthroscopy",
			PayerResults: map[string]*domain.PayerComplianceResult{
				"cigna": payerResult(domain.DecisionSufficient, ""),
				"uhc":   payerResult(domain.DecisionInsufficient, ""),
			},
		},
		{
			ProcedureName: "Meniscectomy",
			PayerResults: map[string]*domain.PayerComplianceResult{
				"cigna": payerResult(domain.DecisionInsufficient, "evaluation failed: timeout"),
				"uhc":   payerResult(domain.DecisionSufficient, ""),
			},
		},
	}

	summary := BuildPayerSummary(results, pipelinePayers)

	cigna := summary.PerPayer["cigna"]
	require.NotNil(t, cigna)
	assert.Equal(t, "Cigna", cigna.PayerDisplayName)
	assert.Equal(t, 2, cigna.Total)
	assert.Equal(t, 1, cigna.Sufficient)
	assert.Equal(t, 0, cigna.Insufficient)
	// errored evaluations count as other, not insufficient
	assert.Equal(t, 1, cigna.Other)
	assert.InDelta(t, 50.0, cigna.SufficientPct, 1e-9)
	assert.InDelta(t, 50.0, cigna.OtherPct, 1e-9)

	uhc := summary.PerPayer["uhc"]
	assert.Equal(t, 1, uhc.Sufficient)
	assert.Equal(t, 1, uhc.Insufficient)

	overall := summary.Overall
	assert.Equal(t, 4, overall.Total)
	assert.Equal(t, 2, overall.Sufficient)
	assert.Equal(t, 1, overall.Insufficient)
	assert.Equal(t, 1, overall.Other)
	assert.InDelta(t, 50.0, overall.SufficientPct, 1e-9)
}

func TestBuildPayerSummaryMissingPayerCountsOther(t *testing.T) {
	results := []*domain.ProcedureComplianceResult{
		{
			ProcedureName: "Knee arthroscopy",
			PayerResults: map[string]*domain.PayerComplianceResult{
				"cigna": payerResult(domain.DecisionSufficient, ""),
			},
		},
	}

	summary := BuildPayerSummary(results, pipelinePayers)

	assert.Equal(t, 1, summary.PerPayer["uhc"].Other)
	assert.Equal(t, 1, summary.PerPayer["uhc"].Total)
}

func TestBuildPayerSummaryEmpty(t *testing.T) {
	summary := BuildPayerSummary(nil, pipelinePayers)

	assert.Equal(t, 0, summary.Overall.Total)
	assert.Zero(t, summary.Overall.SufficientPct)
	require.Len(t, summary.PerPayer, 2)
	assert.Equal(t, 0, summary.PerPayer["cigna"].Total)
}
