package pipeline

import (
	"cdicheck/internal/config"
	"cdicheck/internal/domain"
)

// BuildPayerSummary tallies decisions per payer and overall. Procedures
// whose evaluation errored count as Other rather than Insufficient so the
// percentages reflect actual guideline verdicts.
func BuildPayerSummary(results []*domain.ProcedureComplianceResult, payers []config.PayerConfig) *domain.PayerSummary {
	summary := &domain.PayerSummary{
		PerPayer: make(map[string]*domain.PayerTally, len(payers)),
		Overall:  &domain.PayerTally{},
	}
	for _, payer := range payers {
		tally := &domain.PayerTally{PayerDisplayName: payer.Name}
		for _, proc := range results {
			pr, ok := proc.PayerResults[payer.Key]
			tally.Total++
			switch {
			case !ok || pr.Error != "":
				tally.Other++
			case pr.Decision == domain.DecisionSufficient:
				tally.Sufficient++
			default:
				tally.Insufficient++
			}
		}
		finalize(tally)
		summary.PerPayer[payer.Key] = tally

		summary.Overall.Total += tally.Total
		summary.Overall.Sufficient += tally.Sufficient
		summary.Overall.Insufficient += tally.Insufficient
		summary.Overall.Other += tally.Other
	}
	finalize(summary.Overall)
	return summary
}

func finalize(t *domain.PayerTally) {
	if t.Total == 0 {
		return
	}
	t.SufficientPct = float64(t.Sufficient) / float64(t.Total) * 100
	t.InsufficientPct = float64(t.Insufficient) / float64(t.Total) * 100
	t.OtherPct = float64(t.Other) / float64(t.Total) * 100
}
