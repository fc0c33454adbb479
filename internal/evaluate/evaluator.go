package evaluate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"cdicheck/internal/config"
	"cdicheck/internal/domain"
	"cdicheck/internal/llm"
	"cdicheck/internal/port"
)

const (
	maxTokens   = 4000
	temperature = 0.0

	// chartSnippetChars bounds the chart excerpt embedded in retrieval queries.
	chartSnippetChars = 4000

	// generalPayerKey addresses the shared regulatory guideline layer.
	generalPayerKey = "general"
)

// Evaluator checks each case procedure against every configured payer's
// guidelines. One model call covers all payers for a procedure, so the call
// count grows with procedures, not procedures times payers.
type Evaluator struct {
	client          port.LLMClient
	source          port.GuidelineSource
	payers          []config.PayerConfig
	topK            int
	maxContextChars int
	log             zerolog.Logger
}

func NewEvaluator(client port.LLMClient, source port.GuidelineSource, payers []config.PayerConfig, topK, maxContextChars int, log zerolog.Logger) *Evaluator {
	if topK <= 0 {
		topK = 6
	}
	if maxContextChars <= 0 {
		maxContextChars = 12000
	}
	return &Evaluator{
		client:          client,
		source:          source,
		payers:          payers,
		topK:            topK,
		maxContextChars: maxContextChars,
		log:             log,
	}
}

// Evaluate runs compliance for every procedure on the case, in order.
// Duplicated procedure names are evaluated per occurrence. A failed call
// yields per-payer error entries for that procedure and the rest continue.
func (e *Evaluator) Evaluate(ctx context.Context, caseRec *domain.CaseRecord, combined *domain.CombinedChartText) []*domain.ProcedureComplianceResult {
	results := make([]*domain.ProcedureComplianceResult, 0, len(caseRec.Procedures))
	for i, procName := range caseRec.Procedures {
		e.log.Info().
			Str("procedure", procName).
			Int("index", i+1).
			Int("total", len(caseRec.Procedures)).
			Msg("evaluating procedure for all payers")
		results = append(results, e.evaluateProcedure(ctx, procName, i, caseRec, combined))
	}
	return results
}

func (e *Evaluator) evaluateProcedure(ctx context.Context, procName string, procIndex int, caseRec *domain.CaseRecord, combined *domain.CombinedChartText) *domain.ProcedureComplianceResult {
	// One CPT code pairs with one procedure by position; procedures past the
	// CPT list fall back to text retrieval.
	var cptCodes []string
	if procIndex < len(caseRec.CPTCodes) {
		cptCodes = []string{caseRec.CPTCodes[procIndex]}
	}

	snippet := combined.Text
	if len(snippet) > chartSnippetChars {
		snippet = snippet[:chartSnippetChars]
	}
	query := fmt.Sprintf("%s\n\nChart evidence:\n%s", procName, snippet)

	generalCtx := e.source.BuildContext(procName, e.source.Search(generalPayerKey, query, e.topK), e.maxContextChars/(len(e.payers)+1), generalPayerKey)

	perPayerBudget := e.maxContextChars / max(len(e.payers), 1)
	sections := make([]payerSection, 0, len(e.payers))
	for _, payer := range e.payers {
		var hits []port.GuidelineHit
		cptBased := false
		if len(cptCodes) > 0 {
			hits = e.source.SearchByCPT(payer.Key, cptCodes, e.topK)
			cptBased = len(hits) > 0
		}
		if len(hits) == 0 {
			hits = e.source.Search(payer.Key, query, e.topK)
		}
		gctx := e.source.BuildContext(procName, hits, perPayerBudget, payer.Key)
		e.log.Debug().
			Str("payer", payer.Key).
			Str("procedure", procName).
			Int("hits", len(hits)).
			Bool("cpt_based", cptBased).
			Msg("guidelines retrieved")
		sections = append(sections, payerSection{cfg: payer, context: gctx.Text, cptBased: cptBased})
	}

	resp, _, err := e.client.Complete(ctx, port.LLMRequest{
		Prompt:        buildPrompt(procName, combined.Text, generalCtx.Text, sections, cptCodes),
		System:        systemPrompt(),
		MaxTokens:     maxTokens,
		Temperature:   temperature,
		CacheCategory: "compliance",
	})
	if err != nil {
		e.log.Error().Err(err).Str("procedure", procName).Msg("compliance evaluation failed")
		return e.errorResult(procName, "evaluation failed: "+err.Error())
	}

	return e.parseResponse(resp.Text, procName, combined)
}

// payerPayload is one payer's block of the multi-payer response.
type payerPayload struct {
	ProcedureEvaluated string   `json:"procedure_evaluated"`
	PolicyName         string   `json:"policy_name"`
	Decision           string   `json:"decision"`
	PrimaryReasons     []string `json:"primary_reasons"`
	Checklist          []struct {
		RequirementID string `json:"requirement_id"`
		Status        string `json:"status"`
		Evidence      []struct {
			LineReference string `json:"line_reference"`
		} `json:"evidence"`
		MissingToMeet string `json:"missing_to_meet"`
		Suggestion    string `json:"suggestion"`
	} `json:"requirement_checklist"`
}

func (e *Evaluator) parseResponse(responseText, procName string, combined *domain.CombinedChartText) *domain.ProcedureComplianceResult {
	raw, err := llm.FirstJSONObject(responseText)
	if err != nil {
		e.log.Warn().Str("procedure", procName).Msg("no JSON object in compliance response")
		return e.errorResult(procName, "no JSON object found in response")
	}
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return e.errorResult(procName, "failed to parse response: "+err.Error())
	}

	result := &domain.ProcedureComplianceResult{
		ProcedureName: procName,
		PayerResults:  map[string]*domain.PayerComplianceResult{},
	}
	for _, payer := range e.payers {
		block, ok := parsed[payer.Key]
		if !ok {
			result.PayerResults[payer.Key] = errorPayerResult(payer.Name, fmt.Sprintf("missing %q in response", payer.Key))
			continue
		}
		var payload payerPayload
		if err := json.Unmarshal(block, &payload); err != nil || payload.ProcedureEvaluated == "" {
			result.PayerResults[payer.Key] = errorPayerResult(payer.Name, "invalid response structure")
			continue
		}
		result.PayerResults[payer.Key] = e.buildPayerResult(payer, payload, combined)
	}
	return result
}

func (e *Evaluator) buildPayerResult(payer config.PayerConfig, payload payerPayload, combined *domain.CombinedChartText) *domain.PayerComplianceResult {
	decision := domain.DecisionInsufficient
	if payload.Decision == string(domain.DecisionSufficient) {
		decision = domain.DecisionSufficient
	}

	var refs []string
	checklist := make([]domain.RequirementCheck, 0, len(payload.Checklist))
	for _, item := range payload.Checklist {
		check := domain.RequirementCheck{
			RequirementID: item.RequirementID,
			Status:        parseRequirementStatus(item.Status),
			MissingToMeet: item.MissingToMeet,
			Suggestion:    item.Suggestion,
		}
		for _, ev := range item.Evidence {
			if ev.LineReference != "" {
				check.Evidence = append(check.Evidence, ev.LineReference)
				refs = append(refs, ev.LineReference)
			}
		}
		checklist = append(checklist, check)
	}

	citations, unverifiable := resolveCitations(refs, combined)

	rationale := payload.PrimaryReasons
	if rationale == nil {
		rationale = []string{}
	}

	// A sufficient verdict resting only on citations that cannot be located
	// in the chart is not trusted.
	if decision == domain.DecisionSufficient && len(citations) == 0 && len(unverifiable) > 0 {
		decision = domain.DecisionInsufficient
		rationale = append(rationale, "Evidence citations could not be verified against the medical chart")
		e.log.Warn().
			Str("payer", payer.Key).
			Strs("unverifiable", unverifiable).
			Msg("sufficient decision downgraded, no verifiable citations")
	}

	return &domain.PayerComplianceResult{
		PayerName:    payer.Name,
		PolicyName:   payload.PolicyName,
		Decision:     decision,
		Rationale:    rationale,
		Checklist:    checklist,
		Citations:    citations,
		Unverifiable: unverifiable,
	}
}

func parseRequirementStatus(s string) domain.RequirementStatus {
	switch domain.RequirementStatus(s) {
	case domain.RequirementMet, domain.RequirementUnmet, domain.RequirementUnclear:
		return domain.RequirementStatus(s)
	}
	return domain.RequirementUnclear
}

// errorResult marks every payer failed for one procedure.
func (e *Evaluator) errorResult(procName, msg string) *domain.ProcedureComplianceResult {
	result := &domain.ProcedureComplianceResult{
		ProcedureName: procName,
		PayerResults:  map[string]*domain.PayerComplianceResult{},
	}
	for _, payer := range e.payers {
		result.PayerResults[payer.Key] = errorPayerResult(payer.Name, msg)
	}
	return result
}

func errorPayerResult(payerName, msg string) *domain.PayerComplianceResult {
	return &domain.PayerComplianceResult{
		PayerName: payerName,
		Decision:  domain.DecisionInsufficient,
		Rationale: []string{"Evaluation error: " + msg},
		Citations: []domain.Citation{},
		Error:     msg,
	}
}
