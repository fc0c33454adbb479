package evaluate

import (
	"fmt"
	"strings"

	"cdicheck/internal/config"
)

// baseSystemPrompt frames every compliance call. The multi-payer task
// addendum is appended at call time.
const baseSystemPrompt = `You are a clinical documentation specialist evaluating medical charts against payer guidelines. Assess whether documented evidence meets guideline requirements. Return valid JSON as requested.`

const multiPayerAddendum = `

MULTI-PAYER TASK:
You will evaluate this procedure against guidelines from multiple payers. Return a JSON object with results for EACH payer separately.`

func systemPrompt() string {
	return baseSystemPrompt + multiPayerAddendum
}

// payerSection is one payer's guideline material for the prompt.
type payerSection struct {
	cfg      config.PayerConfig
	context  string
	cptBased bool
}

// buildPrompt assembles the single multi-payer evaluation prompt: the JSON
// schema keyed by payer, the evaluation rules, the numbered chart, the shared
// regulatory layer, then each payer's delimited guideline section.
func buildPrompt(procName, numberedChart, generalContext string, sections []payerSection, cptCodes []string) string {
	var b strings.Builder

	b.WriteString("Return STRICT JSON ONLY. Do not include any commentary, prefixes, suffixes, or code fences.\n\nSchema:\n{\n")
	for i, sec := range sections {
		fmt.Fprintf(&b, "  %q: {\n", sec.cfg.Key)
		b.WriteString(`    "procedure_evaluated": "STRING (main procedure category)",
    "variant_or_subprocedure": "STRING (specific variant performed)",
`)
		fmt.Fprintf(&b, "    \"policy_name\": \"STRING (%s policy being evaluated)\",\n", sec.cfg.Name)
		b.WriteString(`    "decision": "Sufficient | Insufficient",
    "primary_reasons": ["STRING (reason 1)", "STRING (reason 2)"],
    "requirement_checklist": [
      {
        "requirement_id": "STRING (e.g., imaging, conservative_mgmt)",
        "status": "met | unmet | unclear",
        "evidence": [{"line_reference": "STRING (e.g., L012, L013-L015)"}],
        "missing_to_meet": "STRING (what is missing if unmet)",
        "suggestion": "STRING (specific actionable improvement recommendation)"
      }
    ]
`)
		if i < len(sections)-1 {
			b.WriteString("  },\n")
		} else {
			b.WriteString("  }\n")
		}
	}
	b.WriteString("}\n\n")

	payerKeys := make([]string, len(sections))
	payerNames := make([]string, len(sections))
	for i, sec := range sections {
		payerKeys[i] = sec.cfg.Key
		payerNames[i] = sec.cfg.Name
	}

	b.WriteString("CRITICAL INSTRUCTIONS FOR MULTI-PAYER EVALUATION:\n")
	fmt.Fprintf(&b, "- You are evaluating procedure '%s' against guidelines from %d payers: %s\n",
		procName, len(sections), strings.Join(payerNames, ", "))
	fmt.Fprintf(&b, "- You MUST return a JSON object with keys for EACH payer (%s)\n", strings.Join(payerKeys, ", "))
	b.WriteString(`- Evaluate each payer INDEPENDENTLY using ONLY that payer's guidelines plus the shared general guidelines
- Do NOT mix requirements between payers
- Each payer may have different requirements and decisions
`)
	if len(cptCodes) > 0 {
		fmt.Fprintf(&b, "- CPT codes being evaluated: %s\n", strings.Join(cptCodes, ", "))
	}
	b.WriteString(`
Rules for each payer evaluation:
- decision='Sufficient' only if ALL required elements from that payer's guidelines are evidenced in the medical chart
- decision='Insufficient' if ANY required element from that payer's guidelines is missing or contradicted
- primary_reasons should list the main issues preventing compliance with that specific payer
- requirement_checklist should include requirements from ALL provided guidelines for that payer
- Every evidence entry MUST cite line numbers (L### or L###-L###) from the medical chart below
- policy_name should clearly identify which policy is being evaluated for that payer

`)

	fmt.Fprintf(&b, "Medical chart with line numbers:\n%s\n\n", numberedChart)

	if generalContext != "" {
		fmt.Fprintf(&b, "=== GENERAL REGULATORY GUIDELINES (apply to ALL payers) ===\n%s\n=== END OF GENERAL REGULATORY GUIDELINES ===\n\n", generalContext)
	}

	for _, sec := range sections {
		upper := strings.ToUpper(sec.cfg.Name)
		if sec.cptBased && len(cptCodes) > 0 {
			fmt.Fprintf(&b, "=== %s GUIDELINES FOR CPT CODES %s ===\n", upper, strings.Join(cptCodes, ", "))
		} else {
			fmt.Fprintf(&b, "=== %s GUIDELINES FOR PROCEDURE '%s' ===\n", upper, procName)
		}
		fmt.Fprintf(&b, "The following guidelines represent the %s policy for procedure '%s'.\nReview ALL guideline sections below:\n\n%s\n\n=== END OF %s GUIDELINES ===\n\n",
			sec.cfg.Name, procName, sec.context, upper)
	}

	return b.String()
}
