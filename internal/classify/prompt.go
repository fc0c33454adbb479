package classify

import (
	"fmt"
	"strings"

	"cdicheck/internal/domain"
)

// classificationPrompt builds the single-document typing prompt. The sample
// is already bounded by the caller.
func classificationPrompt(sample string) string {
	var b strings.Builder
	b.WriteString(`You are a medical document classification specialist with expertise in identifying different types of medical documents.

TASK:
Analyze the following text sample (first 100 words) from a medical document and identify its SPECIFIC chart type. Be very specific and accurate. Do NOT default to "other" unless the document is truly ambiguous.

Look for, in order of strength:
1. Explicit document headers (e.g. "OPERATIVE REPORT", "LAB RESULTS", "DISCHARGE SUMMARY")
2. Key phrases and terminology specific to document types
3. Document structure and the type of information presented

CHART TYPE OPTIONS (choose the MOST SPECIFIC match):
`)
	for _, t := range domain.AllChartTypes {
		fmt.Fprintf(&b, "- %s: %s\n", t, typeHint(t))
	}
	b.WriteString(`
CRITICAL RULES:
- "procedure performed", "surgical technique", or procedure steps -> operative_note
- Test values with units (e.g. "glucose 95 mg/dL") -> laboratory_report
- "MRI findings", "CT findings", or imaging impressions -> imaging_report or radiology_report
- "pre-operative" or "pre-op" -> pre_operative_note
- "post-operative" or "post-op" -> post_operative_note
- "discharge summary" or discharge planning -> discharge_summary
- CPT codes with charges -> billing_note
- Use "other" with "low" confidence only if truly ambiguous

TEXT SAMPLE:
`)
	b.WriteString(sample)
	b.WriteString(`

Return ONLY a JSON object with these exact keys:
{
  "chart_type": "one of the chart type options above",
  "confidence": "high | medium | low",
  "reason": "brief explanation mentioning the keywords or headers found"
}

Return ONLY valid JSON, no other text.`)
	return b.String()
}

func typeHint(t domain.ChartType) string {
	switch t {
	case domain.ChartTypeOperative:
		return "surgical operative reports, procedure notes, surgery documentation"
	case domain.ChartTypePreOperative:
		return "pre-operative assessments, pre-surgical evaluations, surgical clearance"
	case domain.ChartTypePostOperative:
		return "post-operative notes, post-surgical follow-ups, recovery documentation"
	case domain.ChartTypeProgress:
		return "daily progress notes, clinical progress notes, visit notes"
	case domain.ChartTypeNursing:
		return "nursing documentation, nursing assessments, nurse charting"
	case domain.ChartTypeDischarge:
		return "discharge summaries, discharge notes, discharge instructions"
	case domain.ChartTypeConsultation:
		return "consultation reports, specialist consultations, referral notes"
	case domain.ChartTypeLaboratory:
		return "lab results, lab reports, blood work, chemistry panels"
	case domain.ChartTypeImaging:
		return "imaging study reports (MRI, CT, X-ray, ultrasound with findings)"
	case domain.ChartTypePathology:
		return "pathology reports, biopsy reports, tissue analysis"
	case domain.ChartTypeRadiology:
		return "radiology reports, radiologist interpretations"
	case domain.ChartTypeAnesthesia:
		return "anesthesia records, anesthetic documentation"
	case domain.ChartTypeEmergency:
		return "emergency department notes, ER notes, triage notes"
	case domain.ChartTypeAdmission:
		return "admission notes, admitting assessments, hospital admission"
	case domain.ChartTypeBilling:
		return "billing documents, charge sheets with CPT codes"
	default:
		return "generic medical document that fits no category above (last resort)"
	}
}
