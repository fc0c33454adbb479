package extract

import (
	"fmt"

	"cdicheck/internal/domain"
)

// template pairs a prompt builder with the schema expected back from the
// model. Extension keys are template-specific fields carried through to
// ExtractionRecord.Extensions.
type template struct {
	build         func(chartText string) string
	extensionKeys []string
}

// templateFor maps a chart type to its extraction template. The table is
// closed: every chart type resolves, unknown values land on the general
// template via ChartTypeOther.
func templateFor(t domain.ChartType) template {
	switch t {
	case domain.ChartTypeOperative:
		return template{build: operativePrompt}
	case domain.ChartTypePreOperative:
		return template{
			build:         preOperativePrompt,
			extensionKeys: []string{"diagnosis", "tests", "medications", "risk_assessment"},
		}
	case domain.ChartTypePostOperative:
		return template{
			build:         postOperativePrompt,
			extensionKeys: []string{"post_op_course", "complications", "follow_up"},
		}
	case domain.ChartTypeProgress, domain.ChartTypeNursing:
		return template{
			build:         progressPrompt,
			extensionKeys: []string{"assessment", "plan"},
		}
	case domain.ChartTypeLaboratory, domain.ChartTypeImaging,
		domain.ChartTypePathology, domain.ChartTypeRadiology:
		return template{
			build:         reportPromptFor(t),
			extensionKeys: []string{"findings", "impression"},
		}
	default:
		return template{build: generalPrompt}
	}
}

const extractionSchema = `REQUIRED JSON STRUCTURE (ALL fields are required):
- "patient_name": STRING - the patient's full name from the chart
- "patient_age": STRING - age with units (e.g. "52-year-old", "67 years old")
- "chart_specialty": STRING - specialty category (e.g. "Orthopedic Surgery", "Oncology")
- "cpt": ARRAY of strings - CPT codes if mentioned, empty array [] if none
- "procedure": ARRAY of strings - surgical/medical procedures performed or planned
- "summary": STRING - 2-4 sentence clinical summary highlighting documentation critical for CDI

PATIENT INFORMATION RULES:
- Search the ENTIRE chart for the patient name: "Patient Name:", "Name:", "Patient:" labels, usually in the header
- Search for age patterns: "52-year-old", "67 years old", often in HPI/Indications
- Determine specialty from procedures and diagnoses (rotator cuff/knee/hip -> "Orthopedic Surgery")
- Use "Unknown" ONLY if the information is truly absent from the chart`

const extractionFooter = `Return ONLY valid JSON, no other text.`

func operativePrompt(chartText string) string {
	return fmt.Sprintf(`You are a medical coding and CDI specialist.

TASK:
Analyze the following operative report and return a JSON object with the EXACT keys below. Extract patient information FIRST, then procedures.

%s

PROCEDURE EXTRACTION RULES:
1. Locate the section labeled "Procedure", "Procedures", "Operative Procedures", "Operations" or similar.
2. Split procedures ONLY when they involve different laterality (left vs right), different spinal/anatomical levels, or different anatomical sites.
   Example: "Right L3-4 and left L2-3 laminotomy and microdiscectomy" -> ["Right L3-4 laminotomy and microdiscectomy", "Left L2-3 laminotomy and microdiscectomy"]
3. Do NOT split single procedures with multiple steps ("Incision and drainage" -> 1 procedure) or modifiers ("Open reduction and internal fixation" -> 1 procedure).
4. Keep each procedure complete and self-contained with its laterality and level, using exact medical terminology from the report.
5. Verify each procedure is independently codable and none were missed or duplicated.

OPERATIVE REPORT:
<<<
%s
>>>

%s`, extractionSchema, chartText, extractionFooter)
}

func preOperativePrompt(chartText string) string {
	return fmt.Sprintf(`You are a medical coding and CDI specialist.

TASK:
Analyze the following pre-operative evaluation and return a JSON object with the EXACT keys below plus pre-operative detail.

%s

ADDITIONAL REQUIRED KEYS:
- "diagnosis": STRING - the pre-operative diagnosis
- "tests": ARRAY of strings - pre-operative tests and studies ordered or reviewed
- "medications": ARRAY of strings - current medications relevant to surgical clearance
- "risk_assessment": STRING - documented surgical/anesthesia risk assessment (e.g. ASA class)

List planned procedures under "procedure".

PRE-OPERATIVE NOTE:
<<<
%s
>>>

%s`, extractionSchema, chartText, extractionFooter)
}

func postOperativePrompt(chartText string) string {
	return fmt.Sprintf(`You are a medical coding and CDI specialist.

TASK:
Analyze the following post-operative note and return a JSON object with the EXACT keys below plus recovery detail.

%s

ADDITIONAL REQUIRED KEYS:
- "post_op_course": STRING - post-operative course and recovery status
- "complications": ARRAY of strings - documented complications, empty array [] if none
- "follow_up": STRING - follow-up plan

List the procedures this note follows under "procedure".

POST-OPERATIVE NOTE:
<<<
%s
>>>

%s`, extractionSchema, chartText, extractionFooter)
}

func progressPrompt(chartText string) string {
	return fmt.Sprintf(`You are a medical coding and CDI specialist.

TASK:
Analyze the following clinical note and return a JSON object with the EXACT keys below plus clinical status detail.

%s

ADDITIONAL REQUIRED KEYS:
- "assessment": STRING - current clinical assessment
- "plan": STRING - documented plan of care

CLINICAL NOTE:
<<<
%s
>>>

%s`, extractionSchema, chartText, extractionFooter)
}

// reportPromptFor parameterizes the shared diagnostics template with the
// report kind so lab, imaging, pathology and radiology stay one family.
func reportPromptFor(t domain.ChartType) func(string) string {
	kind := t.DisplayTitle()
	return func(chartText string) string {
		return fmt.Sprintf(`You are a medical coding and CDI specialist.

TASK:
Analyze the following %s and return a JSON object with the EXACT keys below plus diagnostic detail.

%s

ADDITIONAL REQUIRED KEYS:
- "findings": STRING - the documented findings or result values
- "impression": STRING - the documented impression/interpretation, "" if absent

Procedures actually performed as part of this study go under "procedure"; leave it an empty array for result-only reports.

%s:
<<<
%s
>>>

%s`, kind, extractionSchema, kind, chartText, extractionFooter)
	}
}

func generalPrompt(chartText string) string {
	return fmt.Sprintf(`You are a medical coding and CDI specialist.

TASK:
Analyze the following medical document and return a JSON object with the EXACT keys below.

%s

MEDICAL DOCUMENT:
<<<
%s
>>>

%s`, extractionSchema, chartText, extractionFooter)
}
