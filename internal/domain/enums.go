package domain

// ChartType classifies a medical document into a closed set of categories.
type ChartType string

const (
	ChartTypeOperative     ChartType = "operative_note"
	ChartTypePreOperative  ChartType = "pre_operative_note"
	ChartTypePostOperative ChartType = "post_operative_note"
	ChartTypeProgress      ChartType = "progress_note"
	ChartTypeNursing       ChartType = "nursing_note"
	ChartTypeDischarge     ChartType = "discharge_summary"
	ChartTypeConsultation  ChartType = "consultation_note"
	ChartTypeLaboratory    ChartType = "laboratory_report"
	ChartTypeImaging       ChartType = "imaging_report"
	ChartTypePathology     ChartType = "pathology_report"
	ChartTypeRadiology     ChartType = "radiology_report"
	ChartTypeAnesthesia    ChartType = "anesthesia_note"
	ChartTypeEmergency     ChartType = "emergency_note"
	ChartTypeAdmission     ChartType = "admission_note"
	ChartTypeBilling       ChartType = "billing_note"
	ChartTypeOther         ChartType = "other"
)

// AllChartTypes is the closed enumeration accepted from the classifier.
var AllChartTypes = []ChartType{
	ChartTypeOperative,
	ChartTypePreOperative,
	ChartTypePostOperative,
	ChartTypeProgress,
	ChartTypeNursing,
	ChartTypeDischarge,
	ChartTypeConsultation,
	ChartTypeLaboratory,
	ChartTypeImaging,
	ChartTypePathology,
	ChartTypeRadiology,
	ChartTypeAnesthesia,
	ChartTypeEmergency,
	ChartTypeAdmission,
	ChartTypeBilling,
	ChartTypeOther,
}

// chartTypeDisplayTitles maps chart types to human-readable titles.
var chartTypeDisplayTitles = map[ChartType]string{
	ChartTypeOperative:     "Operative Report",
	ChartTypePreOperative:  "Pre-Operative Note",
	ChartTypePostOperative: "Post-Operative Note",
	ChartTypeProgress:      "Progress Note",
	ChartTypeNursing:       "Nursing Note",
	ChartTypeDischarge:     "Discharge Summary",
	ChartTypeConsultation:  "Consultation Note",
	ChartTypeLaboratory:    "Laboratory Report",
	ChartTypeImaging:       "Imaging Report",
	ChartTypePathology:     "Pathology Report",
	ChartTypeRadiology:     "Radiology Report",
	ChartTypeAnesthesia:    "Anesthesia Note",
	ChartTypeEmergency:     "Emergency Department Note",
	ChartTypeAdmission:     "Admission Note",
	ChartTypeBilling:       "Billing Document",
	ChartTypeOther:         "Medical Document",
}

// ValidChartType reports whether s is one of the allowed chart type values.
func ValidChartType(s string) bool {
	for _, t := range AllChartTypes {
		if string(t) == s {
			return true
		}
	}
	return false
}

// DisplayTitle returns the human-readable title for a chart type.
func (t ChartType) DisplayTitle() string {
	if title, ok := chartTypeDisplayTitles[t]; ok {
		return title
	}
	return chartTypeDisplayTitles[ChartTypeOther]
}

// Confidence expresses how certain the classifier is about a chart type.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence normalizes a classifier confidence string, defaulting to low.
func ParseConfidence(s string) Confidence {
	switch Confidence(s) {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return Confidence(s)
	}
	return ConfidenceLow
}

// Decision is the compliance outcome for one procedure under one payer.
type Decision string

const (
	DecisionSufficient   Decision = "Sufficient"
	DecisionInsufficient Decision = "Insufficient"
)

// RequirementStatus marks a single guideline requirement as met or not.
type RequirementStatus string

const (
	RequirementMet     RequirementStatus = "met"
	RequirementUnmet   RequirementStatus = "unmet"
	RequirementUnclear RequirementStatus = "unclear"
)
