package domain

// UnknownValue marks an identity field the extraction could not resolve.
const UnknownValue = "Unknown"

// ChartDocument is one ingested medical record file. ChartType and
// TypeConfidence are set once by the classifier and not mutated afterwards.
type ChartDocument struct {
	ID             string     `json:"id"`
	Path           string     `json:"path,omitempty"`
	RawText        string     `json:"-"`
	SampleText     string     `json:"-"`
	ChartType      ChartType  `json:"chart_type"`
	TypeConfidence Confidence `json:"type_confidence"`
	DisplayTitle   string     `json:"display_title"`
}

// Classification is the classifier's verdict for one document.
type Classification struct {
	ChartType    ChartType  `json:"chart_type"`
	Confidence   Confidence `json:"confidence"`
	Reason       string     `json:"reason,omitempty"`
	DisplayTitle string     `json:"display_title"`
}

// ExtractionRecord is the structured output extracted from one document.
// Records are immutable after creation; the merger only reads them.
type ExtractionRecord struct {
	PatientName string         `json:"patient_name"`
	PatientAge  string         `json:"patient_age"`
	Specialty   string         `json:"specialty"`
	CPTCodes    []string       `json:"cpt_codes"`
	Procedures  []string       `json:"procedures"`
	Summary     string         `json:"summary"`
	Extensions  map[string]any `json:"extensions,omitempty"`
}

// EmptyExtractionRecord returns a defaulted record used when extraction fails.
func EmptyExtractionRecord() *ExtractionRecord {
	return &ExtractionRecord{
		PatientName: UnknownValue,
		PatientAge:  UnknownValue,
		Specialty:   UnknownValue,
		CPTCodes:    []string{},
		Procedures:  []string{},
		Summary:     "",
	}
}

// CaseRecord is the canonical merged record for one processing run.
// Procedures and CPTCodes come only from the primary (operative) document;
// identity fields are resolved first-non-unknown in document input order.
type CaseRecord struct {
	PatientName        string                       `json:"patient_name"`
	PatientAge         string                       `json:"patient_age"`
	Specialty          string                       `json:"specialty"`
	Procedures         []string                     `json:"procedures"`
	CPTCodes           []string                     `json:"cpt_codes"`
	PrimaryDocumentID  string                       `json:"primary_document_id"`
	PrimaryFallback    bool                         `json:"primary_fallback"`
	PerDocumentData    map[string]*ExtractionRecord `json:"per_document_data"`
	ExcludedProcedures map[string][]string          `json:"excluded_procedures,omitempty"`
}

// ChartSegment records where one document landed inside the combined text.
// Line numbers are 1-based and inclusive, covering the document body only
// (markers excluded).
type ChartSegment struct {
	DocumentID string    `json:"document_id"`
	ChartType  ChartType `json:"chart_type"`
	StartLine  int       `json:"start_line"`
	EndLine    int       `json:"end_line"`
}

// CombinedChartText is the chart-delimited, globally line-numbered
// concatenation of all documents. Built once by the merger; read-only.
type CombinedChartText struct {
	Text      string         `json:"text"`
	LineCount int            `json:"line_count"`
	Segments  []ChartSegment `json:"segments"`
}

// SegmentForLine returns the segment containing the given global line number,
// or nil when the line falls outside every document body (e.g. on a marker).
func (c *CombinedChartText) SegmentForLine(line int) *ChartSegment {
	for i := range c.Segments {
		if line >= c.Segments[i].StartLine && line <= c.Segments[i].EndLine {
			return &c.Segments[i]
		}
	}
	return nil
}

// Citation is a (document, line range) reference substantiating a decision.
type Citation struct {
	DocumentID string    `json:"document_id"`
	ChartType  ChartType `json:"chart_type"`
	StartLine  int       `json:"start_line"`
	EndLine    int       `json:"end_line"`
	Raw        string    `json:"raw"`
}

// RequirementCheck is one guideline requirement assessed for a payer.
type RequirementCheck struct {
	RequirementID string            `json:"requirement_id"`
	Status        RequirementStatus `json:"status"`
	Evidence      []string          `json:"evidence,omitempty"`
	MissingToMeet string            `json:"missing_to_meet,omitempty"`
	Suggestion    string            `json:"suggestion,omitempty"`
}

// PayerComplianceResult is one payer's verdict for one procedure.
type PayerComplianceResult struct {
	PayerName    string             `json:"payer_name"`
	PolicyName   string             `json:"policy_name,omitempty"`
	Decision     Decision           `json:"decision"`
	Rationale    []string           `json:"rationale"`
	Checklist    []RequirementCheck `json:"requirement_checklist,omitempty"`
	Citations    []Citation         `json:"evidence_citations"`
	Unverifiable []string           `json:"unverifiable_citations,omitempty"`
	Error        string             `json:"error,omitempty"`
}

// ProcedureComplianceResult holds all payer verdicts for one procedure.
type ProcedureComplianceResult struct {
	ProcedureName string                            `json:"procedure_name"`
	PayerResults  map[string]*PayerComplianceResult `json:"payer_results"`
}

// UsageInfo accumulates token usage across LLM calls.
type UsageInfo struct {
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	ModelID      string `json:"model_id,omitempty"`
}

// Add accumulates another usage record into u.
func (u *UsageInfo) Add(other UsageInfo) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	if other.ModelID != "" {
		u.ModelID = other.ModelID
	}
}

// Cost returns the USD cost of this usage at the given per-1K-token rates.
func (u UsageInfo) Cost(inputPer1K, outputPer1K float64) float64 {
	return float64(u.InputTokens)/1000*inputPer1K + float64(u.OutputTokens)/1000*outputPer1K
}

// PayerTally counts decisions for a payer (or across all payers).
type PayerTally struct {
	Total             int     `json:"total_procedures"`
	Sufficient        int     `json:"sufficient_count"`
	Insufficient      int     `json:"insufficient_count"`
	Other             int     `json:"other_count"`
	SufficientPct     float64 `json:"sufficient_percentage"`
	InsufficientPct   float64 `json:"insufficient_percentage"`
	OtherPct          float64 `json:"other_percentage"`
	PayerDisplayName  string  `json:"payer_name,omitempty"`
}

// PayerSummary aggregates decision tallies per payer and overall.
type PayerSummary struct {
	PerPayer map[string]*PayerTally `json:"per_payer"`
	Overall  *PayerTally            `json:"overall"`
}

// PerDocumentDetail is the per-chart block of the final output.
type PerDocumentDetail struct {
	ChartType      ChartType         `json:"chart_type"`
	TypeConfidence Confidence        `json:"type_confidence"`
	DisplayTitle   string            `json:"display_title"`
	ExtractionData *ExtractionRecord `json:"extraction_data"`
}

// ProcessingResult is the terminal output of one processing run. It is
// always structurally complete: partial failures surface in Warnings and
// per-procedure error entries, batch-fatal conditions in Errors.
type ProcessingResult struct {
	RunID             string                        `json:"run_id"`
	CaseRecord        *CaseRecord                   `json:"case_record,omitempty"`
	PerDocument       map[string]*PerDocumentDetail `json:"per_document_details,omitempty"`
	ProcedureResults  []*ProcedureComplianceResult  `json:"procedure_compliance_results"`
	CombinedChart     *CombinedChartText            `json:"combined_chart_text,omitempty"`
	ImprovedChartText string                        `json:"improved_chart_text,omitempty"`
	PayerSummary      *PayerSummary                 `json:"payer_summary,omitempty"`
	Usage             UsageInfo                     `json:"usage"`
	TotalCostUSD      float64                       `json:"total_cost_usd"`
	ExecutionSecs     map[string]float64            `json:"execution_secs,omitempty"`
	Warnings          []string                      `json:"warnings,omitempty"`
	Errors            []string                      `json:"errors,omitempty"`
}
