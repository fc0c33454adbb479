package merge

import (
	"github.com/rs/zerolog"

	"cdicheck/internal/domain"
)

// Input pairs a typed document with its extraction record.
type Input struct {
	Doc    *domain.ChartDocument
	Record *domain.ExtractionRecord
}

// Merge fuses per-document extraction records into one case record.
//
// The primary document is the first operative note in input order; when no
// operative note exists the first document stands in and the record is
// flagged as a degraded merge. Procedures and CPT codes come only from the
// primary document: procedures mentioned on other charts (a progress note
// referencing an old unrelated surgery, say) are kept aside as diagnostics
// and never enter the canonical list.
func Merge(inputs []Input, log zerolog.Logger) *domain.CaseRecord {
	rec := &domain.CaseRecord{
		PatientName:        domain.UnknownValue,
		PatientAge:         domain.UnknownValue,
		Specialty:          domain.UnknownValue,
		Procedures:         []string{},
		CPTCodes:           []string{},
		PerDocumentData:    map[string]*domain.ExtractionRecord{},
		ExcludedProcedures: map[string][]string{},
	}
	if len(inputs) == 0 {
		return rec
	}

	primary := -1
	for i, in := range inputs {
		if in.Doc.ChartType == domain.ChartTypeOperative {
			primary = i
			break
		}
	}
	if primary == -1 {
		primary = 0
		rec.PrimaryFallback = true
		log.Warn().
			Str("document", inputs[0].Doc.ID).
			Str("chart_type", string(inputs[0].Doc.ChartType)).
			Msg("no operative note found, using first document as primary")
	}
	rec.PrimaryDocumentID = inputs[primary].Doc.ID

	for i, in := range inputs {
		rec.PerDocumentData[in.Doc.ID] = in.Record

		// First non-unknown value wins per field, independently.
		if rec.PatientName == domain.UnknownValue && known(in.Record.PatientName) {
			rec.PatientName = in.Record.PatientName
		}
		if rec.PatientAge == domain.UnknownValue && known(in.Record.PatientAge) {
			rec.PatientAge = in.Record.PatientAge
		}
		if rec.Specialty == domain.UnknownValue && known(in.Record.Specialty) {
			rec.Specialty = in.Record.Specialty
		}

		if i == primary {
			rec.Procedures = append(rec.Procedures, in.Record.Procedures...)
			rec.CPTCodes = append(rec.CPTCodes, in.Record.CPTCodes...)
		} else if len(in.Record.Procedures) > 0 {
			rec.ExcludedProcedures[in.Doc.ID] = append([]string(nil), in.Record.Procedures...)
			log.Debug().
				Str("document", in.Doc.ID).
				Strs("procedures", in.Record.Procedures).
				Msg("procedures on non-primary document excluded from case")
		}
	}
	return rec
}

func known(v string) bool {
	return v != "" && v != domain.UnknownValue
}
