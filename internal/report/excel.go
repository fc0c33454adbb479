package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"cdicheck/internal/domain"
)

const summarySheet = "Summary"

// WriteWorkbook renders a processing result as an Excel workbook: a Summary
// sheet with the case and per-payer tallies, one sheet per payer with the
// procedure verdicts, and a CPT sheet mapping codes to decisions.
func WriteWorkbook(result *domain.ProcessingResult, path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename summary sheet: %w", err)
	}
	if err := writeSummarySheet(f, result); err != nil {
		return err
	}

	for _, payerKey := range sortedPayerKeys(result) {
		if err := writePayerSheet(f, result, payerKey); err != nil {
			return err
		}
	}

	if err := writeCPTSheet(f, result); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

// sortedPayerKeys returns the payer keys seen in the results, sorted so the
// sheet order is deterministic.
func sortedPayerKeys(result *domain.ProcessingResult) []string {
	seen := map[string]bool{}
	var keys []string
	for _, proc := range result.ProcedureResults {
		for key := range proc.PayerResults {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func writeSummarySheet(f *excelize.File, result *domain.ProcessingResult) error {
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	row := 1
	set := func(col string, v any) {
		_ = f.SetCellValue(summarySheet, col+fmt.Sprint(row), v)
	}

	set("A", "CDI Compliance Report")
	_ = f.SetCellStyle(summarySheet, "A1", "A1", headerStyle)
	row += 2

	set("A", "Run ID")
	set("B", result.RunID)
	row++
	if rec := result.CaseRecord; rec != nil {
		set("A", "Patient")
		set("B", rec.PatientName)
		row++
		set("A", "Age")
		set("B", rec.PatientAge)
		row++
		set("A", "Specialty")
		set("B", rec.Specialty)
		row++
		set("A", "Primary Document")
		set("B", rec.PrimaryDocumentID)
		row++
		set("A", "Procedures")
		set("B", strings.Join(rec.Procedures, "; "))
		row++
		set("A", "CPT Codes")
		set("B", strings.Join(rec.CPTCodes, "; "))
		row++
	}
	set("A", "Total Cost (USD)")
	set("B", result.TotalCostUSD)
	row += 2

	if result.PayerSummary != nil {
		set("A", "Payer")
		set("B", "Procedures")
		set("C", "Sufficient")
		set("D", "Insufficient")
		set("E", "Other")
		set("F", "Sufficient %")
		_ = f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row), headerStyle)
		row++

		keys := make([]string, 0, len(result.PayerSummary.PerPayer))
		for key := range result.PayerSummary.PerPayer {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			tally := result.PayerSummary.PerPayer[key]
			set("A", tally.PayerDisplayName)
			set("B", tally.Total)
			set("C", tally.Sufficient)
			set("D", tally.Insufficient)
			set("E", tally.Other)
			set("F", fmt.Sprintf("%.1f%%", tally.SufficientPct))
			row++
		}
		overall := result.PayerSummary.Overall
		set("A", "Overall")
		set("B", overall.Total)
		set("C", overall.Sufficient)
		set("D", overall.Insufficient)
		set("E", overall.Other)
		set("F", fmt.Sprintf("%.1f%%", overall.SufficientPct))
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 22)
	_ = f.SetColWidth(summarySheet, "B", "B", 50)
	return nil
}

var payerSheetHeaders = []string{
	"Procedure", "Policy", "Decision", "Primary Reasons",
	"Unmet Requirements", "Evidence Citations", "Error",
}

func writePayerSheet(f *excelize.File, result *domain.ProcessingResult, payerKey string) error {
	sheet := sheetNameFor(result, payerKey)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	for i, h := range payerSheetHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	_ = f.SetCellStyle(sheet, "A1", "G1", headerStyle)

	row := 2
	for _, proc := range result.ProcedureResults {
		pr, ok := proc.PayerResults[payerKey]
		if !ok {
			continue
		}
		values := []any{
			proc.ProcedureName,
			pr.PolicyName,
			string(pr.Decision),
			strings.Join(pr.Rationale, "\n"),
			unmetRequirements(pr),
			citationList(pr),
			pr.Error,
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "B", 36)
	_ = f.SetColWidth(sheet, "D", "F", 48)
	return nil
}

// sheetNameFor prefers the payer display name seen in the results over the
// raw config key.
func sheetNameFor(result *domain.ProcessingResult, payerKey string) string {
	for _, proc := range result.ProcedureResults {
		if pr, ok := proc.PayerResults[payerKey]; ok && pr.PayerName != "" {
			return pr.PayerName
		}
	}
	return payerKey
}

func unmetRequirements(pr *domain.PayerComplianceResult) string {
	var lines []string
	for _, check := range pr.Checklist {
		if check.Status == domain.RequirementMet {
			continue
		}
		line := fmt.Sprintf("%s (%s)", check.RequirementID, check.Status)
		if check.MissingToMeet != "" {
			line += ": " + check.MissingToMeet
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func citationList(pr *domain.PayerComplianceResult) string {
	var refs []string
	for _, c := range pr.Citations {
		refs = append(refs, fmt.Sprintf("%s %s", c.DocumentID, c.Raw))
	}
	if len(pr.Unverifiable) > 0 {
		refs = append(refs, "unverifiable: "+strings.Join(pr.Unverifiable, ", "))
	}
	return strings.Join(refs, "\n")
}

// writeCPTSheet maps each billed CPT code to its procedure and per-payer
// decisions, one row per code and payer.
func writeCPTSheet(f *excelize.File, result *domain.ProcessingResult) error {
	const sheet = "CPT Codes"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	for i, h := range []string{"CPT", "Procedure", "Payer", "Decision"} {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	if result.CaseRecord == nil {
		return nil
	}
	row := 2
	for i, proc := range result.ProcedureResults {
		code := ""
		if i < len(result.CaseRecord.CPTCodes) {
			code = result.CaseRecord.CPTCodes[i]
		}
		for _, payerKey := range sortedPayerKeys(result) {
			pr, ok := proc.PayerResults[payerKey]
			if !ok {
				continue
			}
			for j, v := range []any{code, proc.ProcedureName, pr.PayerName, string(pr.Decision)} {
				cell, _ := excelize.CoordinatesToCellName(j+1, row)
				_ = f.SetCellValue(sheet, cell, v)
			}
			row++
		}
	}
	_ = f.SetColWidth(sheet, "B", "B", 40)
	return nil
}
