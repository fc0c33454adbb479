package merge

import (
	"fmt"
	"regexp"
	"strings"

	"cdicheck/internal/domain"
)

// BuildCombinedText concatenates each document's raw text, in input order,
// wrapped in BEGIN/END markers, then numbers every physical line in one
// global pass so each line has exactly one stable number for citation.
// Segments record which numbered lines belong to which document body.
func BuildCombinedText(docs []*domain.ChartDocument) *domain.CombinedChartText {
	var lines []string
	var segments []domain.ChartSegment

	for _, doc := range docs {
		lines = append(lines, fmt.Sprintf("=== BEGIN DOCUMENT: %s (%s) ===", doc.ID, doc.ChartType))
		body := strings.Split(strings.TrimRight(doc.RawText, "\n"), "\n")
		segments = append(segments, domain.ChartSegment{
			DocumentID: doc.ID,
			ChartType:  doc.ChartType,
			StartLine:  len(lines) + 1,
			EndLine:    len(lines) + len(body),
		})
		lines = append(lines, body...)
		lines = append(lines, fmt.Sprintf("=== END DOCUMENT: %s ===", doc.ID))
	}

	numbered := make([]string, len(lines))
	for i, line := range lines {
		numbered[i] = fmt.Sprintf("L%03d: %s", i+1, line)
	}

	return &domain.CombinedChartText{
		Text:      strings.Join(numbered, "\n"),
		LineCount: len(lines),
		Segments:  segments,
	}
}

// lineNumberPrefix matches the citation line numbers added by
// BuildCombinedText and AddLineNumbers.
var lineNumberPrefix = regexp.MustCompile(`^L\d{3,}: ?`)

// AddLineNumbers prefixes every line of text with L001-style numbers.
func AddLineNumbers(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = fmt.Sprintf("L%03d: %s", i+1, line)
	}
	return strings.Join(lines, "\n")
}

// RemoveLineNumbers strips L001-style prefixes from every line of text.
func RemoveLineNumbers(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = lineNumberPrefix.ReplaceAllString(line, "")
	}
	return strings.Join(lines, "\n")
}
