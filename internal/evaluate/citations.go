package evaluate

import (
	"regexp"
	"strconv"

	"cdicheck/internal/domain"
)

// lineRefPattern matches the evidence line references the model is asked to
// emit: "L012" or "L013-L015" (a bare trailing number is tolerated).
var lineRefPattern = regexp.MustCompile(`^L(\d+)(?:\s*-\s*L?(\d+))?$`)

// parseLineReference parses a citation marker into a 1-based inclusive line
// range. The second return is false for anything that is not a line reference.
func parseLineReference(ref string) (start, end int, ok bool) {
	m := lineRefPattern.FindStringSubmatch(ref)
	if m == nil {
		return 0, 0, false
	}
	start, err := strconv.Atoi(m[1])
	if err != nil || start < 1 {
		return 0, 0, false
	}
	end = start
	if m[2] != "" {
		end, err = strconv.Atoi(m[2])
		if err != nil || end < start {
			return 0, 0, false
		}
	}
	return start, end, true
}

// resolveCitations maps raw line references onto the combined chart. A
// reference is verifiable only when it parses, lies inside the numbered
// range, and starts inside a document body (not on a BEGIN/END marker);
// everything else lands in unverifiable.
func resolveCitations(refs []string, combined *domain.CombinedChartText) (citations []domain.Citation, unverifiable []string) {
	for _, ref := range refs {
		start, end, ok := parseLineReference(ref)
		if !ok || end > combined.LineCount {
			unverifiable = append(unverifiable, ref)
			continue
		}
		seg := combined.SegmentForLine(start)
		if seg == nil {
			unverifiable = append(unverifiable, ref)
			continue
		}
		citations = append(citations, domain.Citation{
			DocumentID: seg.DocumentID,
			ChartType:  seg.ChartType,
			StartLine:  start,
			EndLine:    end,
			Raw:        ref,
		})
	}
	return citations, unverifiable
}
