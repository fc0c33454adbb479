package guidelines

import (
	"fmt"
	"strings"

	"cdicheck/internal/port"
)

// BuildContext renders search hits into a bounded, prompt-ready guideline
// context. Each hit becomes a headed chunk; chunks are added best-first until
// the character budget runs out (the first chunk is always included so a
// single oversized guideline still yields context). HasGuidelines reports
// whether any included chunk met the relevance floor.
func (s *Store) BuildContext(procName string, hits []port.GuidelineHit, maxChars int, payerKey string) port.GuidelineContext {
	var blocks []string
	var sources []map[string]any
	used := 0
	hasRelevant := false

	for rank, hit := range hits {
		procedure := procName
		if p, ok := hit.Source["procedure"].(string); ok && p != "" {
			procedure = p
		}
		header := fmt.Sprintf("[%s | %s | Chunk %d | score=%.3f | id=%s]",
			strings.ToUpper(payerKey), procedure, rank+1, hit.Score, hit.ID)

		block := header + "\n" + chunkText(hit.Source) + "\n"
		if used+len(block) > maxChars && len(blocks) > 0 {
			break
		}
		if hit.Score >= s.minRelevanceScore {
			hasRelevant = true
		}
		blocks = append(blocks, block)
		used += len(block)

		sources = append(sources, map[string]any{
			"header":      header,
			"record_id":   hit.ID,
			"chunk_index": rank + 1,
			"payer":       payerKey,
			"score":       hit.Score,
			"source":      hit.Source,
		})
	}

	return port.GuidelineContext{
		Text:          strings.Join(blocks, "\n\n"),
		Sources:       sources,
		HasGuidelines: hasRelevant,
	}
}

// chunkText flattens the content-bearing fields of a guideline document into
// prompt text.
func chunkText(source map[string]any) string {
	var parts []string

	for _, key := range []string{"text", "content", "description"} {
		if v, ok := source[key].(string); ok && v != "" {
			parts = append(parts, v)
			break
		}
	}
	if v, ok := source["category"].(string); ok && v != "" {
		parts = append(parts, "Category: "+v)
	}
	if v, ok := source["section_title"].(string); ok && v != "" {
		parts = append(parts, "Section: "+v)
	}

	if genReq, ok := source["general_requirements"].(map[string]any); ok {
		if docReqs, ok := genReq["documentation"].([]any); ok && len(docReqs) > 0 {
			parts = append(parts, "Documentation Requirements:")
			for _, req := range docReqs {
				parts = append(parts, fmt.Sprintf("  - %v", req))
			}
		}
	}

	if codes, ok := source["codes"].([]any); ok && len(codes) > 0 {
		parts = append(parts, "Codes:")
		for _, c := range codes {
			if code, ok := c.(map[string]any); ok {
				parts = append(parts, fmt.Sprintf("  %v: %v", code["code"], code["description"]))
			}
		}
	}

	if v, ok := source["notes"].(string); ok && v != "" {
		parts = append(parts, "Notes: "+v)
	}

	if evidence, ok := source["evidence"].(map[string]any); ok {
		for _, key := range []string{"text", "evidence_text", "excerpt"} {
			if v, ok := evidence[key].(string); ok && v != "" {
				parts = append(parts, "[Policy Evidence]: "+v)
				break
			}
		}
	}

	return strings.Join(parts, "\n")
}
