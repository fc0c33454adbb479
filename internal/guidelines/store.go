package guidelines

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"cdicheck/internal/port"
)

// Store holds payer guideline documents loaded from local JSON files and
// serves keyword/CPT relevance search over them. It implements
// port.GuidelineSource. All state is immutable after Load.
type Store struct {
	byPayer           map[string][]map[string]any
	minRelevanceScore float64
	log               zerolog.Logger
}

// NewStore loads every payer's guideline path (a single JSON file or a
// directory of JSON files). Each file holds one guideline object or an array
// of them. A missing path is a warning, not an error: the payer just has no
// guidelines.
func NewStore(paths map[string]string, minRelevanceScore float64, log zerolog.Logger) *Store {
	s := &Store{
		byPayer:           map[string][]map[string]any{},
		minRelevanceScore: minRelevanceScore,
		log:               log,
	}
	for payerKey, path := range paths {
		docs, err := loadPath(path)
		if err != nil {
			log.Warn().Err(err).Str("payer", payerKey).Str("path", path).Msg("guideline path not loaded")
		}
		s.byPayer[payerKey] = docs
		log.Info().Str("payer", payerKey).Int("guidelines", len(docs)).Msg("guidelines loaded")
	}
	return s
}

func loadPath(path string) ([]map[string]any, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return loadFile(path)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var docs []map[string]any
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		fileDocs, err := loadFile(filepath.Join(path, e.Name()))
		if err != nil {
			return docs, err
		}
		docs = append(docs, fileDocs...)
	}
	return docs, nil
}

func loadFile(path string) ([]map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var asList []map[string]any
	if err := json.Unmarshal(raw, &asList); err == nil {
		return asList, nil
	}
	var asObject map[string]any
	if err := json.Unmarshal(raw, &asObject); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return []map[string]any{asObject}, nil
}

// Count returns how many guidelines are loaded for a payer.
func (s *Store) Count(payerKey string) int {
	return len(s.byPayer[payerKey])
}

// Search scores every guideline of a payer against the query and returns the
// topK best matches, highest score first.
func (s *Store) Search(payerKey, query string, topK int) []port.GuidelineHit {
	docs := s.byPayer[payerKey]
	if len(docs) == 0 {
		return nil
	}
	queryLower := strings.ToLower(query)
	queryTerms := termSet(queryLower)

	var hits []port.GuidelineHit
	for idx, doc := range docs {
		score := relevanceScore(doc, queryLower, queryTerms)
		if score > 0 {
			hits = append(hits, port.GuidelineHit{
				Score:  score,
				ID:     fmt.Sprintf("%s_%d", payerKey, idx),
				Payer:  payerKey,
				Source: doc,
			})
		}
	}
	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// SearchByCPT returns every guideline of a payer mentioning any of the CPT
// codes, scored by match strength. Codes are normalized (spaces and hyphens
// stripped, uppercased) before matching.
func (s *Store) SearchByCPT(payerKey string, cptCodes []string, topK int) []port.GuidelineHit {
	docs := s.byPayer[payerKey]
	if len(docs) == 0 || len(cptCodes) == 0 {
		return nil
	}

	normalized := make([]string, len(cptCodes))
	for i, code := range cptCodes {
		normalized[i] = normalizeCPT(code)
	}

	var hits []port.GuidelineHit
	for idx, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
			continue
		}
		docStr := strings.ToUpper(string(raw))

		score := 0.0
		for _, code := range normalized {
			if code == "" || !strings.Contains(docStr, code) {
				continue
			}
			score += 100.0
			if field, ok := doc["cpt_codes"]; ok && containsCode(field, code) {
				score += 50.0
			}
			if field, ok := doc["codes"]; ok && containsCode(field, code) {
				score += 50.0
			}
		}
		if score > 0 {
			hits = append(hits, port.GuidelineHit{
				Score:  score,
				ID:     fmt.Sprintf("%s_%d", payerKey, idx),
				Payer:  payerKey,
				Source: doc,
			})
		}
	}
	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

func sortHits(hits []port.GuidelineHit) {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
}

func normalizeCPT(code string) string {
	code = strings.TrimSpace(code)
	code = strings.ReplaceAll(code, "-", "")
	code = strings.ReplaceAll(code, " ", "")
	return strings.ToUpper(code)
}

func containsCode(field any, normalizedCode string) bool {
	raw, err := json.Marshal(field)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToUpper(string(raw)), normalizedCode)
}

func termSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, term := range strings.Fields(s) {
		set[term] = true
	}
	return set
}

// relevanceScore mirrors the retrieval weighting: exact phrase 10, each
// shared term 2, CPT code in query 15, procedure name in query 12.
func relevanceScore(doc map[string]any, queryLower string, queryTerms map[string]bool) float64 {
	searchable := strings.ToLower(searchableText(doc))

	score := 0.0
	if strings.Contains(searchable, queryLower) {
		score += 10.0
	}
	for term := range termSet(searchable) {
		if queryTerms[term] {
			score += 2.0
		}
	}
	if codes, ok := doc["cpt_codes"].([]any); ok {
		for _, c := range codes {
			if code, ok := c.(string); ok && code != "" && strings.Contains(queryLower, strings.ToLower(code)) {
				score += 15.0
			}
		}
	}
	if proc, ok := doc["procedure"].(string); ok {
		procLower := strings.ToLower(proc)
		if procLower != "" && strings.Contains(queryLower, procLower) {
			score += 12.0
		}
	}
	return score
}

func searchableText(doc map[string]any) string {
	var parts []string
	for _, key := range []string{"procedure", "text", "content", "policy_name", "description"} {
		if v, ok := doc[key].(string); ok {
			parts = append(parts, v)
		}
	}
	if codes, ok := doc["cpt_codes"].([]any); ok {
		for _, c := range codes {
			if code, ok := c.(string); ok {
				parts = append(parts, code)
			}
		}
	}
	if evidence, ok := doc["evidence"]; ok {
		parts = append(parts, fmt.Sprint(evidence))
	}
	return strings.Join(parts, " ")
}
