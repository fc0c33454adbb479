package guidelines

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdicheck/internal/port"
)

func writeJSON(t *testing.T, dir, name string, v any) {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), raw, 0o644))
}

func kneeGuideline() map[string]any {
	return map[string]any{
		"procedure":   "Knee arthroscopy",
		"policy_name": "Arthroscopic Knee Surgery Policy",
		"text":        "Knee arthroscopy requires documented failure of conservative therapy for at least 6 weeks.",
		"cpt_codes":   []string{"29881", "29882"},
	}
}

func shoulderGuideline() map[string]any {
	return map[string]any{
		"procedure": "Rotator cuff repair",
		"text":      "Rotator cuff repair requires imaging confirmation of full-thickness tear.",
		"cpt_codes": []string{"29827"},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	writeJSON(t, dir, "knee.json", kneeGuideline())
	writeJSON(t, dir, "shoulder.json", shoulderGuideline())

	generalFile := filepath.Join(t.TempDir(), "general.json")
	raw, err := json.Marshal([]map[string]any{
		{"policy_name": "Medical necessity baseline", "text": "All procedures require documented medical necessity."},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(generalFile, raw, 0o644))

	return NewStore(map[string]string{
		"cigna":   dir,
		"general": generalFile,
		"uhc":     filepath.Join(dir, "does-not-exist"),
	}, 5.0, zerolog.Nop())
}

func TestLoadDirectoryAndFile(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, 2, s.Count("cigna"))
	assert.Equal(t, 1, s.Count("general"))
	assert.Equal(t, 0, s.Count("uhc"))
}

func TestSearchRanksByRelevance(t *testing.T) {
	s := newTestStore(t)

	hits := s.Search("cigna", "knee arthroscopy", 6)
	require.NotEmpty(t, hits)
	assert.Equal(t, "cigna_0", hits[0].ID)
	assert.Equal(t, "Knee arthroscopy", hits[0].Source["procedure"])
	// exact phrase + terms + procedure-name bonus
	assert.Greater(t, hits[0].Score, 20.0)
	if len(hits) > 1 {
		assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	}
}

func TestSearchCPTInQueryBoosts(t *testing.T) {
	s := newTestStore(t)

	hits := s.Search("cigna", "procedure 29827 shoulder", 6)
	require.NotEmpty(t, hits)
	assert.Equal(t, "Rotator cuff repair", hits[0].Source["procedure"])
}

func TestSearchTopK(t *testing.T) {
	s := newTestStore(t)

	hits := s.Search("cigna", "repair arthroscopy procedure", 1)
	assert.Len(t, hits, 1)
}

func TestSearchUnknownPayer(t *testing.T) {
	s := newTestStore(t)
	assert.Nil(t, s.Search("aetna", "knee", 6))
	assert.Nil(t, s.Search("uhc", "knee", 6))
}

func TestSearchByCPT(t *testing.T) {
	s := newTestStore(t)

	hits := s.SearchByCPT("cigna", []string{"29881"}, 50)
	require.Len(t, hits, 1)
	assert.Equal(t, "Knee arthroscopy", hits[0].Source["procedure"])
	// direct match plus dedicated-field bonus
	assert.Equal(t, 150.0, hits[0].Score)
}

func TestSearchByCPTNormalizesCodes(t *testing.T) {
	s := newTestStore(t)

	hits := s.SearchByCPT("cigna", []string{" 29-827 "}, 50)
	require.Len(t, hits, 1)
	assert.Equal(t, "Rotator cuff repair", hits[0].Source["procedure"])
}

func TestSearchByCPTNoMatch(t *testing.T) {
	s := newTestStore(t)
	assert.Empty(t, s.SearchByCPT("cigna", []string{"99999"}, 50))
	assert.Nil(t, s.SearchByCPT("cigna", nil, 50))
}

func TestBuildContext(t *testing.T) {
	s := newTestStore(t)
	hits := s.Search("cigna", "knee arthroscopy", 6)

	ctx := s.BuildContext("Knee arthroscopy", hits, 12000, "cigna")

	assert.True(t, ctx.HasGuidelines)
	assert.Contains(t, ctx.Text, "[CIGNA | Knee arthroscopy | Chunk 1")
	assert.Contains(t, ctx.Text, "conservative therapy")
	require.NotEmpty(t, ctx.Sources)
	assert.Equal(t, "cigna", ctx.Sources[0]["payer"])
}

func TestBuildContextRespectsBudget(t *testing.T) {
	s := newTestStore(t)

	long := strings.Repeat("documentation requirement text ", 50)
	hits := []port.GuidelineHit{
		{Score: 20, ID: "cigna_0", Payer: "cigna", Source: map[string]any{"text": long}},
		{Score: 10, ID: "cigna_1", Payer: "cigna", Source: map[string]any{"text": long}},
	}

	ctx := s.BuildContext("proc", hits, 100, "cigna")
	// first chunk always included, second dropped for budget
	assert.Len(t, ctx.Sources, 1)
}

func TestBuildContextBelowRelevanceFloor(t *testing.T) {
	s := newTestStore(t)

	hits := []port.GuidelineHit{
		{Score: 2, ID: "cigna_0", Payer: "cigna", Source: map[string]any{"text": "weak match"}},
	}
	ctx := s.BuildContext("proc", hits, 12000, "cigna")

	assert.False(t, ctx.HasGuidelines)
	assert.NotEmpty(t, ctx.Text)
}

func TestBuildContextEmptyHits(t *testing.T) {
	s := newTestStore(t)
	ctx := s.BuildContext("proc", nil, 12000, "cigna")
	assert.False(t, ctx.HasGuidelines)
	assert.Empty(t, ctx.Text)
}
