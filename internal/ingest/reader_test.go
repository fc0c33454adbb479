package ingest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdicheck/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeDocx(t *testing.T, dir, name, bodyXML string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(bodyXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestValidateDocument(t *testing.T) {
	dir := t.TempDir()
	r := NewFileReader(zerolog.Nop())

	txt := writeFile(t, dir, "chart.txt", "op note")
	assert.True(t, r.ValidateDocument(txt))

	csv := writeFile(t, dir, "chart.csv", "a,b")
	assert.False(t, r.ValidateDocument(csv))

	assert.False(t, r.ValidateDocument(filepath.Join(dir, "missing.txt")))
	assert.False(t, r.ValidateDocument(dir))
}

func TestReadDocumentText(t *testing.T) {
	dir := t.TempDir()
	r := NewFileReader(zerolog.Nop())

	path := writeFile(t, dir, "op_note.txt", "OPERATIVE REPORT\nProcedure: knee arthroscopy\n")
	text, err := r.ReadDocument(path)
	require.NoError(t, err)
	assert.Contains(t, text, "knee arthroscopy")
}

func TestReadDocumentEmpty(t *testing.T) {
	dir := t.TempDir()
	r := NewFileReader(zerolog.Nop())

	path := writeFile(t, dir, "blank.txt", "   \n\t\n")
	_, err := r.ReadDocument(path)
	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
}

func TestReadDocumentUnsupported(t *testing.T) {
	dir := t.TempDir()
	r := NewFileReader(zerolog.Nop())

	path := writeFile(t, dir, "chart.xml", "<chart/>")
	_, err := r.ReadDocument(path)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestReadDocumentDocx(t *testing.T) {
	dir := t.TempDir()
	r := NewFileReader(zerolog.Nop())

	body := `<w:document><w:body>` +
		`<w:p><w:r><w:t>PRE-OPERATIVE EVALUATION</w:t></w:r></w:p>` +
		`<w:p w:rsidR="00A"><w:r><w:t xml:space="preserve">Diagnosis: </w:t></w:r>` +
		`<w:r><w:t>meniscal tear &amp; effusion</w:t></w:r></w:p>` +
		`</w:body></w:document>`
	path := writeDocx(t, dir, "preop.docx", body)

	text, err := r.ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "PRE-OPERATIVE EVALUATION\nDiagnosis: meniscal tear & effusion", text)
}

func TestReadDocumentDocxMissingBody(t *testing.T) {
	dir := t.TempDir()
	r := NewFileReader(zerolog.Nop())

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<w:styles/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	path := filepath.Join(dir, "broken.docx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	_, err = r.ReadDocument(path)
	assert.Error(t, err)
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "op_note_1", DocumentID("/charts/case7/op_note_1.txt"))
	assert.Equal(t, "progress.note", DocumentID("progress.note.pdf"))
}

func TestListDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b_progress.txt", "x")
	writeFile(t, dir, "a_op.txt", "x")
	writeFile(t, dir, "notes.csv", "skip")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	paths, err := ListDocuments(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.Equal(t, filepath.Join(dir, "a_op.txt"), paths[0])
	assert.Equal(t, filepath.Join(dir, "b_progress.txt"), paths[1])
}

func TestListDocumentsEmptyDir(t *testing.T) {
	_, err := ListDocuments(t.TempDir())
	assert.ErrorIs(t, err, domain.ErrNoDocuments)
}
