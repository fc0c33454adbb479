package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"cdicheck/internal/domain"
)

// supportedExtensions are the chart file formats the reader accepts.
var supportedExtensions = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".docx": true,
}

// FileReader reads chart text from local files. It implements
// port.DocumentReader.
type FileReader struct {
	log zerolog.Logger
}

func NewFileReader(log zerolog.Logger) *FileReader {
	return &FileReader{log: log}
}

// ValidateDocument reports whether path points to a readable chart file of a
// supported format.
func (r *FileReader) ValidateDocument(path string) bool {
	if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ReadDocument returns the plain text of the chart at path. Whitespace-only
// content is an error so empty charts never enter the pipeline.
func (r *FileReader) ReadDocument(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, ext)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}

	var text string
	switch ext {
	case ".pdf":
		text, err = extractPDF(content)
	case ".docx":
		text, err = extractDOCX(content)
	default:
		text = string(content)
	}
	if err != nil {
		return "", fmt.Errorf("extracting text from %s: %w", path, err)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrEmptyDocument, path)
	}
	return text, nil
}

// DocumentID derives a stable document identifier from a file path: the base
// name without extension.
func DocumentID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ListDocuments returns the supported chart files directly under dir, sorted
// by name so runs over the same directory are deterministic.
func ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no supported chart files in %s", domain.ErrNoDocuments, dir)
	}
	sort.Strings(paths)
	return paths, nil
}
