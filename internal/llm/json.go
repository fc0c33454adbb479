package llm

import (
	"strings"

	"cdicheck/internal/domain"
)

// FirstJSONObject returns the first balanced top-level JSON object in s.
// Model responses often wrap JSON in prose or markdown fences; this scans
// for the first '{' and matches braces, honoring string literals and escapes.
func FirstJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", domain.ErrNoJSONFound
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", domain.ErrNoJSONFound
}
