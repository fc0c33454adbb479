package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdicheck/internal/domain"
)

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "bare object",
			input: `{"chart_type": "operative_note"}`,
			want:  `{"chart_type": "operative_note"}`,
		},
		{
			name:  "wrapped in prose",
			input: "Here is the result:\n```json\n{\"a\": 1}\n```\nDone.",
			want:  `{"a": 1}`,
		},
		{
			name:  "nested objects",
			input: `prefix {"outer": {"inner": [1, 2]}} suffix {"second": true}`,
			want:  `{"outer": {"inner": [1, 2]}}`,
		},
		{
			name:  "braces inside strings",
			input: `{"reason": "header says {OPERATIVE} report", "ok": true}`,
			want:  `{"reason": "header says {OPERATIVE} report", "ok": true}`,
		},
		{
			name:  "escaped quote inside string",
			input: `{"note": "patient said \"fine\" today"}`,
			want:  `{"note": "patient said \"fine\" today"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FirstJSONObject(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFirstJSONObjectErrors(t *testing.T) {
	_, err := FirstJSONObject("no json here")
	assert.ErrorIs(t, err, domain.ErrNoJSONFound)

	_, err = FirstJSONObject(`{"unterminated": true`)
	assert.ErrorIs(t, err, domain.ErrNoJSONFound)
}
