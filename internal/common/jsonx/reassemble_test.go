package jsonx

import (
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ns(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func TestReassemble(t *testing.T) {
	tests := []struct {
		name      string
		fragments []sql.NullString
		expected  string
	}{
		{
			name:      "single fragment",
			fragments: []sql.NullString{ns(`{"a":1}`)},
			expected:  `{"a":1}`,
		},
		{
			name:      "split mid token",
			fragments: []sql.NullString{ns(`{"a":1,`), ns(`"b":2}`)},
			expected:  `{"a":1,"b":2}`,
		},
		{
			name:      "null fragments skipped",
			fragments: []sql.NullString{ns(`{"a":`), {}, ns(`1}`)},
			expected:  `{"a":1}`,
		},
		{
			name:      "empty input",
			fragments: nil,
			expected:  "",
		},
		{
			name:      "all null",
			fragments: []sql.NullString{{}, {}},
			expected:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Reassemble(tt.fragments))
		})
	}
}

func TestReassemblePreservesOrder(t *testing.T) {
	// Concatenation must follow input order, even when fragments are split
	// mid token
	doc := Reassemble([]sql.NullString{ns(`{"a":1,`), ns(`"b":2}`)})

	var parsed map[string]interface{}
	err := json.Unmarshal([]byte(doc), &parsed)
	assert.NoError(t, err)
	assert.Equal(t, float64(1), parsed["a"])
	assert.Equal(t, float64(2), parsed["b"])
}
