package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		count int
	}{
		{"strict object", `{"items": [{"name": "a"}, {"name": "b"}]}`, 2},
		{"empty list", `{"items": []}`, 0},
		{"fenced", "```json\n{\"items\": [{\"name\": \"a\"}]}\n```", 1},
		{"prose prefix", "以下が抽出結果です。\n{\"items\": [{\"name\": \"a\"}]}\nご確認ください。", 1},
		{"bare array", `[{"name": "a"}]`, 1},
		{"fenced bare array", "```json\n[{\"name\": \"a\"}, {\"name\": \"b\"}]\n```", 2},
		{"bracket in prose before object", "Found items [see list]: {\"items\": [{\"name\": \"豚肉\", \"price\": 198}]}", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := ParseResponse(tt.input)
			require.NoError(t, err)
			assert.Len(t, items, tt.count)
		})
	}
}

func TestParseResponse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "I could not read the image."},
		{"truncated", `{"items": [{"name": "a"`},
		{"missing items", `{"products": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.input)
			assert.Error(t, err)
		})
	}
}
