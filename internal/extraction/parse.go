package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/flyer-scout/internal/llm"
)

type itemsEnvelope struct {
	Items *[]RawItem `json:"items"`
}

// ParseResponse reads the model's text. Strict JSON is tried first; then
// code fences and surrounding prose are stripped and the first balanced
// JSON value is parsed. A bare array is accepted as the items list.
func ParseResponse(text string) ([]RawItem, error) {
	items, err := decodeItems(text)
	if err == nil {
		return items, nil
	}

	cleaned := llm.CleanJSONBlock(text)
	if cleaned == strings.TrimSpace(text) {
		return nil, err
	}
	items, err = decodeItems(cleaned)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func decodeItems(text string) ([]RawItem, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "[") {
		var items []RawItem
		if err := json.Unmarshal([]byte(text), &items); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		return items, nil
	}

	var env itemsEnvelope
	if err := json.Unmarshal([]byte(text), &env); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if env.Items == nil {
		return nil, fmt.Errorf("response has no items list")
	}
	return *env.Items, nil
}
