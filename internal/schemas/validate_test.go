package schemas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storeSchema = `{
  "type": "object",
  "required": ["id", "strategy"],
  "properties": {
    "id": {"type": "string", "pattern": "^[a-z0-9_-]+$"},
    "strategy": {"enum": ["fixed", "cards", "viewer"]},
    "min_asset_bytes": {"type": "integer", "minimum": 0}
  }
}`

func TestValidateJSONString_Valid(t *testing.T) {
	err := ValidateJSONString(storeSchema, `{"id": "maruyasu", "strategy": "fixed"}`)
	assert.NoError(t, err)
}

func TestValidateJSONString_Violations(t *testing.T) {
	err := ValidateJSONString(storeSchema, `{"id": "Bad ID", "min_asset_bytes": -1}`)
	require.Error(t, err)

	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Len(t, validationErr.Errors, 3)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestValidateJSONString_BadSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": 12}`, `{}`)
	require.Error(t, err)

	var loadErr *SchemaLoadError
	assert.True(t, errors.As(err, &loadErr))
}

func TestValidateDocument_GoValue(t *testing.T) {
	s, err := Compile("store", []byte(storeSchema))
	require.NoError(t, err)

	assert.NoError(t, s.ValidateDocument("catalog.yaml", map[string]any{"id": "yamaichi", "strategy": "cards"}))

	err = s.ValidateDocument("catalog.yaml", map[string]any{"id": "yamaichi", "strategy": "rss"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.yaml")
	assert.Contains(t, err.Error(), "strategy")
}
