package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_ValidPrompt(t *testing.T) {
	ClearCache()

	prompt, err := Get("flyer.json", "extract-items")
	require.NoError(t, err)
	assert.Contains(t, prompt, "{{.TileIndex}}")
	assert.Contains(t, prompt, `{"items": [...]}`)
}

func TestGet_InvalidFile(t *testing.T) {
	ClearCache()

	_, err := Get("nonexistent.json", "some-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read prompt file")
}

func TestGet_InvalidKey(t *testing.T) {
	ClearCache()

	_, err := Get("flyer.json", "nonexistent-key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestMustGet_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustGet("nonexistent.json", "some-key")
	})
}

func TestFormat(t *testing.T) {
	result := Format("tile {{.TileIndex}} of {{.TileCount}} {{.Missing}}", map[string]string{
		"TileIndex": "2",
		"TileCount": "5",
	})
	assert.Equal(t, "tile 2 of 5 {{.Missing}}", result)
}

func TestFlyerTile(t *testing.T) {
	prompt, err := FlyerTile(3, 12, "ingredients")
	require.NoError(t, err)
	assert.Contains(t, prompt, "tile 3 of 12")
	assert.Contains(t, prompt, "Exclude prepared foods")
	assert.NotContains(t, prompt, "{{.")

	all, err := FlyerTile(1, 1, "all")
	require.NoError(t, err)
	assert.Contains(t, all, "household goods")
	assert.NotContains(t, all, "Exclude prepared foods")
}

func TestFlyerTile_UnknownMode(t *testing.T) {
	_, err := FlyerTile(1, 1, "vegan")
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	ClearCache()

	keys, err := List("flyer.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"extract-items", "mode-all", "mode-ingredients"}, keys)
}
