package observability

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/flyer-scout/internal/types"
)

func TestFit(t *testing.T) {
	assert.Equal(t, "abc  ", fit("abc", 5))
	assert.Equal(t, "キャ  ", fit("キャ", 6))
	assert.Equal(t, "キ... ", fit("キャベツ一玉", 6))
	assert.Equal(t, 6, columns(fit("キャベツ一玉", 6)))
	assert.Equal(t, "ab...", fit("abcdefgh", 5))
}

func TestPrintStores(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintStores([]types.StoreSummary{
		{ID: "maruyasu", Name: "スーパーマルヤス", Strategy: types.StrategyFixed},
		{ID: "yamaichi", Name: "ヤマイチ", Strategy: types.StrategyCards},
	})
	output := buf.String()

	assert.Contains(t, output, "STORES")
	assert.Contains(t, output, "maruyasu")
	assert.Contains(t, output, "cards")
	assert.Contains(t, output, "ヤマイチ")

	// Every box line has the same terminal width.
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		assert.Equal(t, boxWidth, columns(line), line)
	}
}

func TestPrintCandidates(t *testing.T) {
	var buf bytes.Buffer
	candidates := make([]types.Candidate, 10)
	for i := range candidates {
		candidates[i] = types.Candidate{Kind: types.KindImage, URL: fmt.Sprintf("https://img.shufoo-cdn.jp/%d.jpg", i), Source: types.SourceScrape}
	}
	candidates[0].Title = "10/16 号"

	NewPrinter(&buf).PrintCandidates("DISCOVERY", "yamaichi", candidates, []string{"no dated flyer cards"})
	output := buf.String()

	assert.Contains(t, output, "Candidates: 10")
	assert.Contains(t, output, "[image/scrape]")
	assert.Contains(t, output, "10/16 号")
	assert.Contains(t, output, "... and 2 more")
	assert.Contains(t, output, "Warnings (1)")
}

func TestPrintExtraction(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintExtraction(&types.ExtractResponse{
		RunID:    "7d9f",
		StoreID:  "hanamaru",
		Mode:     types.ModeIngredients,
		Items:    []types.FlyerItem{{Category: "野菜", Name: "キャベツ", PriceYen: 158, Unit: "1玉"}},
		Count:    1,
		Warnings: []string{"tile 3/5: timeout"},
		Meta:     types.ExtractMeta{Pages: 2, Tiles: 5, ElapsedMs: 900},
	})
	output := buf.String()

	assert.Contains(t, output, "EXTRACTION")
	assert.Contains(t, output, "Mode: ingredients")
	assert.Contains(t, output, "Run: 7d9f")
	assert.Contains(t, output, "キャベツ  ¥158 / 1玉")
	assert.Contains(t, output, "tile 3/5: timeout")
}

func TestPrintExtraction_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintExtraction(nil)
	assert.Empty(t, buf.String())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "warn", Format: "json", Output: &buf, ServiceName: "flyer-scout"})

	logger.Info().Msg("hidden")
	logger.Warn().Str("store", "maruyasu").Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "flyer-scout", entry["service"])
	assert.Equal(t, "maruyasu", entry["store"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
}
