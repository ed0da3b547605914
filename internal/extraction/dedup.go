package extraction

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"

	"github.com/jonathan/flyer-scout/internal/types"
)

// IngredientsCap is the most items returned in ingredients mode.
const IngredientsCap = 30

// DedupKey identifies a real-world item as name|priceYen|unit after width and
// case folding with whitespace and punctuation removed.
func DedupKey(item types.FlyerItem) string {
	return keyPart(item.Name) + "|" + strconv.Itoa(item.PriceYen) + "|" + keyPart(item.Unit)
}

func keyPart(s string) string {
	s = cases.Fold().String(width.Fold.String(s))
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			return -1
		}
		return r
	}, s)
}

// Dedup collapses items with equal keys. A later item replaces an earlier one
// but takes the earlier one's position.
func Dedup(items []types.FlyerItem) []types.FlyerItem {
	index := make(map[string]int, len(items))
	out := make([]types.FlyerItem, 0, len(items))
	for _, item := range items {
		key := DedupKey(item)
		if i, seen := index[key]; seen {
			out[i] = item
			continue
		}
		index[key] = len(out)
		out = append(out, item)
	}
	return out
}

// Cap truncates items for modes that limit the result size.
func Cap(items []types.FlyerItem, mode types.Mode) []types.FlyerItem {
	if mode == types.ModeIngredients && len(items) > IngredientsCap {
		return items[:IngredientsCap]
	}
	return items
}
