// Package extraction turns vision-model answers for flyer tiles into
// normalized, de-duplicated line items.
package extraction

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"github.com/jonathan/flyer-scout/internal/types"
)

// RawItem is one element of the model's "items" list, before normalization.
type RawItem map[string]any

// Field aliases, tried in order. Models drift between naming conventions.
var (
	nameKeys     = []string{"name", "item", "product", "product_name", "title", "商品名"}
	priceKeys    = []string{"price_yen", "priceYen", "price", "sale_price", "price_jpy", "yen", "amount", "価格", "税込価格"}
	categoryKeys = []string{"category", "section", "カテゴリ"}
	unitKeys     = []string{"unit", "quantity", "size", "単位"}
	notesKeys    = []string{"notes", "note", "remarks", "conditions", "備考"}
)

// digitRun captures an optional leading minus so negative prices can be refused.
var digitRun = regexp.MustCompile(`([-−]?)(\d+)`)

// NormalizeItem validates and cleans one raw item. ok is false for items
// without a name or a positive price; those are dropped, not reported.
func NormalizeItem(raw RawItem) (types.FlyerItem, bool) {
	name := firstString(raw, nameKeys)
	if name == "" {
		return types.FlyerItem{}, false
	}

	price, ok := firstPrice(raw, priceKeys)
	if !ok {
		return types.FlyerItem{}, false
	}

	category := firstString(raw, categoryKeys)
	if category == "" {
		category = types.UncategorizedCategory
	}

	return types.FlyerItem{
		Category: category,
		Name:     name,
		PriceYen: price,
		Unit:     firstString(raw, unitKeys),
		Notes:    firstString(raw, notesKeys),
	}, true
}

func firstString(raw RawItem, keys []string) string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case float64:
			s = strconv.FormatFloat(val, 'f', -1, 64)
		case bool, []any, map[string]any:
			continue
		default:
			s = fmt.Sprint(val)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func firstPrice(raw RawItem, keys []string) (int, bool) {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if price, ok := CoercePrice(v); ok {
			return price, true
		}
	}
	return 0, false
}

// CoercePrice reads a positive yen amount from a number or a string such as
// "1,280円(税込)" or "１９８円". Strings use their first digit run after
// thousands separators are removed; a minus sign directly before it rejects the price.
func CoercePrice(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		return positiveInt(val)
	case int:
		return positiveInt(float64(val))
	case string:
		s := width.Narrow.String(val)
		s = strings.ReplaceAll(s, ",", "")
		m := digitRun.FindStringSubmatch(s)
		if m == nil || m[1] != "" {
			return 0, false
		}
		n, err := strconv.Atoi(m[2])
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func positiveInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 {
		return 0, false
	}
	n := int(math.Round(f))
	if n <= 0 {
		return 0, false
	}
	return n, true
}
