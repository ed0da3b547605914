package types

// UncategorizedCategory is assigned to items the model returned without a category.
const UncategorizedCategory = "その他"

// FlyerItem is one normalized line item read off a flyer.
// Name is never empty and PriceYen is always positive.
type FlyerItem struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	PriceYen int    `json:"price_yen"`
	Unit     string `json:"unit,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Mode selects the inclusion rules used when extracting items.
type Mode string

const (
	// ModeAll keeps every product on the flyer
	ModeAll Mode = "all"
	// ModeIngredients keeps only cooking ingredients
	ModeIngredients Mode = "ingredients"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeAll || m == ModeIngredients
}
