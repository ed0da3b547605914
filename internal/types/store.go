// Package types defines the data structures shared by the flyer pipeline stages.
package types

// StoreID identifies one supported grocery store.
// The set of valid ids is closed and comes from the loaded store catalog.
type StoreID string

// String returns the raw id.
func (id StoreID) String() string {
	return string(id)
}

// StrategyKind names the discovery strategy a store uses.
type StrategyKind string

const (
	// StrategyFixed returns a curated list of asset URLs without any network call
	StrategyFixed StrategyKind = "fixed"
	// StrategyCards scans a store page for dated flyer cards
	StrategyCards StrategyKind = "cards"
	// StrategyViewer locates a flyer viewer detail page, optionally through a list page
	StrategyViewer StrategyKind = "viewer"
)

// StoreSummary is the public description of a configured store.
type StoreSummary struct {
	ID       StoreID      `json:"id"`
	Name     string       `json:"name"`
	Strategy StrategyKind `json:"strategy"`
	PageURL  string       `json:"page_url,omitempty"`
}
