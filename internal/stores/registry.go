package stores

import (
	"fmt"
	"time"

	"github.com/jonathan/flyer-scout/internal/types"
)

// Registry holds one Strategy per catalog entry, in catalog order.
type Registry struct {
	order      []types.StoreID
	strategies map[types.StoreID]Strategy
}

// NewRegistry instantiates the strategy of every store in cat.
func NewRegistry(cat *Catalog, deps Deps) (*Registry, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	r := &Registry{strategies: make(map[types.StoreID]Strategy, len(cat.Stores))}
	for _, cfg := range cat.Stores {
		s, err := newStrategy(cfg, deps)
		if err != nil {
			return nil, err
		}
		r.order = append(r.order, cfg.ID)
		r.strategies[cfg.ID] = s
	}
	return r, nil
}

func newStrategy(cfg StoreConfig, deps Deps) (Strategy, error) {
	b, err := newBase(cfg, deps)
	if err != nil {
		return nil, err
	}
	switch cfg.Strategy {
	case types.StrategyFixed:
		return &FixedStore{base: b}, nil
	case types.StrategyCards:
		return newCardStore(b, deps.Now)
	case types.StrategyViewer:
		return newViewerStore(b)
	}
	return nil, &CatalogError{Source: "registry", StoreID: cfg.ID, Message: fmt.Sprintf("unknown strategy %q", cfg.Strategy)}
}

// Get returns the strategy for id.
func (r *Registry) Get(id types.StoreID) (Strategy, error) {
	s, ok := r.strategies[id]
	if !ok {
		return nil, &UnknownStoreError{StoreID: id}
	}
	return s, nil
}

// Has reports whether id is configured.
func (r *Registry) Has(id types.StoreID) bool {
	_, ok := r.strategies[id]
	return ok
}

// IDs returns the store ids in catalog order.
func (r *Registry) IDs() []types.StoreID {
	return append([]types.StoreID(nil), r.order...)
}

// Summaries describes every store in catalog order.
func (r *Registry) Summaries() []types.StoreSummary {
	out := make([]types.StoreSummary, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.strategies[id].Config().Summary())
	}
	return out
}
