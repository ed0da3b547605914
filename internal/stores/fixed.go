package stores

import (
	"context"

	"github.com/jonathan/flyer-scout/internal/markup"
	"github.com/jonathan/flyer-scout/internal/types"
)

// FixedStore returns a curated asset list without touching the network.
type FixedStore struct {
	base
}

// Discover returns the configured assets unchanged.
func (s *FixedStore) Discover(_ context.Context) (*types.DiscoverResult, error) {
	var list types.CandidateList
	var diag types.Diagnostics
	for _, a := range s.cfg.Assets {
		kind := types.KindImage
		if markup.IsPDFURL(a.URL) {
			kind = types.KindPDF
		}
		list.Add(types.Candidate{Kind: kind, URL: a.URL, Title: a.Title, Source: types.SourceFixed})
	}
	return s.result(&list, &diag), nil
}
