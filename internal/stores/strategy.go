package stores

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/flyer-scout/internal/fetch"
	"github.com/jonathan/flyer-scout/internal/resolve"
	"github.com/jonathan/flyer-scout/internal/types"
)

// Strategy discovers and resolves flyer candidates for one store.
type Strategy interface {
	ID() types.StoreID
	Config() StoreConfig
	// Discover returns the store's current candidates. Only a transport
	// failure on the required store page is returned as an error.
	Discover(ctx context.Context) (*types.DiscoverResult, error)
	// Resolve turns page URLs into ranked asset candidates. It never fails.
	Resolve(ctx context.Context, pageURLs []string) types.Outcome[[]types.Candidate]
	// Allowlist is the host set every fetch for this store must satisfy.
	Allowlist() *fetch.Allowlist
	// Fetcher is an allowlist-guarded fetcher for this store.
	Fetcher() fetch.Fetcher
}

// Deps are the collaborators shared by every store.
type Deps struct {
	Fetcher  fetch.Fetcher
	Renderer fetch.Renderer
	Render   fetch.RenderOptions
	Logger   zerolog.Logger
	// Now is the clock used to complete short dates. Defaults to time.Now.
	Now func() time.Time
}

// base carries what every strategy shares: config, the guarded fetcher and the resolver.
type base struct {
	cfg      StoreConfig
	allow    *fetch.Allowlist
	fetcher  *fetch.Guarded
	resolver *resolve.Resolver
	profile  resolve.Profile
	logger   zerolog.Logger
}

func newBase(cfg StoreConfig, deps Deps) (base, error) {
	profile, err := cfg.Resolve.Profile()
	if err != nil {
		return base{}, &CatalogError{Source: "registry", StoreID: cfg.ID, Message: "invalid resolve settings", Cause: err}
	}

	allow := fetch.NewAllowlist(cfg.AllowedHosts...)
	guarded := fetch.NewGuarded(deps.Fetcher, allow)
	logger := deps.Logger.With().Str("store", cfg.ID.String()).Logger()

	opts := []resolve.Option{resolve.WithLogger(logger)}
	if deps.Renderer != nil {
		render := deps.Render
		if render.Timeout == 0 {
			render = fetch.DefaultRenderOptions()
		}
		opts = append(opts, resolve.WithRenderer(deps.Renderer, render))
	}

	return base{
		cfg:      cfg,
		allow:    allow,
		fetcher:  guarded,
		resolver: resolve.New(guarded, opts...),
		profile:  profile,
		logger:   logger,
	}, nil
}

func (b *base) ID() types.StoreID           { return b.cfg.ID }
func (b *base) Config() StoreConfig         { return b.cfg }
func (b *base) Allowlist() *fetch.Allowlist { return b.allow }
func (b *base) Fetcher() fetch.Fetcher      { return b.fetcher }

// Resolve resolves each page in order and merges the candidates, keeping the
// first occurrence of a URL. Pages outside the allowlist are refused before
// any fetch or render.
func (b *base) Resolve(ctx context.Context, pageURLs []string) types.Outcome[[]types.Candidate] {
	var diag types.Diagnostics
	var list types.CandidateList

	for _, pageURL := range pageURLs {
		if ctx.Err() != nil {
			break
		}
		if err := b.allow.Check(pageURL); err != nil {
			diag.Addf("resolve %s: %v", pageURL, err)
			continue
		}
		out := b.resolver.Resolve(ctx, pageURL, b.profile)
		diag.Merge(out.Warnings)
		for _, c := range out.Value {
			list.Add(c)
		}
	}

	return types.Outcome[[]types.Candidate]{Value: list.Items(), Warnings: diag.Warnings()}
}

// fetchRequired fetches the page discovery depends on; failure aborts discovery.
func (b *base) fetchRequired(ctx context.Context, pageURL string) (*fetch.Result, error) {
	res, err := fetch.Get(ctx, b.fetcher, pageURL, fetch.PagePolicy())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &DiscoveryError{StoreID: b.cfg.ID, URL: pageURL, Message: "failed to fetch store page", Cause: err}
	}
	return res, nil
}

func (b *base) result(list *types.CandidateList, diag *types.Diagnostics) *types.DiscoverResult {
	return &types.DiscoverResult{
		StoreID:    b.cfg.ID,
		Candidates: list.Items(),
		Warnings:   diag.Warnings(),
	}
}
