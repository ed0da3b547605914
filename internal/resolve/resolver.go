package resolve

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/flyer-scout/internal/fetch"
	"github.com/jonathan/flyer-scout/internal/markup"
	"github.com/jonathan/flyer-scout/internal/types"
)

// probeConcurrency bounds parallel size probes against one CDN.
const probeConcurrency = 4

// Resolver fetches a viewer page and extracts its flyer assets.
type Resolver struct {
	fetcher  fetch.Fetcher
	renderer fetch.Renderer
	render   fetch.RenderOptions
	logger   zerolog.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithRenderer enables headless-browser escalation.
func WithRenderer(r fetch.Renderer, opts fetch.RenderOptions) Option {
	return func(res *Resolver) {
		res.renderer = r
		res.render = opts
	}
}

// WithLogger sets the resolver logger.
func WithLogger(l zerolog.Logger) Option {
	return func(res *Resolver) {
		res.logger = l
	}
}

// New creates a Resolver. fetcher should already be guarded by the store allowlist.
func New(fetcher fetch.Fetcher, opts ...Option) *Resolver {
	r := &Resolver{fetcher: fetcher, logger: zerolog.Nop(), render: fetch.DefaultRenderOptions()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns ranked image/PDF candidates for pageURL. It never returns an
// error: every failure is reported as a warning next to whatever was found.
func (r *Resolver) Resolve(ctx context.Context, pageURL string, p Profile) types.Outcome[[]types.Candidate] {
	var diag types.Diagnostics
	source := types.SourceResolve

	var ranked []Scored
	var rendered *fetch.Rendered

	if p.RenderPages && r.renderer != nil {
		var err error
		rendered, err = r.renderer.Render(ctx, pageURL, r.render)
		if err != nil {
			diag.Addf("resolve %s: render failed: %v", pageURL, err)
		} else {
			ranked = Rank(markup.ExtractAssetURLs(rendered.HTML, pageURL), p)
			source = types.SourceResolveRendered
		}
	}

	if rendered == nil {
		res, err := fetch.Get(ctx, r.fetcher, pageURL, fetch.PagePolicy())
		if err != nil {
			diag.Addf("resolve %s: %v", pageURL, err)
			return types.Outcome[[]types.Candidate]{Value: []types.Candidate{}, Warnings: diag.Warnings()}
		}
		ranked = Rank(markup.ExtractAssetURLs(res.HTML(), pageURL), p)
	}

	if len(ranked) == 0 && r.renderer != nil && ctx.Err() == nil {
		if rendered == nil {
			var err error
			rendered, err = r.renderer.Render(ctx, pageURL, r.render)
			if err != nil {
				diag.Addf("resolve %s: render fallback failed: %v", pageURL, err)
			}
		}
		if rendered != nil {
			ranked = RankRendered(rendered, p)
			source = types.SourceResolveRendered
		}
	}

	if len(ranked) == 0 {
		diag.Addf("resolve %s: no flyer image or PDF found on page", pageURL)
		return types.Outcome[[]types.Candidate]{Value: []types.Candidate{}, Warnings: diag.Warnings()}
	}

	if p.MinAssetBytes > 0 {
		before := len(ranked)
		ranked = r.filterSmall(ctx, ranked, p.MinAssetBytes)
		if dropped := before - len(ranked); dropped > 0 {
			r.logger.Debug().Int("dropped", dropped).Str("page", pageURL).Msg("dropped small assets")
		}
	}

	var list types.CandidateList
	for _, s := range ranked {
		u := p.OriginalRewrite.Apply(s.URL)
		list.Add(types.Candidate{Kind: kindOf(u), URL: u, Source: source})
	}

	return types.Outcome[[]types.Candidate]{Value: list.Items(), Warnings: diag.Warnings()}
}

// RankRendered merges DOM images (largest decoded area first) with observed image
// responses (largest content-length first), denylist-filtered and deduplicated.
func RankRendered(rendered *fetch.Rendered, p Profile) []Scored {
	dom := make([]fetch.RenderedImage, 0, len(rendered.DOMImages))
	for _, img := range rendered.DOMImages {
		if img.URL != "" && !IsDenied(img.URL) {
			dom = append(dom, img)
		}
	}
	sort.SliceStable(dom, func(i, j int) bool { return dom[i].Area() > dom[j].Area() })

	responses := make([]fetch.ObservedResponse, 0, len(rendered.Responses))
	for _, resp := range rendered.Responses {
		if resp.URL != "" && !IsDenied(resp.URL) {
			responses = append(responses, resp)
		}
	}
	sort.SliceStable(responses, func(i, j int) bool { return responses[i].ContentLength > responses[j].ContentLength })

	seen := make(map[string]bool)
	var out []Scored
	add := func(u string) {
		abs, ok := markup.AbsolutizeString(u, rendered.URL)
		if !ok || seen[abs] {
			return
		}
		seen[abs] = true
		out = append(out, Scored{URL: abs, Score: Score(abs, p)})
	}
	for _, img := range dom {
		add(img.URL)
	}
	for _, resp := range responses {
		add(resp.URL)
	}
	return out
}

// filterSmall probes every candidate's size and drops the ones known to be below minBytes.
// Unknown sizes (0) are kept.
func (r *Resolver) filterSmall(ctx context.Context, ranked []Scored, minBytes int64) []Scored {
	sizes := make([]int64, len(ranked))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)
	for i, s := range ranked {
		g.Go(func() error {
			sizes[i] = fetch.ProbeSize(gCtx, r.fetcher, s.URL, fetch.ProbePolicy())
			return nil
		})
	}
	_ = g.Wait()

	kept := make([]Scored, 0, len(ranked))
	for i, s := range ranked {
		if sizes[i] > 0 && sizes[i] < minBytes {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

func kindOf(u string) types.CandidateKind {
	if markup.IsPDFURL(u) {
		return types.KindPDF
	}
	return types.KindImage
}
