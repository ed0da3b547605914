// Package pipeline wires discovery, resolution, normalization, tiling and
// extraction into the service's request-level operations.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/flyer-scout/internal/extraction"
	"github.com/jonathan/flyer-scout/internal/fetch"
	"github.com/jonathan/flyer-scout/internal/imaging"
	"github.com/jonathan/flyer-scout/internal/stores"
	"github.com/jonathan/flyer-scout/internal/tilegrid"
	"github.com/jonathan/flyer-scout/internal/tiling"
	"github.com/jonathan/flyer-scout/internal/types"
)

// Recorder persists completed extraction runs and returns the run id.
type Recorder interface {
	SaveRun(ctx context.Context, req types.ExtractRequest, resp *types.ExtractResponse) (string, error)
}

// Options holds the pipeline collaborators.
type Options struct {
	Registry     *stores.Registry
	Normalizer   *imaging.Normalizer
	Orchestrator *extraction.Orchestrator
	Tiling       tiling.Options
	// Recorder is optional; runs are not persisted when nil.
	Recorder Recorder
	Logger   zerolog.Logger
}

// Pipeline runs requests. It holds no per-request state and is safe for concurrent use.
type Pipeline struct {
	registry     *stores.Registry
	normalizer   *imaging.Normalizer
	orchestrator *extraction.Orchestrator
	tiling       tiling.Options
	recorder     Recorder
	logger       zerolog.Logger
}

// New creates a pipeline.
func New(opts Options) *Pipeline {
	if opts.Tiling.Window <= 0 {
		opts.Tiling = tiling.DefaultOptions()
	}
	return &Pipeline{
		registry:     opts.Registry,
		normalizer:   opts.Normalizer,
		orchestrator: opts.Orchestrator,
		tiling:       opts.Tiling,
		recorder:     opts.Recorder,
		logger:       opts.Logger,
	}
}

// Stores describes the configured stores.
func (p *Pipeline) Stores() []types.StoreSummary {
	return p.registry.Summaries()
}

func (p *Pipeline) store(id types.StoreID) (stores.Strategy, error) {
	s, err := p.registry.Get(id)
	if err != nil {
		return nil, &ValidationError{Message: err.Error(), Fields: []string{"store_id"}, Cause: err}
	}
	return s, nil
}

// Discover returns the current flyer candidates of a store.
func (p *Pipeline) Discover(ctx context.Context, storeID types.StoreID) (*types.DiscoverResult, error) {
	s, err := p.store(storeID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := s.Discover(ctx)
	if err != nil {
		return nil, err
	}
	p.logger.Info().Str("store", storeID.String()).Int("candidates", len(res.Candidates)).
		Int("warnings", len(res.Warnings)).Dur("elapsed", time.Since(start)).Msg("discovery complete")
	return res, nil
}

// Resolve turns page candidates into asset candidates.
func (p *Pipeline) Resolve(ctx context.Context, req types.ResolveRequest) (*types.ResolveResult, error) {
	if err := req.Validate(); err != nil {
		return nil, newValidationError(err)
	}
	s, err := p.store(req.StoreID)
	if err != nil {
		return nil, err
	}

	out := s.Resolve(ctx, req.PageURLs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(out.Value) == 0 {
		out = out.Warnf("no assets resolved from %d pages", len(req.PageURLs))
	}
	return &types.ResolveResult{StoreID: req.StoreID, Candidates: out.Value, Warnings: out.Warnings}, nil
}

// ValidateExtract reports the *ValidationError Extract would return for req,
// without fetching anything.
func (p *Pipeline) ValidateExtract(req types.ExtractRequest) error {
	_, _, err := p.checkExtract(req)
	return err
}

func (p *Pipeline) checkExtract(req types.ExtractRequest) (types.ExtractRequest, stores.Strategy, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return req, nil, newValidationError(err)
	}
	s, err := p.store(req.StoreID)
	if err != nil {
		return req, nil, err
	}
	return req, s, nil
}

// Extract downloads the source assets, reads every tile with the vision model
// and returns the merged items. Per-source and per-tile failures are warnings;
// only validation errors and cancellation are returned as errors.
func (p *Pipeline) Extract(ctx context.Context, req types.ExtractRequest, progress ProgressCallback) (*types.ExtractResponse, error) {
	start := time.Now()
	req, s, err := p.checkExtract(req)
	if err != nil {
		return nil, err
	}
	progress.emit(StepValidate, fmt.Sprintf("extracting %d sources for %s", len(req.SourceURLs), req.StoreID), nil)

	var diag types.Diagnostics
	logger := p.logger.With().Str("store", req.StoreID.String()).Str("mode", string(req.Mode)).Logger()

	pages, err := p.gatherPages(ctx, s, req.SourceURLs, &diag, progress)
	if err != nil {
		return nil, err
	}

	resp := &types.ExtractResponse{
		StoreID: req.StoreID,
		Mode:    req.Mode,
		Items:   []types.FlyerItem{},
		Meta:    types.ExtractMeta{Pages: len(pages)},
	}

	if len(pages) == 0 {
		diag.Addf("no usable pages from %d source URLs", len(req.SourceURLs))
	} else {
		tiled := tiling.Split(pages, req.MaxTiles, p.tiling)
		diag.Merge(tiled.Warnings)
		resp.Meta.Tiles = len(tiled.Value)
		progress.emit(StepTile, fmt.Sprintf("%d pages cut into %d tiles", len(pages), len(tiled.Value)), nil)

		if len(tiled.Value) > 0 {
			out, err := p.orchestrator.Run(ctx, tiled.Value, req.Mode)
			if err != nil {
				return nil, err
			}
			diag.Merge(out.Warnings)
			resp.Items = out.Value
			progress.emit(StepExtract, fmt.Sprintf("%d items extracted", len(out.Value)), nil)
			if len(out.Value) == 0 {
				diag.Addf("no items extracted from %d tiles", len(tiled.Value))
			}
		}
	}

	resp.Count = len(resp.Items)
	resp.Meta.ElapsedMs = time.Since(start).Milliseconds()
	resp.Warnings = diag.Warnings()

	if p.recorder != nil {
		runID, err := p.recorder.SaveRun(ctx, req, resp)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to record extraction run")
			resp.Warnings = append(resp.Warnings, fmt.Sprintf("run not recorded: %v", err))
		} else {
			resp.RunID = runID
			if progress != nil {
				progress(ProgressEvent{Step: StepRecord, Message: "run recorded", RunID: runID})
			}
		}
	}

	logger.Info().Str("run_id", resp.RunID).Int("pages", resp.Meta.Pages).Int("tiles", resp.Meta.Tiles).
		Int("items", resp.Count).Int("warnings", len(resp.Warnings)).Int64("elapsed_ms", resp.Meta.ElapsedMs).
		Msg("extraction complete")
	return resp, nil
}

// gatherPages turns source URLs into page bitmaps in source order. Tile grids
// are composited where their first tile appears; speculative back pages follow
// their front page.
func (p *Pipeline) gatherPages(ctx context.Context, s stores.Strategy, sources []string, diag *types.Diagnostics, progress ProgressCallback) ([]imaging.PageBitmap, error) {
	allowed := make([]string, 0, len(sources))
	seen := make(map[string]bool, len(sources))
	for _, u := range sources {
		if seen[u] {
			continue
		}
		seen[u] = true
		if err := s.Allowlist().Check(u); err != nil {
			diag.Addf("source rejected: %v", err)
			continue
		}
		allowed = append(allowed, u)
	}
	progress.emit(StepGather, fmt.Sprintf("%d of %d sources allowed", len(allowed), len(sources)), nil)

	grids, _ := tilegrid.Group(allowed)
	if s.Config().FrontBackPages {
		grids = tilegrid.ExpandNextPage(grids)
	}
	gridAt := make(map[string]int)
	for i, g := range grids {
		if g.Speculative {
			continue
		}
		for _, t := range g.Tiles {
			gridAt[t.URL] = i
		}
		for _, u := range g.Duplicates {
			gridAt[u] = i
		}
	}

	compositor := tilegrid.NewCompositor(s.Fetcher(), p.logger)
	done := make(map[int]bool, len(grids))
	var pages []imaging.PageBitmap

	for _, u := range allowed {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if gi, inGrid := gridAt[u]; inGrid {
			if done[gi] {
				continue
			}
			for i := gi; i < len(grids) && (i == gi || grids[i].Speculative); i++ {
				done[i] = true
				out, err := compositor.Composite(ctx, grids[i])
				if err != nil {
					return nil, err
				}
				diag.Merge(out.Warnings)
				if out.Value != nil {
					pages = append(pages, *out.Value)
					progress.emit(StepComposite, fmt.Sprintf("%s: %dx%d", grids[i], out.Value.Width, out.Value.Height), nil)
				}
			}
			continue
		}

		res, err := fetch.Get(ctx, s.Fetcher(), u, fetch.AssetPolicy())
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			diag.Addf("source %s: %v", u, err)
			continue
		}
		out, err := p.normalizer.Normalize(ctx, res.Body, res.ContentType, u)
		if err != nil {
			return nil, err
		}
		diag.Merge(out.Warnings)
		pages = append(pages, out.Value...)
		progress.emit(StepNormalize, fmt.Sprintf("%s: %d pages", u, len(out.Value)), nil)
	}

	for i := range pages {
		pages[i].PageIndex = i
	}
	return pages, nil
}
