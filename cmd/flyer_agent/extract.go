package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/flyer-scout/internal/observability"
	"github.com/jonathan/flyer-scout/internal/pipeline"
	"github.com/jonathan/flyer-scout/internal/types"
)

// maxAutoPages bounds how many discovered pages are resolved by --auto.
const maxAutoPages = types.MaxResolvePages

func newExtractCmd(opts *rootOptions) *cobra.Command {
	var (
		storeID  string
		sources  []string
		mode     string
		maxTiles int
		auto     bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract flyer items and prices",
		Long: `Download flyer images or PDFs, cut them into tiles and read every tile with the vision model.

Sources are given with --source. With --auto the store is discovered first and
its page candidates are resolved into assets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(sources) == 0 && !auto {
				return fmt.Errorf("at least one --source is required unless --auto is set")
			}
			if maxTiles == 0 {
				maxTiles = opts.cfg.MaxTiles
			}

			a, err := newApp(cmd.Context(), opts.cfg, opts.logger, wireOptions{vision: true, record: true})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if auto {
				found, err := autoSources(ctx, a.pipeline, types.StoreID(storeID))
				if err != nil {
					return err
				}
				sources = append(sources, found...)
			}

			req := types.ExtractRequest{
				StoreID:    types.StoreID(storeID),
				Mode:       types.Mode(mode),
				MaxTiles:   maxTiles,
				SourceURLs: sources,
			}
			resp, err := a.pipeline.Extract(ctx, req, func(e pipeline.ProgressEvent) {
				opts.logger.Info().Str("step", e.Step).Msg(e.Message)
			})
			if err != nil {
				return fmt.Errorf("extraction failed: %w", err)
			}

			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintExtraction(resp)
			return nil
		},
	}

	cmd.Flags().StringVarP(&storeID, "store", "s", "", "Store ID (see 'stores')")
	cmd.Flags().StringArrayVar(&sources, "source", nil, "Flyer image or PDF URL (repeatable)")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(types.ModeAll), "Extraction mode: all or ingredients")
	cmd.Flags().IntVar(&maxTiles, "max-tiles", 0, "Tile budget (default from config)")
	cmd.Flags().BoolVar(&auto, "auto", false, "Discover and resolve sources for the store first")
	_ = cmd.MarkFlagRequired("store")
	return cmd
}

// autoSources runs discovery and resolves page candidates, returning asset URLs
// in discovery order.
func autoSources(ctx context.Context, p *pipeline.Pipeline, storeID types.StoreID) ([]string, error) {
	res, err := p.Discover(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	var assets types.CandidateList
	var pages []string
	for _, c := range res.Candidates {
		if c.Kind == types.KindPage {
			if len(pages) < maxAutoPages {
				pages = append(pages, c.URL)
			}
			continue
		}
		assets.Add(c)
	}

	if len(pages) > 0 {
		resolved, err := p.Resolve(ctx, types.ResolveRequest{StoreID: storeID, PageURLs: pages})
		if err != nil {
			return nil, fmt.Errorf("resolve failed: %w", err)
		}
		for _, c := range resolved.Candidates {
			assets.Add(c)
		}
	}

	if assets.Len() == 0 {
		return nil, fmt.Errorf("no flyer assets found for %s (%d discovery warnings)", storeID, len(res.Warnings))
	}
	urls := make([]string, 0, assets.Len())
	for _, c := range assets.Items() {
		urls = append(urls, c.URL)
	}
	return urls, nil
}
