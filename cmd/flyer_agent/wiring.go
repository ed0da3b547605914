package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jonathan/flyer-scout/internal/config"
	"github.com/jonathan/flyer-scout/internal/db"
	"github.com/jonathan/flyer-scout/internal/extraction"
	"github.com/jonathan/flyer-scout/internal/fetch"
	"github.com/jonathan/flyer-scout/internal/imaging"
	"github.com/jonathan/flyer-scout/internal/llm"
	"github.com/jonathan/flyer-scout/internal/pipeline"
	"github.com/jonathan/flyer-scout/internal/stores"
)

// app holds the wired collaborators of one command invocation.
type app struct {
	pipeline *pipeline.Pipeline
	database *db.DB
	vision   llm.VisionClient
}

type wireOptions struct {
	// vision connects the Gemini client; required for extraction only.
	vision bool
	// record connects the run database when DATABASE_URL is configured.
	record bool
}

func loadCatalog(cfg *config.Config) (*stores.Catalog, error) {
	if cfg.CatalogPath != "" {
		return stores.LoadCatalog(cfg.CatalogPath)
	}
	return stores.DefaultCatalog()
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, wo wireOptions) (*app, error) {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	deps := stores.Deps{
		Fetcher: fetch.NewHTTPFetcher(&fetch.Options{UserAgent: fetch.DefaultUserAgent, Logger: logger}),
		Render:  fetch.DefaultRenderOptions(),
		Logger:  logger,
	}
	if cfg.UseBrowser {
		deps.Renderer = fetch.NewChromeRenderer(logger)
	}
	registry, err := stores.NewRegistry(cat, deps)
	if err != nil {
		return nil, err
	}

	a := &app{}
	opts := pipeline.Options{
		Registry:   registry,
		Normalizer: imaging.NewNormalizer(imaging.NewFitzRasterizer(), logger),
		Tiling:     cfg.Tiling(),
		Logger:     logger,
	}

	if wo.vision {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("API key is required (set GEMINI_API_KEY environment variable or api_key in the config file)")
		}
		client, err := llm.NewGeminiClient(ctx, cfg.LLM(), cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create vision client: %w", err)
		}
		a.vision = client
		opts.Orchestrator = extraction.NewOrchestrator(client, extraction.WithLogger(logger))
	}

	if wo.record && cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		if err := database.EnsureSchema(ctx); err != nil {
			database.Close()
			a.Close()
			return nil, err
		}
		a.database = database
		opts.Recorder = database
	}

	a.pipeline = pipeline.New(opts)
	return a, nil
}

// Close releases the vision client and database pool.
func (a *app) Close() {
	if a.vision != nil {
		_ = a.vision.Close()
	}
	if a.database != nil {
		a.database.Close()
	}
}
