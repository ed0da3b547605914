package extraction

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/jonathan/flyer-scout/internal/llm"
	"github.com/jonathan/flyer-scout/internal/prompts"
	"github.com/jonathan/flyer-scout/internal/tiling"
	"github.com/jonathan/flyer-scout/internal/types"
)

// maxExcerpt bounds the error text carried in a tile warning.
const maxExcerpt = 200

// PromptFunc builds the prompt for tile index (1-based) of count.
type PromptFunc func(index, count int, mode types.Mode) (string, error)

// Orchestrator sends tiles to the vision model one at a time.
type Orchestrator struct {
	client llm.VisionClient
	opts   llm.GenerationOptions
	prompt PromptFunc
	logger zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithGenerationOptions overrides the model call options.
func WithGenerationOptions(opts llm.GenerationOptions) Option {
	return func(o *Orchestrator) { o.opts = opts }
}

// WithPrompt replaces the embedded prompt template.
func WithPrompt(fn PromptFunc) Option {
	return func(o *Orchestrator) { o.prompt = fn }
}

// NewOrchestrator creates an orchestrator around client.
func NewOrchestrator(client llm.VisionClient, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client: client,
		opts:   llm.DefaultExtractionOptions(),
		prompt: func(index, count int, mode types.Mode) (string, error) {
			return prompts.FlyerTile(index, count, string(mode))
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run extracts items from every tile in order. A failing tile becomes a
// warning and the loop moves on. The merged items are de-duplicated and,
// in ingredients mode, capped. Cancellation stops the run and returns the
// context error with no result.
func (o *Orchestrator) Run(ctx context.Context, tiles []tiling.Tile, mode types.Mode) (types.Outcome[[]types.FlyerItem], error) {
	var diag types.Diagnostics
	var collected []types.FlyerItem
	count := len(tiles)

	for i, tile := range tiles {
		if err := ctx.Err(); err != nil {
			return types.Outcome[[]types.FlyerItem]{}, err
		}
		index := i + 1
		start := time.Now()

		items, dropped, err := o.extractTile(ctx, tile, index, count, mode)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return types.Outcome[[]types.FlyerItem]{}, ctxErr
			}
			diag.Addf("tile %d/%d: %s", index, count, excerpt(err.Error()))
			o.logger.Warn().Err(err).Int("tile", index).Int("tiles", count).
				Int("page", tile.PageIndex).Msg("tile extraction failed")
			continue
		}

		o.logger.Debug().Int("tile", index).Int("tiles", count).Int("items", len(items)).
			Int("dropped", dropped).Dur("elapsed", time.Since(start)).Msg("tile extracted")
		collected = append(collected, items...)
	}

	merged := Cap(Dedup(collected), mode)
	return types.Outcome[[]types.FlyerItem]{Value: merged, Warnings: diag.Warnings()}, nil
}

func (o *Orchestrator) extractTile(ctx context.Context, tile tiling.Tile, index, count int, mode types.Mode) ([]types.FlyerItem, int, error) {
	prompt, err := o.prompt(index, count, mode)
	if err != nil {
		return nil, 0, err
	}
	text, err := o.client.ExtractFromImage(ctx, tile.PNG, prompt, o.opts)
	if err != nil {
		return nil, 0, err
	}
	raw, err := ParseResponse(text)
	if err != nil {
		return nil, 0, err
	}

	items := make([]types.FlyerItem, 0, len(raw))
	for _, r := range raw {
		if item, ok := NormalizeItem(r); ok {
			items = append(items, item)
		}
	}
	return items, len(raw) - len(items), nil
}

func excerpt(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= maxExcerpt {
		return s
	}
	r := []rune(s)
	return string(r[:maxExcerpt])
}
