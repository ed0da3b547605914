package tilegrid

import (
	"context"
	"image"

	"github.com/rs/zerolog"

	"github.com/jonathan/flyer-scout/internal/fetch"
	"github.com/jonathan/flyer-scout/internal/imaging"
	"github.com/jonathan/flyer-scout/internal/types"
)

// Compositor downloads a grid's tiles and stitches them into one page.
type Compositor struct {
	fetcher fetch.Fetcher
	logger  zerolog.Logger
}

// NewCompositor creates a compositor. The fetcher should be allowlist-guarded.
func NewCompositor(fetcher fetch.Fetcher, logger zerolog.Logger) *Compositor {
	return &Compositor{fetcher: fetcher, logger: logger}
}

type placedTile struct {
	tile Tile
	img  image.Image
}

// Composite fetches every tile and pastes each at its row/column offset on a
// white canvas sized to the observed span. The first decoded tile sets the cell
// size. Value is nil when fewer than two tiles could be fetched; speculative
// grids fail silently. Only cancellation is returned as an error.
func (c *Compositor) Composite(ctx context.Context, grid Grid) (types.Outcome[*imaging.PageBitmap], error) {
	var diag types.Diagnostics
	var placed []placedTile

	for _, tile := range sortedTiles(grid.Tiles) {
		if err := ctx.Err(); err != nil {
			return types.Outcome[*imaging.PageBitmap]{}, err
		}
		res, err := fetch.Get(ctx, c.fetcher, tile.URL, fetch.AssetPolicy())
		if err != nil {
			if ctx.Err() != nil {
				return types.Outcome[*imaging.PageBitmap]{}, ctx.Err()
			}
			if !grid.Speculative {
				diag.Addf("%s: tile %s: %v", grid, tile.URL, err)
			}
			continue
		}
		img, _, err := imaging.DecodeImage(res.Body)
		if err != nil {
			if !grid.Speculative {
				diag.Addf("%s: tile %s: %v", grid, tile.URL, err)
			}
			continue
		}
		placed = append(placed, placedTile{tile: tile, img: img})
	}

	if len(placed) < 2 {
		if !grid.Speculative && len(grid.Tiles) >= 2 {
			diag.Addf("%s: only %d of %d tiles available, skipped", grid, len(placed), len(grid.Tiles))
		}
		return types.Outcome[*imaging.PageBitmap]{Value: nil, Warnings: diag.Warnings()}, nil
	}

	cell := placed[0].img.Bounds().Size()
	minRow, maxRow := placed[0].tile.Row, placed[0].tile.Row
	minCol, maxCol := placed[0].tile.Col, placed[0].tile.Col
	for _, p := range placed[1:] {
		minRow, maxRow = min(minRow, p.tile.Row), max(maxRow, p.tile.Row)
		minCol, maxCol = min(minCol, p.tile.Col), max(maxCol, p.tile.Col)
	}

	canvas := imaging.NewCanvas((maxCol-minCol+1)*cell.X, (maxRow-minRow+1)*cell.Y)
	for _, p := range placed {
		if p.img.Bounds().Size() != cell {
			c.logger.Debug().Str("url", p.tile.URL).Msg("tile size differs from first tile")
		}
		at := image.Pt((p.tile.Col-minCol)*cell.X, (p.tile.Row-minRow)*cell.Y)
		imaging.Paste(canvas, p.img, at)
	}

	page, err := imaging.NewBitmap(canvas, grid.Tiles[0].URL)
	if err != nil {
		diag.Addf("%s: %v", grid, err)
		return types.Outcome[*imaging.PageBitmap]{Value: nil, Warnings: diag.Warnings()}, nil
	}

	c.logger.Debug().Str("grid", grid.String()).Int("tiles", len(placed)).
		Int("width", page.Width).Int("height", page.Height).Msg("composited tile grid")
	return types.Outcome[*imaging.PageBitmap]{Value: page, Warnings: diag.Warnings()}, nil
}
