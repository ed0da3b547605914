// Package tiling cuts page bitmaps into overlapping square windows sized for
// the vision model.
package tiling

import (
	"image"

	"github.com/jonathan/flyer-scout/internal/imaging"
	"github.com/jonathan/flyer-scout/internal/types"
)

const (
	DefaultWindow  = 1024
	DefaultOverlap = 96
)

// Options controls the sliding window.
type Options struct {
	Window  int
	Overlap int
}

// DefaultOptions returns the 1024px window with 96px overlap.
func DefaultOptions() Options {
	return Options{Window: DefaultWindow, Overlap: DefaultOverlap}
}

func (o Options) stride() int {
	s := o.Window - o.Overlap
	if s <= 0 {
		return o.Window
	}
	return s
}

// Tile is one crop sent to the model.
type Tile struct {
	PNG             []byte
	PageIndex       int
	TileIndexInPage int
	Bounds          image.Rectangle
}

// Origins returns the window starts along one axis. The last window is the first
// one that reaches the edge; windows past it would only repeat overlap.
func Origins(length int, opts Options) []int {
	if length <= 0 {
		return nil
	}
	var out []int
	for pos := 0; ; pos += opts.stride() {
		out = append(out, pos)
		if pos+opts.Window >= length {
			break
		}
	}
	return out
}

// Plan lists the crop rectangles for a page in row-major order, clamped to the page.
func Plan(width, height int, opts Options) []image.Rectangle {
	page := image.Rect(0, 0, width, height)
	var rects []image.Rectangle
	for _, y := range Origins(height, opts) {
		for _, x := range Origins(width, opts) {
			rects = append(rects, image.Rect(x, y, x+opts.Window, y+opts.Window).Intersect(page))
		}
	}
	return rects
}

// Split tiles pages in order until budget tiles have been produced. A page that
// cannot be decoded is skipped with a warning. When the budget cuts tiling short
// the outcome carries a warning.
func Split(pages []imaging.PageBitmap, budget int, opts Options) types.Outcome[[]Tile] {
	if opts.Window <= 0 {
		opts = DefaultOptions()
	}
	out := types.Ok([]Tile{})
	if budget <= 0 {
		if len(pages) > 0 {
			out = out.Warnf("tile budget is 0; %d pages not tiled", len(pages))
		}
		return out
	}

	for i, page := range pages {
		img, err := page.Image()
		if err != nil {
			out = out.Warnf("page %d: %v", page.PageIndex, err)
			continue
		}

		rects := Plan(img.Bounds().Dx(), img.Bounds().Dy(), opts)
		for idx, r := range rects {
			if len(out.Value) >= budget {
				return out.Warnf("tile budget of %d reached at page %d tile %d/%d; %d later pages skipped",
					budget, page.PageIndex, idx+1, len(rects), len(pages)-i-1)
			}
			data, err := imaging.EncodePNG(imaging.Crop(img, r.Add(img.Bounds().Min)))
			if err != nil {
				out = out.Warnf("page %d tile %d: %v", page.PageIndex, idx, err)
				continue
			}
			out.Value = append(out.Value, Tile{
				PNG:             data,
				PageIndex:       page.PageIndex,
				TileIndexInPage: idx,
				Bounds:          r,
			})
		}
	}
	return out
}
