package imaging

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// DefaultDPI is the resolution PDF pages are rasterized at.
const DefaultDPI = 200

// Rasterizer renders every page of a PDF into a PNG.
// It may return zero pages without an error.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdf []byte, dpi float64) ([][]byte, error)
}

// FitzRasterizer implements Rasterizer with MuPDF through go-fitz.
type FitzRasterizer struct{}

// NewFitzRasterizer creates a rasterizer.
func NewFitzRasterizer() *FitzRasterizer {
	return &FitzRasterizer{}
}

// Rasterize renders all pages at dpi.
func (r *FitzRasterizer) Rasterize(ctx context.Context, pdf []byte, dpi float64) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, &RasterizeError{Message: "failed to open PDF", Cause: err}
	}
	defer func() { _ = doc.Close() }()

	pageCount := doc.NumPage()
	pages := make([][]byte, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := doc.ImageDPI(pageNum, dpi)
		if err != nil {
			return pages, &RasterizeError{Message: fmt.Sprintf("failed to render page %d", pageNum+1), Cause: err}
		}
		data, err := EncodePNG(img)
		if err != nil {
			return pages, err
		}
		pages = append(pages, data)
	}
	return pages, nil
}
