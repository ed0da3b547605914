package imaging

import (
	"bytes"
	"context"
	"mime"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jonathan/flyer-scout/internal/markup"
	"github.com/jonathan/flyer-scout/internal/types"
)

// AssetType is the detected kind of a fetched asset.
type AssetType string

const (
	AssetPDF         AssetType = "pdf"
	AssetImage       AssetType = "image"
	AssetUnsupported AssetType = "unsupported"
)

// DetectAsset classifies a fetched body from its declared content type, its URL
// and, when the server is vague, its leading bytes.
func DetectAsset(data []byte, contentType, sourceURL string) AssetType {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = mt
	}

	switch {
	case mediaType == "application/pdf" || mediaType == "application/x-pdf":
		return AssetPDF
	case strings.HasPrefix(mediaType, "image/"):
		return AssetImage
	}

	if mediaType == "" || mediaType == "application/octet-stream" || mediaType == "binary/octet-stream" {
		if markup.IsPDFURL(sourceURL) || bytes.HasPrefix(data, []byte("%PDF-")) {
			return AssetPDF
		}
		if markup.IsImageURL(sourceURL) || strings.HasPrefix(http.DetectContentType(data), "image/") {
			return AssetImage
		}
	}
	return AssetUnsupported
}

// Normalizer converts fetched assets into page bitmaps.
type Normalizer struct {
	rasterizer Rasterizer
	dpi        float64
	logger     zerolog.Logger
}

// NewNormalizer creates a normalizer. A nil rasterizer means PDFs produce a warning and no pages.
func NewNormalizer(rasterizer Rasterizer, logger zerolog.Logger) *Normalizer {
	return &Normalizer{rasterizer: rasterizer, dpi: DefaultDPI, logger: logger}
}

// Normalize returns the asset's pages in order. PageIndex is relative to this asset;
// callers renumber when combining assets. Failures are warnings, never errors,
// except cancellation which is returned as ctx.Err().
func (n *Normalizer) Normalize(ctx context.Context, data []byte, contentType, sourceURL string) (types.Outcome[[]PageBitmap], error) {
	switch DetectAsset(data, contentType, sourceURL) {
	case AssetPDF:
		return n.normalizePDF(ctx, data, sourceURL)
	case AssetImage:
		img, format, err := DecodeImage(data)
		if err != nil {
			return types.Warn([]PageBitmap{}, "%s: %v", sourceURL, err), nil
		}
		page, err := NewBitmap(img, sourceURL)
		if err != nil {
			return types.Warn([]PageBitmap{}, "%s: %v", sourceURL, err), nil
		}
		n.logger.Debug().Str("url", sourceURL).Str("format", format).
			Int("width", page.Width).Int("height", page.Height).Msg("normalized image")
		return types.Ok([]PageBitmap{*page}), nil
	default:
		return types.Warn([]PageBitmap{}, "%s: unsupported content-type %q", sourceURL, contentType), nil
	}
}

func (n *Normalizer) normalizePDF(ctx context.Context, data []byte, sourceURL string) (types.Outcome[[]PageBitmap], error) {
	if n.rasterizer == nil {
		return types.Warn([]PageBitmap{}, "%s: PDF rasterizer is not available", sourceURL), nil
	}

	pngs, err := n.rasterizer.Rasterize(ctx, data, n.dpi)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return types.Outcome[[]PageBitmap]{}, ctxErr
	}

	out := types.Ok(make([]PageBitmap, 0, len(pngs)))
	if err != nil {
		out = out.Warnf("%s: %v", sourceURL, err)
	}
	for i, data := range pngs {
		cfg, _, decErr := imageConfig(data)
		if decErr != nil {
			out = out.Warnf("%s: page %d: %v", sourceURL, i+1, decErr)
			continue
		}
		out.Value = append(out.Value, PageBitmap{
			PageIndex: len(out.Value),
			Source:    sourceURL,
			PNG:       data,
			Width:     cfg.Width,
			Height:    cfg.Height,
		})
	}
	if len(out.Value) == 0 {
		out = out.Warnf("%s: PDF produced no pages", sourceURL)
	}
	n.logger.Debug().Str("url", sourceURL).Int("pages", len(out.Value)).Msg("rasterized PDF")
	return out, nil
}
