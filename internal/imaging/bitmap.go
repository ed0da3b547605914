// Package imaging normalizes fetched flyer assets into PNG page bitmaps and
// provides the raster operations used for tiling and grid compositing.
package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // register decoder
	_ "image/jpeg"
	"image/png"

	_ "golang.org/x/image/webp" // register decoder
)

// PageBitmap is one normalized raster page. PNG is the pipeline's single internal encoding.
type PageBitmap struct {
	PageIndex int
	Source    string
	PNG       []byte
	Width     int
	Height    int
}

// DecodeImage decodes any registered raster format (jpeg, png, gif, webp).
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &DecodeError{Message: "failed to decode image", Cause: err}
	}
	return img, format, nil
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, &DecodeError{Message: "failed to encode PNG", Cause: err}
	}
	return buf.Bytes(), nil
}

// NewBitmap encodes img into a PageBitmap.
func NewBitmap(img image.Image, source string) (*PageBitmap, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &PageBitmap{Source: source, PNG: data, Width: b.Dx(), Height: b.Dy()}, nil
}

// Image decodes the bitmap back into an image.
func (p *PageBitmap) Image() (image.Image, error) {
	img, _, err := DecodeImage(p.PNG)
	return img, err
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// Crop returns the part of img inside r, clipped to img's bounds.
// The result's bounds start at the origin.
func Crop(img image.Image, r image.Rectangle) image.Image {
	r = r.Intersect(img.Bounds())
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	if si, ok := img.(subImager); ok {
		draw.Draw(dst, dst.Bounds(), si.SubImage(r), r.Min, draw.Src)
		return dst
	}
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

// NewCanvas returns a white RGBA canvas.
func NewCanvas(width, height int) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return canvas
}

// Paste draws src onto dst with its top-left corner at at.
func Paste(dst draw.Image, src image.Image, at image.Point) {
	sb := src.Bounds()
	rect := image.Rectangle{Min: at, Max: at.Add(sb.Size())}
	draw.Draw(dst, rect, src, sb.Min, draw.Over)
}

func imageConfig(data []byte) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", &DecodeError{Message: "failed to read image header", Cause: err}
	}
	return cfg, format, nil
}
