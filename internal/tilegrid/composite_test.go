package tilegrid

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/flyer-scout/internal/fetch"
)

func tileJPEG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}))
	return buf.Bytes()
}

func tileServer(t *testing.T, tiles map[string][]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := tiles[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestComposite_TwoByTwo(t *testing.T) {
	colors := []color.Color{
		color.RGBA{R: 255, A: 255},
		color.RGBA{G: 255, A: 255},
		color.RGBA{B: 255, A: 255},
		color.Black,
	}
	tiles := map[string][]byte{}
	for i, c := range colors {
		tiles[fmt.Sprintf("/data/1_1280_%d.jpg", i)] = tileJPEG(t, 800, 600, c)
	}
	server := tileServer(t, tiles)

	grids, rest := Group([]string{
		server.URL + "/data/1_1280_0.jpg",
		server.URL + "/data/1_1280_1.jpg",
		server.URL + "/data/1_1280_2.jpg",
		server.URL + "/data/1_1280_3.jpg",
	})
	require.Len(t, grids, 1)
	require.Empty(t, rest)

	c := NewCompositor(fetch.NewHTTPFetcher(nil), zerolog.Nop())
	out, err := c.Composite(context.Background(), grids[0])
	require.NoError(t, err)
	require.NotNil(t, out.Value)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, 1600, out.Value.Width)
	assert.Equal(t, 1200, out.Value.Height)

	img, err := out.Value.Image()
	require.NoError(t, err)

	// Tile (1,1) is black and starts at (800,600).
	r, g, b, _ := img.At(800, 600).RGBA()
	assert.Less(t, r>>8, uint32(16))
	assert.Less(t, g>>8, uint32(16))
	assert.Less(t, b>>8, uint32(16))

	// Tile (0,1) is green.
	r, g, _, _ = img.At(1200, 100).RGBA()
	assert.Greater(t, g>>8, uint32(200))
	assert.Less(t, r>>8, uint32(60))
}

func TestComposite_PartialGridUsesObservedSpan(t *testing.T) {
	server := tileServer(t, map[string][]byte{
		"/data/1_1280_0.jpg": tileJPEG(t, 100, 50, color.White),
		"/data/1_1280_1.jpg": tileJPEG(t, 100, 50, color.White),
	})
	grids, _ := Group([]string{
		server.URL + "/data/1_1280_0.jpg",
		server.URL + "/data/1_1280_1.jpg",
		server.URL + "/data/1_1280_2.jpg",
	})
	require.Len(t, grids, 1)

	out, err := NewCompositor(fetch.NewHTTPFetcher(nil), zerolog.Nop()).Composite(context.Background(), grids[0])
	require.NoError(t, err)
	require.NotNil(t, out.Value)
	assert.Equal(t, 200, out.Value.Width)
	assert.Equal(t, 50, out.Value.Height)
	assert.Len(t, out.Warnings, 1)
}

func TestComposite_TooFewTiles(t *testing.T) {
	server := tileServer(t, map[string][]byte{
		"/data/1_1280_0.jpg": tileJPEG(t, 10, 10, color.White),
	})
	grids, _ := Group([]string{
		server.URL + "/data/1_1280_0.jpg",
		server.URL + "/data/1_1280_1.jpg",
	})

	out, err := NewCompositor(fetch.NewHTTPFetcher(nil), zerolog.Nop()).Composite(context.Background(), grids[0])
	require.NoError(t, err)
	assert.Nil(t, out.Value)
	assert.NotEmpty(t, out.Warnings)
}

func TestComposite_SpeculativeFailsSilently(t *testing.T) {
	server := tileServer(t, map[string][]byte{})
	grid := ExpandNextPage([]Grid{{
		Key: "k", Page: 1, HasPage: true, Size: 1280,
		Tiles: []Tile{{URL: server.URL + "/data/1_1280_0.jpg", Page: 1, HasPage: true, Size: 1280, key: "k", dir: server.URL + "/data/", ext: "jpg"}},
	}})[1]

	out, err := NewCompositor(fetch.NewHTTPFetcher(nil), zerolog.Nop()).Composite(context.Background(), grid)
	require.NoError(t, err)
	assert.Nil(t, out.Value)
	assert.Empty(t, out.Warnings)
}
