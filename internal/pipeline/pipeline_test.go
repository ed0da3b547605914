package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/flyer-scout/internal/extraction"
	"github.com/jonathan/flyer-scout/internal/fetch"
	"github.com/jonathan/flyer-scout/internal/imaging"
	"github.com/jonathan/flyer-scout/internal/llm"
	"github.com/jonathan/flyer-scout/internal/stores"
	"github.com/jonathan/flyer-scout/internal/types"
)

type countingClient struct {
	mu    sync.Mutex
	calls int
}

func (c *countingClient) ExtractFromImage(_ context.Context, _ []byte, _ string, _ llm.GenerationOptions) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return fmt.Sprintf(`{"items": [{"category": "野菜", "name": "item%d", "price_yen": %d}, {"name": "共通", "price": "98円"}]}`, c.calls, 100*c.calls), nil
}

func (c *countingClient) Close() error { return nil }

type fakeRecorder struct {
	err   error
	saved []*types.ExtractResponse
}

func (r *fakeRecorder) SaveRun(_ context.Context, _ types.ExtractRequest, resp *types.ExtractResponse) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.saved = append(r.saved, resp)
	return "run-1", nil
}

func jpegOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func assetServer(t *testing.T, files map[string][]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := files[r.URL.Path]
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

func newTestPipeline(t *testing.T, client llm.VisionClient, recorder Recorder) *Pipeline {
	t.Helper()
	cat, err := stores.ParseCatalog("test.yaml", []byte(`
stores:
  - id: local
    name: Local
    strategy: fixed
    allowed_hosts: [127.0.0.1]
    front_back_pages: true
    assets: [{url: "http://127.0.0.1/flyer.jpg"}]
`))
	require.NoError(t, err)
	reg, err := stores.NewRegistry(cat, stores.Deps{Fetcher: fetch.NewHTTPFetcher(nil), Logger: zerolog.Nop()})
	require.NoError(t, err)

	return New(Options{
		Registry:     reg,
		Normalizer:   imaging.NewNormalizer(nil, zerolog.Nop()),
		Orchestrator: extraction.NewOrchestrator(client),
		Recorder:     recorder,
		Logger:       zerolog.Nop(),
	})
}

func TestExtract_MixedSources(t *testing.T) {
	server := assetServer(t, map[string][]byte{
		"/wide.jpg":  jpegOf(t, 1200, 800),
		"/small.jpg": jpegOf(t, 500, 400),
	})
	client := &countingClient{}
	p := newTestPipeline(t, client, nil)

	var events []ProgressEvent
	resp, err := p.Extract(context.Background(), types.ExtractRequest{
		StoreID: "local",
		SourceURLs: []string{
			server.URL + "/wide.jpg",
			"https://evil.example.com/flyer.jpg",
			server.URL + "/missing.jpg",
			server.URL + "/small.jpg",
		},
	}, func(e ProgressEvent) { events = append(events, e) })
	require.NoError(t, err)

	assert.Equal(t, types.ModeAll, resp.Mode)
	assert.Equal(t, 2, resp.Meta.Pages)
	assert.Equal(t, 3, resp.Meta.Tiles)
	assert.Equal(t, 3, client.calls)

	// Three distinct items plus the shared one de-duplicated.
	assert.Equal(t, 4, resp.Count)
	assert.Len(t, resp.Items, 4)

	require.Len(t, resp.Warnings, 2)
	assert.Contains(t, resp.Warnings[0], "evil.example.com")
	assert.Contains(t, resp.Warnings[1], "missing.jpg")

	var steps []string
	for _, e := range events {
		steps = append(steps, e.Step)
	}
	assert.Contains(t, steps, StepGather)
	assert.Contains(t, steps, StepTile)
	assert.Contains(t, steps, StepExtract)
}

func TestExtract_TileGridWithSpeculativeBackPage(t *testing.T) {
	server := assetServer(t, map[string][]byte{
		"/data/1_640_0.jpg": jpegOf(t, 300, 200),
		"/data/1_640_1.jpg": jpegOf(t, 300, 200),
	})
	client := &countingClient{}
	p := newTestPipeline(t, client, nil)

	resp, err := p.Extract(context.Background(), types.ExtractRequest{
		StoreID:    "local",
		SourceURLs: []string{server.URL + "/data/1_640_0.jpg", server.URL + "/data/1_640_1.jpg"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Meta.Pages)
	assert.Equal(t, 1, resp.Meta.Tiles)
	assert.Empty(t, resp.Warnings)
}

func TestExtract_DuplicateGridCellIsNotAPage(t *testing.T) {
	server := assetServer(t, map[string][]byte{
		"/data/2_640_0.jpg": jpegOf(t, 300, 200),
		"/data/2_640_1.jpg": jpegOf(t, 300, 200),
	})
	client := &countingClient{}
	p := newTestPipeline(t, client, nil)

	resp, err := p.Extract(context.Background(), types.ExtractRequest{
		StoreID: "local",
		SourceURLs: []string{
			server.URL + "/data/2_640_0.jpg",
			server.URL + "/data/2_640_1.jpg",
			server.URL + "/data/2_640_0.jpg?v=2",
		},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Meta.Pages)
	assert.Equal(t, 1, resp.Meta.Tiles)
	assert.Equal(t, 1, client.calls)
}

func TestExtract_NothingUsable(t *testing.T) {
	server := assetServer(t, map[string][]byte{})
	client := &countingClient{}
	p := newTestPipeline(t, client, nil)

	resp, err := p.Extract(context.Background(), types.ExtractRequest{
		StoreID:    "local",
		SourceURLs: []string{server.URL + "/gone.jpg"},
	}, nil)
	require.NoError(t, err)

	assert.NotNil(t, resp.Items)
	assert.Equal(t, 0, resp.Count)
	assert.Equal(t, 0, client.calls)
	require.Len(t, resp.Warnings, 2)
	assert.Contains(t, resp.Warnings[1], "no usable pages")
}

func TestExtract_ValidationErrors(t *testing.T) {
	p := newTestPipeline(t, &countingClient{}, nil)

	tests := []struct {
		name string
		req  types.ExtractRequest
	}{
		{"unknown store", types.ExtractRequest{StoreID: "nope", SourceURLs: []string{"http://127.0.0.1/a.jpg"}}},
		{"no sources", types.ExtractRequest{StoreID: "local"}},
		{"bad mode", types.ExtractRequest{StoreID: "local", Mode: "vegan", SourceURLs: []string{"http://127.0.0.1/a.jpg"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Extract(context.Background(), tt.req, nil)
			var valErr *ValidationError
			assert.True(t, errors.As(err, &valErr), "got %v", err)

			checkErr := p.ValidateExtract(tt.req)
			assert.True(t, errors.As(checkErr, &valErr), "got %v", checkErr)
		})
	}

	assert.NoError(t, p.ValidateExtract(types.ExtractRequest{StoreID: "local", SourceURLs: []string{"http://127.0.0.1/a.jpg"}}))
}

func TestExtract_Cancelled(t *testing.T) {
	server := assetServer(t, map[string][]byte{"/a.jpg": jpegOf(t, 100, 100)})
	p := newTestPipeline(t, &countingClient{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := p.Extract(ctx, types.ExtractRequest{StoreID: "local", SourceURLs: []string{server.URL + "/a.jpg"}}, nil)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtract_Recorder(t *testing.T) {
	server := assetServer(t, map[string][]byte{"/a.jpg": jpegOf(t, 100, 100)})
	req := types.ExtractRequest{StoreID: "local", SourceURLs: []string{server.URL + "/a.jpg"}}

	rec := &fakeRecorder{}
	var last ProgressEvent
	resp, err := newTestPipeline(t, &countingClient{}, rec).Extract(context.Background(), req, func(ev ProgressEvent) { last = ev })
	require.NoError(t, err)
	assert.Equal(t, "run-1", resp.RunID)
	assert.Len(t, rec.saved, 1)
	assert.Equal(t, StepRecord, last.Step)
	assert.Equal(t, "run-1", last.RunID)

	failing := &fakeRecorder{err: errors.New("db down")}
	resp, err = newTestPipeline(t, &countingClient{}, failing).Extract(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Empty(t, resp.RunID)
	require.NotEmpty(t, resp.Warnings)
	assert.True(t, strings.HasPrefix(resp.Warnings[len(resp.Warnings)-1], "run not recorded"))
}

func TestDiscoverAndResolve(t *testing.T) {
	p := newTestPipeline(t, &countingClient{}, nil)

	res, err := p.Discover(context.Background(), "local")
	require.NoError(t, err)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, types.SourceFixed, res.Candidates[0].Source)

	_, err = p.Discover(context.Background(), "nope")
	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)

	_, err = p.Resolve(context.Background(), types.ResolveRequest{StoreID: "local"})
	assert.ErrorAs(t, err, &valErr)

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<img src="/flyer/week42.jpg">`))
	}))
	defer page.Close()

	out, err := p.Resolve(context.Background(), types.ResolveRequest{StoreID: "local", PageURLs: []string{page.URL + "/chirashi"}})
	require.NoError(t, err)
	require.Len(t, out.Candidates, 1)
	assert.Equal(t, page.URL+"/flyer/week42.jpg", out.Candidates[0].URL)
	assert.Empty(t, out.Warnings)

	assert.Len(t, p.Stores(), 1)
}
