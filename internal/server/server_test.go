package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/flyer-scout/internal/db"
	"github.com/jonathan/flyer-scout/internal/pipeline"
	"github.com/jonathan/flyer-scout/internal/server/ratelimit"
	"github.com/jonathan/flyer-scout/internal/stores"
	"github.com/jonathan/flyer-scout/internal/types"
)

type fakeService struct {
	discoverErr error
	extractErr  error
	lastExtract types.ExtractRequest
}

func (f *fakeService) Stores() []types.StoreSummary {
	return []types.StoreSummary{{ID: "maruyasu", Name: "マルヤス", Strategy: types.StrategyFixed}}
}

func (f *fakeService) Discover(_ context.Context, storeID types.StoreID) (*types.DiscoverResult, error) {
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	return &types.DiscoverResult{
		StoreID:    storeID,
		Candidates: []types.Candidate{{Kind: types.KindPDF, URL: "https://maruyasu-super.jp/flyer.pdf", Source: types.SourceFixed}},
		Warnings:   []string{},
	}, nil
}

func (f *fakeService) Resolve(_ context.Context, req types.ResolveRequest) (*types.ResolveResult, error) {
	if err := req.Validate(); err != nil {
		return nil, &pipeline.ValidationError{Message: err.Error(), Cause: err}
	}
	return &types.ResolveResult{StoreID: req.StoreID, Candidates: []types.Candidate{}, Warnings: []string{"no assets"}}, nil
}

func (f *fakeService) ValidateExtract(req types.ExtractRequest) error {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return &pipeline.ValidationError{Message: err.Error(), Cause: err}
	}
	if req.StoreID != "maruyasu" {
		return &pipeline.ValidationError{Message: "unknown store " + string(req.StoreID), Fields: []string{"store_id"}}
	}
	return nil
}

func (f *fakeService) Extract(_ context.Context, req types.ExtractRequest, progress pipeline.ProgressCallback) (*types.ExtractResponse, error) {
	f.lastExtract = req
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	if progress != nil {
		progress(pipeline.ProgressEvent{Step: pipeline.StepTile, Message: "1 pages cut into 2 tiles"})
		progress(pipeline.ProgressEvent{Step: pipeline.StepExtract, Message: "1 items extracted"})
	}
	return &types.ExtractResponse{
		StoreID:  req.StoreID,
		Mode:     types.ModeAll,
		Items:    []types.FlyerItem{{Category: "精肉", Name: "豚こま切れ", PriceYen: 138, Unit: "100g"}},
		Count:    1,
		Warnings: []string{"tile 2/2: quota exceeded"},
		Meta:     types.ExtractMeta{Pages: 1, Tiles: 2},
	}, nil
}

type fakeRuns struct {
	runs map[uuid.UUID]*db.ExtractionRun
}

func (f *fakeRuns) GetRun(_ context.Context, id uuid.UUID) (*db.ExtractionRun, error) {
	return f.runs[id], nil
}

func (f *fakeRuns) ListRuns(_ context.Context, storeID types.StoreID, limit int) ([]db.RunSummary, error) {
	out := []db.RunSummary{}
	for _, r := range f.runs {
		if r.StoreID == storeID && len(out) < max(limit, 1) {
			out = append(out, db.RunSummary{ID: r.ID, StoreID: r.StoreID, Count: r.Count})
		}
	}
	return out, nil
}

func (f *fakeRuns) DeleteRun(_ context.Context, id uuid.UUID) error {
	if _, ok := f.runs[id]; !ok {
		return fmt.Errorf("%w: %s", db.ErrNotFound, id)
	}
	delete(f.runs, id)
	return nil
}

func newTestServer(svc Service, runs RunStore) http.Handler {
	s := New(Config{
		Service:   svc,
		Runs:      runs,
		RateLimit: &ratelimit.Config{Enabled: false},
		Logger:    zerolog.Nop(),
	})
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndStores(t *testing.T) {
	h := newTestServer(&fakeService{}, nil)

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/stores", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp StoresResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Stores, 1)
	assert.Equal(t, types.StoreID("maruyasu"), resp.Stores[0].ID)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDiscover(t *testing.T) {
	h := newTestServer(&fakeService{}, nil)

	rec := do(t, h, http.MethodPost, "/discover", `{"store_id":"maruyasu"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res types.DiscoverResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, types.KindPDF, res.Candidates[0].Kind)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/discover", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/discover", ``).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/discover", `{"store_id":`).Code)

	failing := newTestServer(&fakeService{discoverErr: &stores.DiscoveryError{StoreID: "yamaichi", Message: "HTTP status 503"}}, nil)
	rec = do(t, failing, http.MethodPost, "/discover", `{"store_id":"yamaichi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "503")
}

func TestResolve(t *testing.T) {
	h := newTestServer(&fakeService{}, nil)

	rec := do(t, h, http.MethodPost, "/resolve", `{"store_id":"hanamaru","page_urls":["https://tokubai-viewer.jp/shop/20417/flyer"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"candidates":[]`)

	rec = do(t, h, http.MethodPost, "/resolve", `{"store_id":"hanamaru","page_urls":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExtract(t *testing.T) {
	svc := &fakeService{}
	h := newTestServer(svc, nil)

	rec := do(t, h, http.MethodPost, "/extract", `{"store_id":"maruyasu","mode":"ingredients","source_urls":["https://maruyasu-super.jp/flyer.pdf"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.ModeIngredients, svc.lastExtract.Mode)

	var resp types.ExtractResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "豚こま切れ", resp.Items[0].Name)
	assert.Equal(t, []string{"tile 2/2: quota exceeded"}, resp.Warnings)

	invalid := newTestServer(&fakeService{extractErr: &pipeline.ValidationError{Message: "field validation failed"}}, nil)
	assert.Equal(t, http.StatusBadRequest, do(t, invalid, http.MethodPost, "/extract", `{"store_id":"x"}`).Code)

	cancelled := newTestServer(&fakeService{extractErr: context.Canceled}, nil)
	assert.Equal(t, StatusClientClosedRequest, do(t, cancelled, http.MethodPost, "/extract", `{"store_id":"x"}`).Code)
}

func readEvents(t *testing.T, body string) []string {
	t.Helper()
	var events []string
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		if name, ok := strings.CutPrefix(scanner.Text(), "event: "); ok {
			events = append(events, name)
		}
	}
	return events
}

func TestExtractStream(t *testing.T) {
	server := httptest.NewServer(newTestServer(&fakeService{}, nil))
	defer server.Close()

	resp, err := http.Post(server.URL+"/extract/stream", "application/json",
		strings.NewReader(`{"store_id":"maruyasu","source_urls":["https://maruyasu-super.jp/flyer.pdf"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	var body strings.Builder
	_, err = bufio.NewReader(resp.Body).WriteTo(&body)
	require.NoError(t, err)

	assert.Equal(t, []string{"progress", "progress", "result"}, readEvents(t, body.String()))
	assert.Contains(t, body.String(), `"step":"tile"`)
	assert.Contains(t, body.String(), "豚こま切れ")
}

func TestExtractStream_Error(t *testing.T) {
	h := newTestServer(&fakeService{extractErr: errors.New("vision client closed")}, nil)

	rec := do(t, h, http.MethodPost, "/extract/stream", `{"store_id":"maruyasu","source_urls":["https://maruyasu-super.jp/flyer.pdf"]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"error"}, readEvents(t, rec.Body.String()))
	assert.Contains(t, rec.Body.String(), `"status":500`)
}

func TestExtractStream_RejectsInvalidRequestBeforeStreaming(t *testing.T) {
	svc := &fakeService{}
	h := newTestServer(svc, nil)

	tests := []struct {
		name string
		body string
	}{
		{"no sources", `{"store_id":"maruyasu"}`},
		{"unknown store", `{"store_id":"nowhere","source_urls":["https://maruyasu-super.jp/flyer.pdf"]}`},
		{"bad mode", `{"store_id":"maruyasu","mode":"everything","source_urls":["https://maruyasu-super.jp/flyer.pdf"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/extract/stream", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEqual(t, "text/event-stream", rec.Header().Get("Content-Type"))
			assert.Empty(t, readEvents(t, rec.Body.String()))
		})
	}
	assert.Empty(t, svc.lastExtract.StoreID)
}

func TestRuns(t *testing.T) {
	id := uuid.New()
	runs := &fakeRuns{runs: map[uuid.UUID]*db.ExtractionRun{
		id: {ID: id, StoreID: "maruyasu", Count: 3, CreatedAt: time.Date(2024, 10, 16, 9, 0, 0, 0, time.UTC)},
	}}
	h := newTestServer(&fakeService{}, runs)

	rec := do(t, h, http.MethodGet, "/runs/"+id.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id.String())

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/runs/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/runs/not-a-uuid", "").Code)

	rec = do(t, h, http.MethodGet, "/stores/maruyasu/runs?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		StoreID string          `json:"store_id"`
		Runs    []db.RunSummary `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, 3, list.Runs[0].Count)

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/stores/maruyasu/runs?limit=zero", "").Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/runs/"+id.String(), "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/runs/"+id.String(), "").Code)

	noHistory := newTestServer(&fakeService{}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, noHistory, http.MethodGet, "/runs/"+id.String(), "").Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	s := New(Config{
		Service: &fakeService{},
		RateLimit: &ratelimit.Config{
			Enabled:       true,
			DefaultLimit:  100,
			DefaultWindow: time.Minute,
			Endpoints:     []ratelimit.EndpointConfig{{Path: "/extract", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1}},
		},
		Logger: zerolog.Nop(),
	})
	h := s.Handler()
	body := `{"store_id":"maruyasu","source_urls":["https://maruyasu-super.jp/flyer.pdf"]}`

	first := do(t, h, http.MethodPost, "/extract", body)
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Limit"))

	second := do(t, h, http.MethodPost, "/extract", body)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "3600", second.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(&fakeService{}, nil)
	rec := do(t, h, http.MethodOptions, "/extract", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}
