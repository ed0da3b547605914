package stores

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jonathan/flyer-scout/internal/fetch"
)

// pageFetcher serves canned bodies by URL and records every request.
type pageFetcher struct {
	mu       sync.Mutex
	pages    map[string]string
	requests []string
}

func newPageFetcher(pages map[string]string) *pageFetcher {
	return &pageFetcher{pages: pages}
}

func (f *pageFetcher) Fetch(_ context.Context, req fetch.Request) (*fetch.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req.URL)

	body, ok := f.pages[req.URL]
	if !ok {
		return &fetch.Result{URL: req.URL, StatusCode: 404}, &fetch.Error{URL: req.URL, Message: "HTTP status 404", StatusCode: 404}
	}
	return &fetch.Result{URL: req.URL, Body: []byte(body), ContentType: "text/html", StatusCode: 200}, nil
}

func (f *pageFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func fixedClock() time.Time {
	return time.Date(2024, 10, 16, 9, 0, 0, 0, time.UTC)
}

func testDeps(f fetch.Fetcher) Deps {
	return Deps{Fetcher: f, Logger: zerolog.Nop(), Now: fixedClock}
}

func mustRegistry(yamlDoc string, deps Deps) *Registry {
	cat, err := ParseCatalog("test.yaml", []byte(yamlDoc))
	if err != nil {
		panic(err)
	}
	reg, err := NewRegistry(cat, deps)
	if err != nil {
		panic(err)
	}
	return reg
}
