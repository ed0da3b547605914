// Package fetch provides the network capabilities of the flyer pipeline:
// plain HTTP fetches, size probes, allowlist enforcement and headless rendering.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; FlyerScout/1.0)"

// MaxBodyBytes caps how much of a response body is read into memory.
const MaxBodyBytes = 64 << 20

// Policy is the timeout and caching behavior of a single fetch.
// Callers pass it explicitly on every request.
type Policy struct {
	Timeout time.Duration
	NoStore bool
}

// PagePolicy is used for HTML pages scraped during discovery and resolution.
func PagePolicy() Policy {
	return Policy{Timeout: 20 * time.Second, NoStore: true}
}

// AssetPolicy is used for flyer image and PDF downloads.
func AssetPolicy() Policy {
	return Policy{Timeout: 60 * time.Second, NoStore: true}
}

// ProbePolicy is used for HEAD and ranged GET size probes.
func ProbePolicy() Policy {
	return Policy{Timeout: 10 * time.Second, NoStore: true}
}

// Request describes one fetch.
type Request struct {
	URL    string
	Method string // defaults to GET
	Range  string // optional Range header value, e.g. "bytes=0-0"
	Policy Policy

	// Guard, when set, is consulted for every redirect hop.
	Guard *Allowlist
}

// Result holds the raw content and metadata from a URL fetch.
type Result struct {
	URL           string
	Body          []byte
	ContentType   string
	ContentLength int64
	StatusCode    int
	Header        http.Header
}

// HTML returns the body as a string.
func (r *Result) HTML() string {
	return string(r.Body)
}

// Fetcher performs network fetches. Implementations must honor ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Result, error)
}

// Options configures an HTTPFetcher.
type Options struct {
	UserAgent string
	Headers   map[string]string
	Transport http.RoundTripper
	Logger    zerolog.Logger
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		UserAgent: DefaultUserAgent,
		Logger:    zerolog.Nop(),
	}
}

// HTTPFetcher is the net/http implementation of Fetcher.
type HTTPFetcher struct {
	opts *Options
}

// NewHTTPFetcher creates a fetcher. A nil opts uses DefaultOptions.
func NewHTTPFetcher(opts *Options) *HTTPFetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	return &HTTPFetcher{opts: opts}
}

// Fetch executes req. Non-2xx statuses are returned as an *Error alongside the partial Result.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) (*Result, error) {
	parsedURL, err := url.Parse(req.URL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{URL: req.URL, Message: "invalid URL", Cause: err}
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := req.Policy.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{Transport: f.opts.Transport}
	if req.Guard != nil {
		guard := req.Guard
		client.CheckRedirect = func(next *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return guard.Check(next.URL.String())
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, nil)
	if err != nil {
		return nil, &Error{URL: req.URL, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("User-Agent", f.opts.UserAgent)
	for key, value := range f.opts.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.Policy.NoStore {
		httpReq.Header.Set("Cache-Control", "no-store")
		httpReq.Header.Set("Pragma", "no-cache")
	}
	if req.Range != "" {
		httpReq.Header.Set("Range", req.Range)
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &Error{URL: req.URL, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	var body []byte
	if method != http.MethodHead {
		body, err = io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
		if err != nil {
			return nil, &Error{URL: req.URL, Message: "failed to read response body", Cause: err}
		}
	}

	finalURL := req.URL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	result := &Result{
		URL:           finalURL,
		Body:          body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: parseContentLength(resp),
		StatusCode:    resp.StatusCode,
		Header:        resp.Header,
	}

	f.opts.Logger.Debug().
		Str("method", method).
		Str("url", req.URL).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("fetched")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result, &Error{
			URL:        req.URL,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	return result, nil
}

// Get is a convenience wrapper for a GET with the given policy.
func Get(ctx context.Context, f Fetcher, rawURL string, policy Policy) (*Result, error) {
	return f.Fetch(ctx, Request{URL: rawURL, Policy: policy})
}

func parseContentLength(resp *http.Response) int64 {
	if resp.ContentLength > 0 {
		return resp.ContentLength
	}
	if v := resp.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
