// Package fetch - browser.go renders pages in headless Chrome for flyer viewers
// that only materialize asset URLs after client-side scripts run.
package fetch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// DefaultNavigationTimeout bounds a whole rendering session.
const DefaultNavigationTimeout = 45 * time.Second

// DefaultSettleDelay is how long to wait after the body is ready for lazy content.
const DefaultSettleDelay = 3 * time.Second

// RenderOptions controls one rendering session.
type RenderOptions struct {
	WaitReady string // CSS selector to wait for, defaults to "body"
	Timeout   time.Duration
	Settle    time.Duration
}

// DefaultRenderOptions returns the options used by the resolver.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		WaitReady: "body",
		Timeout:   DefaultNavigationTimeout,
		Settle:    DefaultSettleDelay,
	}
}

// RenderedImage is an <img> element of the rendered DOM with its decoded size.
type RenderedImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Area returns the decoded pixel area.
func (i RenderedImage) Area() int {
	return i.Width * i.Height
}

// ObservedResponse is an image response seen on the network while rendering.
type ObservedResponse struct {
	URL           string
	MimeType      string
	ContentLength int64
}

// Rendered is the outcome of rendering one page.
type Rendered struct {
	URL       string
	HTML      string
	DOMImages []RenderedImage
	Responses []ObservedResponse
}

// Renderer renders a page with a headless browser.
type Renderer interface {
	Render(ctx context.Context, url string, opts RenderOptions) (*Rendered, error)
}

// ChromeRenderer implements Renderer with chromedp.
// Requires Chrome/Chromium to be installed on the system.
type ChromeRenderer struct {
	Logger zerolog.Logger
}

// NewChromeRenderer creates a renderer.
func NewChromeRenderer(logger zerolog.Logger) *ChromeRenderer {
	return &ChromeRenderer{Logger: logger}
}

const domImagesScript = `Array.from(document.images).map(function (img) {
	return {url: img.currentSrc || img.src || "", width: img.naturalWidth || 0, height: img.naturalHeight || 0};
})`

// Render launches one browser, navigates to url, waits for the page to settle and
// collects DOM images and observed image responses. The browser is torn down on every return path.
func (r *ChromeRenderer) Render(ctx context.Context, url string, opts RenderOptions) (*Rendered, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultNavigationTimeout
	}
	if opts.WaitReady == "" {
		opts.WaitReady = "body"
	}

	r.Logger.Debug().Str("url", url).Msg("starting headless browser")

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, opts.Timeout)
	defer cancelTimeout()

	var mu sync.Mutex
	observed := make(map[network.RequestID]*ObservedResponse)
	var order []network.RequestID

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if e.Type != network.ResourceTypeImage || e.Response == nil {
				return
			}
			mu.Lock()
			if _, ok := observed[e.RequestID]; !ok {
				order = append(order, e.RequestID)
			}
			observed[e.RequestID] = &ObservedResponse{
				URL:           e.Response.URL,
				MimeType:      e.Response.MimeType,
				ContentLength: headerContentLength(e.Response.Headers),
			}
			mu.Unlock()
		case *network.EventLoadingFinished:
			mu.Lock()
			if resp, ok := observed[e.RequestID]; ok && resp.ContentLength == 0 {
				resp.ContentLength = int64(e.EncodedDataLength)
			}
			mu.Unlock()
		}
	})

	var html string
	var images []RenderedImage
	err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady(opts.WaitReady),
		chromedp.Sleep(opts.Settle),
		chromedp.OuterHTML("html", &html),
		chromedp.Evaluate(domImagesScript, &images),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("browser rendering failed: %w", err)
	}

	mu.Lock()
	responses := make([]ObservedResponse, 0, len(order))
	for _, id := range order {
		responses = append(responses, *observed[id])
	}
	mu.Unlock()

	r.Logger.Debug().
		Str("url", url).
		Int("html_bytes", len(html)).
		Int("dom_images", len(images)).
		Int("image_responses", len(responses)).
		Msg("rendered page")

	return &Rendered{URL: url, HTML: html, DOMImages: images, Responses: responses}, nil
}

func headerContentLength(headers network.Headers) int64 {
	for k, v := range headers {
		if !strings.EqualFold(k, "content-length") {
			continue
		}
		switch val := v.(type) {
		case string:
			n, _ := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
			return n
		case float64:
			return int64(val)
		}
	}
	return 0
}
