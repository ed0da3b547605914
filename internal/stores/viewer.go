package stores

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/jonathan/flyer-scout/internal/fetch"
	"github.com/jonathan/flyer-scout/internal/markup"
	"github.com/jonathan/flyer-scout/internal/types"
)

var (
	viewerDetailPath = regexp.MustCompile(`^/shop/([A-Za-z0-9_-]+)/([A-Za-z0-9_-]+)/?$`)
	viewerListPath   = regexp.MustCompile(`^/shop/([A-Za-z0-9_-]+)/list/?$`)
)

// ViewerStore finds the store's page on a flyer viewer platform. The detail
// page is located directly on the store page or through the shop's list page.
type ViewerStore struct {
	base
	host string
}

func newViewerStore(b base) (*ViewerStore, error) {
	host := strings.ToLower(strings.TrimSpace(b.cfg.Viewer.Host))
	if host == "" {
		return nil, &CatalogError{Source: "registry", StoreID: b.cfg.ID, Message: "viewer host is required"}
	}
	return &ViewerStore{base: b, host: host}, nil
}

// Discover emits the viewer detail page as a page candidate and, when it
// resolves, the best image on it. List pages are never emitted.
func (s *ViewerStore) Discover(ctx context.Context) (*types.DiscoverResult, error) {
	res, err := s.fetchRequired(ctx, s.cfg.PageURL)
	if err != nil {
		return nil, err
	}

	var list types.CandidateList
	var diag types.Diagnostics
	urls := markup.ExtractURLs(res.HTML(), res.URL)

	detail := s.findDetail(urls)
	if detail == "" {
		listURL := s.findList(urls)
		if listURL == "" {
			diag.Addf("no %s detail or list link on %s", s.host, s.cfg.PageURL)
			return s.result(&list, &diag), nil
		}
		detail, err = s.detailFromList(ctx, listURL)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			diag.Addf("list page %s: %v", listURL, err)
			return s.result(&list, &diag), nil
		}
	}

	list.Add(types.Candidate{Kind: types.KindPage, URL: detail, Title: s.cfg.Name, Source: types.SourceScrape})

	resolved := s.resolver.Resolve(ctx, detail, s.profile)
	for _, c := range resolved.Value {
		if c.Kind == types.KindImage {
			c.Source = types.SourceResolve
			list.Add(c)
			break
		}
	}
	if len(resolved.Warnings) > 0 {
		s.logger.Debug().Strs("warnings", resolved.Warnings).Msg("opportunistic resolve incomplete")
	}

	return s.result(&list, &diag), nil
}

func (s *ViewerStore) onHost(u *url.URL) bool {
	h := strings.ToLower(u.Hostname())
	return h == s.host || strings.HasSuffix(h, "."+s.host)
}

func (s *ViewerStore) shopMatches(id string) bool {
	return s.cfg.Viewer.ShopID == "" || s.cfg.Viewer.ShopID == id
}

func (s *ViewerStore) findDetail(urls []string) string {
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || !s.onHost(u) {
			continue
		}
		m := viewerDetailPath.FindStringSubmatch(u.Path)
		if m == nil || m[2] == "list" || !s.shopMatches(m[1]) {
			continue
		}
		return s.detailURL(u.Scheme, u.Host, m[1], m[2])
	}
	return ""
}

func (s *ViewerStore) findList(urls []string) string {
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || !s.onHost(u) {
			continue
		}
		if m := viewerListPath.FindStringSubmatch(u.Path); m != nil && s.shopMatches(m[1]) {
			return raw
		}
	}
	return ""
}

// detailFromList fetches the list page and builds the detail URL from the
// first <shopID>/<flyerID> reference in its markup, including inline scripts.
func (s *ViewerStore) detailFromList(ctx context.Context, listURL string) (string, error) {
	u, err := url.Parse(listURL)
	if err != nil {
		return "", err
	}
	shopID := viewerListPath.FindStringSubmatch(u.Path)[1]

	res, err := fetch.Get(ctx, s.fetcher, listURL, fetch.PagePolicy())
	if err != nil {
		return "", err
	}

	ref := regexp.MustCompile(`(?:^|[/"'\s])` + regexp.QuoteMeta(shopID) + `/([A-Za-z0-9_-]+)(?:["'/?#\s]|$)`)
	for _, m := range ref.FindAllStringSubmatch(markup.DecodeEntities(res.HTML()), -1) {
		if m[1] == "list" {
			continue
		}
		return s.detailURL(u.Scheme, u.Host, shopID, m[1]), nil
	}
	return "", fmt.Errorf("no flyer id for shop %s", shopID)
}

func (s *ViewerStore) detailURL(scheme, host, shopID, flyerID string) string {
	return fmt.Sprintf("%s://%s/shop/%s/%s", scheme, host, shopID, flyerID)
}
