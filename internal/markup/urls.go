// Package markup extracts URLs from scraped HTML and normalizes them.
// Every function here is pure: no network I/O, no panics on malformed input.
package markup

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	cssURLPattern = regexp.MustCompile(`url\(\s*['"]?([^'")\s]+)['"]?\s*\)`)
	rawURLPattern = regexp.MustCompile(`https?://[^\s"'<>()\\{}\[\]|^` + "`" + `]+`)
)

// urlAttributes are the element attributes that may carry asset URLs.
// Lazy-loading attributes are included because flyer thumbnails rarely use plain src.
var urlAttributes = []string{"href", "src", "data-src", "data-original", "data-lazy-src", "poster"}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&#038;", "&",
	"&#38;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#34;", `"`,
	"&#39;", "'",
	"&#x27;", "'",
	"&apos;", "'",
	"&nbsp;", " ",
	`\u0026`, "&",
	`\u002F`, "/",
	`\u002f`, "/",
	`\/`, "/",
)

// DecodeEntities decodes the HTML entities and JS string escapes that show up in scraped URLs.
func DecodeEntities(s string) string {
	if !strings.ContainsAny(s, "&\\") {
		return s
	}
	return entityReplacer.Replace(s)
}

// Absolutize resolves raw against base. It reports false for anything that
// does not end up as an http(s) URL with a host.
func Absolutize(raw string, base *url.URL) (string, bool) {
	raw = strings.TrimSpace(DecodeEntities(raw))
	if raw == "" || strings.HasPrefix(raw, "#") {
		return "", false
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return "", false
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if abs.Host == "" {
		return "", false
	}
	abs.Fragment = ""
	return abs.String(), true
}

// AbsolutizeString is Absolutize with a string base. A malformed base yields false.
func AbsolutizeString(raw, baseURL string) (string, bool) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", false
	}
	return Absolutize(raw, base)
}

// ExtractURLs returns every absolute URL found in htmlContent, deduplicated in discovery order.
// Sources, in order: element attributes, meta/link previews, CSS url(...) references and a raw
// sweep over the whole document, including inline scripts carrying JSON-escaped URLs.
func ExtractURLs(htmlContent string, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	set := newURLSet(base)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err == nil {
		for _, attr := range urlAttributes {
			doc.Find("[" + attr + "]").Each(func(_ int, s *goquery.Selection) {
				if v, ok := s.Attr(attr); ok {
					set.add(v)
				}
			})
		}
		doc.Find("[srcset]").Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("srcset"); ok {
				for _, u := range parseSrcset(v) {
					set.add(u)
				}
			}
		})
		doc.Find(`meta[property="og:image"], meta[name="og:image"], meta[property="twitter:image"], meta[name="twitter:image"]`).
			Each(func(_ int, s *goquery.Selection) {
				if v, ok := s.Attr("content"); ok {
					set.add(v)
				}
			})
		doc.Find(`link[rel="image_src"], link[rel="preload"]`).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("href"); ok {
				set.add(v)
			}
		})
	}

	for _, m := range cssURLPattern.FindAllStringSubmatch(htmlContent, -1) {
		set.add(m[1])
	}

	decoded := DecodeEntities(htmlContent)
	for _, m := range rawURLPattern.FindAllString(decoded, -1) {
		set.add(trimRawMatch(m))
	}

	return set.list
}

// ExtractAssetURLs is ExtractURLs restricted to image and PDF file extensions.
func ExtractAssetURLs(htmlContent string, baseURL string) []string {
	return FilterAssets(ExtractURLs(htmlContent, baseURL))
}

// FilterAssets keeps URLs whose path ends in an image or PDF extension.
func FilterAssets(urls []string) []string {
	var out []string
	for _, u := range urls {
		if IsImageURL(u) || IsPDFURL(u) {
			out = append(out, u)
		}
	}
	return out
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
}

// Extension returns the lowercase file extension of the URL path, ignoring query and fragment.
func Extension(rawURL string) string {
	p := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		p = parsed.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	return strings.ToLower(path.Ext(p))
}

// IsImageURL reports whether the URL path has a raster image extension.
func IsImageURL(rawURL string) bool {
	return imageExtensions[Extension(rawURL)]
}

// IsPDFURL reports whether the URL path has a .pdf extension.
func IsPDFURL(rawURL string) bool {
	return Extension(rawURL) == ".pdf"
}

// Origin returns scheme://host of an absolute URL, or "" if it cannot be parsed.
func Origin(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}

type urlSet struct {
	base *url.URL
	seen map[string]bool
	list []string
}

func newURLSet(base *url.URL) *urlSet {
	return &urlSet{base: base, seen: make(map[string]bool)}
}

func (s *urlSet) add(raw string) {
	abs, ok := Absolutize(raw, s.base)
	if !ok || s.seen[abs] {
		return
	}
	s.seen[abs] = true
	s.list = append(s.list, abs)
}

// parseSrcset splits "a.jpg 1x, b.jpg 2x" into its URLs.
func parseSrcset(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) > 0 {
			out = append(out, fields[0])
		}
	}
	return out
}

// trimRawMatch strips punctuation the raw sweep picks up from surrounding prose or JS.
func trimRawMatch(m string) string {
	return strings.TrimRight(m, ".,;:!?")
}
