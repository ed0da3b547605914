// Package resolve turns flyer viewer pages into ranked direct image/PDF candidates.
package resolve

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/flyer-scout/internal/markup"
)

// Scoring weights. A full-size CDN match dominates; a denylist hit sinks the URL.
const (
	WeightFullSize       = 100
	WeightPlatformDomain = 20
	WeightImageExtension = 5
	PenaltyDenied        = -200
)

// deniedSubstrings mark decorative or tracking assets that are never the flyer itself.
var deniedSubstrings = []string{
	"thumb", "icon", "logo", "banner", "btn", "favicon", "sprite", "spinner", "pixel", "tracking",
}

// thumbnailQuery matches query parameters that request a small rendition.
var thumbnailQuery = regexp.MustCompile(`(?i)[?&](?:w|h|width|height|size|resize)=(?:\d{1,3}(?:x\d{1,3})?|s|xs|small|thumb|thumbnail)(?:&|$)`)

// Rewrite replaces a fixed path segment to reach the original-resolution asset.
type Rewrite struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// Apply substitutes From with To when From occurs in rawURL.
func (r *Rewrite) Apply(rawURL string) string {
	if r == nil || r.From == "" || !strings.Contains(rawURL, r.From) {
		return rawURL
	}
	return strings.Replace(rawURL, r.From, r.To, 1)
}

// Profile carries the store-specific knobs of the resolver.
type Profile struct {
	FullSizePatterns []*regexp.Regexp
	PlatformDomains  []string
	MinAssetBytes    int64
	OriginalRewrite  *Rewrite
	RenderPages      bool
}

// IsDenied reports whether rawURL looks like a thumbnail, icon, banner or tracking asset.
func IsDenied(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, s := range deniedSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return thumbnailQuery.MatchString(rawURL)
}

// Score ranks how likely rawURL is the main flyer asset for the profile's platform.
func Score(rawURL string, p Profile) int {
	score := 0
	matchedFullSize := false
	for _, re := range p.FullSizePatterns {
		if re.MatchString(rawURL) {
			score += WeightFullSize
			matchedFullSize = true
			break
		}
	}
	if !matchedFullSize {
		host := strings.ToLower(hostOf(rawURL))
		for _, d := range p.PlatformDomains {
			d = strings.ToLower(d)
			if host == d || strings.HasSuffix(host, "."+d) {
				score += WeightPlatformDomain
				break
			}
		}
	}
	if IsDenied(rawURL) {
		score += PenaltyDenied
	}
	if markup.IsImageURL(rawURL) {
		score += WeightImageExtension
	}
	return score
}

// Scored is a URL with its heuristic score.
type Scored struct {
	URL   string
	Score int
}

// Rank drops denied URLs and orders the rest by descending score.
// Ties keep their discovery order.
func Rank(urls []string, p Profile) []Scored {
	ranked := make([]Scored, 0, len(urls))
	for _, u := range urls {
		if IsDenied(u) {
			continue
		}
		ranked = append(ranked, Scored{URL: u, Score: Score(u, p)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
