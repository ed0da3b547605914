package stores

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/flyer-scout/internal/markup"
	"github.com/jonathan/flyer-scout/internal/resolve"
	"github.com/jonathan/flyer-scout/internal/types"
)

// maxTitleRunes bounds card titles taken from visible text.
const maxTitleRunes = 80

// CardStore scans the store page for dated flyer cards and keeps the newest.
type CardStore struct {
	base
	now         func() time.Time
	cdnPatterns []*regexp.Regexp
}

func newCardStore(b base, now func() time.Time) (*CardStore, error) {
	s := &CardStore{base: b, now: now}
	for _, pattern := range b.cfg.Cards.CDNPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &CatalogError{Source: "registry", StoreID: b.cfg.ID, Message: "invalid cdn pattern", Cause: err}
		}
		s.cdnPatterns = append(s.cdnPatterns, re)
	}
	return s, nil
}

type card struct {
	href  string
	img   string
	title string
	date  time.Time
	dated bool
}

// cardStats are reported when no card carries a usable date.
type cardStats struct {
	total       int
	parsed      int
	withDates   int
	latestCount int
}

// Discover fetches the store page and returns the candidates of every card
// sharing the most recent date. Ties are all kept.
func (s *CardStore) Discover(ctx context.Context) (*types.DiscoverResult, error) {
	res, err := s.fetchRequired(ctx, s.cfg.PageURL)
	if err != nil {
		return nil, err
	}

	var list types.CandidateList
	var diag types.Diagnostics
	html := res.HTML()

	cards, stats := s.scanCards(html, res.URL)
	latest := latestCards(cards)
	stats.latestCount = len(latest)

	for _, c := range latest {
		s.addCard(&list, c)
	}

	if list.Len() == 0 {
		found := s.scanCDN(&list, html, res.URL)
		diag.Addf("no dated flyer cards on %s (totalCards=%d parsedCards=%d withDates=%d latestCount=%d); CDN pattern fallback found %d",
			s.cfg.PageURL, stats.total, stats.parsed, stats.withDates, stats.latestCount, found)
	}

	s.logger.Debug().Int("cards", stats.total).Int("dated", stats.withDates).
		Int("latest", stats.latestCount).Int("candidates", list.Len()).Msg("card discovery")
	return s.result(&list, &diag), nil
}

func (s *CardStore) scanCards(html, pageURL string) ([]card, cardStats) {
	var stats cardStats
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, stats
	}

	now := s.now()
	var cards []card
	doc.Find("a." + s.cfg.Cards.Class).Each(func(_ int, sel *goquery.Selection) {
		stats.total++

		c := card{title: cardTitle(sel)}
		if href, ok := sel.Attr("href"); ok {
			c.href, _ = markup.AbsolutizeString(markup.DecodeEntities(href), pageURL)
		}
		img := sel.Find("img").First()
		for _, attr := range []string{"src", "data-src", "data-original"} {
			if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
				if abs, ok := markup.AbsolutizeString(markup.DecodeEntities(v), pageURL); ok {
					c.img = abs
					break
				}
			}
		}
		if c.href == "" && c.img == "" {
			return
		}
		stats.parsed++

		dateText := sel.Text()
		if s.cfg.Cards.DateSelector != "" {
			if d := sel.Find(s.cfg.Cards.DateSelector); d.Length() > 0 {
				dateText = d.First().Text()
			}
		}
		if t, ok := ParseCardDate(dateText, now); ok {
			c.date, c.dated = t, true
			stats.withDates++
		}
		cards = append(cards, c)
	})
	return cards, stats
}

func latestCards(cards []card) []card {
	var latest time.Time
	for _, c := range cards {
		if c.dated && c.date.After(latest) {
			latest = c.date
		}
	}
	var out []card
	for _, c := range cards {
		if c.dated && c.date.Equal(latest) {
			out = append(out, c)
		}
	}
	return out
}

// addCard emits the card link (asset or page) and then its image when the
// image is not an obvious thumbnail.
func (s *CardStore) addCard(list *types.CandidateList, c card) {
	if c.href != "" {
		list.Add(types.Candidate{Kind: kindForURL(c.href), URL: c.href, Title: c.title, Source: types.SourceScrape})
	}
	if c.img != "" && !resolve.IsDenied(c.img) {
		list.Add(types.Candidate{Kind: kindForURL(c.img), URL: c.img, Title: c.title, Source: types.SourceScrape})
	}
}

func (s *CardStore) scanCDN(list *types.CandidateList, html, pageURL string) int {
	decoded := markup.DecodeEntities(html)
	found := 0
	for _, re := range s.cdnPatterns {
		for _, m := range re.FindAllString(decoded, -1) {
			abs, ok := markup.AbsolutizeString(m, pageURL)
			if !ok || resolve.IsDenied(abs) {
				continue
			}
			if list.Add(types.Candidate{Kind: kindForURL(abs), URL: abs, Source: types.SourceScrape}) {
				found++
			}
		}
	}
	return found
}

func kindForURL(u string) types.CandidateKind {
	switch {
	case markup.IsPDFURL(u):
		return types.KindPDF
	case markup.IsImageURL(u):
		return types.KindImage
	}
	return types.KindPage
}

func cardTitle(sel *goquery.Selection) string {
	title := strings.Join(strings.Fields(sel.Text()), " ")
	if title == "" {
		title, _ = sel.Find("img").First().Attr("alt")
	}
	r := []rune(title)
	if len(r) > maxTitleRunes {
		return string(r[:maxTitleRunes])
	}
	return title
}
