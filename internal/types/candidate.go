package types

// CandidateKind classifies what a candidate URL points at.
type CandidateKind string

const (
	// KindImage is a direct raster image asset
	KindImage CandidateKind = "image"
	// KindPDF is a direct PDF asset
	KindPDF CandidateKind = "pdf"
	// KindPage is an HTML page that still has to be resolved into assets
	KindPage CandidateKind = "page"
)

// CandidateSource records which stage produced a candidate.
type CandidateSource string

const (
	SourceFixed           CandidateSource = "fixed"
	SourceScrape          CandidateSource = "scrape"
	SourceResolve         CandidateSource = "resolve"
	SourceResolveRendered CandidateSource = "resolve_rendered"
)

// Candidate is a URL suspected of pointing at flyer content.
// URL is always absolute once a candidate leaves discovery or resolution.
type Candidate struct {
	Kind   CandidateKind   `json:"kind"`
	URL    string          `json:"url"`
	Title  string          `json:"title,omitempty"`
	Source CandidateSource `json:"source"`
}

// IsAsset reports whether the candidate can be fed to extraction directly.
func (c Candidate) IsAsset() bool {
	return c.Kind == KindImage || c.Kind == KindPDF
}

// DiscoverResult is the output of one discovery call. It is never mutated after return.
type DiscoverResult struct {
	StoreID    StoreID     `json:"store_id"`
	Candidates []Candidate `json:"candidates"`
	Warnings   []string    `json:"warnings"`
}

// CandidateList accumulates candidates in insertion order, dropping repeated URLs.
type CandidateList struct {
	items []Candidate
	seen  map[string]bool
}

// Add appends c unless a candidate with the same URL was already added.
// Returns true if the candidate was appended.
func (l *CandidateList) Add(c Candidate) bool {
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	if c.URL == "" || l.seen[c.URL] {
		return false
	}
	l.seen[c.URL] = true
	l.items = append(l.items, c)
	return true
}

// Len returns the number of accumulated candidates.
func (l *CandidateList) Len() int {
	return len(l.items)
}

// Items returns a copy of the accumulated candidates.
func (l *CandidateList) Items() []Candidate {
	out := make([]Candidate, len(l.items))
	copy(out, l.items)
	return out
}

// MaxResolvePages bounds the pages one resolve call may fetch.
const MaxResolvePages = 20

// ResolveRequest asks for the assets behind one or more page candidates.
type ResolveRequest struct {
	StoreID  StoreID  `json:"store_id" validate:"required"`
	PageURLs []string `json:"page_urls" validate:"required,min=1,max=20,dive,required,url"`
}

// ResolveResult is the output of one resolve call.
type ResolveResult struct {
	StoreID    StoreID     `json:"store_id"`
	Candidates []Candidate `json:"candidates"`
	Warnings   []string    `json:"warnings"`
}
