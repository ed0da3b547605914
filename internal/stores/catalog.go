// Package stores implements per-store flyer discovery over a YAML store catalog.
package stores

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/flyer-scout/internal/resolve"
	"github.com/jonathan/flyer-scout/internal/schemas"
	"github.com/jonathan/flyer-scout/internal/types"
)

//go:embed catalog.yaml
var defaultCatalog []byte

//go:embed catalog.schema.json
var catalogSchema []byte

// Catalog is the set of configured stores.
type Catalog struct {
	Stores []StoreConfig `yaml:"stores"`
}

// StoreConfig describes one store.
type StoreConfig struct {
	ID             types.StoreID      `yaml:"id"`
	Name           string             `yaml:"name"`
	Strategy       types.StrategyKind `yaml:"strategy"`
	PageURL        string             `yaml:"page_url"`
	AllowedHosts   []string           `yaml:"allowed_hosts"`
	FrontBackPages bool               `yaml:"front_back_pages"`
	Assets         []AssetConfig      `yaml:"assets"`
	Cards          *CardConfig        `yaml:"cards"`
	Viewer         *ViewerConfig      `yaml:"viewer"`
	Resolve        ResolveConfig      `yaml:"resolve"`
}

// AssetConfig is one curated flyer asset of a fixed-list store.
type AssetConfig struct {
	URL   string `yaml:"url"`
	Title string `yaml:"title"`
}

// CardConfig configures card scanning.
type CardConfig struct {
	Class        string   `yaml:"class"`
	DateSelector string   `yaml:"date_selector"`
	CDNPatterns  []string `yaml:"cdn_patterns"`
}

// ViewerConfig configures detail/list viewer discovery.
type ViewerConfig struct {
	Host   string `yaml:"host"`
	ShopID string `yaml:"shop_id"`
}

// ResolveConfig holds the resolver tuning for a store.
type ResolveConfig struct {
	FullSizePatterns []string         `yaml:"full_size_patterns"`
	PlatformDomains  []string         `yaml:"platform_domains"`
	MinAssetBytes    int64            `yaml:"min_asset_bytes"`
	RenderPages      bool             `yaml:"render_pages"`
	OriginalRewrite  *resolve.Rewrite `yaml:"original_rewrite"`
}

// Profile compiles the resolver profile.
func (c ResolveConfig) Profile() (resolve.Profile, error) {
	p := resolve.Profile{
		PlatformDomains: c.PlatformDomains,
		MinAssetBytes:   c.MinAssetBytes,
		OriginalRewrite: c.OriginalRewrite,
		RenderPages:     c.RenderPages,
	}
	for _, pattern := range c.FullSizePatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return resolve.Profile{}, fmt.Errorf("full_size_patterns: %w", err)
		}
		p.FullSizePatterns = append(p.FullSizePatterns, re)
	}
	return p, nil
}

// Summary returns the public description of the store.
func (c StoreConfig) Summary() types.StoreSummary {
	return types.StoreSummary{ID: c.ID, Name: c.Name, Strategy: c.Strategy, PageURL: c.PageURL}
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog("catalog.yaml", defaultCatalog)
}

// LoadCatalog reads a catalog file. An empty path means the embedded default.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &CatalogError{Source: path, Message: "failed to read catalog", Cause: err}
	}
	return ParseCatalog(filepath.Base(path), data)
}

// ParseCatalog decodes YAML, validates it against the catalog schema and
// checks the rules a schema cannot express.
func ParseCatalog(source string, data []byte) (*Catalog, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &CatalogError{Source: source, Message: "invalid YAML", Cause: err}
	}

	schema, err := schemas.Compile("catalog.schema.json", catalogSchema)
	if err != nil {
		return nil, &CatalogError{Source: source, Message: "catalog schema is invalid", Cause: err}
	}
	if err := schema.ValidateDocument(source, doc); err != nil {
		return nil, &CatalogError{Source: source, Message: "catalog does not match schema", Cause: err}
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, &CatalogError{Source: source, Message: "invalid catalog", Cause: err}
	}

	seen := make(map[types.StoreID]bool, len(cat.Stores))
	for _, s := range cat.Stores {
		if seen[s.ID] {
			return nil, &CatalogError{Source: source, StoreID: s.ID, Message: "duplicate store id"}
		}
		seen[s.ID] = true

		if _, err := s.Resolve.Profile(); err != nil {
			return nil, &CatalogError{Source: source, StoreID: s.ID, Message: "invalid resolve settings", Cause: err}
		}
		if s.Cards != nil {
			for _, pattern := range s.Cards.CDNPatterns {
				if _, err := regexp.Compile(pattern); err != nil {
					return nil, &CatalogError{Source: source, StoreID: s.ID, Message: "invalid cdn pattern", Cause: err}
				}
			}
		}
	}
	return &cat, nil
}
