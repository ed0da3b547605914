// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jonathan/flyer-scout/internal/llm"
	"github.com/jonathan/flyer-scout/internal/tiling"
	"github.com/jonathan/flyer-scout/internal/types"
)

// Config represents the service configuration. Values come from defaults, an
// optional JSON file and the environment, in that order of precedence.
type Config struct {
	ListenAddr  string `json:"listen_addr,omitempty"`  // HTTP listen address
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL URL; run history is disabled when empty
	CatalogPath string `json:"catalog,omitempty"`      // Store catalog YAML; the embedded catalog when empty

	ModelTier string `json:"model_tier,omitempty"` // lite, standard or advanced
	Model     string `json:"model,omitempty"`      // Overrides the tier's model name

	UseBrowser bool `json:"use_browser,omitempty"` // Enable headless rendering for script-driven viewers

	MaxTiles    int `json:"max_tiles,omitempty"`    // Default tile budget per request
	TileWindow  int `json:"tile_window,omitempty"`  // Tile edge in pixels
	TileOverlap int `json:"tile_overlap,omitempty"` // Overlap between adjacent tiles

	LogLevel  string `json:"log_level,omitempty"`  // debug, info, warn, error
	LogFormat string `json:"log_format,omitempty"` // console or json
}

// Default returns the built-in configuration.
func Default() *Config {
	opts := tiling.DefaultOptions()
	return &Config{
		ListenAddr:  ":8080",
		ModelTier:   string(llm.TierStandard),
		MaxTiles:    types.DefaultMaxTiles,
		TileWindow:  opts.Window,
		TileOverlap: opts.Overlap,
		LogLevel:    "info",
		LogFormat:   "console",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Load builds the effective configuration: defaults, then the file at path
// when path is non-empty, then environment overrides. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		file, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		merged := file.MergeWithDefaults(*cfg)
		cfg = &merged
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from environment variables read through getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setString("FLYER_LISTEN_ADDR", &c.ListenAddr)
	setString("GEMINI_API_KEY", &c.APIKey)
	setString("DATABASE_URL", &c.DatabaseURL)
	setString("FLYER_CATALOG", &c.CatalogPath)
	setString("FLYER_MODEL_TIER", &c.ModelTier)
	setString("FLYER_MODEL", &c.Model)
	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_FORMAT", &c.LogFormat)

	if v := getenv("FLYER_USE_BROWSER"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config error: FLYER_USE_BROWSER: %w", err)
		}
		c.UseBrowser = b
	}
	if v := getenv("FLYER_MAX_TILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config error: FLYER_MAX_TILES: %w", err)
		}
		c.MaxTiles = n
	}
	return nil
}

// Validate checks that the configuration has valid values.
// The API key is not required here; commands that call the model check it.
func (c *Config) Validate() error {
	if _, err := llm.ParseTier(c.ModelTier); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.MaxTiles < 0 || c.MaxTiles > types.MaxTilesLimit {
		return fmt.Errorf("config error: 'max_tiles' must be between 0 and %d", types.MaxTilesLimit)
	}
	if c.TileWindow <= 0 {
		return fmt.Errorf("config error: 'tile_window' must be positive")
	}
	if c.TileOverlap < 0 || c.TileOverlap >= c.TileWindow {
		return fmt.Errorf("config error: 'tile_overlap' must be non-negative and smaller than 'tile_window'")
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("config error: 'log_format' must be console or json, got %q", c.LogFormat)
	}
	if c.CatalogPath != "" {
		if _, err := os.Stat(c.CatalogPath); os.IsNotExist(err) {
			return fmt.Errorf("config error: catalog file not found: %s", c.CatalogPath)
		}
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	for _, f := range []struct{ dst, def *string }{
		{&result.ListenAddr, &defaults.ListenAddr},
		{&result.APIKey, &defaults.APIKey},
		{&result.DatabaseURL, &defaults.DatabaseURL},
		{&result.CatalogPath, &defaults.CatalogPath},
		{&result.ModelTier, &defaults.ModelTier},
		{&result.Model, &defaults.Model},
		{&result.LogLevel, &defaults.LogLevel},
		{&result.LogFormat, &defaults.LogFormat},
	} {
		if *f.dst == "" {
			*f.dst = *f.def
		}
	}

	// Int fields: use default if zero
	if result.MaxTiles == 0 {
		result.MaxTiles = defaults.MaxTiles
	}
	if result.TileWindow == 0 {
		result.TileWindow = defaults.TileWindow
	}
	if result.TileOverlap == 0 {
		result.TileOverlap = defaults.TileOverlap
	}

	// Bool fields: cannot distinguish unset from false, so the file value stands
	return result
}

// Tiling returns the tiling options.
func (c *Config) Tiling() tiling.Options {
	return tiling.Options{Window: c.TileWindow, Overlap: c.TileOverlap}
}

// LLM returns the model configuration for the configured tier and override.
func (c *Config) LLM() *llm.Config {
	tier, err := llm.ParseTier(c.ModelTier)
	if err != nil {
		tier = llm.TierStandard
	}
	cfg := llm.DefaultConfig()
	cfg.Tier = tier
	if c.Model != "" {
		cfg = cfg.WithModel(tier, c.Model)
	}
	return cfg
}
