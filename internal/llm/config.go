// Package llm wraps the vision model used to read flyer tiles.
package llm

import "fmt"

// ModelTier selects a model by capability rather than by name.
type ModelTier string

const (
	// TierLite is the cheapest model; adequate for small or sparse flyers.
	TierLite ModelTier = "lite"
	// TierStandard is the default for tile extraction.
	TierStandard ModelTier = "standard"
	// TierAdvanced is for dense flyers where the standard model misses items.
	TierAdvanced ModelTier = "advanced"
)

// Provider identifies the model vendor.
type Provider string

// ProviderGemini is the only supported provider.
const ProviderGemini Provider = "gemini"

// Config maps tiers to concrete model names.
type Config struct {
	Provider Provider
	Models   map[ModelTier]string
	// Tier is used for vision extraction calls.
	Tier ModelTier
}

// DefaultConfig returns the Gemini configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderGemini,
		Models: map[ModelTier]string{
			TierLite:     "gemini-2.5-flash-lite",
			TierStandard: "gemini-2.5-flash",
			TierAdvanced: "gemini-2.5-pro",
		},
		Tier: TierStandard,
	}
}

// ParseTier validates a tier name. An empty name means TierStandard.
func ParseTier(s string) (ModelTier, error) {
	switch ModelTier(s) {
	case "":
		return TierStandard, nil
	case TierLite, TierStandard, TierAdvanced:
		return ModelTier(s), nil
	}
	return "", fmt.Errorf("unknown model tier %q", s)
}

// GetModel returns the model for tier, falling back to standard then lite.
func (c *Config) GetModel(tier ModelTier) string {
	for _, t := range []ModelTier{tier, TierStandard, TierLite} {
		if model, ok := c.Models[t]; ok {
			return model
		}
	}
	return ""
}

// WithModel returns a copy of c with tier mapped to model.
func (c *Config) WithModel(tier ModelTier, model string) *Config {
	models := make(map[ModelTier]string, len(c.Models)+1)
	for k, v := range c.Models {
		models[k] = v
	}
	models[tier] = model
	return &Config{Provider: c.Provider, Models: models, Tier: c.Tier}
}
