package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GenerationOptions tunes a single model call.
type GenerationOptions struct {
	Temperature     float32
	MaxOutputTokens int32
	JSONOnly        bool
}

// DefaultExtractionOptions are used for flyer tile extraction.
func DefaultExtractionOptions() GenerationOptions {
	return GenerationOptions{Temperature: 0.1, MaxOutputTokens: 8192, JSONOnly: true}
}

// VisionClient reads an image and answers a prompt with text.
// The text may be malformed or wrapped in prose; callers must tolerate that.
type VisionClient interface {
	ExtractFromImage(ctx context.Context, png []byte, prompt string, opts GenerationOptions) (string, error)
	Close() error
}

// GeminiClient implements VisionClient for Google Gemini.
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a Gemini client. A nil config uses DefaultConfig.
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultConfig()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{client: client, config: config}, nil
}

// ExtractFromImage sends the PNG and prompt in one request.
func (c *GeminiClient) ExtractFromImage(ctx context.Context, png []byte, prompt string, opts GenerationOptions) (string, error) {
	modelName := c.config.GetModel(c.config.Tier)
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", c.config.Tier)
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(opts.Temperature)
	if opts.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(opts.MaxOutputTokens)
	}
	if opts.JSONOnly {
		model.ResponseMIMEType = "application/json"
	}

	resp, err := model.GenerateContent(ctx, genai.ImageData("png", png), genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(resp)
}

// Model returns the model name used for extraction.
func (c *GeminiClient) Model() string {
	return c.config.GetModel(c.config.Tier)
}

// Close releases resources held by the client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response (finish reason %v)", candidate.FinishReason)
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}
