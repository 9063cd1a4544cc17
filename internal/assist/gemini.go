// File: internal/assist/gemini.go
package assist

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/codewarden/warden-cli/internal/config"
)

const defaultModel = "gemini-2.0-flash"

// geminiGenerator adapts the Gemini SDK to the Generator interface.
type geminiGenerator struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGemini creates a Generator backed by the Gemini API. The API key is
// taken from the configuration, falling back to WARDEN_GEMINI_API_KEY and
// then GEMINI_API_KEY.
func NewGemini(ctx context.Context, cfg config.AssistConfig, logger *zap.Logger) (*geminiGenerator, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("WARDEN_GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("a Gemini API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &geminiGenerator{
		client: client,
		model:  model,
		logger: logger.Named("Assist.Gemini"),
	}, nil
}

// Generate sends the prompt and returns the model's text completion.
func (g *geminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.2),
	})
	if err != nil {
		return "", fmt.Errorf("generating advice: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("the model returned an empty completion")
	}

	if resp.UsageMetadata != nil {
		g.logger.Debug("Completion received.",
			zap.String("model", g.model),
			zap.Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
			zap.Int32("total_tokens", resp.UsageMetadata.TotalTokenCount))
	}
	return text, nil
}

// Close satisfies the Generator interface. The SDK client holds no
// long-lived connections that need tearing down.
func (g *geminiGenerator) Close() error {
	return nil
}
