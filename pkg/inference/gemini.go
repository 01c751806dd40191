package inference

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"storyloom/pkg/config"
)

func init() {
	register(config.ProviderGemini, func(cfg *config.Store) Caller {
		return &GeminiCaller{cfg: cfg}
	})
}

// GeminiCaller talks to the Gemini API through the official genai SDK.
// The system prompt, when present, is prepended to the user prompt as a
// single one-shot content block.
type GeminiCaller struct {
	cfg *config.Store

	mu     sync.Mutex
	client *genai.Client
	keyed  string // api key the cached client was built with
}

func (g *GeminiCaller) Call(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	apiKey := g.cfg.APIKey(config.ProviderGemini)
	if strings.TrimSpace(apiKey) == "" {
		return "", ErrMissingAPIKey
	}

	client, err := g.clientFor(ctx, apiKey)
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}

	prompt := userPrompt
	if systemPrompt != "" {
		prompt = systemPrompt + "\n\n" + userPrompt
	}

	model := g.cfg.Model(config.ProviderGemini)
	if model == "" {
		model = "gemini-2.0-flash"
	}

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.7),
		TopP:        genai.Ptr[float32](0.8),
		TopK:        genai.Ptr[float32](40),
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *GeminiCaller) clientFor(ctx context.Context, apiKey string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil && g.keyed == apiKey {
		return g.client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, err
	}
	g.client = client
	g.keyed = apiKey
	return client, nil
}
