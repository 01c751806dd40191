package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"storyloom/pkg/config"
)

func init() {
	register(config.ProviderAnthropic, func(cfg *config.Store) Caller {
		return &AnthropicCaller{
			cfg:        cfg,
			baseURL:    "https://api.anthropic.com",
			apiVersion: "2023-06-01",
			client:     &http.Client{},
		}
	})
}

// AnthropicCaller talks to the messages endpoint over plain HTTP.
//
// The system prompt is concatenated into the single user message instead of
// the native system field. Prompts upstream were tuned against exactly that
// placement, so it stays.
type AnthropicCaller struct {
	cfg        *config.Store
	baseURL    string
	apiVersion string
	client     *http.Client
}

func (a *AnthropicCaller) Call(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	apiKey := a.cfg.APIKey(config.ProviderAnthropic)
	if strings.TrimSpace(apiKey) == "" {
		return "", ErrMissingAPIKey
	}

	model := a.cfg.Model(config.ProviderAnthropic)
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}

	prompt := userPrompt
	if systemPrompt != "" {
		prompt = systemPrompt + "\n\n" + userPrompt
	}

	body, err := json.Marshal(map[string]any{
		"model":       model,
		"max_tokens":  4096,
		"temperature": 0.7,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", apiKey)
	req.Header.Set("Anthropic-Version", a.apiVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("anthropic api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", ErrEmptyResponse
}
