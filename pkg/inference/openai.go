package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"storyloom/pkg/config"
)

func init() {
	register(config.ProviderOpenAI, func(cfg *config.Store) Caller {
		return &OpenAICaller{cfg: cfg}
	})
}

// OpenAICaller talks to the chat completion endpoint through the official
// SDK. o1-family models reject the system role, so for them the system
// prompt is folded into a single user turn.
type OpenAICaller struct {
	cfg *config.Store

	mu     sync.Mutex
	client *openai.Client
	keyed  string
}

func (o *OpenAICaller) Call(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	apiKey := o.cfg.APIKey(config.ProviderOpenAI)
	if strings.TrimSpace(apiKey) == "" {
		return "", ErrMissingAPIKey
	}

	model := o.cfg.Model(config.ProviderOpenAI)
	if model == "" {
		model = "gpt-4o"
	}

	params := openai.ChatCompletionNewParams{
		Model:               model,
		MaxCompletionTokens: openai.Int(4096),
		Temperature:         openai.Float(0.7),
	}

	if strings.HasPrefix(model, "o1") {
		prompt := userPrompt
		if systemPrompt != "" {
			prompt = systemPrompt + "\n\n" + userPrompt
		}
		params.Messages = []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		}
		// o1 models control their own sampling.
		params.Temperature = openai.Float(1.0)
	} else {
		messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
		if systemPrompt != "" {
			messages = append(messages, openai.SystemMessage(systemPrompt))
		}
		messages = append(messages, openai.UserMessage(userPrompt))
		params.Messages = messages
	}

	resp, err := o.clientFor(apiKey).Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	if resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAICaller) clientFor(apiKey string) *openai.Client {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.client == nil || o.keyed != apiKey {
		client := openai.NewClient(option.WithAPIKey(apiKey))
		o.client = &client
		o.keyed = apiKey
	}
	return o.client
}
