package generate

import (
	"context"
	"errors"

	"storyloom/pkg/config"
	"storyloom/pkg/utils"
)

// Caller is the completion surface the generators run on. inference.Gateway
// satisfies it; tests substitute a canned fake.
type Caller interface {
	Call(ctx context.Context, userPrompt, systemPrompt string) (string, error)
}

// ErrUnparsable means no JSON could be recovered from the model output, even
// after a repair round.
var ErrUnparsable = errors.New("unparsable model output")

// Generator owns the prompt templates and response parsing for every content
// stage. It is stateless apart from its two collaborators.
type Generator struct {
	llm Caller
	cfg *config.Store
}

func New(llm Caller, cfg *config.Store) *Generator {
	return &Generator{llm: llm, cfg: cfg}
}

// tokenLogFields reports prompt size the way the batch loops log it. The
// token estimate is best effort; char count is always present.
func tokenLogFields(prompt string) []any {
	fields := []any{"chars", len(prompt)}
	if tokens, err := utils.NumTokens(prompt); err == nil {
		fields = append(fields, "tokens", tokens)
	}
	return fields
}
