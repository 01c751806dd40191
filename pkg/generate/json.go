package generate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"storyloom/pkg/utils"
)

const fixJSONPrompt = `The previous response was not valid JSON. Return the same data as a single well-formed JSON document. Do not add commentary, markdown fences, or trailing text.`

// decodeInto strips fences and surrounding prose, then unmarshals. On failure
// it asks the model once to repair its own output before giving up.
func decodeInto[T any](ctx context.Context, g *Generator, systemPrompt, userPrompt, out string, v *T) error {
	cleaned := utils.ExtractJSON(out)
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return nil
	} else {
		log.Warn("failed to parse model JSON, attempting to fix", "error", err)
		log.Debug("original model output", "output", utils.LimitStr(out, 2000))
	}

	fixed, err := g.llm.Call(ctx, userPrompt+"\n\nFix and complete the following malformed JSON:\n\n"+out, systemPrompt+"\n\n"+fixJSONPrompt)
	if err != nil {
		return fmt.Errorf("fix attempt: %w", err)
	}
	if err := json.Unmarshal([]byte(utils.ExtractJSON(fixed)), v); err != nil {
		log.Warn("failed to parse model JSON after fix attempt", "error", err)
		log.Debug("fixed model output", "output", utils.LimitStr(fixed, 2000))
		return ErrUnparsable
	}
	return nil
}
