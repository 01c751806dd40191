package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"storyloom/pkg/config"
	"storyloom/pkg/project"
)

// PromptVariants are the seven reference-sheet shots, in sheet order.
var PromptVariants = []string{
	"full_body_shot",
	"side_profile_full_body_shot",
	"diagonal_side_profile_full_body_shot",
	"portrait",
	"side_profile",
	"action",
	"natural_background",
}

// CharacterImagePrompts produces the seven-variant prompt set for one
// character. The system prompt is the configured image_system_prompt when the
// user set one, else the built-in default. Missing variants are reported but
// whatever parsed is returned.
func (g *Generator) CharacterImagePrompts(ctx context.Context, character project.Character, synopsis project.Synopsis) (map[string]project.PromptRecord, error) {
	systemPrompt := g.cfg.GetString(config.KeyImageSystemPrompt, "")
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = imagePromptsSystemDefault
	}

	age := character.Age()
	var sb strings.Builder
	fmt.Fprintf(&sb, "Character: %s\nAge phrase (use exactly as written): %s\n", character.Name(), AgePhrase(age))
	for _, key := range []string{"gender", "role", "occupation", "personality", "appearance", "background"} {
		if v, ok := character[key].(string); ok && strings.TrimSpace(v) != "" {
			fmt.Fprintf(&sb, "%s: %s\n", key, v)
		}
	}
	if syn := stringField(synopsis, "synopsis", "full_story"); syn != "" {
		sb.WriteString("\nStory context:\n")
		sb.WriteString(syn)
	}
	userPrompt := sb.String()

	log.Info("generating image prompts", "character", character.Name(), "visual_age", VisualAge(age))
	out, err := g.llm.Call(ctx, userPrompt, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("image prompt inference: %w", err)
	}

	var raw map[string]any
	if err := decodeInto(ctx, g, systemPrompt, userPrompt, out, &raw); err != nil {
		return nil, err
	}

	prompts := make(map[string]project.PromptRecord, len(PromptVariants))
	for _, variant := range PromptVariants {
		rec, ok := project.PromptRecordFrom(raw[variant])
		if !ok {
			log.Warn("variant missing from image prompt response", "character", character.Name(), "variant", variant)
			continue
		}
		prompts[variant] = rec
	}
	if len(prompts) == 0 {
		return nil, ErrUnparsable
	}
	return prompts, nil
}
