package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"storyloom/pkg/project"
	"storyloom/pkg/utils"
)

// previousTailRunes is how much of the prior chapter's ending rides along for
// continuity.
const previousTailRunes = 1000

// Script writes the full narration text for one chapter. previousScript is
// the prior chapter's script, or empty for chapter 1; only its tail is sent.
// The result is trimmed and returned as plain text, no JSON involved.
func (g *Generator) Script(ctx context.Context, chapter project.Chapter, synopsis project.Synopsis, characters, previousScript string) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Chapter %d: %s\n\n", chapter.Number(), chapter.Title())
	sb.WriteString("Chapter summary:\n")
	if detail := chapter.Detail(); detail != "" {
		sb.WriteString(detail)
	} else {
		sb.WriteString(chapter.Content())
	}
	sb.WriteString("\n\nStory synopsis:\n")
	sb.WriteString(stringField(synopsis, "full_story", "synopsis"))
	if characters != "" {
		sb.WriteString("\n\nCharacters:\n")
		sb.WriteString(characters)
	}
	if tail := utils.Tail(previousScript, previousTailRunes); tail != "" {
		sb.WriteString("\n\nEnd of the previous chapter, continue from here:\n")
		sb.WriteString(tail)
	}
	userPrompt := sb.String()

	log.Info("generating script", append([]any{"chapter", chapter.Number()}, tokenLogFields(userPrompt)...)...)
	out, err := g.llm.Call(ctx, userPrompt, scriptSystemPrompt)
	if err != nil {
		return "", fmt.Errorf("script inference: %w", err)
	}

	script := strings.TrimSpace(out)
	if script == "" {
		return "", ErrUnparsable
	}
	log.Info("script generated", "chapter", chapter.Number(), "length", len([]rune(script)))
	return script, nil
}

// FormatCharacters renders the character list for script and scene prompts.
// Ages are written as the image-prompt age phrase so downstream prompts carry
// it verbatim.
func FormatCharacters(characters []project.Character) string {
	var sb strings.Builder
	for _, ch := range characters {
		fmt.Fprintf(&sb, "- %s, %s", ch.Name(), AgePhrase(ch.Age()))
		for _, key := range []string{"gender", "role", "occupation", "personality", "appearance"} {
			if v, ok := ch[key].(string); ok && strings.TrimSpace(v) != "" {
				sb.WriteString(", ")
				sb.WriteString(v)
			}
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}
