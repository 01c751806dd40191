package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"storyloom/pkg/project"
)

const maxScenesPerChapter = 10

// SceneDraft is one storyboard entry as the model returns it, before it is
// turned into a persisted scene record.
type SceneDraft struct {
	SceneNumber int    `json:"scene_number"`
	Title       string `json:"title"`
	ImagePrompt string `json:"image_prompt"`
}

type sceneList struct {
	Scenes []SceneDraft `json:"scenes"`
}

// ErrNoScript means the chapter has no script to storyboard yet.
var ErrNoScript = errors.New("chapter has no script")

// Scenes breaks a chapter's script into up to 10 drawable scenes. characters
// should come from FormatCharacters so age phrases reach the prompts intact;
// promptExcerpts optionally adds per-character reference prompts by name.
func (g *Generator) Scenes(ctx context.Context, chapter project.Chapter, synopsis project.Synopsis, characters string, promptExcerpts map[string]string) ([]SceneDraft, error) {
	script := chapter.Script()
	if strings.TrimSpace(script) == "" {
		return nil, ErrNoScript
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Chapter %d: %s\n\n", chapter.Number(), chapter.Title())
	sb.WriteString("Script:\n")
	sb.WriteString(script)
	sb.WriteString("\n\nStory synopsis:\n")
	sb.WriteString(stringField(synopsis, "synopsis", "full_story"))
	if characters != "" {
		sb.WriteString("\n\nCharacters (use the age phrases exactly as written):\n")
		sb.WriteString(characters)
	}
	for name, excerpt := range promptExcerpts {
		fmt.Fprintf(&sb, "\n\nReference prompt for %s:\n%s", name, excerpt)
	}
	sb.WriteString("\n\nRespond with JSON matching this schema:\n")
	sb.WriteString(scenesSchema)
	userPrompt := sb.String()

	log.Info("generating scenes", append([]any{"chapter", chapter.Number()}, tokenLogFields(userPrompt)...)...)
	out, err := g.llm.Call(ctx, userPrompt, scenesSystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("scene inference: %w", err)
	}

	var parsed sceneList
	if err := decodeInto(ctx, g, scenesSystemPrompt, userPrompt, out, &parsed); err != nil {
		return nil, err
	}
	scenes := parsed.Scenes
	if len(scenes) > maxScenesPerChapter {
		scenes = scenes[:maxScenesPerChapter]
	}
	if len(scenes) < maxScenesPerChapter {
		log.Info("fewer scenes than requested", "chapter", chapter.Number(), "count", len(scenes))
	} else {
		log.Info("scenes generated", "chapter", chapter.Number(), "count", len(scenes))
	}
	return scenes, nil
}
