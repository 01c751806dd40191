package generate

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"storyloom/pkg/project"
)

// Profile is the generated long-form character sheet.
type Profile struct {
	Appearance struct {
		Face     string   `json:"face"`
		Body     string   `json:"body"`
		Clothing string   `json:"clothing"`
		Features []string `json:"features"`
	} `json:"appearance"`
	Personality struct {
		Traits      []string `json:"traits"`
		SpeechStyle string   `json:"speech_style"`
	} `json:"personality"`
	Background      string `json:"background"`
	VisualReference string `json:"visual_reference"`
}

// CharacterProfile expands a character seed into a full profile against the
// story synopsis. Returns nil when the model output cannot be recovered.
func (g *Generator) CharacterProfile(ctx context.Context, synopsis project.Synopsis, seed project.Character) (*Profile, error) {
	var sb strings.Builder
	sb.WriteString("Story synopsis:\n")
	sb.WriteString(stringField(synopsis, "full_story", "synopsis"))
	sb.WriteString("\n\nCharacter seed:\n")
	for _, key := range []string{"name", "age", "gender", "occupation", "role", "personality", "appearance"} {
		if v, ok := seed[key]; ok && v != nil {
			fmt.Fprintf(&sb, "- %s: %v\n", key, v)
		}
	}
	sb.WriteString("\nRespond with JSON matching this schema:\n")
	sb.WriteString(profileSchema)
	userPrompt := sb.String()

	log.Info("generating character profile", "character", seed.Name())
	out, err := g.llm.Call(ctx, userPrompt, profileSystemPrompt)
	if err != nil {
		return nil, fmt.Errorf("profile inference: %w", err)
	}

	var profile Profile
	if err := decodeInto(ctx, g, profileSystemPrompt, userPrompt, out, &profile); err != nil {
		return nil, err
	}
	log.Debug("character profile parsed", "character", seed.Name(), "features", len(profile.Appearance.Features), "traits", len(profile.Personality.Traits))
	return &profile, nil
}

// stringField returns the first non-empty string among the named keys.
func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
