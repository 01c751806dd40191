package project

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FilenameKey is the reserved transient key the store attaches to loaded
// characters and chapters so a later save targets the same file. It never
// appears in the serialized JSON.
const FilenameKey = "_source_filename"

// Synopsis is the project-level summary document. Only the well-known keys
// are interpreted; everything else rides along opaquely.
type Synopsis map[string]any

func (s Synopsis) Title() string { return stringAt(s, "title") }

// Character is a loose mapping keyed by name. Older project files carry a
// JSON-encoded string where image_generation_prompts should be a mapping, so
// access goes through the accessors below.
type Character map[string]any

func (c Character) Name() string { return stringAt(c, "name") }

// Age returns the character's age as an integer. Non-numeric ages coerce
// to 35, matching the image-prompt pipeline's assumption.
func (c Character) Age() int {
	switch v := c["age"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 35
}

// ImagePrompts returns the per-variant prompt mapping. A serialized-string
// value is parsed in place; an unparseable one yields an empty mapping.
func (c Character) ImagePrompts() map[string]any {
	switch v := c["image_generation_prompts"].(type) {
	case map[string]any:
		return v
	case string:
		var parsed map[string]any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			return parsed
		}
		return map[string]any{}
	}
	return map[string]any{}
}

// SetImagePrompts installs the mapping and mirrors prompt_1's text onto the
// legacy scalar field, whatever shape the slot holds.
func (c Character) SetImagePrompts(prompts map[string]any) {
	c["image_generation_prompts"] = prompts
	if rec, ok := PromptRecordFrom(prompts["prompt_1"]); ok {
		c["image_generation_prompt"] = rec.Text()
	}
}

// Normalize coerces legacy shapes so a save always writes the current form.
func (c Character) Normalize() {
	c["image_generation_prompts"] = c.ImagePrompts()
}

// PromptRecord is one image prompt for one character variant. Loaded records
// may be plain strings instead; see PromptRecordFrom.
type PromptRecord struct {
	Character  string `json:"character,omitempty"`
	Clothing   string `json:"clothing,omitempty"`
	Pose       string `json:"pose,omitempty"`
	Background string `json:"background,omitempty"`
	Situation  string `json:"situation,omitempty"`
	Combined   string `json:"combined,omitempty"`

	VersionName    string `json:"version_name,omitempty"`
	Category       string `json:"category,omitempty"`
	Positive       string `json:"positive,omitempty"`
	Negative       string `json:"negative,omitempty"`
	OutputFolder   string `json:"output_folder,omitempty"`
	FilenamePrefix string `json:"filename_prefix,omitempty"`
}

// Text returns the usable prompt string: combined when present, otherwise
// the five scene-description fields joined with commas.
func (p PromptRecord) Text() string {
	if strings.TrimSpace(p.Combined) != "" {
		return p.Combined
	}
	parts := make([]string, 0, 5)
	for _, s := range []string{p.Character, p.Clothing, p.Pose, p.Background, p.Situation} {
		if strings.TrimSpace(s) != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// PromptRecordFrom accepts either shape a prompt_N slot may hold.
func PromptRecordFrom(v any) (PromptRecord, bool) {
	switch t := v.(type) {
	case PromptRecord:
		return t, true
	case string:
		if strings.TrimSpace(t) == "" {
			return PromptRecord{}, false
		}
		return PromptRecord{Combined: t}, true
	case map[string]any:
		raw, err := json.Marshal(t)
		if err != nil {
			return PromptRecord{}, false
		}
		var rec PromptRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return PromptRecord{}, false
		}
		return rec, true
	}
	return PromptRecord{}, false
}

// Chapter is one numbered unit of the narrative. Script and scenes may be
// mirrored here from their own files; those copies are a cache, not the
// authoritative record.
type Chapter map[string]any

// Number returns chapter_number, or 0 when absent or malformed.
func (c Chapter) Number() int {
	switch v := c["chapter_number"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return 0
}

func (c Chapter) Title() string   { return stringAt(c, "title") }
func (c Chapter) Content() string { return stringAt(c, "content") }
func (c Chapter) Detail() string  { return stringAt(c, "content_detail") }
func (c Chapter) Script() string  { return stringAt(c, "script") }

// Script is the persisted script record for one chapter.
type Script struct {
	ChapterNumber     int     `json:"chapter_number"`
	Script            string  `json:"script"`
	ScriptLength      int     `json:"script_length"`
	ScriptGeneratedAt string  `json:"script_generated_at"`
	Scenes            []Scene `json:"scenes,omitempty"`
	ScenesGeneratedAt string  `json:"scenes_generated_at,omitempty"`
}

// Scene is a visualizable moment with its image prompt. Both prompt layouts
// seen in project files unmarshal into the same fields.
type Scene struct {
	SceneID    string   `json:"scene_id,omitempty"`
	SceneTitle string   `json:"scene_title,omitempty"`
	Location   string   `json:"location,omitempty"`
	Emotion    string   `json:"emotion,omitempty"`
	Characters []string `json:"characters,omitempty"`
	Time       string   `json:"time,omitempty"`

	ImagePrompts   *ScenePrompts `json:"image_prompts,omitempty"`
	PositivePrompt string        `json:"positive_prompt,omitempty"`
	NegativePrompt string        `json:"negative_prompt,omitempty"`
}

type ScenePrompts struct {
	Positive string `json:"positive"`
	Negative string `json:"negative"`
}

// Positive returns the positive prompt regardless of which layout the file used.
func (s Scene) Positive() string {
	if s.ImagePrompts != nil && s.ImagePrompts.Positive != "" {
		return s.ImagePrompts.Positive
	}
	return s.PositivePrompt
}

// Negative returns the negative prompt regardless of which layout the file used.
func (s Scene) Negative() string {
	if s.ImagePrompts != nil && s.ImagePrompts.Negative != "" {
		return s.ImagePrompts.Negative
	}
	return s.NegativePrompt
}

// SceneSet is one episode's scenes plus its metadata block.
type SceneSet struct {
	Metadata SceneSetMeta `json:"metadata"`
	Scenes   []Scene      `json:"scenes"`
}

type SceneSetMeta struct {
	Episode      int    `json:"episode"`
	EpisodeTitle string `json:"episode_title"`
	Act          int    `json:"act,omitempty"`
	ActTitle     string `json:"act_title,omitempty"`
}

func stringAt(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// ChapterFilename returns the canonical name for a chapter file.
func ChapterFilename(number int) string {
	return fmt.Sprintf("chapter_%02d.json", number)
}

// ScriptFilename returns the canonical name for a chapter's script file.
func ScriptFilename(number int) string {
	return fmt.Sprintf("chapter_%02d_script.json", number)
}
