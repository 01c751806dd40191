package project

import "testing"

func TestCharacterAge(t *testing.T) {
	tests := []struct {
		name string
		age  any
		want int
	}{
		{"float from json", float64(62), 62},
		{"numeric string", "47", 47},
		{"padded string", " 30 ", 30},
		{"korean word", "마흔", 35},
		{"missing", nil, 35},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := Character{"name": "x"}
			if tt.age != nil {
				ch["age"] = tt.age
			}
			if got := ch.Age(); got != tt.want {
				t.Errorf("Age() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSetImagePromptsMirrorsLegacyScalar(t *testing.T) {
	ch := Character{"name": "x"}
	ch.SetImagePrompts(map[string]any{"prompt_1": "a portrait", "prompt_2": "another"})
	if ch["image_generation_prompt"] != "a portrait" {
		t.Errorf("legacy scalar = %v", ch["image_generation_prompt"])
	}

	// Structured records mirror their rendered text.
	ch2 := Character{"name": "y"}
	ch2.SetImagePrompts(map[string]any{"prompt_1": PromptRecord{Character: "old man", Pose: "sitting"}})
	if ch2["image_generation_prompt"] != "old man, sitting" {
		t.Errorf("legacy scalar = %v", ch2["image_generation_prompt"])
	}

	// An empty slot leaves the scalar alone.
	ch3 := Character{"name": "z", "image_generation_prompt": "keep"}
	ch3.SetImagePrompts(map[string]any{"prompt_2": "only the second"})
	if ch3["image_generation_prompt"] != "keep" {
		t.Errorf("legacy scalar = %v", ch3["image_generation_prompt"])
	}
}

func TestPromptRecordText(t *testing.T) {
	rec := PromptRecord{Combined: "everything at once"}
	if rec.Text() != "everything at once" {
		t.Errorf("Text() = %q", rec.Text())
	}

	rec = PromptRecord{Character: "old man", Pose: "sitting", Background: "park"}
	if rec.Text() != "old man, sitting, park" {
		t.Errorf("Text() = %q", rec.Text())
	}

	if (PromptRecord{}).Text() != "" {
		t.Error("empty record should render empty")
	}
}

func TestPromptRecordFrom(t *testing.T) {
	if rec, ok := PromptRecordFrom("plain prompt"); !ok || rec.Combined != "plain prompt" {
		t.Errorf("string form: %+v, %v", rec, ok)
	}
	if _, ok := PromptRecordFrom("   "); ok {
		t.Error("blank string should not parse")
	}
	if rec, ok := PromptRecordFrom(map[string]any{"character": "old man", "positive": "p"}); !ok || rec.Character != "old man" || rec.Positive != "p" {
		t.Errorf("map form: %+v, %v", rec, ok)
	}
	if rec, ok := PromptRecordFrom(PromptRecord{Combined: "c"}); !ok || rec.Combined != "c" {
		t.Errorf("struct form: %+v, %v", rec, ok)
	}
	if _, ok := PromptRecordFrom(42); ok {
		t.Error("numbers should not parse")
	}
}

func TestScenePromptFallbacks(t *testing.T) {
	nested := Scene{ImagePrompts: &ScenePrompts{Positive: "pos", Negative: "neg"}}
	if nested.Positive() != "pos" || nested.Negative() != "neg" {
		t.Error("nested layout not read")
	}

	flat := Scene{PositivePrompt: "pos", NegativePrompt: "neg"}
	if flat.Positive() != "pos" || flat.Negative() != "neg" {
		t.Error("flat layout not read")
	}
}
