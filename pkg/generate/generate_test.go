package generate

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"storyloom/pkg/config"
	"storyloom/pkg/project"
)

type fakeCaller struct {
	responses []string
	err       error

	users   []string
	systems []string
}

func (f *fakeCaller) Call(_ context.Context, userPrompt, systemPrompt string) (string, error) {
	f.users = append(f.users, userPrompt)
	f.systems = append(f.systems, systemPrompt)
	if f.err != nil {
		return "", f.err
	}
	i := len(f.users) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

func newTestGenerator(t *testing.T, llm *fakeCaller) *Generator {
	t.Helper()
	cfg := config.New(filepath.Join(t.TempDir(), "config.json"))
	return New(llm, cfg)
}

func TestVisualAge(t *testing.T) {
	cases := []struct{ age, want int }{
		{25, 25},
		{29, 29},
		{30, 25},
		{40, 30},
		{50, 35},
		{60, 40},
		{62, 42},
	}
	for _, c := range cases {
		if got := VisualAge(c.age); got != c.want {
			t.Errorf("VisualAge(%d) = %d, want %d", c.age, got, c.want)
		}
	}
}

func TestAgePhrase(t *testing.T) {
	if got := AgePhrase(62); got != "42-year-old (62-year-old)" {
		t.Errorf("AgePhrase(62) = %q", got)
	}
	if got := AgePhrase(25); got != "25-year-old (25-year-old)" {
		t.Errorf("AgePhrase(25) = %q", got)
	}
}

func TestScriptTrimsAndSendsTail(t *testing.T) {
	llm := &fakeCaller{responses: []string{"\n  대본 본문입니다.  \n"}}
	g := newTestGenerator(t, llm)

	previous := strings.Repeat("가", 1500) + "이전 장의 끝."
	chapter := project.Chapter{"chapter_number": 2, "title": "재회", "content": "두 사람이 다시 만난다."}
	script, err := g.Script(context.Background(), chapter, project.Synopsis{"synopsis": "줄거리"}, "", previous)
	if err != nil {
		t.Fatal(err)
	}
	if script != "대본 본문입니다." {
		t.Errorf("script = %q, want trimmed text", script)
	}
	if !strings.Contains(llm.users[0], "이전 장의 끝.") {
		t.Error("previous-chapter tail missing from prompt")
	}
	if strings.Contains(llm.users[0], strings.Repeat("가", 1001)) {
		t.Error("prompt carries more than the tail of the previous script")
	}
}

func TestScriptEmptyOutput(t *testing.T) {
	g := newTestGenerator(t, &fakeCaller{responses: []string{"   \n"}})
	_, err := g.Script(context.Background(), project.Chapter{"chapter_number": 1}, project.Synopsis{}, "", "")
	if !errors.Is(err, ErrUnparsable) {
		t.Fatalf("err = %v, want ErrUnparsable", err)
	}
}

func TestScenesParsesFencedJSON(t *testing.T) {
	llm := &fakeCaller{responses: []string{
		"```json\n{\"scenes\":[{\"scene_number\":1,\"title\":\"아침\",\"image_prompt\":\"a quiet morning street\"},{\"scene_number\":2,\"title\":\"만남\",\"image_prompt\":\"two people meeting\"}]}\n```",
	}}
	g := newTestGenerator(t, llm)

	chapter := project.Chapter{"chapter_number": 1, "title": "시작", "script": "본문"}
	scenes, err := g.Scenes(context.Background(), chapter, project.Synopsis{}, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(scenes) != 2 {
		t.Fatalf("got %d scenes, want 2", len(scenes))
	}
	if scenes[0].SceneNumber != 1 || scenes[0].Title != "아침" {
		t.Errorf("first scene = %+v", scenes[0])
	}
}

func TestScenesRequiresScript(t *testing.T) {
	g := newTestGenerator(t, &fakeCaller{responses: []string{"{}"}})
	_, err := g.Scenes(context.Background(), project.Chapter{"chapter_number": 1}, project.Synopsis{}, "", nil)
	if !errors.Is(err, ErrNoScript) {
		t.Fatalf("err = %v, want ErrNoScript", err)
	}
}

func TestScenesFixReprompt(t *testing.T) {
	llm := &fakeCaller{responses: []string{
		"{\"scenes\":[{\"scene_number\":1,", // truncated on purpose
		"{\"scenes\":[{\"scene_number\":1,\"title\":\"t\",\"image_prompt\":\"p\"}]}",
	}}
	g := newTestGenerator(t, llm)

	chapter := project.Chapter{"chapter_number": 3, "script": "본문"}
	scenes, err := g.Scenes(context.Background(), chapter, project.Synopsis{}, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(scenes) != 1 {
		t.Fatalf("got %d scenes after fix, want 1", len(scenes))
	}
	if len(llm.users) != 2 {
		t.Fatalf("expected a single fix call, got %d calls", len(llm.users))
	}
	if !strings.Contains(llm.users[1], "malformed JSON") {
		t.Error("fix call does not carry the malformed output")
	}
}

func TestCharacterProfile(t *testing.T) {
	llm := &fakeCaller{responses: []string{
		`{"appearance":{"face":"round","body":"slim","clothing":"hanbok","features":["scar"]},"personality":{"traits":["kind"],"speech_style":"soft"},"background":"farmer","visual_reference":"a kind farmer"}`,
	}}
	g := newTestGenerator(t, llm)

	seed := project.Character{"name": "김태주", "age": 35, "occupation": "농부"}
	profile, err := g.CharacterProfile(context.Background(), project.Synopsis{"full_story": "이야기"}, seed)
	if err != nil {
		t.Fatal(err)
	}
	if profile.Appearance.Face != "round" || profile.Personality.SpeechStyle != "soft" {
		t.Errorf("profile = %+v", profile)
	}
	if !strings.Contains(llm.users[0], "농부") {
		t.Error("seed fields missing from prompt")
	}
}

func TestCharacterImagePrompts(t *testing.T) {
	record := `{"character":"42-year-old (62-year-old) Korean man","clothing":"suit","pose":"standing","background":"studio","situation":"reference","combined":"42-year-old (62-year-old) Korean man, suit, standing, studio, reference"}`
	var sb strings.Builder
	sb.WriteString("{")
	for i, v := range PromptVariants {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("\"" + v + "\":" + record)
	}
	sb.WriteString("}")

	llm := &fakeCaller{responses: []string{sb.String()}}
	g := newTestGenerator(t, llm)

	prompts, err := g.CharacterImagePrompts(context.Background(), project.Character{"name": "박철수", "age": 62}, project.Synopsis{})
	if err != nil {
		t.Fatal(err)
	}
	if len(prompts) != len(PromptVariants) {
		t.Fatalf("got %d variants, want %d", len(prompts), len(PromptVariants))
	}
	for _, v := range PromptVariants {
		if !strings.Contains(prompts[v].Text(), "42-year-old (62-year-old)") {
			t.Errorf("variant %s lost the age phrase: %q", v, prompts[v].Text())
		}
	}
	if !strings.Contains(llm.users[0], "42-year-old (62-year-old)") {
		t.Error("age phrase missing from prompt")
	}
}

func TestCharacterImagePromptsToleratesMissingVariant(t *testing.T) {
	llm := &fakeCaller{responses: []string{`{"portrait":"a portrait prompt"}`}}
	g := newTestGenerator(t, llm)

	prompts, err := g.CharacterImagePrompts(context.Background(), project.Character{"name": "최영희", "age": "마흔"}, project.Synopsis{})
	if err != nil {
		t.Fatal(err)
	}
	if len(prompts) != 1 {
		t.Fatalf("got %d variants, want 1", len(prompts))
	}
	if prompts["portrait"].Text() != "a portrait prompt" {
		t.Errorf("portrait = %q", prompts["portrait"].Text())
	}
	// non-numeric age coerces to 35
	if !strings.Contains(llm.users[0], "28-year-old (35-year-old)") {
		t.Errorf("coerced age phrase missing from prompt: %q", llm.users[0])
	}
}

func TestFormatCharacters(t *testing.T) {
	out := FormatCharacters([]project.Character{
		{"name": "김태주", "age": 62, "role": "주인공"},
		{"name": "이숙자", "age": 29},
	})
	if !strings.Contains(out, "김태주, 42-year-old (62-year-old), 주인공") {
		t.Errorf("formatted characters = %q", out)
	}
	if !strings.Contains(out, "이숙자, 29-year-old (29-year-old)") {
		t.Errorf("formatted characters = %q", out)
	}
}
