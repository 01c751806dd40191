package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyloom/pkg/utils"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root, err := CreateProjectFolder(filepath.Join(t.TempDir(), "01_romance"), "Evening Stroll")
	if err != nil {
		t.Fatal(err)
	}
	s, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestCreateProjectFolderNumbering(t *testing.T) {
	category := filepath.Join(t.TempDir(), "01_romance")

	root, err := CreateProjectFolder(category, "Evening Stroll")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(root) != "001_Evening_Stroll" {
		t.Errorf("first project = %q, want 001_Evening_Stroll", filepath.Base(root))
	}
	for _, sub := range []string{CharactersDir, ChaptersDir, ScriptsDir} {
		if _, err := os.Stat(filepath.Join(root, sub)); err != nil {
			t.Errorf("missing subdirectory %s: %v", sub, err)
		}
	}

	// Numbering skips gaps: with 001, 002, 004 present the next is 005.
	os.MkdirAll(filepath.Join(category, "002_x"), 0o755)
	os.MkdirAll(filepath.Join(category, "004_y"), 0o755)
	next, err := CreateProjectFolder(category, "다음 작품")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(next) != "005_다음_작품" {
		t.Errorf("next project = %q, want 005_다음_작품", filepath.Base(next))
	}
}

func TestCreateProjectFolderEmptyTitle(t *testing.T) {
	if _, err := CreateProjectFolder(t.TempDir(), "   "); err == nil {
		t.Fatal("expected an error for an empty title")
	}
}

func TestOpenLocksProject(t *testing.T) {
	s := newTestStore(t)
	if _, err := Open(s.Root()); err == nil {
		t.Fatal("second Open on a locked project should fail")
	}
	s.Close()
	again, err := Open(s.Root())
	if err != nil {
		t.Fatalf("reopen after close: %v", err)
	}
	again.Close()
}

func TestCharacterRoundTrip(t *testing.T) {
	s := newTestStore(t)

	ch := Character{"name": "김태주", "age": float64(62), "role": "주연"}
	if !s.SaveCharacter(ch) {
		t.Fatal("save failed")
	}
	if _, err := os.Stat(filepath.Join(s.Root(), CharactersDir, "김태주_profile.json")); err != nil {
		t.Fatalf("profile file missing: %v", err)
	}

	loaded := s.LoadCharacters()
	if len(loaded) != 1 {
		t.Fatalf("loaded %d characters, want 1", len(loaded))
	}
	got := loaded[0]
	if got.Name() != "김태주" || got.Age() != 62 {
		t.Errorf("round trip lost fields: name=%q age=%d", got.Name(), got.Age())
	}
	if got[FilenameKey] != "김태주_profile.json" {
		t.Errorf("filename key = %v", got[FilenameKey])
	}
}

func TestSaveCharacterStripsTransientKey(t *testing.T) {
	s := newTestStore(t)
	ch := Character{"name": "박영희", FilenameKey: "박영희_profile.json"}
	if !s.SaveCharacter(ch) {
		t.Fatal("save failed")
	}
	raw, err := os.ReadFile(filepath.Join(s.Root(), CharactersDir, "박영희_profile.json"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), FilenameKey) {
		t.Error("transient filename key leaked into the file")
	}
}

func TestLoadCharactersRecoversLegacyPromptString(t *testing.T) {
	s := newTestStore(t)

	// Older files serialize the prompt mapping as a JSON string.
	legacy := map[string]any{
		"name":                     "이수민",
		"age":                      "마흔",
		"image_generation_prompts": `{"prompt_1":"a portrait"}`,
	}
	if err := utils.Save(filepath.Join(s.Root(), CharactersDir, "이수민_profile.json"), legacy); err != nil {
		t.Fatal(err)
	}

	loaded := s.LoadCharacters()
	if len(loaded) != 1 {
		t.Fatalf("loaded %d characters, want 1", len(loaded))
	}
	ch := loaded[0]
	if ch.Age() != 35 {
		t.Errorf("non-numeric age = %d, want the 35 fallback", ch.Age())
	}
	prompts := ch.ImagePrompts()
	if prompts["prompt_1"] != "a portrait" {
		t.Errorf("legacy prompt string not recovered: %v", prompts)
	}

	// A save after Normalize writes the mapping form, not the string.
	if !s.SaveCharacter(ch) {
		t.Fatal("save failed")
	}
	raw, _ := os.ReadFile(filepath.Join(s.Root(), CharactersDir, "이수민_profile.json"))
	var onDisk map[string]any
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatal(err)
	}
	if _, ok := onDisk["image_generation_prompts"].(map[string]any); !ok {
		t.Errorf("prompts still serialized as %T", onDisk["image_generation_prompts"])
	}
}

func TestChapterRoundTrip(t *testing.T) {
	s := newTestStore(t)

	for _, n := range []int{3, 1, 2} {
		ch := Chapter{"chapter_number": n, "title": "chapter", "content": "본문"}
		if !s.SaveChapter(ch) {
			t.Fatal("save failed")
		}
	}
	if _, err := os.Stat(filepath.Join(s.Root(), ChaptersDir, "chapter_02.json")); err != nil {
		t.Fatalf("chapter file missing: %v", err)
	}

	loaded := s.LoadChapters()
	if len(loaded) != 3 {
		t.Fatalf("loaded %d chapters, want 3", len(loaded))
	}
	for i, want := range []int{1, 2, 3} {
		if loaded[i].Number() != want {
			t.Errorf("chapter[%d].Number() = %d, want %d", i, loaded[i].Number(), want)
		}
	}
}

func TestSaveScriptDerivesLength(t *testing.T) {
	s := newTestStore(t)

	text := "태주는 공원을 걸었다." // rune count, not byte count
	if !s.SaveScript(7, text, nil) {
		t.Fatal("save failed")
	}
	if _, err := os.Stat(filepath.Join(s.Root(), ScriptsDir, "chapter_07_script.json")); err != nil {
		t.Fatalf("script file missing: %v", err)
	}

	rec := s.LoadScript(7)
	if rec == nil {
		t.Fatal("script record not loadable")
	}
	if rec.ScriptLength != len([]rune(text)) {
		t.Errorf("script_length = %d, want %d", rec.ScriptLength, len([]rune(text)))
	}
	if rec.ScriptGeneratedAt == "" {
		t.Error("generation timestamp missing")
	}
}

func TestSaveScenesPreservesScript(t *testing.T) {
	s := newTestStore(t)
	s.SaveScript(2, "원래 대본.", nil)
	before := s.LoadScript(2)

	scenes := []Scene{{SceneID: "scene_01", SceneTitle: "공원", ImagePrompts: &ScenePrompts{Positive: "park at dusk"}}}
	if !s.SaveScenesToScript(2, scenes) {
		t.Fatal("save failed")
	}

	after := s.LoadScript(2)
	if after.Script != before.Script || after.ScriptGeneratedAt != before.ScriptGeneratedAt {
		t.Error("scene save touched the script text or its timestamp")
	}
	if len(after.Scenes) != 1 || after.Scenes[0].Positive() != "park at dusk" {
		t.Errorf("scenes not persisted: %+v", after.Scenes)
	}
	if after.ScenesGeneratedAt == "" {
		t.Error("scene timestamp missing")
	}
}

func TestSaveScriptPreservesScenes(t *testing.T) {
	s := newTestStore(t)
	s.SaveScript(3, "초고.", nil)
	s.SaveScenesToScript(3, []Scene{{SceneID: "scene_01", PositivePrompt: "park at dusk"}})

	// A script rewrite without scenes keeps the existing storyboard.
	if !s.SaveScript(3, "수정된 대본.", nil) {
		t.Fatal("save failed")
	}
	rec := s.LoadScript(3)
	if rec.Script != "수정된 대본." {
		t.Errorf("script = %q", rec.Script)
	}
	if len(rec.Scenes) != 1 || rec.Scenes[0].Positive() != "park at dusk" {
		t.Errorf("scenes lost on script overwrite: %+v", rec.Scenes)
	}
	if rec.ScenesGeneratedAt == "" {
		t.Error("scene timestamp lost on script overwrite")
	}

	// Passing scenes explicitly still replaces them.
	s.SaveScript(3, "다시.", []Scene{{SceneID: "scene_02"}})
	rec = s.LoadScript(3)
	if len(rec.Scenes) != 1 || rec.Scenes[0].SceneID != "scene_02" {
		t.Errorf("explicit scenes not written: %+v", rec.Scenes)
	}
}

func TestSaveScenesWithoutScript(t *testing.T) {
	s := newTestStore(t)
	if !s.SaveScenesToScript(9, []Scene{{SceneID: "scene_01"}}) {
		t.Fatal("save failed")
	}
	rec := s.LoadScript(9)
	if rec == nil || rec.ChapterNumber != 9 || rec.Script != "" {
		t.Errorf("empty record not created properly: %+v", rec)
	}
}

func TestListCharacterImages(t *testing.T) {
	s := newTestStore(t)
	dir := s.CharacterImageDir("김태주")
	os.MkdirAll(dir, 0o755)
	for _, name := range []string{"prompt_1.png", "prompt_3.jpg", "notes.txt", "portrait.png"} {
		os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644)
	}

	images := s.ListCharacterImages("김태주")
	if len(images) != 2 {
		t.Fatalf("found %d images, want 2: %v", len(images), images)
	}
	if filepath.Base(images[1]) != "prompt_1.png" || filepath.Base(images[3]) != "prompt_3.jpg" {
		t.Errorf("wrong mapping: %v", images)
	}
}

func TestSceneSetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	set := SceneSet{
		Metadata: SceneSetMeta{Episode: 3, EpisodeTitle: "이별", Act: 2, ActTitle: "여름"},
		Scenes:   []Scene{{SceneID: "scene_01", PositivePrompt: "rainy street"}},
	}
	if !s.SaveSceneSet("Act2_여름", "EP03_이별", set) {
		t.Fatal("save failed")
	}

	loaded := s.LoadSceneSet("Act2_여름", "EP03_이별")
	if loaded == nil {
		t.Fatal("scene set not loadable")
	}
	if loaded.Metadata.Episode != 3 || loaded.Scenes[0].Positive() != "rainy street" {
		t.Errorf("round trip lost data: %+v", loaded)
	}

	sets := s.ListSceneSets()
	if files := sets["Act2_여름"]; len(files) != 1 || files[0] != "EP03_이별.json" {
		t.Errorf("ListSceneSets = %v", sets)
	}
}
