package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no lang", "```\n[1,2]\n```", "[1,2]"},
		{"surrounding space", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSON(tt.in); got != tt.want {
				t.Errorf("CleanJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"prose around object", `Here you go: {"a":1} hope that helps!`, `{"a":1}`},
		{"prose around array", `The scenes: [{"n":1}] done.`, `[{"n":1}]`},
		{"fenced with prose", "Sure!\n```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"array before object", `[{"a":1}]`, `[{"a":1}]`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.in); got != tt.want {
				t.Errorf("ExtractJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTail(t *testing.T) {
	if got := Tail("가나다라마", 3); got != "다라마" {
		t.Errorf("Tail = %q", got)
	}
	if got := Tail("ab", 5); got != "ab" {
		t.Errorf("short input should pass through, got %q", got)
	}
}

func TestLimitStr(t *testing.T) {
	if got := LimitStr("abcdef", 3); got != "abc..." {
		t.Errorf("LimitStr = %q", got)
	}
	if got := LimitStr("ab", 3); got != "ab" {
		t.Errorf("LimitStr = %q", got)
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	type doc struct {
		Name string `json:"name"`
		N    int    `json:"n"`
	}
	path := filepath.Join(t.TempDir(), "nested", "doc.json")

	if err := Save(path, doc{Name: "a<b", N: 7}); err != nil {
		t.Fatal(err)
	}
	got, err := Load[doc](path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "a<b" || got.N != 7 {
		t.Errorf("round trip = %+v", got)
	}
}

func TestSaveDoesNotEscapeHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := Save(path, map[string]string{"s": "<b> & </b>"}); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), "<b>") {
		t.Errorf("angle brackets were escaped: %s", raw)
	}
}

func TestExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if Exists(path) {
		t.Error("missing file reported as existing")
	}
	if err := Save(path, map[string]int{"a": 1}); err != nil {
		t.Fatal(err)
	}
	if !Exists(path) {
		t.Error("saved file reported as missing")
	}
}

func TestTokenizeWords(t *testing.T) {
	got := TokenizeWords("태주는 공원을, 걸었다.")
	want := []string{"태주는", " ", "공원을", ",", " ", "걸었다", "."}
	if len(got) != len(want) {
		t.Fatalf("tokens = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if strings.Join(got, "") != "태주는 공원을, 걸었다." {
		t.Error("tokens must concatenate back to the input")
	}
}
