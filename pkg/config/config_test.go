package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultsWhenFileMissing(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "config.json"))
	if s.Provider() != ProviderGemini {
		t.Errorf("default provider = %q", s.Provider())
	}
	if s.Model(ProviderOpenAI) == "" {
		t.Error("default openai model missing")
	}
}

func TestDiskWinsOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"provider":"openai","custom_key":"kept"}`), 0o644)

	s := New(path)
	if s.Provider() != ProviderOpenAI {
		t.Errorf("provider = %q, want openai", s.Provider())
	}
	if s.GetString("custom_key", "") != "kept" {
		t.Error("unknown key not preserved")
	}
	if s.Model(ProviderGemini) == "" {
		t.Error("defaults lost after merge")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	s := New(path)
	s.Set(KeyProvider, ProviderAnthropic)
	s.Update(map[string]any{KeyImageSystemPrompt: "custom prompt"})
	if !s.Save() {
		t.Fatal("save failed")
	}

	reloaded := New(path)
	if reloaded.Provider() != ProviderAnthropic {
		t.Errorf("provider = %q", reloaded.Provider())
	}
	if reloaded.GetString(KeyImageSystemPrompt, "") != "custom prompt" {
		t.Error("image system prompt lost")
	}
}

func TestInvalidJSONKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{not json"), 0o644)

	s := New(path)
	if s.Provider() != ProviderGemini {
		t.Errorf("provider = %q, want the default", s.Provider())
	}
}

func TestAPIKeyEnvFallback(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	s := New(filepath.Join(t.TempDir(), "config.json"))
	if s.APIKey(ProviderGemini) != "env-key" {
		t.Errorf("api key = %q", s.APIKey(ProviderGemini))
	}

	s.Set("gemini_api_key", "config-key")
	if s.APIKey(ProviderGemini) != "config-key" {
		t.Error("config key should win over the environment")
	}
}

func TestGetBool(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "config.json"))
	if s.GetBool(KeySheetsEnabled, true) {
		t.Error("sheets export should default off")
	}
	s.Set(KeySheetsEnabled, true)
	if !s.GetBool(KeySheetsEnabled, false) {
		t.Error("set bool not returned")
	}
}
