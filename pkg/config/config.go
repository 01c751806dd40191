package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Recognized settings. Unknown keys round-trip untouched so older or
// hand-edited config files keep working.
const (
	KeyProvider          = "provider"
	KeyImageSystemPrompt = "image_system_prompt"
	KeyLastProjectPath   = "last_project_path"

	KeySheetsEnabled      = "google_sheets_enabled"
	KeySheetsSpreadsheet  = "google_sheets_spreadsheet_id"
	KeySheetsClientID     = "google_sheets_client_id"
	KeySheetsClientSecret = "google_sheets_client_secret"
	KeySheetsTokenPath    = "google_sheets_token_path"
)

// Providers the LLM gateway understands.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Store is a single persisted settings document at a fixed user-home path.
// Values are loose JSON so callers use the typed accessors.
type Store struct {
	mu   sync.RWMutex
	path string
	data map[string]any
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".storyloom", "config.json")
	}
	return filepath.Join(home, ".storyloom", "config.json")
}

func defaults() map[string]any {
	return map[string]any{
		KeyProvider:          ProviderGemini,
		"gemini_model":       "gemini-2.0-flash",
		"openai_model":       "gpt-4o",
		"anthropic_model":    "claude-3-5-sonnet-20241022",
		KeyImageSystemPrompt: "",
		KeySheetsEnabled:     false,
	}
}

// New creates a store bound to path and loads whatever is on disk.
// A missing or unreadable file leaves the defaults in place.
func New(path string) *Store {
	if path == "" {
		path = DefaultPath()
	}
	s := &Store{path: path, data: defaults()}
	s.Load()
	return s
}

// Load merges the on-disk document over the defaults. Disk wins.
func (s *Store) Load() {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("failed reading config", "path", s.path, "error", err)
		}
		return
	}

	var saved map[string]any
	if err := json.Unmarshal(raw, &saved); err != nil {
		log.Warn("config file is not valid JSON, keeping defaults", "path", s.path, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range saved {
		s.data[k] = v
	}
}

// Save writes the merged document back out. Returns false on failure; the
// error is logged rather than propagated so a read-only home directory does
// not take the application down.
func (s *Store) Save() bool {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.data, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		log.Warn("failed serializing config", "error", err)
		return false
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		log.Warn("failed creating config dir", "path", s.path, "error", err)
		return false
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		log.Warn("failed writing config", "path", s.path, "error", err)
		return false
	}
	return true
}

// Get returns the value for key, or def when the key is absent.
func (s *Store) Get(key string, def any) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.data[key]; ok {
		return v
	}
	return def
}

// GetString returns the value for key as a string, or def when absent or not
// a string.
func (s *Store) GetString(key, def string) string {
	if v, ok := s.Get(key, def).(string); ok {
		return v
	}
	return def
}

// GetBool returns the value for key as a bool, or def when absent or not a bool.
func (s *Store) GetBool(key string, def bool) bool {
	if v, ok := s.Get(key, def).(bool); ok {
		return v
	}
	return def
}

// Set stores a single value. The caller decides when to Save.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Update merges a partial document into the store.
func (s *Store) Update(partial map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range partial {
		s.data[k] = v
	}
}

// Provider returns the active LLM provider name.
func (s *Store) Provider() string {
	return s.GetString(KeyProvider, ProviderGemini)
}

// APIKey returns the API key for a provider, falling back to the
// conventional environment variable when the config has none.
func (s *Store) APIKey(provider string) string {
	if key := s.GetString(provider+"_api_key", ""); key != "" {
		return key
	}
	switch provider {
	case ProviderGemini:
		return os.Getenv("GEMINI_API_KEY")
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return os.Getenv(strings.ToUpper(provider) + "_API_KEY")
}

// Model returns the configured model name for a provider.
func (s *Store) Model(provider string) string {
	return s.GetString(provider+"_model", "")
}
