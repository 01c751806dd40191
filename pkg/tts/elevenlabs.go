package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// ElevenLabsEngine calls the neural voice REST endpoint. There is no direct
// speed control, so the rate offset maps onto the stability parameter: a
// higher rate means lower stability and livelier delivery.
type ElevenLabsEngine struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

const defaultElevenLabsEndpoint = "https://api.elevenlabs.io/v1/text-to-speech"

func NewElevenLabsEngine() *ElevenLabsEngine {
	return &ElevenLabsEngine{
		endpoint: defaultElevenLabsEndpoint,
		apiKey:   os.Getenv("ELEVENLABS_API_KEY"),
		http:     &http.Client{},
	}
}

func (e *ElevenLabsEngine) Name() string { return "elevenlabs" }
func (e *ElevenLabsEngine) Ext() string  { return ".mp3" }

func (e *ElevenLabsEngine) Capabilities() Capabilities {
	return Capabilities{RequiresInternet: true, RequiresAPIKey: true, SupportsVoiceCloning: true}
}

func (e *ElevenLabsEngine) Available() bool { return e.apiKey != "" }

func (e *ElevenLabsEngine) Voices() map[string]string {
	return map[string]string{
		"Rachel": "21m00Tcm4TlvDq8ikWAM",
		"Adam":   "pNInz6obpgDQGcFmaJgB",
		"Bella":  "EXAVITQu4vr4xnSDxMaL",
	}
}

func (e *ElevenLabsEngine) Generate(ctx context.Context, text, outputPath string, opts Options) error {
	voice := opts.VoiceID
	if voice == "" {
		voice = "21m00Tcm4TlvDq8ikWAM"
	}
	stability := clampFloat(0.5-float64(opts.Rate)/200.0, 0.0, 1.0)

	body, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": "eleven_multilingual_v2",
		"voice_settings": map[string]any{
			"stability":        stability,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/"+voice, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.http.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("elevenlabs: server returned %d: %s", resp.StatusCode, raw)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}
