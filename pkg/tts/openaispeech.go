package tts

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIEngine drives the speech endpoint through the official SDK. The rate
// offset maps onto the API's speed multiplier, clamped to [0.25, 4.0].
type OpenAIEngine struct {
	apiKey string
}

func NewOpenAIEngine() *OpenAIEngine {
	return &OpenAIEngine{apiKey: os.Getenv("OPENAI_API_KEY")}
}

func (o *OpenAIEngine) Name() string { return "openai" }
func (o *OpenAIEngine) Ext() string  { return ".mp3" }

func (o *OpenAIEngine) Capabilities() Capabilities {
	return Capabilities{RequiresInternet: true, RequiresAPIKey: true}
}

func (o *OpenAIEngine) Available() bool { return o.apiKey != "" }

func (o *OpenAIEngine) Voices() map[string]string {
	return map[string]string{
		"Alloy":   "alloy",
		"Echo":    "echo",
		"Fable":   "fable",
		"Onyx":    "onyx",
		"Nova":    "nova",
		"Shimmer": "shimmer",
	}
}

func (o *OpenAIEngine) Generate(ctx context.Context, text, outputPath string, opts Options) error {
	voice := opts.VoiceID
	if voice == "" {
		voice = "alloy"
	}
	speed := clampFloat(1.0+float64(opts.Rate)/100.0, 0.25, 4.0)

	client := openai.NewClient(option.WithAPIKey(o.apiKey))
	resp, err := client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          openai.SpeechModelTTS1,
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voice),
		Speed:          openai.Float(speed),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Body.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, resp.Body)
	return err
}
