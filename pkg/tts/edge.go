package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// EdgeEngine speaks to a Microsoft-style readaloud endpoint. Rate, volume,
// and pitch all travel as signed percentages inside the SSML prosody element.
type EdgeEngine struct {
	endpoint string
	http     *http.Client
}

const defaultEdgeEndpoint = "https://speech.platform.bing.com/consumer/speech/synthesize/readaloud/v1"

func NewEdgeEngine() *EdgeEngine {
	return &EdgeEngine{endpoint: defaultEdgeEndpoint, http: &http.Client{}}
}

func (e *EdgeEngine) Name() string { return "edge" }
func (e *EdgeEngine) Ext() string  { return ".mp3" }

func (e *EdgeEngine) Capabilities() Capabilities {
	return Capabilities{RequiresInternet: true}
}

func (e *EdgeEngine) Available() bool { return true }

func (e *EdgeEngine) Voices() map[string]string {
	return map[string]string{
		"선희 (여성, 한국어)": "ko-KR-SunHiNeural",
		"인준 (남성, 한국어)": "ko-KR-InJoonNeural",
		"현수 (남성, 한국어)": "ko-KR-HyunsuNeural",
		"Aria (Female, English)": "en-US-AriaNeural",
		"Guy (Male, English)":    "en-US-GuyNeural",
	}
}

func (e *EdgeEngine) Generate(ctx context.Context, text, outputPath string, opts Options) error {
	voice := opts.VoiceID
	if voice == "" {
		voice = "ko-KR-SunHiNeural"
	}

	rate := signedPercent(clampInt(opts.Rate, -50, 100))
	volume := signedPercent(clampInt(opts.Volume, -50, 100))
	pitch := signedPercent(clampInt(opts.Pitch, -50, 50))

	ssml := fmt.Sprintf(
		`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xml:lang="ko-KR"><voice name="%s"><prosody rate="%s" volume="%s" pitch="%s">%s</prosody></voice></speak>`,
		voice, rate, volume, pitch, xmlEscape(text),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader([]byte(ssml)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", "audio-24khz-48kbitrate-mono-mp3")

	resp, err := e.http.Do(req)
	if err != nil {
		return fmt.Errorf("edge tts: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("edge tts: server returned %d: %s", resp.StatusCode, raw)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func xmlEscape(s string) string {
	return xmlEscaper.Replace(s)
}
