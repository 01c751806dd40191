package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

// chunkRunes is the longest text one translate_tts request accepts.
const chunkRunes = 180

// GoogleEngine uses the translate endpoint's unofficial speech output. It
// ignores volume and pitch entirely; rate only survives as the boolean slow
// flag when the offset drops below -20. Voice ids are language codes.
type GoogleEngine struct {
	endpoint string
	http     *http.Client
}

const defaultGoogleEndpoint = "https://translate.google.com/translate_tts"

func NewGoogleEngine() *GoogleEngine {
	return &GoogleEngine{endpoint: defaultGoogleEndpoint, http: &http.Client{}}
}

func (g *GoogleEngine) Name() string { return "gtrans" }
func (g *GoogleEngine) Ext() string  { return ".mp3" }

func (g *GoogleEngine) Capabilities() Capabilities {
	return Capabilities{RequiresInternet: true}
}

func (g *GoogleEngine) Available() bool { return true }

func (g *GoogleEngine) Voices() map[string]string {
	return map[string]string{
		"한국어": "ko",
		"English": "en",
		"日本語":    "ja",
	}
}

func (g *GoogleEngine) Generate(ctx context.Context, text, outputPath string, opts Options) error {
	lang := opts.VoiceID
	if lang == "" {
		lang = "ko"
	}
	slow := opts.Rate < -20

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	// MP3 frames concatenate cleanly, so long text goes out chunk by chunk.
	for _, chunk := range splitRunes(text, chunkRunes) {
		if err := g.fetchChunk(ctx, chunk, lang, slow, out); err != nil {
			return err
		}
	}
	return nil
}

func (g *GoogleEngine) fetchChunk(ctx context.Context, chunk, lang string, slow bool, out io.Writer) error {
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("tl", lang)
	q.Set("q", chunk)
	if slow {
		q.Set("ttsspeed", "0.24")
	} else {
		q.Set("ttsspeed", "1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("google tts: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("google tts: server returned %d", resp.StatusCode)
	}
	_, err = io.Copy(out, resp.Body)
	return err
}

func splitRunes(s string, n int) []string {
	runes := []rune(s)
	var chunks []string
	for len(runes) > n {
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	if len(runes) > 0 {
		chunks = append(chunks, string(runes))
	}
	return chunks
}
