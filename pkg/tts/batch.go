package tts

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// BatchItem is one narration line to synthesize. Filename is relative to the
// batch output directory and may omit the extension.
type BatchItem struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
}

// GenerateBatch synthesizes the items strictly in order into outDir. Items
// with empty text are skipped without writing a file, but still advance the
// progress callback. Returns the paths written and the failure count.
func GenerateBatch(ctx context.Context, engine Engine, items []BatchItem, outDir string, opts Options, progress func(done, total int)) ([]string, int) {
	total := len(items)
	var written []string
	failed := 0

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Warn("failed creating tts output dir", "dir", outDir, "error", err)
		return nil, total
	}

	for i, item := range items {
		if strings.TrimSpace(item.Text) == "" {
			log.Debug("skipping empty tts item", "index", i, "filename", item.Filename)
			if progress != nil {
				progress(i+1, total)
			}
			continue
		}

		name := item.Filename
		if filepath.Ext(name) == "" {
			name += engine.Ext()
		}
		path := filepath.Join(outDir, name)

		if err := engine.Generate(ctx, item.Text, path, opts); err != nil {
			log.Warn("tts item failed", "index", i, "filename", item.Filename, "backend", engine.Name(), "error", err)
			failed++
		} else {
			written = append(written, path)
		}
		if progress != nil {
			progress(i+1, total)
		}
	}

	log.Info("tts batch complete", "backend", engine.Name(), "succeeded", len(written), "failed", failed, "total", total)
	return written, failed
}
