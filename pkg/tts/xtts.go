package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const (
	xttsTimeout  = 300 * time.Second
	xttsSentinel = "XTTS_SYNTHESIS_OK"
	xttsModel    = "tts_models/multilingual/multi-dataset/xtts_v2"
)

// XTTSEngine runs the neural model out of process through a separate Python
// interpreter, keeping its heavy dependencies away from this binary. The host
// writes the input text and a generated script to temp files, invokes the
// interpreter, and watches stdout for the success sentinel. Voice cloning
// passes a reference WAV path straight through to the script.
type XTTSEngine struct {
	python string
	ffmpeg string
}

func NewXTTSEngine() *XTTSEngine {
	e := &XTTSEngine{}
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			e.python = path
			break
		}
	}
	if path, err := exec.LookPath("ffmpeg"); err == nil {
		e.ffmpeg = path
	}
	return e
}

func (x *XTTSEngine) Name() string { return "xtts" }

func (x *XTTSEngine) Ext() string {
	if x.ffmpeg != "" {
		return ".mp3"
	}
	return ".wav"
}

func (x *XTTSEngine) Capabilities() Capabilities {
	return Capabilities{SupportsVoiceCloning: true}
}

// Available probes the interpreter for the model package. Runs once, from
// the registry.
func (x *XTTSEngine) Available() bool {
	if x.python == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, x.python, "-c", "import TTS").Run() == nil
}

func (x *XTTSEngine) Voices() map[string]string {
	return map[string]string{
		"기본 (내장 스피커)": "default",
		"복제 (참조 음성)":  "clone",
	}
}

func (x *XTTSEngine) Generate(ctx context.Context, text, outputPath string, opts Options) error {
	if x.python == "" {
		return ErrNoEngine
	}

	workDir, err := os.MkdirTemp("", "xtts-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(workDir)

	textPath := filepath.Join(workDir, "input.txt")
	if err := os.WriteFile(textPath, []byte(text), 0o644); err != nil {
		return err
	}

	wavPath := outputPath
	toMP3 := strings.HasSuffix(outputPath, ".mp3")
	if toMP3 {
		wavPath = filepath.Join(workDir, "output.wav")
	}

	scriptPath := filepath.Join(workDir, "synthesize.py")
	script := x.buildScript(textPath, wavPath, opts)
	if err := os.WriteFile(scriptPath, []byte(script), 0o644); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, xttsTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, x.python, scriptPath)
	out, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("xtts timed out after %s", xttsTimeout)
	}
	if err != nil {
		return fmt.Errorf("xtts subprocess: %w: %s", err, tailLines(string(out), 5))
	}
	if !strings.Contains(string(out), xttsSentinel) {
		return fmt.Errorf("xtts finished without success sentinel: %s", tailLines(string(out), 5))
	}

	if toMP3 {
		if x.ffmpeg == "" {
			return fmt.Errorf("mp3 output requested but ffmpeg not found")
		}
		conv := exec.CommandContext(ctx, x.ffmpeg, "-y", "-i", wavPath, "-codec:a", "libmp3lame", "-qscale:a", "2", outputPath)
		if out, err := conv.CombinedOutput(); err != nil {
			return fmt.Errorf("ffmpeg conversion: %w: %s", err, tailLines(string(out), 5))
		}
	}

	log.Debug("xtts synthesis complete", "output", outputPath, "cloned", opts.SpeakerWav != "")
	return nil
}

// buildScript emits the one-shot synthesis script. The text always travels
// through a file, never through argv, so quoting and length are non-issues.
func (x *XTTSEngine) buildScript(textPath, wavPath string, opts Options) string {
	var sb strings.Builder
	sb.WriteString("import sys\n")
	sb.WriteString("from TTS.api import TTS\n\n")
	fmt.Fprintf(&sb, "with open(%q, encoding=\"utf-8\") as f:\n    text = f.read()\n\n", textPath)
	fmt.Fprintf(&sb, "tts = TTS(%q)\n", xttsModel)
	if opts.SpeakerWav != "" {
		fmt.Fprintf(&sb, "tts.tts_to_file(text=text, file_path=%q, speaker_wav=%q, language=\"ko\")\n", wavPath, opts.SpeakerWav)
	} else {
		fmt.Fprintf(&sb, "tts.tts_to_file(text=text, file_path=%q, language=\"ko\")\n", wavPath)
	}
	fmt.Fprintf(&sb, "print(%q)\n", xttsSentinel)
	return sb.String()
}

func tailLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
