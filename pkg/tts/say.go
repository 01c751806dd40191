package tts

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
)

// SayEngine bridges to the operating system's speech command: say on macOS,
// espeak elsewhere. The rate offset maps onto words per minute around a base
// of 200, clamped to [50, 400]; volume maps onto [0.0, 1.0].
type SayEngine struct {
	binary string
}

func NewSayEngine() *SayEngine {
	e := &SayEngine{}
	if runtime.GOOS == "darwin" {
		if path, err := exec.LookPath("say"); err == nil {
			e.binary = path
			return e
		}
	}
	if path, err := exec.LookPath("espeak"); err == nil {
		e.binary = path
	}
	return e
}

func (s *SayEngine) Name() string { return "say" }

func (s *SayEngine) Ext() string {
	if runtime.GOOS == "darwin" {
		return ".aiff"
	}
	return ".wav"
}

func (s *SayEngine) Capabilities() Capabilities {
	return Capabilities{}
}

func (s *SayEngine) Available() bool { return s.binary != "" }

func (s *SayEngine) Voices() map[string]string {
	if runtime.GOOS == "darwin" {
		return map[string]string{"Yuna (한국어)": "Yuna", "Samantha": "Samantha"}
	}
	return map[string]string{"한국어": "ko", "English": "en"}
}

func (s *SayEngine) Generate(ctx context.Context, text, outputPath string, opts Options) error {
	if s.binary == "" {
		return ErrNoEngine
	}

	wpm := clampInt(200+opts.Rate*2, 50, 400)
	volume := clampFloat((float64(opts.Volume)+50.0)/150.0, 0.0, 1.0)

	var cmd *exec.Cmd
	if runtime.GOOS == "darwin" {
		args := []string{"-o", outputPath, "-r", strconv.Itoa(wpm)}
		if opts.VoiceID != "" {
			args = append(args, "-v", opts.VoiceID)
		}
		args = append(args, text)
		cmd = exec.CommandContext(ctx, s.binary, args...)
	} else {
		amplitude := strconv.Itoa(int(volume * 200))
		args := []string{"-w", outputPath, "-s", strconv.Itoa(wpm), "-a", amplitude}
		if opts.VoiceID != "" {
			args = append(args, "-v", opts.VoiceID)
		}
		args = append(args, text)
		cmd = exec.CommandContext(ctx, s.binary, args...)
	}

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s failed: %w: %s", s.binary, err, out)
	}
	return nil
}
