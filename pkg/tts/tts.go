package tts

import (
	"context"
	"errors"
	"fmt"
)

// Options are the engine-relative synthesis controls. Rate is -50..+100,
// volume -50..+100, pitch -50..+50; each backend maps them onto whatever its
// API actually understands.
type Options struct {
	VoiceID    string
	Rate       int
	Volume     int
	Pitch      int
	SpeakerWav string
}

// Capabilities describes what a backend needs and supports.
type Capabilities struct {
	RequiresInternet     bool
	RequiresAPIKey       bool
	SupportsVoiceCloning bool
}

// Engine is one speech backend behind the uniform synthesize-to-file surface.
type Engine interface {
	Name() string
	Generate(ctx context.Context, text, outputPath string, opts Options) error
	Voices() map[string]string
	Capabilities() Capabilities

	// Available reports whether the backend can run right now: its binary
	// resolves, or its API key is present. Checked once by the registry.
	Available() bool

	// Ext is the output extension the engine writes, including the dot.
	Ext() string
}

// ErrNoEngine means no backend survived the availability probe.
var ErrNoEngine = errors.New("no tts backend available")

// ErrUnknownEngine names a backend the registry does not carry.
var ErrUnknownEngine = errors.New("unknown tts backend")

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// signedPercent renders an offset the Microsoft-style endpoints expect,
// always carrying an explicit sign.
func signedPercent(v int) string {
	return fmt.Sprintf("%+d%%", v)
}
