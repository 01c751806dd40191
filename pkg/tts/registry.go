package tts

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
)

// Registry holds the backends in preference order and probes availability
// lazily, once. The first available backend is the default.
type Registry struct {
	engines []Engine

	mu        sync.Mutex
	available []Engine
	probed    bool
}

// NewRegistry builds a registry over the given backends, kept in order.
func NewRegistry(engines ...Engine) *Registry {
	return &Registry{engines: engines}
}

// DefaultRegistry carries every built-in backend in preference order.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewEdgeEngine(),
		NewGoogleEngine(),
		NewOpenAIEngine(),
		NewElevenLabsEngine(),
		NewSayEngine(),
		NewXTTSEngine(),
	)
}

func (r *Registry) probe() {
	if r.probed {
		return
	}
	r.probed = true
	for _, e := range r.engines {
		if e.Available() {
			r.available = append(r.available, e)
		} else {
			log.Debug("tts backend unavailable", "backend", e.Name())
		}
	}
	names := make([]string, 0, len(r.available))
	for _, e := range r.available {
		names = append(names, e.Name())
	}
	log.Info("tts backends probed", "available", names)
}

// Available returns the backends that passed the probe, in preference order.
func (r *Registry) Available() []Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probe()
	return r.available
}

// Default returns the first available backend.
func (r *Registry) Default() (Engine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.probe()
	if len(r.available) == 0 {
		return nil, ErrNoEngine
	}
	return r.available[0], nil
}

// Get returns a backend by name, available or not, so settings screens can
// describe backends that only need a key to come alive.
func (r *Registry) Get(name string) (Engine, error) {
	for _, e := range r.engines {
		if e.Name() == name {
			return e, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
}
