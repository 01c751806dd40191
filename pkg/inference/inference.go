package inference

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storyloom/pkg/config"
)

// Caller is the single call surface every provider adapter implements.
// The system prompt may be empty; how it reaches the provider is adapter
// business (see each adapter for the exact placement).
type Caller interface {
	Call(ctx context.Context, userPrompt, systemPrompt string) (string, error)
}

var (
	// ErrProviderUnavailable means no adapter is registered for the
	// configured provider name. Surfaced verbatim to the user.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrMissingAPIKey fails a single call without disabling the provider.
	ErrMissingAPIKey = errors.New("api key not configured")

	// ErrEmptyResponse means the provider answered without usable content.
	ErrEmptyResponse = errors.New("response empty")
)

type factory func(cfg *config.Store) Caller

var registry = map[string]factory{}

func register(name string, f factory) {
	registry[name] = f
}

// IsProviderAvailable reports whether an adapter exists for the name.
func IsProviderAvailable(name string) bool {
	_, ok := registry[name]
	return ok
}

// Providers returns the registered provider names.
func Providers() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Gateway multiplexes Call across the registered providers. The active
// provider is re-read from config on every call, so a settings change takes
// effect immediately. Adapters are built lazily and cached for reuse.
type Gateway struct {
	cfg *config.Store

	mu      sync.Mutex
	callers map[string]Caller
}

// NewGateway builds a gateway over the given config store.
func NewGateway(cfg *config.Store) *Gateway {
	return &Gateway{cfg: cfg, callers: make(map[string]Caller)}
}

// Call routes one completion to the configured provider. No retries happen
// here; retry policy belongs to the caller.
func (g *Gateway) Call(ctx context.Context, userPrompt, systemPrompt string) (string, error) {
	provider := g.cfg.Provider()
	caller, err := g.caller(provider)
	if err != nil {
		return "", err
	}

	text, err := caller.Call(ctx, userPrompt, systemPrompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", provider, err)
	}
	return text, nil
}

func (g *Gateway) caller(provider string) (Caller, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if c, ok := g.callers[provider]; ok {
		return c, nil
	}
	f, ok := registry[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s (install or configure one of %v)", ErrProviderUnavailable, provider, Providers())
	}
	c := f(g.cfg)
	g.callers[provider] = c
	return c, nil
}
