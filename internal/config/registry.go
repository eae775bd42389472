package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kvxd/aethervox/pkg/provider/transcode"
	"github.com/kvxd/aethervox/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory
// has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Registry maps provider names to their constructor functions. The shipped
// synthesis backends register themselves here; embedders can add their own
// under new names. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	synthesis map[string]func(SynthesisConfig) (tts.Provider, error)
	transcode map[string]func() (transcode.Processor, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		synthesis: make(map[string]func(SynthesisConfig) (tts.Provider, error)),
		transcode: make(map[string]func() (transcode.Processor, error)),
	}
}

// RegisterSynthesis registers a synthesis provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSynthesis(name string, factory func(SynthesisConfig) (tts.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.synthesis[name] = factory
}

// RegisterTranscode registers a transcode processor factory under name.
func (r *Registry) RegisterTranscode(name string, factory func() (transcode.Processor, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcode[name] = factory
}

// CreateSynthesis instantiates the synthesis provider selected by
// cfg.Backend. Returns [ErrProviderNotRegistered] if no factory has been
// registered for that name.
func (r *Registry) CreateSynthesis(cfg SynthesisConfig) (tts.Provider, error) {
	r.mu.RLock()
	factory, ok := r.synthesis[cfg.Backend]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: synthesis/%q", ErrProviderNotRegistered, cfg.Backend)
	}
	return factory(cfg)
}

// CreateTranscode instantiates the transcode processor registered under
// name.
func (r *Registry) CreateTranscode(name string) (transcode.Processor, error) {
	r.mu.RLock()
	factory, ok := r.transcode[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: transcode/%q", ErrProviderNotRegistered, name)
	}
	return factory()
}
