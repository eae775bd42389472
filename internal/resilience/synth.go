package resilience

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kvxd/aethervox/pkg/provider/tts"
)

// backend is one synthesis provider behind its breaker.
type backend struct {
	name     string
	provider tts.Provider
	breaker  *Breaker
}

// Synthesizer is a [tts.Provider] that tries its backends in order,
// skipping any whose breaker is open. The first backend to produce audio
// wins; when every backend fails or is open the error wraps
// [tts.ErrSynthesisUnavailable] so dispatch drops the line as usual.
type Synthesizer struct {
	backends []backend
	logger   *slog.Logger
}

// NewSynthesizer chains providers in priority order. Names are used for
// breaker labels and log lines.
func NewSynthesizer(logger *slog.Logger, named ...NamedProvider) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Synthesizer{logger: logger}
	for _, n := range named {
		s.backends = append(s.backends, backend{
			name:     n.Name,
			provider: n.Provider,
			breaker:  NewBreaker(BreakerConfig{Name: "synthesis/" + n.Name}, logger),
		})
	}
	return s
}

// NamedProvider pairs a synthesis backend with its registry name.
type NamedProvider struct {
	Name     string
	Provider tts.Provider
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string, hint tts.Hint) ([]byte, error) {
	var lastErr error
	for i, b := range s.backends {
		if !b.breaker.Allow() {
			s.logger.Debug("synthesis backend skipped", "backend", b.name)
			continue
		}
		data, err := b.provider.Synthesize(ctx, text, hint)
		if err != nil && ctx.Err() != nil {
			// The caller gave up. Not the backend's fault, so the
			// outcome is not recorded against its breaker.
			return nil, err
		}
		b.breaker.Record(err)
		if err == nil {
			if i > 0 {
				s.logger.Info("synthesized via fallback backend", "backend", b.name)
			}
			return data, nil
		}
		s.logger.Warn("synthesis backend failed", "backend", b.name, "err", err)
		lastErr = err
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: all backends open", tts.ErrSynthesisUnavailable)
}
