// Package resilience keeps a flaky synthesis backend from stalling
// dispatch. A [Breaker] tracks consecutive failures per backend and
// short-circuits calls while the backend is down; [Synthesizer] chains
// backends behind breakers so a failing primary is skipped in favour of
// a healthy fallback.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned when a breaker is open and its cooldown has not
// elapsed yet.
var ErrOpen = errors.New("resilience: breaker open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateProbing
)

func (s breakerState) String() string {
	switch s {
	case stateClosed:
		return "closed"
	case stateOpen:
		return "open"
	case stateProbing:
		return "probing"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a [Breaker]. Zero values fall back to defaults.
type BreakerConfig struct {
	// Name labels the breaker in log lines, usually the backend name.
	Name string

	// Trip is how many consecutive failures open the breaker. Default 3.
	Trip int

	// Cooldown is how long the breaker stays open before letting probe
	// calls through again. Default 30s.
	Cooldown time.Duration

	// Probes is how many calls may pass while probing; that many
	// consecutive successes close the breaker, any failure re-opens it.
	// Default 2.
	Probes int
}

// Breaker is a three-state circuit breaker. Safe for concurrent use.
type Breaker struct {
	name     string
	trip     int
	cooldown time.Duration
	probes   int
	logger   *slog.Logger

	mu        sync.Mutex
	state     breakerState
	failures  int
	openedAt  time.Time
	probeUsed int
	probeOK   int
}

func NewBreaker(cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if cfg.Trip <= 0 {
		cfg.Trip = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Breaker{
		name:     cfg.Name,
		trip:     cfg.Trip,
		cooldown: cfg.Cooldown,
		probes:   cfg.Probes,
		logger:   logger,
	}
}

// Allow reports whether a call may proceed right now. A true result must
// be followed by exactly one Record call with the outcome.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return true
	case stateOpen:
		if time.Since(b.openedAt) < b.cooldown {
			return false
		}
		b.state = stateProbing
		b.probeUsed = 0
		b.probeOK = 0
		b.logger.Info("breaker probing", "name", b.name)
	case stateProbing:
		if b.probeUsed >= b.probes {
			return false
		}
	}
	b.probeUsed++
	return true
}

// Record feeds one call outcome back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.onSuccess()
	} else {
		b.onFailure()
	}
}

func (b *Breaker) onFailure() {
	switch b.state {
	case stateProbing:
		// One failed probe is enough to re-open.
		b.state = stateOpen
		b.openedAt = time.Now()
		b.logger.Warn("breaker re-opened", "name", b.name)
	case stateClosed:
		b.failures++
		if b.failures >= b.trip {
			b.state = stateOpen
			b.openedAt = time.Now()
			b.logger.Warn("breaker opened", "name", b.name, "failures", b.failures)
		}
	}
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case stateProbing:
		b.probeOK++
		if b.probeOK >= b.probes {
			b.state = stateClosed
			b.failures = 0
			b.logger.Info("breaker closed", "name", b.name)
		}
	case stateClosed:
		b.failures = 0
	}
}

// Do runs fn behind the breaker, returning [ErrOpen] without calling it
// when the breaker disallows the call.
func (b *Breaker) Do(fn func() error) error {
	if !b.Allow() {
		return ErrOpen
	}
	err := fn()
	b.Record(err)
	return err
}
