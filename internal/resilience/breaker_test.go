package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend down")

func TestBreakerDefaults(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test"}, nil)
	if b.trip != 3 {
		t.Errorf("trip = %d, want 3", b.trip)
	}
	if b.cooldown != 30*time.Second {
		t.Errorf("cooldown = %v, want 30s", b.cooldown)
	}
	if b.probes != 2 {
		t.Errorf("probes = %d, want 2", b.probes)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Trip: 3}, nil)

	for i := 0; i < 3; i++ {
		if err := b.Do(func() error { return errBackend }); !errors.Is(err, errBackend) {
			t.Fatalf("call %d: err = %v, want %v", i, err, errBackend)
		}
	}
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Errorf("after trip: err = %v, want ErrOpen", err)
	}
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Trip: 2}, nil)

	b.Do(func() error { return errBackend })
	b.Do(func() error { return nil })
	b.Do(func() error { return errBackend })

	// Two failures total but never two in a row.
	if err := b.Do(func() error { return nil }); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

func TestBreakerProbesAfterCooldown(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		Name:     "test",
		Trip:     1,
		Cooldown: 10 * time.Millisecond,
		Probes:   2,
	}, nil)

	b.Do(func() error { return errBackend })
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("during cooldown: err = %v, want ErrOpen", err)
	}

	time.Sleep(20 * time.Millisecond)

	// Two successful probes close the breaker again.
	for i := 0; i < 2; i++ {
		if err := b.Do(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: err = %v, want nil", i, err)
		}
	}
	if got := b.state; got != stateClosed {
		t.Errorf("state = %v, want closed", got)
	}
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		Name:     "test",
		Trip:     1,
		Cooldown: 10 * time.Millisecond,
	}, nil)

	b.Do(func() error { return errBackend })
	time.Sleep(20 * time.Millisecond)

	if err := b.Do(func() error { return errBackend }); !errors.Is(err, errBackend) {
		t.Fatalf("probe: err = %v, want backend error", err)
	}
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Errorf("after failed probe: err = %v, want ErrOpen", err)
	}
}

func TestBreakerProbeBudgetIsLimited(t *testing.T) {
	b := NewBreaker(BreakerConfig{
		Name:     "test",
		Trip:     1,
		Cooldown: 10 * time.Millisecond,
		Probes:   1,
	}, nil)

	b.Do(func() error { return errBackend })
	time.Sleep(20 * time.Millisecond)

	if !b.Allow() {
		t.Fatal("first probe not allowed")
	}
	if b.Allow() {
		t.Error("second probe allowed before first outcome recorded")
	}
	b.Record(nil)
}
