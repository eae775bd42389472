package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/kvxd/aethervox/pkg/provider/tts"
)

// countingProvider fails a fixed number of leading calls, then succeeds.
type countingProvider struct {
	audio []byte
	fail  int
	calls int
}

func (p *countingProvider) Synthesize(ctx context.Context, text string, hint tts.Hint) ([]byte, error) {
	p.calls++
	if p.calls <= p.fail {
		return nil, errBackend
	}
	return p.audio, nil
}

func TestSynthesizerPrimaryWins(t *testing.T) {
	primary := &countingProvider{audio: []byte("primary")}
	fallback := &countingProvider{audio: []byte("fallback")}
	s := NewSynthesizer(nil,
		NamedProvider{Name: "edge", Provider: primary},
		NamedProvider{Name: "openai", Provider: fallback},
	)

	data, err := s.Synthesize(context.Background(), "Hello.", tts.Hint{})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if string(data) != "primary" {
		t.Errorf("data = %q, want primary", data)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times, want 0", fallback.calls)
	}
}

func TestSynthesizerFallsBackOnFailure(t *testing.T) {
	primary := &countingProvider{fail: 1000}
	fallback := &countingProvider{audio: []byte("fallback")}
	s := NewSynthesizer(nil,
		NamedProvider{Name: "edge", Provider: primary},
		NamedProvider{Name: "openai", Provider: fallback},
	)

	data, err := s.Synthesize(context.Background(), "Hello.", tts.Hint{})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if string(data) != "fallback" {
		t.Errorf("data = %q, want fallback", data)
	}
}

func TestSynthesizerSkipsOpenPrimary(t *testing.T) {
	primary := &countingProvider{fail: 1000}
	fallback := &countingProvider{audio: []byte("fallback")}
	s := NewSynthesizer(nil,
		NamedProvider{Name: "edge", Provider: primary},
		NamedProvider{Name: "openai", Provider: fallback},
	)

	// Trip the primary's breaker.
	for i := 0; i < 3; i++ {
		if _, err := s.Synthesize(context.Background(), "Hello.", tts.Hint{}); err != nil {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	before := primary.calls

	if _, err := s.Synthesize(context.Background(), "Hello.", tts.Hint{}); err != nil {
		t.Fatalf("err = %v", err)
	}
	if primary.calls != before {
		t.Errorf("open primary still called (%d -> %d)", before, primary.calls)
	}
}

func TestSynthesizerAllFailing(t *testing.T) {
	s := NewSynthesizer(nil,
		NamedProvider{Name: "edge", Provider: &countingProvider{fail: 1000}},
		NamedProvider{Name: "openai", Provider: &countingProvider{fail: 1000}},
	)

	_, err := s.Synthesize(context.Background(), "Hello.", tts.Hint{})
	if !errors.Is(err, errBackend) {
		t.Errorf("err = %v, want last backend error", err)
	}
}

func TestSynthesizerAllOpen(t *testing.T) {
	p := &countingProvider{fail: 1000}
	s := NewSynthesizer(nil, NamedProvider{Name: "edge", Provider: p})

	for i := 0; i < 4; i++ {
		s.Synthesize(context.Background(), "Hello.", tts.Hint{})
	}

	_, err := s.Synthesize(context.Background(), "Hello.", tts.Hint{})
	if !errors.Is(err, tts.ErrSynthesisUnavailable) {
		t.Errorf("err = %v, want ErrSynthesisUnavailable", err)
	}
}

func TestSynthesizerCancelledRequestNotCounted(t *testing.T) {
	blocked := &countingProvider{fail: 1000}
	s := NewSynthesizer(nil, NamedProvider{Name: "edge", Provider: blocked})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Synthesize(ctx, "Hello.", tts.Hint{}); err == nil {
		t.Fatal("err = nil, want failure")
	}
	// A dead request must not move the breaker toward open.
	for _, b := range s.backends {
		if b.breaker.failures != 0 {
			t.Errorf("breaker failures = %d, want 0", b.breaker.failures)
		}
	}
}
