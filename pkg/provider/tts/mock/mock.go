// Package mock provides a test double for the tts.Provider interface.
//
// Use Provider to return controlled audio and to verify the text and voice
// hints passed to the synthesis backend:
//
//	p := &mock.Provider{Audio: []byte("mp3-bytes")}
//	data, err := p.Synthesize(ctx, "Hello.", tts.Hint{Gender: tts.GenderFemale})
package mock

import (
	"context"
	"sync"

	"github.com/kvxd/aethervox/pkg/provider/tts"
)

// Call records a single invocation of Synthesize.
type Call struct {
	Text string
	Hint tts.Hint
}

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// Audio is returned from every successful Synthesize call.
	Audio []byte

	// Err, if non-nil, is returned instead of Audio.
	Err error

	// Delay, if set, is a function invoked before returning; tests use it
	// to block synthesis until released.
	Delay func(ctx context.Context) error

	calls []Call
}

var _ tts.Provider = (*Provider)(nil)

func (p *Provider) Synthesize(ctx context.Context, text string, hint tts.Hint) ([]byte, error) {
	p.mu.Lock()
	p.calls = append(p.calls, Call{Text: text, Hint: hint})
	delay := p.Delay
	p.mu.Unlock()

	if delay != nil {
		if err := delay(ctx); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return nil, p.Err
	}
	out := make([]byte, len(p.Audio))
	copy(out, p.Audio)
	return out, nil
}

// Calls returns a copy of all recorded invocations.
func (p *Provider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}
