// Package edge provides a tts.Provider backed by the Microsoft Edge
// read-aloud service via edge-tts-go. It needs no API key, which makes it
// the default backend.
package edge

import (
	"context"
	"fmt"

	"github.com/wujunwei928/edge-tts-go/edge_tts"

	"github.com/kvxd/aethervox/pkg/provider/tts"
)

const (
	defaultMaleVoice   = "en-GB-RyanNeural"
	defaultFemaleVoice = "en-GB-SoniaNeural"
)

// Option is a functional option for the edge Provider.
type Option func(*Provider)

// WithVoices overrides the default male and female neural voices. Empty
// values keep the defaults.
func WithVoices(male, female string) Option {
	return func(p *Provider) {
		if male != "" {
			p.maleVoice = male
		}
		if female != "" {
			p.femaleVoice = female
		}
	}
}

// Provider implements tts.Provider using the Edge read-aloud service.
// Output is MP3.
type Provider struct {
	maleVoice   string
	femaleVoice string
}

var _ tts.Provider = (*Provider)(nil)

// New constructs an edge Provider.
func New(opts ...Option) *Provider {
	p := &Provider{
		maleVoice:   defaultMaleVoice,
		femaleVoice: defaultFemaleVoice,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Synthesize renders text with the gender-appropriate neural voice. The
// manifest voice name in hint.Voice is not an Edge voice, so only the
// gender is consulted.
func (p *Provider) Synthesize(ctx context.Context, text string, hint tts.Hint) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", tts.ErrSynthesisUnavailable)
	}

	voice := p.maleVoice
	if hint.Gender == tts.GenderFemale {
		voice = p.femaleVoice
	}

	opts := []edge_tts.CommunicateOption{edge_tts.SetVoice(voice)}
	if hint.Speed != 0 && hint.Speed != 100 {
		opts = append(opts, edge_tts.SetRate(fmt.Sprintf("%+d%%", hint.Speed-100)))
	}

	conn, err := edge_tts.NewCommunicate(text, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: edge: %v", tts.ErrSynthesisUnavailable, err)
	}

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := conn.Stream()
		done <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: edge: %v", tts.ErrSynthesisUnavailable, res.err)
		}
		if len(res.data) == 0 {
			return nil, fmt.Errorf("%w: edge returned no audio", tts.ErrSynthesisUnavailable)
		}
		return res.data, nil
	}
}
