// Package device plays the mixer output through the host's default audio
// device using oto. Exactly one Device may exist per process; oto allows a
// single context.
package device

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/kvxd/aethervox/pkg/audio"
)

// Option is a functional option for the Device.
type Option func(*settings)

type settings struct {
	bufferSize time.Duration
}

// WithBufferSize overrides oto's default device buffer size. Smaller
// buffers reduce latency at the cost of underrun risk.
func WithBufferSize(d time.Duration) Option {
	return func(s *settings) {
		s.bufferSize = d
	}
}

// Source is the stereo sample stream the device pulls from; the mixer
// satisfies it.
type Source interface {
	Read(p []float32) (int, error)
}

// Device drives a Source through the host audio output.
type Device struct {
	ctx    *oto.Context
	player *oto.Player
}

// New opens the host audio device at the pipeline sample rate and starts
// pulling from src. It blocks until the device is ready.
func New(src Source, opts ...Option) (*Device, error) {
	var s settings
	for _, o := range opts {
		o(&s)
	}

	op := &oto.NewContextOptions{
		SampleRate:   audio.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   s.bufferSize,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("device: create context: %w", err)
	}
	<-ready

	player := ctx.NewPlayer(&pcmReader{src: src})
	player.Play()

	return &Device{ctx: ctx, player: player}, nil
}

// Close stops playback and releases the device.
func (d *Device) Close() error {
	if err := d.player.Close(); err != nil {
		return fmt.Errorf("device: close player: %w", err)
	}
	return nil
}

// pcmReader adapts the float32 Source to the byte stream oto consumes.
type pcmReader struct {
	src     Source
	scratch []float32
}

func (r *pcmReader) Read(p []byte) (int, error) {
	samples := len(p) / 2
	if cap(r.scratch) < samples {
		r.scratch = make([]float32, samples)
	}
	buf := r.scratch[:samples]

	n, err := r.src.Read(buf)
	if err != nil {
		return 0, err
	}
	copy(p, audio.Float32ToPCM16(buf[:n]))
	return n * 2, nil
}
