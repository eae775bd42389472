package audio

import (
	"io"
	"math"
	"sync"
	"time"
)

// Track is a live, mixable sound source: a Stream plus the volume and pan
// the mixer applies while summing. Volume and pan are updated every tick by
// the playback controller; reads happen on the output device's thread, so
// all state is mutex-guarded.
//
// A track completes exactly once: either its stream reaches end-of-data or
// a fade-out brings it to zero and the controller removes it. The
// completion callback fires on whichever thread observed the end first.
type Track struct {
	mu         sync.Mutex
	stream     Stream
	volume     float32
	pan        float32
	stopping   bool
	completed  bool
	onComplete func()

	// Elapsed-time estimate for UI: the stream position advances only on
	// buffer pulls, so between pulls we extrapolate with the wall clock.
	lastKnown  time.Duration
	lastUpdate time.Time

	scratch []float32
}

// NewTrack wraps stream at full volume, centered.
func NewTrack(stream Stream, onComplete func()) *Track {
	return &Track{
		stream:     stream,
		volume:     1,
		onComplete: onComplete,
		lastUpdate: time.Now(),
	}
}

// ReadStereo fills p with interleaved stereo samples, applying the current
// volume and a constant-power pan. len(p) must be even. Returns io.EOF
// once the underlying stream is exhausted; the completion callback fires on
// the read that first observes the end.
func (t *Track) ReadStereo(p []float32) (int, error) {
	t.mu.Lock()
	mono := len(p) / 2
	if cap(t.scratch) < mono {
		t.scratch = make([]float32, mono)
	}
	buf := t.scratch[:mono]

	n, err := t.stream.Read(buf)
	if n > 0 {
		t.lastKnown = t.stream.Position()
		t.lastUpdate = time.Now()
	}

	vol := t.volume
	// Constant-power pan: -1 hard left, +1 hard right.
	norm := float64(1-t.pan) / 2
	left := float32(math.Sin(norm * math.Pi / 2))
	right := float32(math.Sin((1 - norm) * math.Pi / 2))

	for i := 0; i < n; i++ {
		s := buf[i] * vol
		p[i*2] = s * left
		p[i*2+1] = s * right
	}

	ended := err == io.EOF || n == 0
	fire := ended && !t.completed
	if fire {
		t.completed = true
		t.lastKnown = t.stream.Duration()
	}
	cb := t.onComplete
	t.mu.Unlock()

	if fire && cb != nil {
		cb()
	}
	if ended {
		return n * 2, io.EOF
	}
	return n * 2, nil
}

// Volume returns the current volume in [0, 1].
func (t *Track) Volume() float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

// SetVolume clamps v to [0, 1] and applies it on the next read.
func (t *Track) SetVolume(v float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = clamp(v, 0, 1)
}

// Pan returns the current pan in [-1, 1].
func (t *Track) Pan() float32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pan
}

// SetPan clamps p to [-1, 1] and applies it on the next read.
func (t *Track) SetPan(p float32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pan = clamp(p, -1, 1)
}

// Stopping reports whether a fade-out is in progress.
func (t *Track) Stopping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopping
}

// BeginStop marks the track as fading out. Returns false if a fade was
// already in progress, so only one fade runs per track.
func (t *Track) BeginStop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopping {
		return false
	}
	t.stopping = true
	return true
}

// Complete marks the track as finished and fires the completion callback if
// it has not fired yet. Called by the playback controller after a fade-out.
func (t *Track) Complete() {
	t.mu.Lock()
	fire := !t.completed
	t.completed = true
	cb := t.onComplete
	t.mu.Unlock()

	if fire && cb != nil {
		cb()
	}
}

// Completed reports whether the track has finished.
func (t *Track) Completed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed
}

// Playing reports whether the track is audible and not fading out.
func (t *Track) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.stopping && !t.completed
}

// Duration is the total length of the underlying stream.
func (t *Track) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stream.Duration()
}

// Elapsed estimates the play position, extrapolating between buffer pulls.
func (t *Track) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.completed {
		return t.stream.Duration()
	}
	est := t.lastKnown + time.Since(t.lastUpdate)
	if total := t.stream.Duration(); est > total {
		return total
	}
	return est
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
