// Package mixer sums every active track into one stereo stream for the
// output device. The mixer owns the active-track set; the playback
// controller adds and removes tracks while the device thread reads, so the
// set is internally locked.
package mixer

import (
	"sync"

	"github.com/kvxd/aethervox/pkg/audio"
)

// Mixer sums tracks into interleaved stereo float32. The zero value is not
// usable; call New.
type Mixer struct {
	mu      sync.Mutex
	tracks  []*audio.Track
	scratch []float32
}

// New returns an empty mixer.
func New() *Mixer {
	return &Mixer{}
}

// Add inserts a track into the mix. The track is summed starting with the
// next read.
func (m *Mixer) Add(t *audio.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks = append(m.tracks, t)
}

// Remove takes a track out of the mix. Safe to call for a track that has
// already been removed.
func (m *Mixer) Remove(t *audio.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, have := range m.tracks {
		if have == t {
			m.tracks = append(m.tracks[:i], m.tracks[i+1:]...)
			return
		}
	}
}

// Tracks returns a snapshot of the active tracks.
func (m *Mixer) Tracks() []*audio.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*audio.Track, len(m.tracks))
	copy(out, m.tracks)
	return out
}

// Len returns the number of active tracks.
func (m *Mixer) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tracks)
}

// Read fills p with the sum of all active tracks, clamped to [-1, 1].
// Tracks that reach end-of-stream are dropped from the mix; the mix itself
// never ends, producing silence when no tracks are active. Always returns
// len(p) and a nil error so the output device keeps pulling.
func (m *Mixer) Read(p []float32) (int, error) {
	for i := range p {
		p[i] = 0
	}

	m.mu.Lock()
	if cap(m.scratch) < len(p) {
		m.scratch = make([]float32, len(p))
	}
	buf := m.scratch[:len(p)]

	kept := m.tracks[:0]
	for _, t := range m.tracks {
		n, err := t.ReadStereo(buf)
		for i := 0; i < n; i++ {
			p[i] += buf[i]
		}
		if err == nil {
			kept = append(kept, t)
		}
	}
	// Zero the dropped tail so finished tracks are collectable.
	for i := len(kept); i < len(m.tracks); i++ {
		m.tracks[i] = nil
	}
	m.tracks = kept
	m.mu.Unlock()

	for i, s := range p {
		if s > 1 {
			p[i] = 1
		} else if s < -1 {
			p[i] = -1
		}
	}
	return len(p), nil
}
