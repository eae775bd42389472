// Package audio provides the sample types shared by the playback pipeline:
// decoded sample streams, mixable tracks with live volume and pan, and the
// PCM conversion helpers the transcode stage uses to normalize backend
// output. All streams are mono float32 at [SampleRate]; the mixer widens to
// stereo when applying pan.
package audio

import (
	"io"
	"time"
)

// SampleRate is the pipeline-wide sample rate. Every stream entering the
// mixer has been resampled to it.
const SampleRate = 48000

// Stream is a pull-based source of mono float32 samples at [SampleRate].
// Read returns io.EOF when the stream is exhausted; implementations may
// return a short count together with io.EOF on the final read.
type Stream interface {
	Read(p []float32) (int, error)

	// Duration is the total length of the stream.
	Duration() time.Duration

	// Position is the play cursor as a duration from the start.
	Position() time.Duration
}

// Buffer is an in-memory Stream over fully decoded samples.
type Buffer struct {
	samples []float32
	pos     int
}

var _ Stream = (*Buffer)(nil)

// NewBuffer wraps already-decoded mono samples at [SampleRate].
func NewBuffer(samples []float32) *Buffer {
	return &Buffer{samples: samples}
}

// NewBufferFromPCM16 decodes little-endian int16 mono PCM at srcRate,
// resampling to [SampleRate] when needed.
func NewBufferFromPCM16(pcm []byte, srcRate int) *Buffer {
	if srcRate != SampleRate {
		pcm = ResampleMono16(pcm, srcRate, SampleRate)
	}
	return &Buffer{samples: PCM16ToFloat32(pcm)}
}

func (b *Buffer) Read(p []float32) (int, error) {
	if b.pos >= len(b.samples) {
		return 0, io.EOF
	}
	n := copy(p, b.samples[b.pos:])
	b.pos += n
	if b.pos >= len(b.samples) {
		return n, io.EOF
	}
	return n, nil
}

func (b *Buffer) Duration() time.Duration {
	return samplesToDuration(len(b.samples))
}

func (b *Buffer) Position() time.Duration {
	return samplesToDuration(b.pos)
}

// Len returns the total number of samples.
func (b *Buffer) Len() int {
	return len(b.samples)
}

func samplesToDuration(n int) time.Duration {
	return time.Duration(n) * time.Second / SampleRate
}
