package audio_test

import (
	"io"
	"math"
	"testing"

	"github.com/kvxd/aethervox/pkg/audio"
)

func TestBufferRead(t *testing.T) {
	b := audio.NewBuffer([]float32{0.1, 0.2, 0.3, 0.4, 0.5})

	buf := make([]float32, 3)
	n, err := b.Read(buf)
	if n != 3 || err != nil {
		t.Fatalf("first read = (%d, %v), want (3, nil)", n, err)
	}

	n, err = b.Read(buf)
	if n != 2 || err != io.EOF {
		t.Fatalf("final read = (%d, %v), want (2, EOF)", n, err)
	}

	n, err = b.Read(buf)
	if n != 0 || err != io.EOF {
		t.Fatalf("past-end read = (%d, %v), want (0, EOF)", n, err)
	}
}

func TestBufferFromPCM16Resamples(t *testing.T) {
	// One second of silence at 24 kHz becomes one second at 48 kHz.
	pcm := make([]byte, 24000*2)
	b := audio.NewBufferFromPCM16(pcm, 24000)
	if got := b.Len(); got != audio.SampleRate {
		t.Errorf("resampled length = %d samples, want %d", got, audio.SampleRate)
	}
}

func TestTrackVolumeApplied(t *testing.T) {
	tr := audio.NewTrack(audio.NewBuffer([]float32{1, 1, 1, 1}), nil)
	tr.SetVolume(0.5)

	out := make([]float32, 8)
	n, err := tr.ReadStereo(out)
	if n != 8 || err != io.EOF {
		t.Fatalf("ReadStereo = (%d, %v), want (8, EOF)", n, err)
	}
	// Centered pan puts equal power on both channels.
	want := float32(0.5 * math.Sin(math.Pi/4))
	if diff := out[0] - want; diff > 1e-4 || diff < -1e-4 {
		t.Errorf("left sample = %v, want %v", out[0], want)
	}
	if out[0] != out[1] {
		t.Errorf("centered pan: left %v != right %v", out[0], out[1])
	}
}

func TestTrackHardPan(t *testing.T) {
	tr := audio.NewTrack(audio.NewBuffer([]float32{1, 1}), nil)
	tr.SetPan(-1)

	out := make([]float32, 4)
	if _, err := tr.ReadStereo(out); err != io.EOF {
		t.Fatalf("ReadStereo: %v", err)
	}
	if out[0] < 0.999 {
		t.Errorf("hard left pan: left = %v, want ~1", out[0])
	}
	if out[1] > 1e-4 {
		t.Errorf("hard left pan: right = %v, want ~0", out[1])
	}
}

func TestTrackClamps(t *testing.T) {
	tr := audio.NewTrack(audio.NewBuffer(nil), nil)
	tr.SetVolume(3)
	if got := tr.Volume(); got != 1 {
		t.Errorf("volume = %v, want clamped to 1", got)
	}
	tr.SetPan(-7)
	if got := tr.Pan(); got != -1 {
		t.Errorf("pan = %v, want clamped to -1", got)
	}
}

func TestTrackCompletionFiresOnceAtEOF(t *testing.T) {
	fired := 0
	tr := audio.NewTrack(audio.NewBuffer([]float32{1}), func() { fired++ })

	out := make([]float32, 4)
	tr.ReadStereo(out)
	tr.ReadStereo(out)
	tr.Complete()

	if fired != 1 {
		t.Errorf("completion fired %d times, want 1", fired)
	}
	if !tr.Completed() {
		t.Error("track not marked completed")
	}
}

func TestTrackBeginStopOnlyOnce(t *testing.T) {
	tr := audio.NewTrack(audio.NewBuffer(nil), nil)
	if !tr.BeginStop() {
		t.Fatal("first BeginStop returned false")
	}
	if tr.BeginStop() {
		t.Fatal("second BeginStop returned true")
	}
	if tr.Playing() {
		t.Error("stopping track still reports playing")
	}
}
