package transcode

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/kvxd/aethervox/pkg/audio"
	"github.com/kvxd/aethervox/pkg/types"
)

// FFmpeg is a Processor that shells out to the ffmpeg binary. Input is fed
// over stdin and raw 48 kHz mono s16le PCM is read back over stdout, so no
// temp files are involved.
type FFmpeg struct {
	// Binary is the ffmpeg executable; "ffmpeg" resolves via PATH.
	Binary string
}

var _ Processor = (*FFmpeg)(nil)

// NewFFmpeg returns an FFmpeg processor and verifies the binary exists.
func NewFFmpeg() (*FFmpeg, error) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("transcode: ffmpeg not found: %w", err)
	}
	return &FFmpeg{Binary: path}, nil
}

func (f *FFmpeg) Process(ctx context.Context, src []byte, spec types.FilterSpec) (audio.Stream, error) {
	if spec.Empty() {
		// Nothing to filter; skip the process spawn entirely.
		return Decode(src)
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-filter_complex", FilterArgs(spec),
		"-f", "s16le", "-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(audio.SampleRate), "-ac", "1",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, f.Binary, args...)
	cmd.Stdin = bytes.NewReader(src)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: ffmpeg: %v: %s", ErrTranscodeFailed, err, strings.TrimSpace(errBuf.String()))
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("%w: ffmpeg produced no output", ErrTranscodeFailed)
	}
	return audio.NewBufferFromPCM16(out.Bytes(), audio.SampleRate), nil
}

// FilterArgs renders spec as an ffmpeg filter_complex expression. Stages
// are joined in order with commas, matching the order the effect selector
// emits them.
func FilterArgs(spec types.FilterSpec) string {
	parts := make([]string, 0, len(spec.Stages))
	for _, st := range spec.Stages {
		switch st.Kind {
		case types.KindRate:
			parts = append(parts, fmt.Sprintf("atempo=%s,asetrate=%s", num(st.Tempo), num(st.Rate)))
		case types.KindPitchLayer:
			parts = append(parts, pitchLayer(st.Pitches))
		case types.KindEcho:
			parts = append(parts, fmt.Sprintf("aecho=%s:%s:%s:%s",
				num(st.EchoInGain), num(st.EchoOutGain), num(st.EchoDelayMs), num(st.EchoDecay)))
		case types.KindSpeed:
			// The short pad keeps atempo from clipping the first syllable.
			parts = append(parts, fmt.Sprintf("[0:a]apad=pad_dur=0.25,atempo=%s", num(st.Tempo)))
		case types.KindRobot:
			parts = append(parts, "flanger=depth=10:delay=15,volume=15dB,aphaser=in_gain=0.4")
		}
	}
	return strings.Join(parts, ",")
}

func pitchLayer(pitches []float64) string {
	if len(pitches) == 1 {
		return fmt.Sprintf("rubberband=pitch=%s", num(pitches[0]))
	}
	// Split into one chain per layer, pitch each, and mix back together.
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[0:a]asplit=%d", len(pitches)))
	for i := range pitches {
		fmt.Fprintf(&b, "[c%d]", i)
	}
	b.WriteString(";")
	for i, p := range pitches {
		fmt.Fprintf(&b, "[c%d]rubberband=pitch=%s[c%d];", i, num(p), i)
	}
	for i := range pitches {
		fmt.Fprintf(&b, "[c%d]", i)
	}
	fmt.Fprintf(&b, "amix=inputs=%d:duration=longest,volume=2", len(pitches))
	return b.String()
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
