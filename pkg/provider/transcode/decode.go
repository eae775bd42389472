package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/kvxd/aethervox/pkg/audio"
	"github.com/kvxd/aethervox/pkg/types"
)

// Passthrough is a Processor that decodes src but ignores the filter spec.
// It keeps playback working on hosts without ffmpeg; filtered voices just
// lose their character effects.
type Passthrough struct{}

var _ Processor = Passthrough{}

func (Passthrough) Process(_ context.Context, src []byte, _ types.FilterSpec) (audio.Stream, error) {
	return Decode(src)
}

// Decode sniffs the container and returns a stream at the pipeline sample
// rate. MP3 and 16-bit PCM WAV are recognized; anything else is treated as
// raw 48 kHz mono s16le PCM, which is what the remote synthesis backend
// emits.
func Decode(src []byte) (audio.Stream, error) {
	if len(src) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrTranscodeFailed)
	}

	switch {
	case isMP3(src):
		return decodeMP3(src)
	case isWAV(src):
		return decodeWAV(src)
	default:
		return audio.NewBufferFromPCM16(src, audio.SampleRate), nil
	}
}

func isMP3(src []byte) bool {
	if bytes.HasPrefix(src, []byte("ID3")) {
		return true
	}
	// Frame sync: 11 set bits.
	return len(src) >= 2 && src[0] == 0xFF && src[1]&0xE0 == 0xE0
}

func isWAV(src []byte) bool {
	return len(src) >= 12 && bytes.HasPrefix(src, []byte("RIFF")) && bytes.Equal(src[8:12], []byte("WAVE"))
}

func decodeMP3(src []byte) (audio.Stream, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: mp3: %v", ErrTranscodeFailed, err)
	}

	// go-mp3 always emits 16-bit stereo at the file's native rate.
	pcm, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: mp3 read: %v", ErrTranscodeFailed, err)
	}
	mono := audio.StereoToMono(pcm)
	return audio.NewBufferFromPCM16(mono, dec.SampleRate()), nil
}

// decodeWAV handles canonical 16-bit PCM RIFF files. Compressed or float
// WAV variants go through ffmpeg instead.
func decodeWAV(src []byte) (audio.Stream, error) {
	r := bytes.NewReader(src[12:])
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, fmt.Errorf("%w: wav: missing data chunk", ErrTranscodeFailed)
		}
		size := binary.LittleEndian.Uint32(hdr[4:])

		switch string(hdr[:4]) {
		case "fmt ":
			fmtChunk := make([]byte, size)
			if _, err := io.ReadFull(r, fmtChunk); err != nil {
				return nil, fmt.Errorf("%w: wav: short fmt chunk", ErrTranscodeFailed)
			}
			format := binary.LittleEndian.Uint16(fmtChunk[0:])
			channels := int(binary.LittleEndian.Uint16(fmtChunk[2:]))
			rate := int(binary.LittleEndian.Uint32(fmtChunk[4:]))
			bits := binary.LittleEndian.Uint16(fmtChunk[14:])
			if format != 1 || bits != 16 {
				return nil, fmt.Errorf("%w: wav: unsupported format %d/%d-bit", ErrTranscodeFailed, format, bits)
			}
			return decodeWAVData(r, channels, rate)
		default:
			// Chunks are word-aligned.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("%w: wav: truncated chunk", ErrTranscodeFailed)
			}
		}
	}
}

func decodeWAVData(r *bytes.Reader, channels, rate int) (audio.Stream, error) {
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return nil, fmt.Errorf("%w: wav: missing data chunk", ErrTranscodeFailed)
		}
		size := binary.LittleEndian.Uint32(hdr[4:])
		if string(hdr[:4]) != "data" {
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return nil, fmt.Errorf("%w: wav: truncated chunk", ErrTranscodeFailed)
			}
			continue
		}

		pcm := make([]byte, size)
		if n, err := io.ReadFull(r, pcm); err != nil {
			if err != io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("%w: wav: short data chunk", ErrTranscodeFailed)
			}
			pcm = pcm[:n]
		}
		if channels == 2 {
			pcm = audio.StereoToMono(pcm)
		}
		return audio.NewBufferFromPCM16(pcm, rate), nil
	}
}
