// Package transcode turns encoded audio plus a filter spec into a decoded
// sample stream ready for the mixer. The shipped processors are an
// exec-based ffmpeg adapter, which supports the full filter vocabulary, and
// a pure-Go decoder that plays assets as-is when ffmpeg is not installed.
package transcode

import (
	"context"
	"errors"

	"github.com/kvxd/aethervox/pkg/audio"
	"github.com/kvxd/aethervox/pkg/types"
)

// ErrTranscodeFailed is returned when the processor cannot decode or filter
// the input. Callers drop the line rather than retrying.
var ErrTranscodeFailed = errors.New("transcode: processing failed")

// Processor decodes src (MP3, WAV, Ogg, or raw PCM) and applies the filter
// stages in spec, returning a stream at the pipeline sample rate.
//
// Implementations must be safe for concurrent use; several lines may be
// transcoded at once.
type Processor interface {
	Process(ctx context.Context, src []byte, spec types.FilterSpec) (audio.Stream, error)
}
