// Package tts defines the Provider interface for speech synthesis backends.
//
// A synthesis provider wraps a text-to-speech service (Microsoft Edge TTS,
// the OpenAI speech API, or a remote streaming endpoint) and presents a
// uniform one-shot interface: text in, encoded audio out. Synthesis is the
// fallback path for lines that have no pre-recorded asset, so providers are
// called at most once per dispatched line and may take noticeable wall time.
//
// Implementations must be safe for concurrent use. Multiple synthesis
// requests may run in parallel (several speakers talking at once).
package tts

import (
	"context"
	"errors"
)

// ErrSynthesisUnavailable is returned when the backend cannot produce audio
// for a request: the service is unreachable, rejected the request, or the
// prepared text was empty. Callers treat it as "no audio for this line" and
// move on without retrying.
var ErrSynthesisUnavailable = errors.New("tts: synthesis unavailable")

// Gender values carried in a [Hint].
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
)

// Hint carries everything a backend may use to pick and shape a voice.
// Voice is the manifest voice name when one is known; backends that cannot
// map it fall back to a gender-appropriate default voice.
type Hint struct {
	// Voice is the resolved voice name, or "" when none applies.
	Voice string

	// Gender selects the default voice when Voice is unknown to the
	// backend. One of [GenderMale] or [GenderFemale]; "" means male.
	Gender string

	// Speed is the playback speed percentage (100 = normal). Backends
	// that support rate shaping apply it at synthesis time; others ignore
	// it and leave rate adjustment to the transcode stage.
	Speed int
}

// Provider is the abstraction over any synthesis backend.
//
// Synthesize renders text into a single encoded audio clip. The encoding is
// backend-specific (MP3 for the shipped edge and openai backends, 48 kHz
// mono PCM for the remote backend); the caller hands the bytes to the
// transcode stage, which sniffs the format. A non-nil error wraps
// [ErrSynthesisUnavailable] when the failure is the backend's.
type Provider interface {
	Synthesize(ctx context.Context, text string, hint Hint) ([]byte, error)
}
