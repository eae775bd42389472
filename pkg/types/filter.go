package types

import "fmt"

// FilterStage is a single audio transformation in a FilterSpec.
// Stages are applied in order by the transcode provider.
type FilterStage struct {
	// Kind names the transformation.
	Kind FilterKind

	// Tempo and Rate parameterize KindRate stages: playback tempo multiplier
	// and output sample rate. Zero values mean "unchanged".
	Tempo float64
	Rate  float64

	// Pitches parameterize KindPitchLayer stages: one layer per entry, mixed
	// back together. A single entry is a plain pitch shift.
	Pitches []float64

	// Echo parameters for KindEcho.
	EchoInGain, EchoOutGain float64
	EchoDelayMs             float64
	EchoDecay               float64
}

// FilterKind enumerates supported filter stages.
type FilterKind string

const (
	// KindRate adjusts tempo and sample rate together (pitch+speed shaping).
	KindRate FilterKind = "rate"

	// KindPitchLayer splits the signal into pitch-shifted layers and mixes
	// them back, used for layered or shifted voices.
	KindPitchLayer FilterKind = "pitch_layer"

	// KindEcho adds an echo tail.
	KindEcho FilterKind = "echo"

	// KindRobot applies a flanger/phaser chain for mechanical voices.
	KindRobot FilterKind = "robot"

	// KindSpeed appends a user-configured playback speed change with a short
	// leading pad.
	KindSpeed FilterKind = "speed"
)

// FilterSpec describes the audio filter graph for one message. An empty spec
// means the asset is played as-is.
type FilterSpec struct {
	Stages []FilterStage
}

// Empty reports whether no filtering is required.
func (s FilterSpec) Empty() bool { return len(s.Stages) == 0 }

// String renders a compact description for logging.
func (s FilterSpec) String() string {
	if s.Empty() {
		return "passthrough"
	}
	out := ""
	for i, st := range s.Stages {
		if i > 0 {
			out += ","
		}
		out += string(st.Kind)
	}
	return fmt.Sprintf("filters(%s)", out)
}
