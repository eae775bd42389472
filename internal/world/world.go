// Package world defines the narrow interface through which the pipeline
// observes the game host: live entity attributes, positions, the listener
// camera and ambient state such as cutscene or duty participation.
//
// The pipeline never talks to the host directly; everything it needs is
// behind Query so tests can substitute [mock.Query] and the host binding
// stays in one place.
package world

import (
	"context"

	"github.com/kvxd/aethervox/pkg/types"
)

// Location identifies where the listener currently is.
type Location struct {
	Region      string
	Zone        string
	Coordinates types.Vector3
}

// Query is the read-only world-state collaborator.
//
// ResolveLiveAttributes may block on host scheduling and therefore takes a
// context; the positional getters are snapshot reads that must not block,
// they are called every tick.
type Query interface {
	// ResolveLiveAttributes inspects the live entity with the given display
	// name (and base id, when known) and returns its current physical
	// attributes. Returns nil attributes when no such entity is nearby.
	ResolveLiveAttributes(ctx context.Context, name string, baseID uint32) (*types.NpcAttributes, error)

	// SpeakerPosition returns the world position of the named entity, if it
	// is currently rendered.
	SpeakerPosition(name string, baseID uint32) (types.Vector3, bool)

	// ListenerView returns the listener position and camera orientation.
	ListenerView() (types.CameraView, bool)

	// PlayerName returns the local player's full name, or "" when not
	// logged in.
	PlayerName() string

	IsInCutscene() bool
	IsInDuty() bool

	// Location describes where the listener is, for diagnostic reports.
	Location() Location

	// ActiveQuests lists the quest names currently accepted, for diagnostic
	// reports.
	ActiveQuests() []string
}
