// Package mock provides a configurable in-memory world.Query for tests.
package mock

import (
	"context"
	"sync"

	"github.com/kvxd/aethervox/internal/world"
	"github.com/kvxd/aethervox/pkg/types"
)

var _ world.Query = (*Query)(nil)

// Query is a world.Query whose answers come from plain fields. All methods
// are safe for concurrent use; tests mutate state through the setters.
type Query struct {
	mu sync.Mutex

	// Attributes maps display name to the live attributes returned by
	// ResolveLiveAttributes.
	Attributes map[string]*types.NpcAttributes

	// Positions maps display name to the position returned by
	// SpeakerPosition.
	Positions map[string]types.Vector3

	View       types.CameraView
	HasView    bool
	Player     string
	InCutscene bool
	InDuty     bool
	Loc        world.Location
	Quests     []string

	// ResolveErr, when set, is returned by every ResolveLiveAttributes call.
	ResolveErr error

	// ResolveCalls counts ResolveLiveAttributes invocations.
	ResolveCalls int
}

// New returns an empty mock with a listener at the origin looking down +Z.
func New() *Query {
	return &Query{
		Attributes: map[string]*types.NpcAttributes{},
		Positions:  map[string]types.Vector3{},
		View: types.CameraView{
			Forward: types.Vector3{Z: 1},
			Up:      types.Vector3{Y: 1},
			Right:   types.Vector3{X: 1},
		},
		HasView: true,
	}
}

func (q *Query) ResolveLiveAttributes(ctx context.Context, name string, baseID uint32) (*types.NpcAttributes, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ResolveCalls++
	if q.ResolveErr != nil {
		return nil, q.ResolveErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return q.Attributes[name].Clone(), nil
}

func (q *Query) SpeakerPosition(name string, baseID uint32) (types.Vector3, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pos, ok := q.Positions[name]
	return pos, ok
}

func (q *Query) ListenerView() (types.CameraView, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.View, q.HasView
}

func (q *Query) PlayerName() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.Player
}

func (q *Query) IsInCutscene() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.InCutscene
}

func (q *Query) IsInDuty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.InDuty
}

func (q *Query) Location() world.Location {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.Loc
}

func (q *Query) ActiveQuests() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.Quests...)
}

// SetPosition updates or adds a speaker position.
func (q *Query) SetPosition(name string, pos types.Vector3) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Positions[name] = pos
}

// SetAttributes updates or adds live attributes for a speaker.
func (q *Query) SetAttributes(name string, npc *types.NpcAttributes) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Attributes[name] = npc
}
