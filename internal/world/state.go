package world

import (
	"context"
	"sync"
	"time"

	"github.com/kvxd/aethervox/pkg/types"
)

// entityTTL bounds how long a pushed entity stays queryable. The host
// re-pushes nearby entities with every snapshot; anything older has
// despawned or left render range.
const entityTTL = 10 * time.Second

// Entity is one nearby speaker as pushed by the host.
type Entity struct {
	Name       string
	BaseID     uint32
	Position   types.Vector3
	Attributes *types.NpcAttributes
}

// Snapshot is the full host state pushed with each update. Entities listed
// replace earlier pushes of the same name.
type Snapshot struct {
	PlayerName string
	Camera     types.CameraView
	HasCamera  bool
	InCutscene bool
	InDuty     bool
	Region     string
	Zone       string
	Position   types.Vector3
	Quests     []string
	Entities   []Entity
}

type trackedEntity struct {
	Entity
	seen time.Time
}

// State is the live Query implementation. The host pushes snapshots; the
// pipeline reads them. Safe for concurrent use.
type State struct {
	mu       sync.RWMutex
	snap     Snapshot
	entities map[string]trackedEntity
}

var _ Query = (*State)(nil)

// NewState returns an empty State: no player, no camera, no entities.
func NewState() *State {
	return &State{entities: make(map[string]trackedEntity)}
}

// Update replaces the ambient state and refreshes the pushed entities.
func (s *State) Update(snap Snapshot) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	for _, e := range snap.Entities {
		s.entities[e.Name] = trackedEntity{Entity: e, seen: now}
	}
	for name, e := range s.entities {
		if now.Sub(e.seen) > entityTTL {
			delete(s.entities, name)
		}
	}
}

func (s *State) ResolveLiveAttributes(ctx context.Context, name string, baseID uint32) (*types.NpcAttributes, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.lookup(name, baseID); ok {
		return e.Attributes.Clone(), nil
	}
	return nil, nil
}

func (s *State) SpeakerPosition(name string, baseID uint32) (types.Vector3, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.lookup(name, baseID)
	return e.Position, ok
}

// lookup matches by name first, then by base id for renamed entities.
// Callers hold s.mu.
func (s *State) lookup(name string, baseID uint32) (trackedEntity, bool) {
	if e, ok := s.entities[name]; ok {
		return e, true
	}
	if baseID != 0 {
		for _, e := range s.entities {
			if e.BaseID == baseID {
				return e, true
			}
		}
	}
	return trackedEntity{}, false
}

func (s *State) ListenerView() (types.CameraView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Camera, s.snap.HasCamera
}

func (s *State) PlayerName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.PlayerName
}

func (s *State) IsInCutscene() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.InCutscene
}

func (s *State) IsInDuty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.InDuty
}

func (s *State) Location() Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Location{
		Region:      s.snap.Region,
		Zone:        s.snap.Zone,
		Coordinates: s.snap.Position,
	}
}

func (s *State) ActiveQuests() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.snap.Quests...)
}
