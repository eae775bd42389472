package world_test

import (
	"context"
	"testing"

	"github.com/kvxd/aethervox/internal/world"
	"github.com/kvxd/aethervox/pkg/types"
)

func TestStateStartsEmpty(t *testing.T) {
	s := world.NewState()

	if got := s.PlayerName(); got != "" {
		t.Errorf("PlayerName = %q, want empty", got)
	}
	if _, ok := s.ListenerView(); ok {
		t.Error("ListenerView reported a camera before any update")
	}
	if _, ok := s.SpeakerPosition("Alma", 0); ok {
		t.Error("SpeakerPosition found an entity before any update")
	}
	npc, err := s.ResolveLiveAttributes(context.Background(), "Alma", 0)
	if err != nil || npc != nil {
		t.Errorf("ResolveLiveAttributes = %v, %v; want nil, nil", npc, err)
	}
}

func TestStateServesSnapshot(t *testing.T) {
	s := world.NewState()
	s.Update(world.Snapshot{
		PlayerName: "Aria Frost",
		Camera:     types.CameraView{Right: types.Vector3{X: 1}},
		HasCamera:  true,
		InDuty:     true,
		Region:     "Coerthas",
		Zone:       "Camp Dragonhead",
		Position:   types.Vector3{X: 3, Z: 7},
		Quests:     []string{"The Steps of Faith"},
		Entities: []world.Entity{{
			Name:     "Alma",
			BaseID:   1042,
			Position: types.Vector3{X: 5},
			Attributes: &types.NpcAttributes{
				Gender: "Female", Race: "Hyur", Body: "Adult",
			},
		}},
	})

	if got := s.PlayerName(); got != "Aria Frost" {
		t.Errorf("PlayerName = %q", got)
	}
	if !s.IsInDuty() || s.IsInCutscene() {
		t.Error("ambient flags wrong")
	}
	loc := s.Location()
	if loc.Region != "Coerthas" || loc.Zone != "Camp Dragonhead" {
		t.Errorf("Location = %+v", loc)
	}
	if pos, ok := s.SpeakerPosition("Alma", 0); !ok || pos.X != 5 {
		t.Errorf("SpeakerPosition = %v, %v", pos, ok)
	}

	npc, err := s.ResolveLiveAttributes(context.Background(), "Alma", 0)
	if err != nil {
		t.Fatalf("ResolveLiveAttributes: %v", err)
	}
	if npc == nil || npc.Gender != "Female" {
		t.Errorf("attributes = %+v", npc)
	}
}

func TestStateMatchesByBaseID(t *testing.T) {
	s := world.NewState()
	s.Update(world.Snapshot{Entities: []world.Entity{{
		Name: "Alma", BaseID: 1042, Position: types.Vector3{X: 2},
	}}})

	// The display name changed (a renamed or retitled entity) but the
	// base id is stable.
	if pos, ok := s.SpeakerPosition("Alma the Elder", 1042); !ok || pos.X != 2 {
		t.Errorf("lookup by base id = %v, %v", pos, ok)
	}
	if _, ok := s.SpeakerPosition("Alma the Elder", 9999); ok {
		t.Error("lookup matched a wrong base id")
	}
}

func TestResolveLiveAttributesHonorsContext(t *testing.T) {
	s := world.NewState()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.ResolveLiveAttributes(ctx, "Alma", 0); err == nil {
		t.Error("cancelled context not observed")
	}
}

func TestSnapshotReturnsCopies(t *testing.T) {
	s := world.NewState()
	s.Update(world.Snapshot{
		Quests: []string{"A Quest"},
		Entities: []world.Entity{{
			Name:       "Alma",
			Attributes: &types.NpcAttributes{Gender: "Female"},
		}},
	})

	quests := s.ActiveQuests()
	quests[0] = "mutated"
	if got := s.ActiveQuests(); got[0] != "A Quest" {
		t.Error("ActiveQuests shares its backing array")
	}

	npc, _ := s.ResolveLiveAttributes(context.Background(), "Alma", 0)
	npc.Gender = "Male"
	again, _ := s.ResolveLiveAttributes(context.Background(), "Alma", 0)
	if again.Gender != "Female" {
		t.Error("ResolveLiveAttributes shares its record")
	}
}
