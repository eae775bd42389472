package playback_test

import (
	"testing"
	"time"

	"github.com/kvxd/aethervox/internal/config"
	"github.com/kvxd/aethervox/internal/playback"
	"github.com/kvxd/aethervox/internal/world/mock"
	"github.com/kvxd/aethervox/pkg/audio"
	"github.com/kvxd/aethervox/pkg/audio/mixer"
	"github.com/kvxd/aethervox/pkg/types"
)

func testController(w *mock.Query, cfg *config.Config) (*playback.Controller, *mixer.Mixer) {
	m := mixer.New()
	return playback.New(m, w, func() *config.Config { return cfg }, nil), m
}

func longStream() audio.Stream {
	return audio.NewBuffer(make([]float32, audio.SampleRate)) // one second
}

func talkMessage(id string) *types.DialogueMessage {
	return &types.DialogueMessage{
		ID:        id,
		Source:    types.ChannelTalk,
		Speaker:   "Estinien",
		Sentence:  "Begone.",
		AssetPath: id,
	}
}

func waitEvent(t *testing.T, ch <-chan types.PlaybackEvent) types.PlaybackEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no playback event")
		return types.PlaybackEvent{}
	}
}

func TestPlayStartsTrack(t *testing.T) {
	c, m := testController(mock.New(), config.Default())

	c.Play(talkMessage("a"), longStream(), false)

	ev := waitEvent(t, c.Started())
	if ev.Message.ID != "a" {
		t.Errorf("started id = %q", ev.Message.ID)
	}
	if m.Len() != 1 {
		t.Errorf("mixer tracks = %d, want 1", m.Len())
	}
	if !c.IsPlaying(types.ChannelTalk) {
		t.Error("channel not reported playing")
	}
}

func TestPlayReplacesSameID(t *testing.T) {
	c, m := testController(mock.New(), config.Default())

	c.Play(talkMessage("a"), longStream(), false)
	c.Play(talkMessage("a"), longStream(), false)

	if m.Len() != 1 {
		t.Errorf("mixer tracks = %d, want 1 after replacement", m.Len())
	}
	if c.ActiveCount() != 1 {
		t.Errorf("active = %d, want 1", c.ActiveCount())
	}
}

func TestTickAppliesChannelVolume(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.Volume = 50
	c, m := testController(mock.New(), cfg)

	c.Play(talkMessage("a"), longStream(), false)
	c.Tick()

	tracks := m.Tracks()
	if len(tracks) != 1 {
		t.Fatalf("tracks = %d", len(tracks))
	}
	if got := tracks[0].Volume(); got != 0.5 {
		t.Errorf("volume = %v, want 0.5", got)
	}
	if got := tracks[0].Pan(); got != 0 {
		t.Errorf("pan = %v, want 0 for non-directional channel", got)
	}
}

func TestTickSynthesisVolume(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.SynthesisVolume = 80
	c, m := testController(mock.New(), cfg)

	msg := talkMessage("a")
	msg.AssetPath = "" // synthesized
	c.Play(msg, longStream(), false)
	c.Tick()

	if got := m.Tracks()[0].Volume(); got-0.8 > 1e-6 || got-0.8 < -1e-6 {
		t.Errorf("volume = %v, want 0.8", got)
	}
}

func TestTickMuteSilencesTracks(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.Mute = true
	c, m := testController(mock.New(), cfg)

	c.Play(talkMessage("a"), longStream(), false)
	c.Tick()

	if got := m.Tracks()[0].Volume(); got != 0 {
		t.Errorf("volume = %v, want 0 when muted", got)
	}
}

func bubbleMessage(id, speaker string) *types.DialogueMessage {
	return &types.DialogueMessage{
		ID:        id,
		Source:    types.ChannelBubble,
		Speaker:   speaker,
		Sentence:  "Fresh fish, get your fresh fish!",
		AssetPath: id,
	}
}

func TestTickSpatialPanAndFalloff(t *testing.T) {
	w := mock.New()
	w.Player = "Aiko Yamada"
	w.Positions["Merchant"] = types.Vector3{X: 4, Y: 0, Z: 0}

	c, m := testController(w, config.Default())
	c.Play(bubbleMessage("a", "Merchant"), longStream(), false)
	c.Tick()

	track := m.Tracks()[0]
	// Distance 4 lands mid-band: 0.85 -> 0.3 over 3..5, so 0.575 at 4.
	if got := track.Volume(); got < 0.57 || got > 0.58 {
		t.Errorf("volume = %v, want ~0.575", got)
	}
	// Speaker is to the camera's right: pan = 4/20 = 0.2.
	if got := track.Pan(); got < 0.19 || got > 0.21 {
		t.Errorf("pan = %v, want 0.2", got)
	}
}

func TestFalloffNonIncreasingWithDistance(t *testing.T) {
	for _, duty := range []bool{false, true} {
		w := mock.New()
		w.Player = "Aiko Yamada"
		w.InDuty = duty

		c, m := testController(w, config.Default())
		c.Play(bubbleMessage("a", "Merchant"), longStream(), false)
		track := m.Tracks()[0]

		prev := float32(2)
		for d := float32(0); d <= 20; d += 0.25 {
			w.Positions["Merchant"] = types.Vector3{Z: d}
			c.Tick()
			got := track.Volume()
			if got > prev {
				t.Fatalf("duty=%v: volume rose from %v to %v at distance %v", duty, prev, got, d)
			}
			prev = got
		}
	}
}

func TestTickSpatialPanClamped(t *testing.T) {
	w := mock.New()
	w.Positions["Merchant"] = types.Vector3{X: 19.9, Y: 0, Z: 0}

	c, m := testController(w, config.Default())
	c.Play(bubbleMessage("a", "Merchant"), longStream(), false)
	c.Tick()

	if got := m.Tracks()[0].Pan(); got != 0.95 {
		t.Errorf("pan = %v, want clamped 0.95", got)
	}
}

func TestTickDutyFloor(t *testing.T) {
	w := mock.New()
	w.InDuty = true
	w.Positions["Merchant"] = types.Vector3{X: 0, Y: 0, Z: 19}

	c, m := testController(w, config.Default())
	c.Play(bubbleMessage("a", "Merchant"), longStream(), false)
	c.Tick()

	// Far end of the duty bands stays above the 0.55 floor.
	if got := m.Tracks()[0].Volume(); got < 0.55 || got > 0.57 {
		t.Errorf("volume = %v, want within duty floor band", got)
	}
}

func TestTickNoPositionFallsBack(t *testing.T) {
	w := mock.New()
	cfg := config.Default()
	c, m := testController(w, cfg)

	c.Play(bubbleMessage("a", "Stranger"), longStream(), false)
	c.Tick()

	// Without a live position the flat channel volume stands.
	if got := m.Tracks()[0].Volume(); got != 1 {
		t.Errorf("volume = %v, want 1", got)
	}
}

func TestStopAllFadesAndCompletes(t *testing.T) {
	c, m := testController(mock.New(), config.Default())
	c.Play(talkMessage("a"), longStream(), false)

	c.StopAll()

	ev := waitEvent(t, c.Completed())
	if ev.Message.ID != "a" {
		t.Errorf("completed id = %q", ev.Message.ID)
	}
	if m.Len() != 0 {
		t.Errorf("mixer tracks = %d after stop, want 0", m.Len())
	}
	if c.ActiveCount() != 0 {
		t.Errorf("active = %d, want 0", c.ActiveCount())
	}
}

func TestStopChannelLeavesOthers(t *testing.T) {
	c, _ := testController(mock.New(), config.Default())
	c.Play(talkMessage("a"), longStream(), false)
	c.Play(bubbleMessage("b", "Merchant"), longStream(), false)

	c.Stop(types.ChannelTalk)
	waitEvent(t, c.Completed())

	if c.IsPlaying(types.ChannelTalk) {
		t.Error("talk channel still playing")
	}
	if !c.IsPlaying(types.ChannelBubble) {
		t.Error("bubble channel stopped too")
	}
}

func TestSkipStopsMostRecent(t *testing.T) {
	c, _ := testController(mock.New(), config.Default())
	c.Play(talkMessage("first"), longStream(), false)
	c.Play(talkMessage("second"), longStream(), false)

	c.Skip()
	ev := waitEvent(t, c.Completed())
	if ev.Message.ID != "second" {
		t.Errorf("skipped id = %q, want second", ev.Message.ID)
	}
}

func TestNaturalCompletionFromMixerRead(t *testing.T) {
	c, m := testController(mock.New(), config.Default())
	c.Play(talkMessage("a"), audio.NewBuffer(make([]float32, 64)), false)

	out := make([]float32, 256)
	m.Read(out)

	ev := waitEvent(t, c.Completed())
	if ev.Message.ID != "a" {
		t.Errorf("completed id = %q", ev.Message.ID)
	}
	if c.ActiveCount() != 0 {
		t.Errorf("active = %d, want 0", c.ActiveCount())
	}
}

func TestHistoryNewestFirstAndDeduped(t *testing.T) {
	c, _ := testController(mock.New(), config.Default())
	c.Play(talkMessage("a"), longStream(), false)
	c.Play(talkMessage("b"), longStream(), false)
	c.Play(talkMessage("a"), longStream(), false) // replayed line moves up

	h := c.History()
	if len(h) != 2 {
		t.Fatalf("history = %d entries, want 2", len(h))
	}
	if h[0].Message.ID != "a" || h[1].Message.ID != "b" {
		t.Errorf("history order = [%s %s], want [a b]", h[0].Message.ID, h[1].Message.ID)
	}
	if !h[0].Playing {
		t.Error("live history entry not marked playing")
	}
}
