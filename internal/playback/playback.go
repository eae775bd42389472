// Package playback owns the set of live tracks: starting them, updating
// their volume and pan every tick, fading them out on stop or skip, and
// notifying the queues when a line starts or finishes. It is the only
// component that touches the mixer's track set.
package playback

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kvxd/aethervox/internal/config"
	"github.com/kvxd/aethervox/internal/world"
	"github.com/kvxd/aethervox/pkg/audio"
	"github.com/kvxd/aethervox/pkg/audio/mixer"
	"github.com/kvxd/aethervox/pkg/types"
)

const (
	fadeDuration = 150 * time.Millisecond
	fadeInterval = 25 * time.Millisecond

	historyLimit = 100
)

// falloffBand is one segment of the piecewise-linear distance falloff.
type falloffBand struct {
	distStart, distEnd float32
	volStart, volEnd   float32
}

// entry pairs a playing message with its track, in start order.
type entry struct {
	msg   *types.DialogueMessage
	track *audio.Track
}

// HistoryEntry is one line of the replay history.
type HistoryEntry struct {
	Message *types.DialogueMessage
	Playing bool
	// Percent is playback progress in [0, 1]; 1 for finished lines.
	Percent float32
}

// Controller drives all live tracks. Play and the Stop methods may be
// called from any goroutine; Tick runs on the daemon's frame loop.
type Controller struct {
	mixer  *mixer.Mixer
	world  world.Query
	cfg    func() *config.Config
	logger *slog.Logger

	mu      sync.Mutex
	playing []entry
	history []*types.DialogueMessage

	started   chan types.PlaybackEvent
	completed chan types.PlaybackEvent
}

// New constructs a Controller. cfg is polled on every tick, never stored.
func New(m *mixer.Mixer, w world.Query, cfg func() *config.Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		mixer:     m,
		world:     w,
		cfg:       cfg,
		logger:    logger,
		started:   make(chan types.PlaybackEvent, 16),
		completed: make(chan types.PlaybackEvent, 16),
	}
}

// Started delivers one event per line that begins playing.
func (c *Controller) Started() <-chan types.PlaybackEvent { return c.started }

// Completed delivers one event per line that finishes, is stopped, or is
// skipped. The queues use it to advance.
func (c *Controller) Completed() <-chan types.PlaybackEvent { return c.completed }

// Play starts a decoded stream for msg. A line already playing with the
// same id is replaced without a completion event for the old track. When
// replay is true the line is not re-inserted into history.
func (c *Controller) Play(msg *types.DialogueMessage, stream audio.Stream, replay bool) {
	var track *audio.Track
	track = audio.NewTrack(stream, func() {
		c.finish(msg, track)
	})

	c.mu.Lock()
	for i, e := range c.playing {
		if e.msg.ID == msg.ID {
			c.mixer.Remove(e.track)
			c.playing = append(c.playing[:i], c.playing[i+1:]...)
			break
		}
	}
	c.playing = append(c.playing, entry{msg: msg, track: track})
	if !replay {
		c.recordHistory(msg)
	}
	c.mu.Unlock()

	c.updateTrack(msg, track)
	c.mixer.Add(track)
	c.notify(c.started, msg)

	c.logger.Debug("playback started",
		"id", msg.ID, "channel", msg.Source, "speaker", msg.Speaker,
		"duration", track.Duration())
}

// Tick recomputes volume and pan for every live track. Called once per
// frame by the daemon loop; it never blocks.
func (c *Controller) Tick() {
	c.mu.Lock()
	live := make([]entry, len(c.playing))
	copy(live, c.playing)
	c.mu.Unlock()

	for _, e := range live {
		c.updateTrack(e.msg, e.track)
	}
}

// updateTrack applies the current config volume and, for directional
// channels, the spatial falloff and pan.
func (c *Controller) updateTrack(msg *types.DialogueMessage, track *audio.Track) {
	if track.Stopping() {
		return
	}
	cfg := c.cfg()

	if cfg.Audio.Mute {
		track.SetVolume(0)
		return
	}

	base := float32(cfg.Audio.Volume) / 100
	if msg.IsSynthesized() {
		base = float32(cfg.Audio.SynthesisVolume) / 100
	}
	track.SetVolume(base)

	if !cfg.Channels.ForChannel(msg.Source).Directional {
		track.SetPan(0)
		return
	}
	if msg.Speaker == c.world.PlayerName() {
		return
	}

	var baseID uint32
	if msg.Npc != nil {
		baseID = msg.Npc.BaseID
	}
	speakerPos, ok := c.world.SpeakerPosition(msg.Speaker, baseID)
	if !ok {
		return
	}
	camera, ok := c.world.ListenerView()
	if !ok {
		return
	}

	rel := speakerPos.Sub(c.world.Location().Coordinates)
	dist := rel.Length()

	pan := rel.Dot(camera.Right) / 20
	if pan > 0.95 {
		pan = 0.95
	} else if pan < -0.95 {
		pan = -0.95
	}

	bands := []falloffBand{
		{0, 3, base * 1, base * 0.85},
		{3, 5, base * 0.85, base * 0.3},
		{5, 20, base * 0.3, base * 0.05},
	}
	// Lines must stay audible in combat, so duty bands have a high floor.
	if c.world.IsInDuty() {
		bands = []falloffBand{
			{0, 3, 0.65, 0.63},
			{3, 5, 0.63, 0.60},
			{5, 20, 0.60, 0.55},
		}
	}

	volume := bands[len(bands)-1].volEnd
	for _, b := range bands {
		if dist >= b.distStart && dist <= b.distEnd {
			slope := (b.volEnd - b.volStart) / (b.distEnd - b.distStart)
			volume = b.volStart + slope*(dist-b.distStart)
			break
		}
	}

	track.SetVolume(volume)
	track.SetPan(pan)
}

// StopAll fades out every live track.
func (c *Controller) StopAll() {
	c.logger.Debug("stopping all playing audio")
	for _, e := range c.snapshot() {
		go c.fadeOutAndStop(e)
	}
}

// Stop fades out every track playing on ch.
func (c *Controller) Stop(ch types.Channel) {
	c.logger.Debug("stopping playing audio", "channel", ch)
	for _, e := range c.snapshot() {
		if e.msg.Source == ch {
			go c.fadeOutAndStop(e)
		}
	}
}

// StopMessage fades out the track for the given message id, if playing.
func (c *Controller) StopMessage(id string) {
	for _, e := range c.snapshot() {
		if e.msg.ID == id {
			go c.fadeOutAndStop(e)
			return
		}
	}
	c.logger.Debug("no playing audio with id", "id", id)
}

// Skip fades out the most recently started track.
func (c *Controller) Skip() {
	live := c.snapshot()
	if len(live) == 0 {
		return
	}
	c.logger.Debug("skipping the most recent voiceline")
	go c.fadeOutAndStop(live[len(live)-1])
}

// IsPlaying reports whether any track on ch is live.
func (c *Controller) IsPlaying(ch types.Channel) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.playing {
		if e.msg.Source == ch {
			return true
		}
	}
	return false
}

// ActiveCount returns the number of live tracks.
func (c *Controller) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.playing)
}

// History returns the most recent lines, newest first, with live progress.
func (c *Controller) History() []HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]HistoryEntry, 0, len(c.history))
	for _, msg := range c.history {
		he := HistoryEntry{Message: msg, Percent: 1}
		for _, e := range c.playing {
			if e.msg.ID == msg.ID {
				he.Playing = e.track.Playing()
				if total := e.track.Duration(); total > 0 {
					he.Percent = float32(e.track.Elapsed()) / float32(total)
				}
				break
			}
		}
		out = append(out, he)
	}
	return out
}

// fadeOutAndStop ramps the track to silence in discrete steps, then removes
// it from the mix. An instant cut clicks audibly.
func (c *Controller) fadeOutAndStop(e entry) {
	if !e.track.BeginStop() {
		return
	}

	steps := int(fadeDuration / fadeInterval)
	initial := e.track.Volume()
	for i := 0; i < steps; i++ {
		e.track.SetVolume(initial * (1 - float32(i+1)/float32(steps)))
		time.Sleep(fadeInterval)
	}
	e.track.SetVolume(0)

	c.mixer.Remove(e.track)
	e.track.Complete()
}

// finish is the track completion callback: it fires for natural end of
// stream and for fade-outs, exactly once per track.
func (c *Controller) finish(msg *types.DialogueMessage, track *audio.Track) {
	c.mu.Lock()
	for i, e := range c.playing {
		if e.track == track {
			c.playing = append(c.playing[:i], c.playing[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	c.logger.Debug("playback finished", "id", msg.ID, "speaker", msg.Speaker)
	c.notify(c.completed, msg)
}

// recordHistory prepends msg, dropping an older duplicate and trimming to
// the history limit. Caller holds c.mu.
func (c *Controller) recordHistory(msg *types.DialogueMessage) {
	for i, m := range c.history {
		if m.ID == msg.ID {
			c.history = append(c.history[:i], c.history[i+1:]...)
			break
		}
	}
	c.history = append([]*types.DialogueMessage{msg}, c.history...)
	if len(c.history) > historyLimit {
		c.history = c.history[:historyLimit]
	}
}

func (c *Controller) snapshot() []entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]entry, len(c.playing))
	copy(out, c.playing)
	return out
}

func (c *Controller) notify(ch chan types.PlaybackEvent, msg *types.DialogueMessage) {
	ev := types.PlaybackEvent{Message: msg, Time: time.Now()}
	select {
	case ch <- ev:
	default:
		c.logger.Warn("playback event dropped", "id", msg.ID)
	}
}
