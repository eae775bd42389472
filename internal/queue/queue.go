// Package queue serializes playback per channel. Each channel owns a FIFO
// and a small state machine: Stopped -> AwaitingConfirmation -> Playing ->
// Stopped. All transitions happen on the daemon tick or on playback
// notifications; starting a line hands it to the playback pipeline and
// never blocks the tick.
package queue

import (
	"log/slog"
	"sync"
	"time"

	"github.com/kvxd/aethervox/pkg/types"
)

// State of one channel's queue.
type State int

const (
	// Stopped: nothing in flight; the next tick may dequeue.
	Stopped State = iota
	// AwaitingConfirmation: a line was handed to the pipeline but has not
	// started playing yet (synthesis and transcode happen in between).
	AwaitingConfirmation
	// Playing: the line's track is live.
	Playing
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case AwaitingConfirmation:
		return "awaiting"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// A stalled generation must not jam its channel forever, so confirmation
// waits are bounded. On-demand synthesis is slow, hence the long timeout.
const (
	confirmTimeout         = 3 * time.Second
	confirmTimeoutOnDemand = 45 * time.Second
)

// StartFunc hands a dequeued message to the playback pipeline. It must
// return quickly; slow work runs on the pipeline's own goroutines.
type StartFunc func(msg *types.DialogueMessage)

// Option is a functional option for the Manager.
type Option func(*Manager)

// WithTimeoutHook registers a callback invoked when a channel's
// confirmation wait expires. Wired to metrics by the daemon.
func WithTimeoutHook(fn func(ch types.Channel)) Option {
	return func(m *Manager) {
		m.onTimeout = fn
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

type channelQueue struct {
	state         State
	items         []*types.DialogueMessage
	awaiting      *types.DialogueMessage
	awaitingSince time.Time
}

// Manager owns every per-channel queue. Safe for concurrent use: the tick
// goroutine and the playback notification goroutine both touch it.
type Manager struct {
	mu        sync.Mutex
	channels  map[types.Channel]*channelQueue
	start     StartFunc
	paused    bool
	onTimeout func(ch types.Channel)
	logger    *slog.Logger
}

// New constructs a Manager that hands dequeued lines to start.
func New(start StartFunc, opts ...Option) *Manager {
	m := &Manager{
		channels: make(map[types.Channel]*channelQueue, len(types.Channels)),
		start:    start,
		logger:   slog.Default(),
	}
	for _, ch := range types.Channels {
		m.channels[ch] = &channelQueue{}
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Enqueue appends msg to its channel's FIFO. The line starts on a later
// tick, strictly after everything queued before it.
func (m *Manager) Enqueue(msg *types.DialogueMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.channels[msg.Source]
	if q == nil {
		m.logger.Warn("enqueue on unknown channel", "channel", msg.Source)
		return
	}
	q.items = append(q.items, msg)
	m.logger.Debug("message queued",
		"channel", msg.Source, "id", msg.ID, "depth", len(q.items))
}

// Tick advances every channel: expired confirmation waits revert to
// Stopped (cancelling the stalled line), and stopped channels with queued
// lines dequeue their head. onDemand selects the long confirmation timeout.
// Runs on the daemon frame loop and never blocks.
func (m *Manager) Tick(now time.Time, onDemand bool) {
	timeout := confirmTimeout
	if onDemand {
		timeout = confirmTimeoutOnDemand
	}

	type startReq struct {
		msg *types.DialogueMessage
	}
	var starts []startReq

	m.mu.Lock()
	for ch, q := range m.channels {
		if q.state == AwaitingConfirmation && now.Sub(q.awaitingSince) > timeout {
			m.logger.Warn("playback confirmation timed out",
				"channel", ch, "id", q.awaiting.ID, "waited", now.Sub(q.awaitingSince))
			q.awaiting.Cancel()
			q.awaiting = nil
			q.state = Stopped
			if m.onTimeout != nil {
				m.onTimeout(ch)
			}
		}

		if q.state == Stopped && len(q.items) > 0 && !m.paused {
			msg := q.items[0]
			q.items = q.items[1:]
			q.state = AwaitingConfirmation
			q.awaiting = msg
			q.awaitingSince = now
			starts = append(starts, startReq{msg: msg})
		}
	}
	m.mu.Unlock()

	for _, s := range starts {
		m.start(s.msg)
	}
}

// OnStarted moves a channel to Playing when its awaited line begins.
func (m *Manager) OnStarted(msg *types.DialogueMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.channels[msg.Source]
	if q == nil {
		return
	}
	if q.state == AwaitingConfirmation && q.awaiting != nil && q.awaiting.ID == msg.ID {
		q.state = Playing
		q.awaiting = nil
	}
}

// OnCompleted moves a channel back to Stopped once nothing on it is still
// live. stillActive reports whether another track for the channel plays
// on; brief overlaps happen on non-exclusive channels.
func (m *Manager) OnCompleted(msg *types.DialogueMessage, stillActive bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.channels[msg.Source]
	if q == nil || stillActive {
		return
	}
	if q.state == Playing {
		q.state = Stopped
	}
	// A completion may also arrive for a line that never confirmed (e.g.
	// its track was superseded); release the wait so the channel moves on.
	if q.state == AwaitingConfirmation && q.awaiting != nil && q.awaiting.ID == msg.ID {
		q.awaiting = nil
		q.state = Stopped
	}
}

// SkipQueued removes a not-yet-started line from its FIFO, preserving the
// order of the rest. Returns false if the id was not queued.
func (m *Manager) SkipQueued(ch types.Channel, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.channels[ch]
	if q == nil {
		return false
	}
	for i, msg := range q.items {
		if msg.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			msg.Cancel()
			return true
		}
	}
	return false
}

// Clear drops every queued line on ch, cancelling each.
func (m *Manager) Clear(ch types.Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q := m.channels[ch]
	if q == nil {
		return
	}
	for _, msg := range q.items {
		msg.Cancel()
	}
	q.items = nil
}

// SetPaused stops dequeuing while leaving queued lines intact.
func (m *Manager) SetPaused(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = paused
}

// State returns ch's current state.
func (m *Manager) State(ch types.Channel) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q := m.channels[ch]; q != nil {
		return q.state
	}
	return Stopped
}

// Len returns the number of queued (not in-flight) lines on ch.
func (m *Manager) Len(ch types.Channel) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q := m.channels[ch]; q != nil {
		return len(q.items)
	}
	return 0
}

// Depth returns the total queued lines across all channels.
func (m *Manager) Depth() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, q := range m.channels {
		total += len(q.items)
	}
	return total
}
