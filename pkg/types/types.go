// Package types defines the shared types used across all aethervox packages.
//
// These types form the lingua franca between the normalizer, resolver,
// dispatcher, queues and the playback engine. They are intentionally minimal;
// each package defines its own domain types, but cross-cutting data structures
// live here to avoid circular imports.
package types

import (
	"context"
	"math"
	"sync"
	"time"
)

// Channel identifies the origin of a dialogue event. Each channel has its own
// playback queue and policy; channels never block one another.
type Channel string

const (
	// ChannelTalk carries scripted dialogue windows (cutscenes, quest text).
	ChannelTalk Channel = "talk"

	// ChannelBattleTalk carries battle dialogue overlays.
	ChannelBattleTalk Channel = "battle_talk"

	// ChannelBubble carries proximity speech bubbles above NPC heads.
	ChannelBubble Channel = "bubble"

	// ChannelChat carries free-form player chat.
	ChannelChat Channel = "chat"
)

// IsValid reports whether c is a recognised channel.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelTalk, ChannelBattleTalk, ChannelBubble, ChannelChat:
		return true
	}
	return false
}

// Channels lists all dialogue channels in a stable order.
var Channels = []Channel{ChannelTalk, ChannelBattleTalk, ChannelBubble, ChannelChat}

// VoiceIdentity is a canonical voice as declared by the manifest.
// Immutable once loaded.
type VoiceIdentity struct {
	// ID is the stable voice identifier, e.g. "Estinien" or
	// "Au_Ra_Raen_Female_03".
	ID string `json:"id"`

	// IsGeneric reports whether this voice is assigned by physical-attribute
	// template rather than an explicit per-character mapping.
	IsGeneric bool `json:"isGeneric"`
}

// NpcAttributes holds the physical traits of a speaker at resolution time.
// Records loaded from the manifest may be merged with live world-state
// attributes before voice assignment; stable fields (ID, VoiceID, Speakers)
// survive the merge, volatile appearance fields are overwritten.
type NpcAttributes struct {
	// ID is the stable NPC identifier. Empty for entities discovered live.
	ID string `json:"id"`

	// VoiceID is the explicitly assigned voice, if any. The resolver records
	// a derived generic voice here so diagnostic reports reflect the voice
	// actually expected.
	VoiceID string `json:"voiceId"`

	Gender string `json:"gender"`
	Race   string `json:"race"`
	Tribe  string `json:"tribe"`

	// Body is the body class: "Adult", "Elderly", "Child" or a beastman
	// class name.
	Body string `json:"body"`

	// Eyes is the eye-shape option, e.g. "Option 3".
	Eyes string `json:"eyes"`

	// Kind marks special entity categories that affect audio treatment,
	// e.g. "Old", "Primal M1", "Boss F1" or "Robot". Empty for ordinary
	// speakers.
	Kind string `json:"kind,omitempty"`

	// BaseID is the stable numeric base id of the entity in the host.
	BaseID uint32 `json:"baseId"`

	// Speakers lists every display name this entity is known by. Every name
	// maps back to this record in the manifest alias table.
	Speakers []string `json:"speakers"`

	// HasVariedLooks means the entity's appearance (and thus voice) can change
	// between encounters and must always be re-resolved, never cached by name.
	HasVariedLooks bool `json:"hasVariedLooks"`
}

// Clone returns a deep copy of n. Used before merging live attributes so the
// manifest snapshot is never mutated.
func (n *NpcAttributes) Clone() *NpcAttributes {
	if n == nil {
		return nil
	}
	cp := *n
	cp.Speakers = append([]string(nil), n.Speakers...)
	return &cp
}

// DialogueMessage is the resolved, immutable result of one dispatch.
// It is owned by the playback queue of its channel until playback finishes or
// the message is superseded. Only the reported flag and the cancellation state
// change after construction.
type DialogueMessage struct {
	// ID is the content hash addressing the voice asset for this line.
	ID string `json:"id"`

	// Source is the channel the line arrived on.
	Source Channel `json:"source"`

	// Speaker and Sentence are the cleaned forms used for addressing.
	Speaker  string `json:"speaker"`
	Sentence string `json:"sentence"`

	// RawSpeaker and RawSentence preserve the original event text for display,
	// diagnostics and re-deriving alternate normalizations.
	RawSpeaker  string `json:"rawSpeaker"`
	RawSentence string `json:"rawSentence"`

	// Npc holds the resolved attributes, if any.
	Npc *NpcAttributes `json:"npc,omitempty"`

	// Voice is the resolved voice identity, if any.
	Voice *VoiceIdentity `json:"-"`

	// AssetPath is the located voice asset id/path. Empty means the line must
	// be synthesized.
	AssetPath string `json:"-"`

	mu        sync.Mutex
	reported  bool
	cancel    context.CancelFunc
	cancelled bool
}

// IsSynthesized reports whether this message has no pre-rendered asset and
// must go through the synthesis fallback.
func (m *DialogueMessage) IsSynthesized() bool { return m.AssetPath == "" }

// MarkReported records that a diagnostic report was emitted for this message.
// Returns false if the message was already reported, guaranteeing at most one
// report per message.
func (m *DialogueMessage) MarkReported() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reported {
		return false
	}
	m.reported = true
	return true
}

// Reported reports whether a diagnostic report was emitted for this message.
func (m *DialogueMessage) Reported() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reported
}

// BindCancel attaches the cancellation handle for in-flight synthesis or
// transcoding tied to this message. If the message was already cancelled the
// handle is invoked immediately.
func (m *DialogueMessage) BindCancel(cancel context.CancelFunc) {
	m.mu.Lock()
	already := m.cancelled
	if !already {
		m.cancel = cancel
	}
	m.mu.Unlock()
	if already {
		cancel()
	}
}

// Cancel aborts any in-flight synthesis or transcoding for this message.
// Safe to call multiple times and before BindCancel.
func (m *DialogueMessage) Cancel() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.cancelled = true
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Cancelled reports whether Cancel has been called for this message.
func (m *DialogueMessage) Cancelled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancelled
}

// Vector3 is a position in world space.
type Vector3 struct {
	X, Y, Z float32
}

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Dot returns the dot product of v and o.
func (v Vector3) Dot(o Vector3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Length returns the euclidean length of v.
func (v Vector3) Length() float32 {
	return float32(math.Sqrt(float64(v.Dot(v))))
}

// CameraView describes the listener's camera orientation.
type CameraView struct {
	Position Vector3
	Forward  Vector3
	Up       Vector3
	Right    Vector3
}

// PlaybackEvent notifies queue state machines about track lifecycle changes.
type PlaybackEvent struct {
	Message *DialogueMessage
	Time    time.Time
}
