// Package resolve maps a cleaned dialogue event to the entity that spoke it
// and the voice expected to speak it.
//
// Resolution is layered: sentence-keyed speaker mappings (retainer proxies
// and the "???" placeholder) run first, then the manifest alias table, then
// a live world query for entities the manifest does not know or whose looks
// vary between encounters. Voice assignment is two tier: an explicit voice
// id when the manifest has one, otherwise a generic voice derived from
// physical attributes.
package resolve

import (
	"context"
	"fmt"
	"sync"

	"github.com/kvxd/aethervox/internal/normalize"
	"github.com/kvxd/aethervox/internal/world"
	"github.com/kvxd/aethervox/pkg/manifest"
	"github.com/kvxd/aethervox/pkg/types"
)

// NamelessSpeaker is the placeholder the host shows when a speaker's name
// is deliberately hidden.
const NamelessSpeaker = "???"

// Request carries one dialogue event into the resolver. Speaker and
// Sentence are the raw event strings; normalization for mapping keys
// happens inside.
type Request struct {
	Channel  types.Channel
	Speaker  string
	Sentence string

	// PlayerName is the local player's name, used to normalize sentences
	// into mapping keys.
	PlayerName string

	// BaseID is the host entity id accompanying the event, when known.
	BaseID uint32

	// ProxyTarget reports that the player is interacting with a proxy
	// object (a summoning bell), which hides the true speaker.
	ProxyTarget bool
}

// Result is the outcome of a resolution.
type Result struct {
	// Speaker is the effective speaker after mapping overrides.
	Speaker string

	// Npc holds the resolved attributes. May be nil when nothing is known
	// about the speaker. Always a private copy, never the manifest record.
	Npc *types.NpcAttributes

	// Voice is the expected voice, explicit or derived. Nil only when even
	// the fallback derivation failed.
	Voice *types.VoiceIdentity

	// IsRetainer reports that a retainer mapping (or the Feo Ul special
	// case) claimed this line.
	IsRetainer bool

	// Suppressed reports a deliberate "do not voice" mapping hit. No other
	// Result field is meaningful when set.
	Suppressed bool
}

// Resolver resolves speakers against manifest snapshots and the live world.
// Safe for concurrent use.
type Resolver struct {
	world world.Query

	// Chat speakers drift out of render range mid-conversation; remembering
	// their last resolved record keeps voice and gender stable.
	mu        sync.Mutex
	chatCache map[string]*types.NpcAttributes
}

// New returns a Resolver backed by the given world query.
func New(w world.Query) *Resolver {
	return &Resolver{
		world:     w,
		chatCache: map[string]*types.NpcAttributes{},
	}
}

// Resolve resolves one dialogue event against the manifest snapshot m.
// m must not be nil; the caller gates on that.
func (r *Resolver) Resolve(ctx context.Context, m *manifest.Manifest, req Request) (Result, error) {
	res := Result{Speaker: req.Speaker}

	// Mapping keys were built with the legacy name scheme first; lines keyed
	// before the scheme change only match under it.
	legacyKey, currentKey := mappingKeys(req)

	var npc *types.NpcAttributes
	if req.ProxyTarget && req.Channel == types.ChannelTalk {
		if mapping, ok := lookupMapping(m, manifest.MappingRetainer, legacyKey, currentKey); ok {
			res.IsRetainer = true
			if mapping.Speaker != "" {
				res.Speaker = mapping.Speaker
			}
			if mapping.NpcID == "" && mapping.Speaker == "" {
				res.Suppressed = true
				return res, nil
			}
			if mapping.NpcID != "" {
				if rec, found := m.Lookup(mapping.NpcID); found {
					npc = rec.Clone()
				}
			}
		}
		// Feo Ul speaks through the bell without being a retainer record.
		if req.Speaker == "Feo Ul" {
			res.IsRetainer = true
		}
	}

	if npc == nil && req.Speaker == NamelessSpeaker {
		if mapping, ok := lookupMapping(m, manifest.MappingNameless, legacyKey, currentKey); ok {
			if mapping.NpcID == "" {
				res.Suppressed = true
				return res, nil
			}
			rec, found := m.Lookup(mapping.NpcID)
			if !found {
				return res, fmt.Errorf("resolve: nameless mapping targets unknown npc %q", mapping.NpcID)
			}
			npc = rec.Clone()
			if len(npc.Speakers) > 0 {
				res.Speaker = npc.Speakers[0]
			}
		}
	}

	if npc == nil {
		if rec, ok := m.Lookup(res.Speaker); ok {
			npc = rec.Clone()
		}
	}

	if npc == nil || npc.HasVariedLooks {
		live, err := r.world.ResolveLiveAttributes(ctx, res.Speaker, req.BaseID)
		if err != nil {
			return res, fmt.Errorf("resolve: live attributes for %q: %w", res.Speaker, err)
		}
		npc = mergeLive(npc, live)
	}

	if req.Channel == types.ChannelChat {
		npc = r.cacheChatSpeaker(req.Speaker, npc)
	}

	res.Npc = npc
	res.Voice = r.assignVoice(m, res.Speaker, npc)
	return res, nil
}

// assignVoice picks the explicit voice when the record names one, otherwise
// derives a generic voice and records the derivation on the npc copy so
// diagnostics reflect the voice actually expected.
func (r *Resolver) assignVoice(m *manifest.Manifest, speaker string, npc *types.NpcAttributes) *types.VoiceIdentity {
	if npc != nil && !npc.HasVariedLooks && npc.VoiceID != "" {
		if v, ok := m.Voice(npc.VoiceID); ok {
			return v
		}
	}
	if npc == nil {
		return nil
	}
	voice := GenericVoice(m, npc, speaker)
	if voice != nil {
		npc.VoiceID = voice.ID
	}
	return voice
}

// mergeLive merges live appearance attributes onto a known record. Stable
// identity fields survive; volatile appearance fields are overwritten.
func mergeLive(known, live *types.NpcAttributes) *types.NpcAttributes {
	if live == nil {
		return known
	}
	if known == nil {
		return live.Clone()
	}
	merged := known.Clone()
	merged.Gender = live.Gender
	merged.Race = live.Race
	merged.Tribe = live.Tribe
	merged.Body = live.Body
	merged.Eyes = live.Eyes
	if live.BaseID != 0 {
		merged.BaseID = live.BaseID
	}
	return merged
}

func (r *Resolver) cacheChatSpeaker(rawSpeaker string, npc *types.NpcAttributes) *types.NpcAttributes {
	r.mu.Lock()
	defer r.mu.Unlock()
	if npc != nil {
		r.chatCache[rawSpeaker] = npc
		return npc
	}
	return r.chatCache[rawSpeaker]
}

// mappingKeys normalizes the raw sentence into the legacy and current
// mapping keys.
func mappingKeys(req Request) (legacy, current string) {
	_, legacy = normalize.Clean(req.Speaker, req.Sentence, normalize.Options{
		PlayerName: req.PlayerName,
		Mode:       normalize.ModeLegacy,
	})
	_, current = normalize.Clean(req.Speaker, req.Sentence, normalize.Options{
		PlayerName: req.PlayerName,
		Mode:       normalize.ModeCurrent,
	})
	return legacy, current
}

func lookupMapping(m *manifest.Manifest, t manifest.MappingType, legacyKey, currentKey string) (manifest.Mapping, bool) {
	if mapping, ok := m.MappingFor(t, legacyKey); ok {
		return mapping, true
	}
	return m.MappingFor(t, currentKey)
}
