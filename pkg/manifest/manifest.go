// Package manifest loads and indexes the authoritative voice lookup tables.
//
// A Manifest is an immutable snapshot: the dispatcher reads exactly one
// snapshot per event and updates publish a whole new snapshot atomically.
// Nothing in this package mutates a Manifest after Build returns.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kvxd/aethervox/pkg/types"
)

// MappingType distinguishes the sentence-only speaker mapping tables.
type MappingType string

const (
	// MappingRetainer resolves lines whose true speaker is hidden behind a
	// proxy object (summoning bells).
	MappingRetainer MappingType = "Retainer"

	// MappingNameless resolves lines whose displayed speaker is the "???"
	// placeholder.
	MappingNameless MappingType = "Nameless"
)

// Mapping is one sentence-keyed speaker override. An empty NpcID is a
// deliberate suppress signal: the line must not be voiced at all.
type Mapping struct {
	Speaker string
	NpcID   string
}

// Raw is the on-disk JSON schema of a manifest file.
type Raw struct {
	Version         string                `json:"version"`
	Voices          []types.VoiceIdentity `json:"voices"`
	Npcs            []types.NpcAttributes `json:"npcs"`
	Voicelines      map[string]int64      `json:"voicelines"`
	IgnoredSpeakers []string              `json:"ignoredSpeakers"`
	SpeakerMappings []RawMapping          `json:"speakerMappings"`
	Lexicon         []LexiconEntry        `json:"lexicon"`
}

// RawMapping is the on-disk form of a speaker mapping entry.
type RawMapping struct {
	Type     MappingType `json:"type"`
	Speaker  string      `json:"speaker"`
	Sentence string      `json:"sentence"`
	// NpcID is a pointer so an explicit null (suppress) is distinguishable
	// from a missing field.
	NpcID *string `json:"npcId"`
}

// LexiconEntry is a single pronunciation substitution.
type LexiconEntry struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Manifest is the indexed, immutable lookup structure used during dispatch.
type Manifest struct {
	// Version identifies the manifest build, for diagnostics.
	Version string

	// Voices maps voice id to identity.
	Voices map[string]*types.VoiceIdentity

	// NpcsByAlias maps every display name and id of an entity to its record.
	NpcsByAlias map[string]*types.NpcAttributes

	// Generic is the attribute-key → voice table for template-assigned
	// voices. Keys are computed once here at load time.
	Generic map[string]*types.VoiceIdentity

	// Inventory maps asset id to byte size. Existence check plus an
	// integrity reference; the audio itself lives elsewhere.
	Inventory map[string]int64

	// IgnoredSpeakers never produce voiced lines.
	IgnoredSpeakers map[string]struct{}

	// Mappings holds the sentence-keyed speaker override tables.
	Mappings map[MappingType]map[string]Mapping

	// Lexicon maps pronunciation substitutions for the synthesis path.
	Lexicon map[string]string
}

// ErrAliasInconsistent is returned by Build when an NPC alias points at a
// different record than the one listing it.
var ErrAliasInconsistent = errors.New("manifest: alias table inconsistent")

// Build indexes a raw manifest into an immutable Manifest and verifies its
// invariants. The returned Manifest must not be mutated.
func Build(raw *Raw) (*Manifest, error) {
	m := &Manifest{
		Version:         raw.Version,
		Voices:          make(map[string]*types.VoiceIdentity, len(raw.Voices)),
		NpcsByAlias:     make(map[string]*types.NpcAttributes),
		Inventory:       raw.Voicelines,
		IgnoredSpeakers: make(map[string]struct{}, len(raw.IgnoredSpeakers)),
		Mappings: map[MappingType]map[string]Mapping{
			MappingRetainer: {},
			MappingNameless: {},
		},
		Lexicon: make(map[string]string, len(raw.Lexicon)),
	}
	if m.Inventory == nil {
		m.Inventory = map[string]int64{}
	}

	for i := range raw.Voices {
		v := raw.Voices[i]
		m.Voices[v.ID] = &v
	}

	for i := range raw.Npcs {
		npc := raw.Npcs[i]
		if npc.ID != "" {
			if existing, ok := m.NpcsByAlias[npc.ID]; ok && existing.ID != npc.ID {
				return nil, fmt.Errorf("%w: id %q already bound to %q", ErrAliasInconsistent, npc.ID, existing.ID)
			}
			m.NpcsByAlias[npc.ID] = &npc
		}
		for _, alias := range npc.Speakers {
			if existing, ok := m.NpcsByAlias[alias]; ok && existing != &npc {
				return nil, fmt.Errorf("%w: alias %q bound to both %q and %q", ErrAliasInconsistent, alias, existing.ID, npc.ID)
			}
			m.NpcsByAlias[alias] = &npc
		}
	}

	for _, s := range raw.IgnoredSpeakers {
		m.IgnoredSpeakers[s] = struct{}{}
	}

	for _, rm := range raw.SpeakerMappings {
		table, ok := m.Mappings[rm.Type]
		if !ok {
			return nil, fmt.Errorf("manifest: unknown mapping type %q", rm.Type)
		}
		entry := Mapping{Speaker: rm.Speaker}
		if rm.NpcID != nil {
			entry.NpcID = *rm.NpcID
		}
		table[rm.Sentence] = entry
	}

	for _, e := range raw.Lexicon {
		m.Lexicon[e.From] = e.To
	}

	m.Generic = buildGenericTable()
	return m, nil
}

// Load reads and indexes the JSON manifest file at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %q: %w", path, err)
	}
	defer f.Close()

	m, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("manifest: parse %q: %w", path, err)
	}
	return m, nil
}

// LoadFromReader decodes and indexes a JSON manifest from r.
// Useful in tests where manifests are constructed from string literals.
func LoadFromReader(r io.Reader) (*Manifest, error) {
	raw := &Raw{}
	dec := json.NewDecoder(r)
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("manifest: decode json: %w", err)
	}
	return Build(raw)
}

// Lookup returns the record for a display name or id, if known.
func (m *Manifest) Lookup(alias string) (*types.NpcAttributes, bool) {
	npc, ok := m.NpcsByAlias[alias]
	return npc, ok
}

// Voice returns the voice identity for an id, if known.
func (m *Manifest) Voice(id string) (*types.VoiceIdentity, bool) {
	v, ok := m.Voices[id]
	return v, ok
}

// MappingFor looks up a sentence in the given override table.
func (m *Manifest) MappingFor(t MappingType, sentence string) (Mapping, bool) {
	entry, ok := m.Mappings[t][sentence]
	return entry, ok
}

// IsIgnored reports whether the speaker is on the ignore list.
func (m *Manifest) IsIgnored(speaker string) bool {
	_, ok := m.IgnoredSpeakers[speaker]
	return ok
}

// AssetExists reports whether the inventory lists the asset id.
func (m *Manifest) AssetExists(id string) bool {
	_, ok := m.Inventory[id]
	return ok
}
