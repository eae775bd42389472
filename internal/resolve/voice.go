package resolve

import (
	"hash/fnv"
	"strings"

	"github.com/kvxd/aethervox/pkg/manifest"
	"github.com/kvxd/aethervox/pkg/types"
)

// UnknownVoice is the sentinel returned when no generic derivation matches.
// Lines addressed under it never exist in the inventory, so they flow to
// the synthesis fallback and show up clearly in diagnostic reports.
const UnknownVoice = "Unknown"

// lupinVoices are the candidate voices for the one beastman race with no
// recorded bank of its own. A speaker hashes to a stable index so each
// named character keeps the same borrowed voice across encounters.
var lupinVoices = [10]string{
	"Hrothgar_Helion_03",
	"Hrothgar_Helion_04",
	"Hrothgar_The_Lost_02",
	"Hrothgar_The_Lost_03",
	"Lalafell_Dunesfolk_Male_06",
	"Roegadyn_Hellsguard_Male_04",
	"Others_Widargelt",
	"Hyur_Highlander_Male_04",
	"Hrothgar_Helion_02",
	"Hyur_Highlander_Male_05",
}

// GenericVoice derives the generic voice for npc. Dragon and boss body
// classes carry their voice in the race name itself; the Lupin race borrows
// voices by speaker hash; everything else goes through the manifest's
// attribute table. Falls back to [UnknownVoice] so the caller always gets
// an addressable identity.
func GenericVoice(m *manifest.Manifest, npc *types.NpcAttributes, speaker string) *types.VoiceIdentity {
	switch {
	case strings.HasPrefix(npc.Race, "Dragon"), strings.HasPrefix(npc.Race, "Boss"):
		return &types.VoiceIdentity{ID: npc.Race, IsGeneric: true}
	case npc.Race == "Lupin":
		return &types.VoiceIdentity{ID: lupinVoice(speaker), IsGeneric: true}
	}
	if v, ok := m.LookupGeneric(npc); ok {
		return v
	}
	return &types.VoiceIdentity{ID: UnknownVoice, IsGeneric: true}
}

func lupinVoice(speaker string) string {
	// Named story characters keep their assigned voice.
	switch speaker {
	case "Hakuro", "Hakuro Gunji", "Hakuro Whitefang":
		return "Ranjit"
	}
	h := fnv.New32a()
	h.Write([]byte(speaker))
	return lupinVoices[h.Sum32()%uint32(len(lupinVoices))]
}
