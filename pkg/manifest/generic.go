package manifest

import (
	"strconv"
	"strings"

	"github.com/kvxd/aethervox/pkg/types"
)

// GenericKeys returns the attribute keys under which a generic voice may be
// found for npc, most specific first. Key precedence is fixed: adult
// humanoids use the full gender+race+tribe+body+eyes tuple, elderly and
// child bodies use coarser keys, and beastman body classes fall back to
// race+gender and finally race alone.
func GenericKeys(npc *types.NpcAttributes) []string {
	switch npc.Body {
	case "Adult":
		return []string{
			strings.Join([]string{npc.Race, npc.Tribe, npc.Gender, npc.Eyes}, "|"),
			npc.Race + "|" + npc.Gender,
			npc.Race,
		}
	case "Elderly":
		return []string{
			"Elderly|" + npc.Race + "|" + npc.Gender,
			"Elderly|" + npc.Gender,
		}
	case "Child":
		return []string{
			strings.Join([]string{"Child", npc.Race, npc.Gender, npc.Eyes}, "|"),
		}
	default:
		return []string{
			npc.Race + "|" + npc.Gender,
			npc.Race,
		}
	}
}

// LookupGeneric finds the generic voice for npc, trying keys in precedence
// order.
func (m *Manifest) LookupGeneric(npc *types.NpcAttributes) (*types.VoiceIdentity, bool) {
	for _, key := range GenericKeys(npc) {
		if v, ok := m.Generic[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// adultRun describes the generic voices for one race/tribe/gender
// combination. eyes[i] is the voice suffix for eye option i+1; an empty
// string means that option has no generic voice. Some options share a
// recording, hence suffixes like "05_06".
type adultRun struct {
	race, tribe, gender string
	prefix              string
	eyes                []string
}

// The voice id tables mirror the shipped voice bank layout and are append
// only: changing an existing entry would re-address every line recorded
// under it.
var adultRuns = []adultRun{
	{"Au Ra", "Raen", "Female", "Au_Ra_Raen_Female", []string{"01", "02", "03", "04", "05"}},
	{"Au Ra", "Raen", "Male", "Au_Ra_Raen_Male", []string{"01", "02", "03", "04", "05", "06"}},
	{"Au Ra", "Xaela", "Female", "Au_Ra_Xaela_Female", []string{"01", "02", "03", "04", "05"}},
	{"Au Ra", "Xaela", "Male", "Au_Ra_Xaela_Male", []string{"01", "02", "03", "04", "05", "06"}},
	{"Elezen", "Duskwight", "Female", "Elezen_Duskwight_Female", []string{"01", "02", "03", "04", "05_06", "05_06"}},
	{"Elezen", "Duskwight", "Male", "Elezen_Duskwight_Male", []string{"01", "02", "03", "04", "05", "06"}},
	{"Elezen", "Wildwood", "Female", "Elezen_Wildwood_Female", []string{"01", "02", "03", "04", "05", "06"}},
	{"Elezen", "Wildwood", "Male", "Elezen_Wildwood_Male", []string{"01", "02", "03", "04", "05", "06"}},
	{"Hrothgar", "Helions", "Male", "Hrothgar_Helion", []string{"01_05", "02", "03", "04", "01_05"}},
	{"Hrothgar", "The Lost", "Male", "Hrothgar_The_Lost", []string{"01", "02", "03", "04_05", "04_05"}},
	{"Hyur", "Highlander", "Female", "Hyur_Highlander_Female", []string{"01", "02", "03", "04", "05", "06"}},
	{"Hyur", "Highlander", "Male", "Hyur_Highlander_Male", []string{"01", "02", "03", "04", "05", "06"}},
	{"Hyur", "Midlander", "Female", "Hyur_Midlander_Female", []string{"01", "02", "03", "04", "05"}},
	{"Hyur", "Midlander", "Male", "Hyur_Midlander_Male", []string{"01", "02", "03", "04", "05", "06"}},
	{"Lalafell", "Dunesfolk", "Female", "Lalafell_Dunesfolk_Female", []string{"01", "02", "03", "04", "05", "06"}},
	{"Lalafell", "Dunesfolk", "Male", "Lalafell_Dunesfolk_Male", []string{"01", "02", "03", "04", "05", "06"}},
	{"Lalafell", "Plainsfolk", "Female", "Lalafell_Plainsfolk_Female", []string{"01", "02", "03", "04", "05", "06"}},
	{"Lalafell", "Plainsfolk", "Male", "Lalafell_Plainsfolk_Male", []string{"01", "02", "03", "04", "05", "06"}},
	{"Miqo'te", "Keeper of the Moon", "Female", "Miqote_Keeper_of_the_Moon_Female", []string{"01", "02", "03", "04", "05", "06"}},
	{"Miqo'te", "Keeper of the Moon", "Male", "Miqote_Keeper_of_the_Moon_Male", []string{"01", "02_06", "03", "04", "05", "02_06"}},
	{"Miqo'te", "Seeker of the Sun", "Female", "Miqote_Seeker_of_the_Sun_Female", []string{"01", "02", "03", "04", "05", "06"}},
	{"Miqo'te", "Seeker of the Sun", "Male", "Miqote_Seeker_of_the_Sun_Male", []string{"01", "02", "03", "04", "05", "06"}},
	{"Roegadyn", "Hellsguard", "Female", "Roegadyn_Hellsguard_Female", []string{"01", "02", "03", "04", "05"}},
	{"Roegadyn", "Hellsguard", "Male", "Roegadyn_Hellsguard_Male", []string{"01", "02", "03", "04", "05"}},
	{"Roegadyn", "Sea Wolf", "Female", "Roegadyn_Sea_Wolves_Female", []string{"01", "02", "03", "04", "05"}},
	{"Roegadyn", "Sea Wolf", "Male", "Roegadyn_Sea_Wolves_Male", []string{"01", "02", "03", "04", "05"}},
	{"Viera", "Rava", "Female", "Viera_Rava_Female", []string{"01_05", "02", "03", "04", "01_05"}},
	{"Viera", "Rava", "Male", "Viera_Rava_Male", []string{"01", "", "03", "04"}},
	{"Viera", "Veena", "Female", "Viera_Veena_Female", []string{"01_05", "02", "03", "04", "01_05"}},
	{"Viera", "Veena", "Male", "Viera_Veena_Male", []string{"", "02", "03"}},
}

type childRun struct {
	race, gender string
	prefix       string
	eyes         []string
}

var childRuns = []childRun{
	{"Hyur", "Female", "Child_Hyur_Female", []string{"1", "2", "3_5", "4", "3_5"}},
	{"Hyur", "Male", "Child_Hyur_Male", []string{"1", "2", "3_6", "4", "5", "3_6"}},
	{"Elezen", "Female", "Child_Elezen_Female", []string{"1_3", "2", "1_3", "4", "5_6", "5_6"}},
	{"Elezen", "Male", "Child_Elezen_Male", []string{"1", "2", "3", "4", "5_6", "5_6"}},
	{"Au Ra", "Female", "Child_Aura_Female", []string{"1_5", "2", "", "4", "1_5"}},
	{"Au Ra", "Male", "Child_Aura_Male", []string{"1", "2", "3", "4", "5_6", "5_6"}},
	{"Miqo'te", "Female", "Child_Miqote_Female", []string{"", "2", "3_4", "3_4"}},
}

// elderlyVoices keys are "Elderly|Race|Gender" before "Elderly|Gender".
var elderlyVoices = map[string]string{
	"Elderly|Hyur|Male": "Elderly_Male_Hyur",
	"Elderly|Male":      "Elderly_Male",
	"Elderly|Female":    "Elderly_Female",
}

// beastVoices cover the non-humanoid body classes. Gendered entries take
// precedence over the plain race key.
var beastVoices = map[string]string{
	"Amalj'aa": "Amaljaa",
	"Sylph":    "Sylph",
	"Kobold":   "Kobold",
	"Sahagin":  "Sahagin",
	"Ixal":     "Ixal",
	"Qiqirn":   "Qiqirn",
	"Vath":     "Vath",
	"Moogle":   "Moogle",
	"Node":     "Node",
	"Kojin":    "Kojin",
	"Ananta":   "Ananta",
	"Namazu":   "Namazu",
	"Pixie":    "Pixie",
	"Loporrit": "Loporrit",
	"Omicron":  "Omicron",
	"Ea":       "Ea",

	"Goblin|Female":    "Goblin_Female",
	"Goblin|Male":      "Goblin_Male",
	"Vanu Vanu|Female": "Vanu_Female",
	"Vanu Vanu|Male":   "Vanu_Male",
	"Matanga|Female":   "Matanga_Female",
	"Matanga|Male":     "Matanga_Male",
}

// buildGenericTable computes the attribute-key → voice table. Called once
// per manifest load; the result is never mutated afterwards.
func buildGenericTable() map[string]*types.VoiceIdentity {
	table := make(map[string]*types.VoiceIdentity, 256)

	add := func(key, voiceID string) {
		table[key] = &types.VoiceIdentity{ID: voiceID, IsGeneric: true}
	}

	for _, run := range adultRuns {
		for i, suffix := range run.eyes {
			if suffix == "" {
				continue
			}
			key := strings.Join([]string{run.race, run.tribe, run.gender, eyeOption(i + 1)}, "|")
			add(key, run.prefix+"_"+suffix)
		}
	}
	for _, run := range childRuns {
		for i, suffix := range run.eyes {
			if suffix == "" {
				continue
			}
			key := strings.Join([]string{"Child", run.race, run.gender, eyeOption(i + 1)}, "|")
			add(key, run.prefix+"_"+suffix)
		}
	}
	for key, voiceID := range elderlyVoices {
		add(key, voiceID)
	}
	for key, voiceID := range beastVoices {
		add(key, voiceID)
	}
	return table
}

func eyeOption(n int) string {
	return "Option " + strconv.Itoa(n)
}
