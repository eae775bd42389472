package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

// Near-duplicate aliases that point at different records are almost always a
// typo introduced when manifests are assembled by hand. The threshold is
// tight: "Alphinaud" vs "Alphinaude" trips it, "Alphinaud" vs "Alisaie"
// does not.
const aliasSimilarityThreshold = 0.96

// LintIssue describes a non-fatal manifest problem. Issues are logged at
// load time; they never block publishing a snapshot.
type LintIssue struct {
	Kind   string
	Detail string
}

// Lint checks a built manifest for consistency problems that Build does
// not treat as errors:
//
//   - aliases whose record names a voice id missing from the voice table
//   - speaker mappings that target an unknown npc id
//   - pairs of aliases on different records that are suspiciously similar
func Lint(m *Manifest) []LintIssue {
	var issues []LintIssue

	aliases := make([]string, 0, len(m.NpcsByAlias))
	for alias := range m.NpcsByAlias {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	for _, alias := range aliases {
		npc := m.NpcsByAlias[alias]
		if npc.VoiceID == "" {
			continue
		}
		if _, ok := m.Voices[npc.VoiceID]; !ok {
			issues = append(issues, LintIssue{
				Kind:   "unknown-voice",
				Detail: fmt.Sprintf("npc %q references voice %q which is not in the voice table", alias, npc.VoiceID),
			})
		}
	}

	for _, byName := range m.Mappings {
		for speaker, mapping := range byName {
			if mapping.NpcID == "" {
				continue
			}
			if _, ok := m.NpcsByAlias[mapping.NpcID]; !ok {
				issues = append(issues, LintIssue{
					Kind:   "unknown-mapping-target",
					Detail: fmt.Sprintf("mapping for %q targets unknown npc %q", speaker, mapping.NpcID),
				})
			}
		}
	}

	issues = append(issues, similarAliases(m, aliases)...)
	return issues
}

// similarAliases flags alias pairs on different records whose Jaro-Winkler
// similarity exceeds the threshold. Comparison is case-insensitive, and
// only adjacent sorted aliases sharing a first letter are compared to keep
// the pass linear-ish on large manifests.
func similarAliases(m *Manifest, sorted []string) []LintIssue {
	var issues []LintIssue
	for i := 1; i < len(sorted); i++ {
		a, b := sorted[i-1], sorted[i]
		if m.NpcsByAlias[a] == m.NpcsByAlias[b] {
			continue
		}
		la, lb := strings.ToLower(a), strings.ToLower(b)
		if la == "" || lb == "" || la[0] != lb[0] {
			continue
		}
		if matchr.JaroWinkler(la, lb, false) >= aliasSimilarityThreshold {
			issues = append(issues, LintIssue{
				Kind:   "similar-aliases",
				Detail: fmt.Sprintf("aliases %q and %q resolve to different npcs but look like variants of the same name", a, b),
			})
		}
	}
	return issues
}
