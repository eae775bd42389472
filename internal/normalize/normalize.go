// Package normalize implements the text normalization stage of the dialogue
// pipeline.
//
// Asset ids downstream are content hashes of this package's output, so every
// rule here is frozen: once a transformation ships it must never change
// behavior for already-generated content. New rules may be added only when
// they provably cannot affect existing lines.
package normalize

import (
	"regexp"
	"sort"
	"strings"
)

// Mode selects the player-name replacement strategy. Two schemes exist
// historically and assets were generated under both, so resolution tries
// ModeCurrent first and retries under ModeLegacy on a miss.
type Mode int

const (
	// ModeCurrent replaces the player's first and last names independently
	// with distinct placeholder tokens.
	ModeCurrent Mode = iota

	// ModeLegacy collapses "First Last" and bare "Last" to "First", then
	// replaces the remaining bare "First" with a single placeholder token.
	ModeLegacy
)

// Placeholder tokens. Frozen; they are part of shipped asset ids.
const (
	LegacyNameToken = "_NAME_"
	FirstNameToken  = "_FIRSTNAME_"
	LastNameToken   = "_LASTNAME_"
)

// Options parameterize a Clean call.
type Options struct {
	// PlayerName is the local player's full display name ("First Last").
	// Empty disables name substitution entirely.
	PlayerName string

	// Mode selects the name replacement scheme.
	Mode Mode

	// KeepName suppresses name replacement so the synthesis fallback can
	// speak the player's actual name.
	KeepName bool
}

var (
	stageDirectionRe = regexp.MustCompile(`<[^<]*>`)
	whitespaceRe     = regexp.MustCompile(`\s+`)
	ellipsisJoinRe   = regexp.MustCompile(`(\.{3})(\w)`)
	quoteRe          = regexp.MustCompile(`"`)
)

// unicodeEscapes is the fixed set of Latin-1 escapes seen in chat payloads.
// Frozen.
var unicodeEscapes = [...][2]string{
	{`á`, "á"}, {`é`, "é"}, {`í`, "í"}, {`ó`, "ó"},
	{`ú`, "ú"}, {`ñ`, "ñ"}, {`à`, "à"}, {`è`, "è"},
	{`ì`, "ì"}, {`ò`, "ò"}, {`ù`, "ù"},
}

var speakerSuffixes = [...]string{"'s Voice", "'s Avatar"}

// Clean sanitizes a raw speaker/sentence pair into the canonical form used
// for content addressing. It cannot fail; an empty returned sentence means
// there is nothing to voice.
//
// Clean is idempotent for its terminal stages: applying it twice yields the
// same output as applying it once.
func Clean(rawSpeaker, rawSentence string, opts Options) (speaker, sentence string) {
	speaker = cleanSpeaker(rawSpeaker)
	sentence = rawSentence

	// Remove text in and including angled brackets, e.g. <sigh> <sniffle>.
	sentence = stageDirectionRe.ReplaceAllString(sentence, "")

	sentence = convertRomanNumerals(sentence)

	// Normalize dash and newline variants.
	sentence = whitespaceRe.ReplaceAllString(sentence, " ")
	sentence = strings.NewReplacer(
		"─", " - ",
		"—", " - ",
		"–", "-",
		"\n", " ",
	).Replace(sentence)

	for _, esc := range unicodeEscapes {
		sentence = strings.ReplaceAll(sentence, esc[0], esc[1])
	}

	if !opts.KeepName && opts.PlayerName != "" {
		sentence = replacePlayerName(sentence, opts.PlayerName, opts.Mode)
	}

	sentence = applyRewrites(speaker, sentence)

	// "hi...there" reads as one word to synthesis; split it.
	sentence = ellipsisJoinRe.ReplaceAllString(sentence, "$1 $2")

	sentence = normalizeQuotes(sentence)

	sentence = whitespaceRe.ReplaceAllString(sentence, " ")
	sentence = strings.TrimSpace(sentence)

	// Lines like "<gulp> <gulp> ...See, empty already." keep a leading
	// ellipsis after bracket stripping; drop it.
	if strings.HasPrefix(sentence, "...") {
		sentence = sentence[3:]
	}

	sentence = whitespaceRe.ReplaceAllString(sentence, " ")
	sentence = strings.TrimSpace(sentence)

	return speaker, sentence
}

func cleanSpeaker(speaker string) string {
	// "???" is a meaningful placeholder, not punctuation noise.
	if speaker != "???" {
		speaker = strings.ReplaceAll(speaker, "!", "")
		speaker = strings.ReplaceAll(speaker, "?", "")
	}
	for _, suffix := range speakerSuffixes {
		if strings.HasSuffix(speaker, suffix) {
			speaker = speaker[:len(speaker)-len(suffix)]
			break
		}
	}
	return speaker
}

func replacePlayerName(sentence, playerName string, mode Mode) string {
	parts := strings.Fields(playerName)
	if len(parts) == 0 {
		return sentence
	}
	first := parts[0]
	last := ""
	if len(parts) > 1 {
		last = parts[1]
	}

	switch mode {
	case ModeLegacy:
		if last != "" {
			fullRe := wordRe(first + " " + last)
			sentence = fullRe.ReplaceAllString(sentence, first)
			lastRe := wordRe(last)
			sentence = lastRe.ReplaceAllString(sentence, first)
		}
		sentence = wordRe(first).ReplaceAllString(sentence, LegacyNameToken)
	default:
		sentence = wordRe(first).ReplaceAllString(sentence, FirstNameToken)
		if last != "" {
			sentence = wordRe(last).ReplaceAllString(sentence, LastNameToken)
		}
	}
	return sentence
}

func wordRe(word string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(word) + `\b`)
}

// SentenceHasPlayerName reports whether the raw sentence contains the
// player's first or last name as a whole word. Drives the legacy-name retry
// in the dispatch fallback chain.
func SentenceHasPlayerName(sentence, playerName string) bool {
	if playerName == "" {
		return false
	}
	for _, part := range strings.Fields(playerName) {
		if wordRe(part).MatchString(sentence) {
			return true
		}
	}
	return false
}

// normalizeQuotes converts straight double quotes into alternating curly
// open/close quotes. Already-curly quotes are folded back first so the
// transformation is idempotent.
func normalizeQuotes(sentence string) string {
	sentence = strings.NewReplacer("“", `"`, "”", `"`).Replace(sentence)
	open := true
	return quoteRe.ReplaceAllStringFunc(sentence, func(string) string {
		if open {
			open = false
			return "“"
		}
		open = true
		return "”"
	})
}

// ApplyLexicon applies word-boundary, case-insensitive pronunciation
// substitutions. Used only on the synthesis path; pre-rendered assets were
// produced from the unsubstituted sentence. Entries are applied in sorted
// key order so the output is deterministic.
func ApplyLexicon(sentence string, lexicon map[string]string) string {
	if len(lexicon) == 0 {
		return sentence
	}
	keys := make([]string, 0, len(lexicon))
	for k := range lexicon {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, from := range keys {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(from) + `\b`)
		sentence = re.ReplaceAllString(sentence, lexicon[from])
	}
	return sentence
}
