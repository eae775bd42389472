package tts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PrepareSpeech reduces a dialogue line to the character set the synthesis
// backends handle reliably: letters, digits, comma, period, space. Curly
// quotes are straightened before filtering so quoted speech keeps its pause.
// Returns an error wrapping [ErrSynthesisUnavailable] when nothing speakable
// remains.
func PrepareSpeech(sentence string) (string, error) {
	sentence = strings.NewReplacer("“", `"`, "”", `"`).Replace(sentence)

	var b strings.Builder
	b.Grow(len(sentence))
	hasLetter := false
	for _, c := range sentence {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			hasLetter = true
			b.WriteRune(c)
		case c >= '0' && c <= '9', c == ',', c == '.', c == ' ':
			b.WriteRune(c)
		}
	}
	if !hasLetter {
		return "", fmt.Errorf("%w: no speakable text in %q", ErrSynthesisUnavailable, sentence)
	}
	return b.String(), nil
}

// ChatOptions controls how PrepareChat rewrites a player chat line.
type ChatOptions struct {
	// PlayerName is the local player's full name, used to detect whether
	// the local player is the one speaking.
	PlayerName string

	// PrefixSpeaker prepends "<name> says" when the line does not already
	// start with the speaker's name.
	PrefixSpeaker bool
}

var (
	linkRe  = regexp.MustCompile(`(?i)https?\S*`)
	coordRe = regexp.MustCompile(`(\x{e0bb}[^\(]*?)\([^\)]*\)`)
	minRe   = regexp.MustCompile(`(?i)(\b\d+)\s*min\b`)
)

type chatRewrite struct {
	re   *regexp.Regexp
	with string
}

func ci(pattern, with string) chatRewrite {
	return chatRewrite{regexp.MustCompile(`(?i)` + pattern), with}
}

func cs(pattern, with string) chatRewrite {
	return chatRewrite{regexp.MustCompile(pattern), with}
}

// chatRewrites expands the shorthand players actually type. Order matters:
// longer abbreviations go before their prefixes ("tyvm" before "ty").
var chatRewrites = []chatRewrite{
	ci(`\bggty\b`, "good game, thank you"),
	ci(`\btyfp\b`, "thank you for the party!"),
	ci(`\bty4p\b`, "thank you for the party!"),
	ci(`\btyvm\b`, "thank you very much"),
	ci(`\btyft\b`, "thank you for the train"),
	ci(`\bty\b`, "thank you"),
	ci(`\brp\b`, "role play"),
	ci(`\bo7\b`, "salute"),
	ci(`\bafk\b`, "away from keyboard"),
	ci(`\bbrb\b`, "be right back"),
	ci(`\bprog\b`, "progress"),
	ci(`\bcomms\b`, "commendations"),
	ci(`\bcomm\b`, "commendation"),
	ci(`\blq\b`, "low quality"),
	ci(`\bhq\b`, "high quality"),
	ci(`\bfl\b`, "friend list"),
	ci(`\bfc\b`, "free company"),
	ci(`\bdot\b`, "damage over time"),
	ci(`\bcrit\b`, "critical hit"),
	ci(`\blol\b`, `"L-O-L"`),
	ci(`\blmao\b`, `"Lah-mao"`),
	ci(`\bgg\b`, "good game"),
	ci(`\bglhf\b`, "good luck, have fun"),
	ci(`\bgl\b`, "good luck"),
	ci(`\bsry\b`, "sorry"),
	ci(`\bsrry\b`, "sorry"),
	ci(`\bcs\b`, "cutscene"),
	ci(`\bttyl\b`, "talk to you later"),
	ci(`\boki\b`, "okay"),
	ci(`\bkk\b`, "okay"),
	ci(`\bffs\b`, "for fuck's sake"),
	ci(`\bggs\b`, "good game"),
	ci(`\bwp\b`, "well played"),
	ci(`\bgn\b`, "good night"),
	ci(`\bdd\b`, "damage dealer"),
	ci(`\bbis\b`, "best in slot"),
	ci(`(\s|^):\)(\s|$)`, "${1}smile${2}"),
	ci(`(\s|^):\((\s|$)`, "${1}sadge${2}"),
	ci(`\brn\b`, "right now"),
	ci(`\bm1\b`, `"Melee one"`),
	ci(`\bm2\b`, `"Melee two"`),
	ci(`\bot\b`, `"Off-Tank"`),
	cs(`\bMT\b`, `"Main-Tank"`),
	cs(`\bMt\b`, `"Main-Tank"`),
	cs(`\bmt\b`, `"mistake"`),
	ci(`\br1\b`, `"Ranged One"`),
	ci(`\br2\b`, `"Ranged Two"`),
	ci(`\bh1\b`, `"Healer One"`),
	ci(`\bh2\b`, `"Healer Two"`),
	cs(`\bIT\b`, "it"),
}

// jobRewrites spells out job abbreviations. WAR and SAM stay case-sensitive
// so the English words "war" and "sam" survive intact.
var jobRewrites = []chatRewrite{
	cs(`\bWAR\b`, "Warrior"),
	cs(`\bSAM\b`, "Samurai"),
	ci(`\bCRP\b`, "Carpenter"),
	ci(`\bBSM\b`, "Blacksmith"),
	ci(`\bARM\b`, "Armorer"),
	ci(`\bGSM\b`, "Goldsmith"),
	ci(`\bLTW\b`, "Leatherworker"),
	ci(`\bWVR\b`, "Weaver"),
	ci(`\bALC\b`, "Alchemist"),
	ci(`\bCUL\b`, "Culinarian"),
	ci(`\bBTN\b`, "Botanist"),
	ci(`\bFSH\b`, "Fisher"),
	ci(`\bGLA\b`, "Gladiator"),
	ci(`\bPGL\b`, "Pugilist"),
	ci(`\bMRD\b`, "Marauder"),
	ci(`\bLNC\b`, "Lancer"),
	ci(`\bROG\b`, "Rogue"),
	ci(`\bCNJ\b`, "Conjurer"),
	ci(`\bTHM\b`, "Thaumaturge"),
	ci(`\bACN\b`, "Arcanist"),
	ci(`\bPLD\b`, "Paladin"),
	ci(`\bDRK\b`, "Dark Knight"),
	ci(`\bGNB\b`, "Gunbreaker"),
	ci(`\bRPR\b`, "Reaper"),
	ci(`\bMNK\b`, "Monk"),
	ci(`\bDRG\b`, "Dragoon"),
	ci(`\bNIN\b`, "Ninja"),
	ci(`\bWHM\b`, "White Mage"),
	ci(`\bSCH\b`, "Scholar"),
	ci(`\bAST\b`, "Astrologian"),
	ci(`\bSGE\b`, "Sage"),
	ci(`\bBRD\b`, "Bard"),
	ci(`\bMCH\b`, "Machinist"),
	ci(`\bDNC\b`, "Dancer"),
	ci(`\bBLM\b`, "Black Mage"),
	ci(`\bSMN\b`, "Summoner"),
	ci(`\bRDM\b`, "Red Mage"),
	ci(`\bBLU\b`, "Blue Mage"),
	ci(`\bVPR\b`, "Viper"),
}

// PrepareChat rewrites a player chat line into something a synthesis voice
// can read aloud: links and map coordinates are stripped, common chat
// shorthand is expanded, and the speaker's name is optionally prefixed so
// the listener knows who is talking.
func PrepareChat(sentence, speaker string, opts ChatOptions) string {
	sentence = strings.TrimSpace(sentence)
	self := speaker == opts.PlayerName

	name, _, _ := strings.Cut(speaker, " ")
	if self {
		name = "You"
	}

	sentence = linkRe.ReplaceAllString(sentence, "")
	sentence = coordRe.ReplaceAllString(sentence, "$1")

	if sentence == "o/" {
		if self {
			return name + " wave."
		}
		return name + " is waving."
	}

	if opts.PrefixSpeaker && !strings.HasPrefix(sentence, name) {
		says := " says "
		if self {
			says = " say "
		}
		sentence = name + says + sentence
	}

	sentence = minRe.ReplaceAllStringFunc(sentence, func(match string) string {
		digits := minRe.FindStringSubmatch(match)[1]
		if n, err := strconv.Atoi(digits); err == nil && n == 1 {
			return digits + " minute"
		}
		return digits + " minutes"
	})

	for _, r := range chatRewrites {
		sentence = r.re.ReplaceAllString(sentence, r.with)
	}
	for _, r := range jobRewrites {
		sentence = r.re.ReplaceAllString(sentence, r.with)
	}
	return sentence
}
