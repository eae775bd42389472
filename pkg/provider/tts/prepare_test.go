package tts_test

import (
	"errors"
	"testing"

	"github.com/kvxd/aethervox/pkg/provider/tts"
)

func TestPrepareSpeech(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		fails bool
	}{
		{
			name: "passthrough",
			in:   "A simple sentence, with 2 numbers.",
			want: "A simple sentence, with 2 numbers.",
		},
		{
			name: "strips unsupported punctuation",
			in:   "Wait — what?! (No way…)",
			want: "Wait  what No way",
		},
		{
			name: "curly quotes straightened then dropped",
			in:   "“Halone guide you.”",
			want: "Halone guide you.",
		},
		{
			name:  "no letters",
			in:    "!?— 42 …",
			fails: true,
		},
		{
			name:  "empty",
			in:    "",
			fails: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tts.PrepareSpeech(tc.in)
			if tc.fails {
				if !errors.Is(err, tts.ErrSynthesisUnavailable) {
					t.Fatalf("err = %v, want ErrSynthesisUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("PrepareSpeech: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPrepareChat(t *testing.T) {
	opts := tts.ChatOptions{PlayerName: "Aiko Yamada"}

	tests := []struct {
		name    string
		in      string
		speaker string
		opts    tts.ChatOptions
		want    string
	}{
		{
			name:    "abbreviations expand",
			in:      "tyvm for the carry, gl with prog",
			speaker: "Bran Ironfist",
			opts:    opts,
			want:    "thank you very much for the carry, good luck with progress",
		},
		{
			name:    "longer forms win over prefixes",
			in:      "ggty everyone",
			speaker: "Bran Ironfist",
			opts:    opts,
			want:    "good game, thank you everyone",
		},
		{
			name:    "links removed",
			in:      "guide at https://example.com/raid here",
			speaker: "Bran Ironfist",
			opts:    opts,
			want:    "guide at  here",
		},
		{
			name:    "wave from another player",
			in:      "o/",
			speaker: "Bran Ironfist",
			opts:    opts,
			want:    "Bran is waving.",
		},
		{
			name:    "wave from self",
			in:      "o/",
			speaker: "Aiko Yamada",
			opts:    opts,
			want:    "You wave.",
		},
		{
			name:    "speaker prefix for others",
			in:      "pulling in 10s",
			speaker: "Bran Ironfist",
			opts:    tts.ChatOptions{PlayerName: "Aiko Yamada", PrefixSpeaker: true},
			want:    "Bran says pulling in 10s",
		},
		{
			name:    "speaker prefix for self",
			in:      "omw",
			speaker: "Aiko Yamada",
			opts:    tts.ChatOptions{PlayerName: "Aiko Yamada", PrefixSpeaker: true},
			want:    "You say omw",
		},
		{
			name:    "minutes pluralized",
			in:      "back in 5 min",
			speaker: "Bran Ironfist",
			opts:    opts,
			want:    "back in 5 minutes",
		},
		{
			name:    "single minute",
			in:      "1 min late",
			speaker: "Bran Ironfist",
			opts:    opts,
			want:    "1 minute late",
		},
		{
			name:    "job abbreviations case insensitive",
			in:      "need a whm or sch",
			speaker: "Bran Ironfist",
			opts:    opts,
			want:    "need a White Mage or Scholar",
		},
		{
			name:    "war only expands uppercase",
			in:      "the war is over, WAR wanted",
			speaker: "Bran Ironfist",
			opts:    opts,
			want:    "the war is over, Warrior wanted",
		},
		{
			name:    "tank shorthand is case sensitive",
			in:      "MT grabs the boss, my mt sorry",
			speaker: "Bran Ironfist",
			opts:    opts,
			want:    "\"Main-Tank\" grabs the boss, my \"mistake\" sorry",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tts.PrepareChat(tc.in, tc.speaker, tc.opts)
			if got != tc.want {
				t.Errorf("PrepareChat(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
