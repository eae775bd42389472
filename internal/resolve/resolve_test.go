package resolve_test

import (
	"context"
	"testing"

	"github.com/kvxd/aethervox/internal/resolve"
	"github.com/kvxd/aethervox/internal/world/mock"
	"github.com/kvxd/aethervox/pkg/manifest"
	"github.com/kvxd/aethervox/pkg/types"
)

func testManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	wanderer := "npc-wanderer"
	retainer := "npc-retainer"
	suppressed := ""
	raw := &manifest.Raw{
		Voices: []types.VoiceIdentity{
			{ID: "Estinien"},
			{ID: "Nameless_Wanderer"},
			{ID: "Retainer_Generic"},
		},
		Npcs: []types.NpcAttributes{
			{
				ID: "npc-estinien", VoiceID: "Estinien",
				Gender: "Male", Race: "Elezen", Tribe: "Wildwood", Body: "Adult", Eyes: "Option 1",
				Speakers: []string{"Estinien"},
			},
			{
				ID: "npc-wanderer", VoiceID: "Nameless_Wanderer",
				Speakers: []string{"Nameless Wanderer"},
			},
			{
				ID: "npc-chameleon", VoiceID: "Estinien",
				Speakers:       []string{"Chameleon"},
				HasVariedLooks: true,
			},
			{
				ID: "npc-retainer", VoiceID: "Retainer_Generic",
				Speakers: []string{"Faithful Retainer"},
			},
		},
		SpeakerMappings: []manifest.RawMapping{
			{Type: manifest.MappingNameless, Sentence: "You have my thanks.", NpcID: &wanderer},
			{Type: manifest.MappingNameless, Sentence: "Begone.", NpcID: &suppressed},
			{Type: manifest.MappingRetainer, Sentence: "I have returned from my venture.", Speaker: "Faithful Retainer", NpcID: &retainer},
		},
	}
	m, err := manifest.Build(raw)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

func TestResolveExplicitVoice(t *testing.T) {
	r := resolve.New(mock.New())
	m := testManifest(t)

	res, err := r.Resolve(context.Background(), m, resolve.Request{
		Channel: types.ChannelTalk,
		Speaker: "Estinien",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Voice == nil || res.Voice.ID != "Estinien" {
		t.Fatalf("voice = %+v, want Estinien", res.Voice)
	}
	if res.Voice.IsGeneric {
		t.Error("explicit voice flagged generic")
	}
	if res.Npc == nil || res.Npc.ID != "npc-estinien" {
		t.Errorf("npc = %+v", res.Npc)
	}
}

func TestResolveNameless(t *testing.T) {
	r := resolve.New(mock.New())
	m := testManifest(t)

	res, err := r.Resolve(context.Background(), m, resolve.Request{
		Channel:  types.ChannelTalk,
		Speaker:  "???",
		Sentence: "You have my thanks.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Suppressed {
		t.Fatal("nameless mapping wrongly suppressed")
	}
	if res.Speaker != "Nameless Wanderer" {
		t.Errorf("effective speaker = %q, want Nameless Wanderer", res.Speaker)
	}
	if res.Voice == nil || res.Voice.ID != "Nameless_Wanderer" {
		t.Errorf("voice = %+v, want Nameless_Wanderer", res.Voice)
	}
}

func TestResolveNamelessSuppress(t *testing.T) {
	r := resolve.New(mock.New())
	m := testManifest(t)

	res, err := r.Resolve(context.Background(), m, resolve.Request{
		Channel:  types.ChannelTalk,
		Speaker:  "???",
		Sentence: "Begone.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Suppressed {
		t.Fatal("suppress mapping did not suppress")
	}
}

func TestResolveUnmappedNameless(t *testing.T) {
	w := mock.New()
	r := resolve.New(w)
	m := testManifest(t)

	// No mapping for this line: fall through to a live lookup, which also
	// finds nothing. The resolver still yields an addressable fallback.
	res, err := r.Resolve(context.Background(), m, resolve.Request{
		Channel:  types.ChannelTalk,
		Speaker:  "???",
		Sentence: "Never heard before.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Suppressed {
		t.Error("unmapped nameless line suppressed")
	}
	if res.Npc != nil {
		t.Errorf("npc = %+v, want nil", res.Npc)
	}
	if res.Voice != nil {
		t.Errorf("voice = %+v, want nil without attributes", res.Voice)
	}
}

func TestResolveGenericFromLiveAttributes(t *testing.T) {
	w := mock.New()
	w.SetAttributes("Resistance Fighter", &types.NpcAttributes{
		Gender: "Female", Race: "Au Ra", Tribe: "Raen", Body: "Adult", Eyes: "Option 3",
	})
	r := resolve.New(w)
	m := testManifest(t)

	res, err := r.Resolve(context.Background(), m, resolve.Request{
		Channel: types.ChannelTalk,
		Speaker: "Resistance Fighter",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Voice == nil || res.Voice.ID != "Au_Ra_Raen_Female_03" {
		t.Fatalf("voice = %+v, want Au_Ra_Raen_Female_03", res.Voice)
	}
	if !res.Voice.IsGeneric {
		t.Error("derived voice not flagged generic")
	}
	if res.Npc.VoiceID != "Au_Ra_Raen_Female_03" {
		t.Errorf("derivation not recorded on npc, VoiceID = %q", res.Npc.VoiceID)
	}
}

func TestResolveVariedLooksAlwaysRequeried(t *testing.T) {
	w := mock.New()
	w.SetAttributes("Chameleon", &types.NpcAttributes{
		Gender: "Male", Race: "Hyur", Tribe: "Midlander", Body: "Adult", Eyes: "Option 2",
	})
	r := resolve.New(w)
	m := testManifest(t)

	res, err := r.Resolve(context.Background(), m, resolve.Request{
		Channel: types.ChannelTalk,
		Speaker: "Chameleon",
	})
	if err != nil {
		t.Fatal(err)
	}
	if w.ResolveCalls != 1 {
		t.Errorf("world queried %d times, want 1", w.ResolveCalls)
	}
	// Explicit voice must be ignored for varied-looks entities.
	if res.Voice == nil || res.Voice.ID != "Hyur_Midlander_Male_02" {
		t.Fatalf("voice = %+v, want Hyur_Midlander_Male_02", res.Voice)
	}
	// Identity fields survive the merge, appearance comes from the world.
	if res.Npc.ID != "npc-chameleon" {
		t.Errorf("npc id lost in merge: %q", res.Npc.ID)
	}
	if res.Npc.Race != "Hyur" {
		t.Errorf("live race not merged: %q", res.Npc.Race)
	}

	// The manifest record itself must stay untouched.
	rec, _ := m.Lookup("Chameleon")
	if rec.Race != "" || rec.VoiceID != "Estinien" {
		t.Errorf("manifest record mutated: %+v", rec)
	}
}

func TestResolveRetainerMapping(t *testing.T) {
	r := resolve.New(mock.New())
	m := testManifest(t)

	res, err := r.Resolve(context.Background(), m, resolve.Request{
		Channel:     types.ChannelTalk,
		Speaker:     "Proxy Bell",
		Sentence:    "I have returned from my venture.",
		ProxyTarget: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsRetainer {
		t.Error("retainer mapping hit not flagged")
	}
	if res.Speaker != "Faithful Retainer" {
		t.Errorf("effective speaker = %q", res.Speaker)
	}
	if res.Voice == nil || res.Voice.ID != "Retainer_Generic" {
		t.Errorf("voice = %+v", res.Voice)
	}

	// Same sentence without the proxy context stays unmapped.
	res, err = r.Resolve(context.Background(), m, resolve.Request{
		Channel:  types.ChannelTalk,
		Speaker:  "Proxy Bell",
		Sentence: "I have returned from my venture.",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.IsRetainer {
		t.Error("retainer mapping applied outside proxy context")
	}
}

func TestResolveFeoUlProxySpecialCase(t *testing.T) {
	r := resolve.New(mock.New())
	m := testManifest(t)

	res, err := r.Resolve(context.Background(), m, resolve.Request{
		Channel:     types.ChannelTalk,
		Speaker:     "Feo Ul",
		Sentence:    "O my adorable sapling!",
		ProxyTarget: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.IsRetainer {
		t.Error("Feo Ul through the bell not treated as retainer line")
	}
}

func TestResolveChatSpeakerCache(t *testing.T) {
	w := mock.New()
	w.SetAttributes("Ardbert Bestman", &types.NpcAttributes{
		Gender: "Male", Race: "Hyur", Tribe: "Highlander", Body: "Adult", Eyes: "Option 1",
	})
	r := resolve.New(w)
	m := testManifest(t)

	req := resolve.Request{Channel: types.ChannelChat, Speaker: "Ardbert Bestman"}
	res, err := r.Resolve(context.Background(), m, req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Npc == nil {
		t.Fatal("no attributes while speaker in range")
	}

	// Speaker walks out of range: attributes now come from the cache.
	w.SetAttributes("Ardbert Bestman", nil)
	res, err = r.Resolve(context.Background(), m, req)
	if err != nil {
		t.Fatal(err)
	}
	if res.Npc == nil || res.Npc.Gender != "Male" {
		t.Fatalf("cached attributes not used: %+v", res.Npc)
	}
	if res.Voice == nil || res.Voice.ID != "Hyur_Highlander_Male_01" {
		t.Errorf("voice = %+v", res.Voice)
	}
}

func TestGenericVoiceSpecialRaces(t *testing.T) {
	m := testManifest(t)

	dragon := resolve.GenericVoice(m, &types.NpcAttributes{Race: "Dragon_Medium"}, "Vedrfolnir")
	if dragon.ID != "Dragon_Medium" {
		t.Errorf("dragon voice = %q", dragon.ID)
	}
	boss := resolve.GenericVoice(m, &types.NpcAttributes{Race: "Boss_Zenos"}, "Zenos yae Galvus")
	if boss.ID != "Boss_Zenos" {
		t.Errorf("boss voice = %q", boss.ID)
	}

	ranjit := resolve.GenericVoice(m, &types.NpcAttributes{Race: "Lupin"}, "Hakuro Gunji")
	if ranjit.ID != "Ranjit" {
		t.Errorf("Hakuro voice = %q", ranjit.ID)
	}

	a := resolve.GenericVoice(m, &types.NpcAttributes{Race: "Lupin"}, "Gosetsu's Friend")
	b := resolve.GenericVoice(m, &types.NpcAttributes{Race: "Lupin"}, "Gosetsu's Friend")
	if a.ID != b.ID {
		t.Errorf("lupin voice unstable: %q vs %q", a.ID, b.ID)
	}

	unknown := resolve.GenericVoice(m, &types.NpcAttributes{Race: "Frog", Body: "Adult"}, "Froggy")
	if unknown.ID != resolve.UnknownVoice {
		t.Errorf("fallback voice = %q", unknown.ID)
	}
}
