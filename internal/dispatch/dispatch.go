// Package dispatch coordinates one dialogue event end to end: normalize,
// resolve the speaker, locate the voice asset, fall back through the
// legacy-name retry and synthesis, report unvoiced lines, apply the channel
// policy, and hand the line to its queue or straight to playback.
//
// A dispatch runs once per event and never escalates a failure to the
// caller; everything is handled locally and summarized as an Outcome.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kvxd/aethervox/internal/config"
	"github.com/kvxd/aethervox/internal/locate"
	"github.com/kvxd/aethervox/internal/normalize"
	"github.com/kvxd/aethervox/internal/observe"
	"github.com/kvxd/aethervox/internal/resolve"
	"github.com/kvxd/aethervox/internal/world"
	"github.com/kvxd/aethervox/pkg/audio"
	"github.com/kvxd/aethervox/pkg/manifest"
	"github.com/kvxd/aethervox/pkg/provider/transcode"
	"github.com/kvxd/aethervox/pkg/provider/tts"
	"github.com/kvxd/aethervox/pkg/types"
)

// Event is one raw dialogue event as delivered by the host.
type Event struct {
	Channel  types.Channel
	Speaker  string
	Sentence string

	// BaseID is the host entity id accompanying the event, when known.
	BaseID uint32

	// ProxyTarget reports that the player is interacting with a proxy
	// object (a summoning bell) that hides the true speaker.
	ProxyTarget bool
}

// Outcome summarizes where a dispatch terminated.
type Outcome string

const (
	// OutcomeHit means a pre-rendered asset was found and handed off.
	OutcomeHit Outcome = "hit"
	// OutcomeSynthesized means the line went to the synthesis fallback.
	OutcomeSynthesized Outcome = "synthesized"
	// OutcomeSuppressed means a mapping deliberately silenced the line.
	OutcomeSuppressed Outcome = "suppressed"
	// OutcomeIgnored means the effective speaker is on the ignore list.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeBlocked means the policy gate dropped the line, or no
	// manifest was loaded.
	OutcomeBlocked Outcome = "blocked"
	// OutcomeEmpty means nothing speakable survived normalization.
	OutcomeEmpty Outcome = "empty"
)

// Player is the playback surface the dispatcher drives.
type Player interface {
	Play(msg *types.DialogueMessage, stream audio.Stream, replay bool)
	Stop(ch types.Channel)
}

// Queue accepts messages for ordered playback.
type Queue interface {
	Enqueue(msg *types.DialogueMessage)
}

// Reporter emits diagnostic reports for unvoiced lines.
type Reporter interface {
	Automatic(ctx context.Context, msg *types.DialogueMessage)
}

// Deps wires a Dispatcher. Manifests, Resolver, World, Config, Queue,
// Player, Assets and Processor are required; Synth and Reports may be nil
// when the corresponding fallback is disabled.
type Deps struct {
	Manifests manifest.Provider
	Resolver  *resolve.Resolver
	World     world.Query
	Config    func() *config.Config
	Queue     Queue
	Player    Player
	Assets    AssetStore
	Synth     tts.Provider
	Processor transcode.Processor
	Reports   Reporter
	Metrics   *observe.Metrics
	Logger    *slog.Logger
}

// Dispatcher runs the per-event pipeline. Safe for concurrent use; each
// Dispatch call is independent.
type Dispatcher struct {
	manifests manifest.Provider
	resolver  *resolve.Resolver
	world     world.Query
	cfg       func() *config.Config
	queue     Queue
	player    Player
	assets    AssetStore
	synth     tts.Provider
	processor transcode.Processor
	reports   Reporter
	metrics   *observe.Metrics
	logger    *slog.Logger

	// flight collapses concurrent synthesis of the same line (the host can
	// deliver one sentence on two channels at once, e.g. talk + bubble).
	flight singleflight.Group
}

// New constructs a Dispatcher from deps.
func New(deps Deps) *Dispatcher {
	d := &Dispatcher{
		manifests: deps.Manifests,
		resolver:  deps.Resolver,
		world:     deps.World,
		cfg:       deps.Config,
		queue:     deps.Queue,
		player:    deps.Player,
		assets:    deps.Assets,
		synth:     deps.Synth,
		processor: deps.Processor,
		reports:   deps.Reports,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Dispatch runs one event through the pipeline and returns where it
// terminated. Side effects are at most one report and at most one
// enqueue/play; the manifest snapshot is never mutated.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) Outcome {
	start := time.Now()
	out := d.dispatch(ctx, ev)
	d.metrics.RecordDispatchDuration(ctx, string(ev.Channel), time.Since(start))
	d.metrics.RecordDispatch(ctx, string(ev.Channel), string(out))
	return out
}

func (d *Dispatcher) dispatch(ctx context.Context, ev Event) Outcome {
	m := d.manifests.Current()
	if m == nil {
		d.logger.Debug("dispatch with no manifest loaded", "channel", ev.Channel)
		return OutcomeBlocked
	}
	cfg := d.cfg()
	playerName := d.world.PlayerName()

	res, err := d.resolver.Resolve(ctx, m, resolve.Request{
		Channel:     ev.Channel,
		Speaker:     ev.Speaker,
		Sentence:    ev.Sentence,
		PlayerName:  playerName,
		BaseID:      ev.BaseID,
		ProxyTarget: ev.ProxyTarget,
	})
	if err != nil {
		// World queries are best effort; resolution proceeds with whatever
		// voice can be derived without them.
		d.logger.Warn("speaker resolution degraded", "speaker", ev.Speaker, "error", err)
	}
	if res.Suppressed {
		return OutcomeSuppressed
	}
	if m.IsIgnored(res.Speaker) {
		return OutcomeIgnored
	}

	speaker, sentence := normalize.Clean(res.Speaker, ev.Sentence, normalize.Options{
		PlayerName: playerName,
		Mode:       normalize.ModeCurrent,
	})
	if sentence == "" {
		return OutcomeEmpty
	}

	loc := locate.Locate(m, res.Voice, speaker, sentence)
	if !loc.Exists && playerName != "" && normalize.SentenceHasPlayerName(ev.Sentence, playerName) {
		// Lines recorded before the naming scheme changed only address
		// under the legacy normalization.
		_, legacy := normalize.Clean(res.Speaker, ev.Sentence, normalize.Options{
			PlayerName: playerName,
			Mode:       normalize.ModeLegacy,
		})
		if lr := locate.Locate(m, res.Voice, speaker, legacy); lr.Exists {
			loc, sentence = lr, legacy
		}
	}
	if !loc.Exists {
		// Synthesis speaks the player's actual name instead of a token.
		if _, keep := normalize.Clean(res.Speaker, ev.Sentence, normalize.Options{
			PlayerName: playerName,
			KeepName:   true,
		}); keep != "" {
			sentence = keep
		}
	}

	msg := &types.DialogueMessage{
		ID:          loc.ID,
		Source:      ev.Channel,
		Speaker:     speaker,
		Sentence:    sentence,
		RawSpeaker:  ev.Speaker,
		RawSentence: ev.Sentence,
		Npc:         res.Npc,
		Voice:       res.Voice,
	}
	if loc.Exists {
		msg.AssetPath = loc.ID
	}

	// Player-authored chat is infinite and unreportable.
	if !loc.Exists && ev.Channel != types.ChannelChat &&
		cfg.Reporting.Enabled && d.reports != nil {
		d.reports.Automatic(ctx, msg)
	}

	pol := cfg.Channels.ForChannel(ev.Channel)
	switch {
	case !pol.Enabled:
		return OutcomeBlocked
	case cfg.Audio.Mute:
		return OutcomeBlocked
	case res.IsRetainer && !cfg.Channels.Retainers:
		return OutcomeBlocked
	}
	if narratorChannel(ev.Channel) && res.Speaker == resolve.NamelessSpeaker {
		if cfg.Channels.PrintNarrator {
			d.logger.Info("narrator", "sentence", sentence)
		}
		if !pol.Narrator {
			return OutcomeBlocked
		}
	}
	if msg.IsSynthesized() && (!pol.Synthesis || d.synth == nil) {
		return OutcomeBlocked
	}

	out := OutcomeHit
	if msg.IsSynthesized() {
		out = OutcomeSynthesized
	}

	if queued(ev.Channel, cfg) {
		d.queue.Enqueue(msg)
		return out
	}
	if ev.Channel == types.ChannelTalk {
		// With queueing off, a new scripted line replaces the current one.
		d.player.Stop(ev.Channel)
	}
	d.Start(msg)
	return out
}

func narratorChannel(ch types.Channel) bool {
	return ch == types.ChannelTalk || ch == types.ChannelBattleTalk
}

func queued(ch types.Channel, cfg *config.Config) bool {
	switch ch {
	case types.ChannelTalk, types.ChannelBattleTalk:
		return cfg.Channels.QueueDialogue
	case types.ChannelChat:
		return cfg.Channels.QueueChat
	default:
		return false
	}
}
