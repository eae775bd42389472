package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kvxd/aethervox/internal/config"
	"github.com/kvxd/aethervox/internal/effects"
	"github.com/kvxd/aethervox/internal/normalize"
	"github.com/kvxd/aethervox/pkg/audio"
	"github.com/kvxd/aethervox/pkg/provider/tts"
	"github.com/kvxd/aethervox/pkg/types"
)

// Start materializes msg's audio off the tick thread and hands the track to
// the player. It is both the queue's StartFunc and the immediate-play path,
// and returns as soon as the slow work is handed off. On failure nothing
// plays; a queued channel recovers through its confirmation timeout.
func (d *Dispatcher) Start(msg *types.DialogueMessage) {
	ctx, cancel := context.WithCancel(context.Background())
	msg.BindCancel(cancel)

	go func() {
		defer cancel()
		stream, err := d.materialize(ctx, msg)
		if err != nil {
			switch {
			case msg.Cancelled() || errors.Is(err, context.Canceled):
				d.logger.Debug("line cancelled in flight",
					"id", msg.ID, "channel", msg.Source)
			case errors.Is(err, tts.ErrSynthesisUnavailable):
				d.logger.Warn("synthesis unavailable, line dropped",
					"id", msg.ID, "channel", msg.Source, "error", err)
			default:
				d.logger.Warn("line could not be materialized",
					"id", msg.ID, "channel", msg.Source, "error", err)
			}
			return
		}
		if msg.Cancelled() {
			return
		}
		d.player.Play(msg, stream, false)
	}()
}

// Replay re-plays an already-materialized line from history.
func (d *Dispatcher) Replay(msg *types.DialogueMessage) {
	ctx, cancel := context.WithCancel(context.Background())
	msg.BindCancel(cancel)

	go func() {
		defer cancel()
		stream, err := d.materialize(ctx, msg)
		if err != nil {
			d.logger.Warn("replay failed", "id", msg.ID, "error", err)
			return
		}
		d.player.Play(msg, stream, true)
	}()
}

func (d *Dispatcher) materialize(ctx context.Context, msg *types.DialogueMessage) (audio.Stream, error) {
	cfg := d.cfg()

	var src []byte
	var err error
	speed := cfg.Audio.Speed
	if msg.IsSynthesized() {
		// The backend applies the synthesis rate itself.
		speed = 100
		src, err = d.synthesize(ctx, msg, cfg)
	} else {
		src, err = d.assets.Fetch(ctx, msg.AssetPath)
	}
	if err != nil {
		return nil, err
	}

	spec := effects.Select(effects.Input{
		Voice:        msg.Voice,
		Npc:          msg.Npc,
		Speaker:      msg.Speaker,
		Sentence:     msg.Sentence,
		SpeedPercent: speed,
	})

	start := time.Now()
	stream, err := d.processor.Process(ctx, src, spec)
	d.metrics.RecordTranscodeDuration(ctx, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("dispatch: transcode %s: %w", msg.ID, err)
	}
	return stream, nil
}

func (d *Dispatcher) synthesize(ctx context.Context, msg *types.DialogueMessage, cfg *config.Config) ([]byte, error) {
	text := msg.Sentence
	if msg.Source == types.ChannelChat {
		text = tts.PrepareChat(text, msg.Speaker, tts.ChatOptions{
			PlayerName:    d.world.PlayerName(),
			PrefixSpeaker: cfg.Synthesis.PlayerSays,
		})
	}
	if m := d.manifests.Current(); m != nil {
		text = normalize.ApplyLexicon(text, m.Lexicon)
	}
	text, err := tts.PrepareSpeech(text)
	if err != nil {
		return nil, err
	}

	hint := tts.Hint{
		Gender: tts.GenderMale,
		Speed:  cfg.Audio.SynthesisSpeed,
	}
	if msg.Npc != nil && msg.Npc.Gender == tts.GenderFemale {
		hint.Gender = tts.GenderFemale
	}
	if msg.Voice != nil {
		hint.Voice = msg.Voice.ID
	}

	backend := cfg.Synthesis.Backend
	v, err, _ := d.flight.Do(msg.ID, func() (any, error) {
		start := time.Now()
		data, serr := d.synth.Synthesize(ctx, text, hint)
		d.metrics.RecordSynthesisDuration(ctx, backend, time.Since(start))
		if serr != nil {
			d.metrics.RecordSynthesisError(ctx, backend)
			return nil, serr
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	data := v.([]byte)

	if cfg.Synthesis.OnDemand {
		if err := d.assets.Save(ctx, msg.ID, data); err != nil {
			d.logger.Debug("generated asset not saved", "id", msg.ID, "error", err)
		}
	}
	return data, nil
}
