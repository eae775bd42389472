// Package effects maps a resolved identity to the audio filter graph its
// lines are played through. Selection is a pure function; applying the
// filters is the transcode provider's job.
package effects

import (
	"strings"

	"github.com/kvxd/aethervox/pkg/types"
)

const baseSampleRate = 48000

// Input carries everything selection may look at.
type Input struct {
	Voice    *types.VoiceIdentity
	Npc      *types.NpcAttributes
	Speaker  string
	Sentence string

	// SpeedPercent is the configured playback speed; 100 means unchanged.
	SpeedPercent int
}

// Select builds the filter graph for one message. Identical inputs always
// produce an identical spec.
func Select(in Input) types.FilterSpec {
	var spec types.FilterSpec
	addEcho := false

	voiceID := ""
	if in.Voice != nil {
		voiceID = in.Voice.ID
	}
	npc := in.Npc
	if npc == nil {
		npc = &types.NpcAttributes{}
	}

	if npc.Kind == "Old" {
		spec.Stages = append(spec.Stages, rateStage(0.9, 1/0.9))
	}

	if strings.HasPrefix(npc.Race, "Dragon") {
		switch {
		case npc.Kind == "Female", npc.Race == "Dragon_Medium":
			spec.Stages = append(spec.Stages, rateStage(0.9, 1/1.1))
		case npc.Race == "Dragon_Small":
			spec.Stages = append(spec.Stages, rateStage(0.97, 1/1.06))
		default:
			spec.Stages = append(spec.Stages, rateStage(0.95, 1/1.05))
		}
		addEcho = true
	}

	switch {
	case voiceID == "Ea":
		// Two detuned layers plus a tight echo gives the disembodied choir.
		spec.Stages = append(spec.Stages,
			types.FilterStage{Kind: types.KindPitchLayer, Pitches: []float64{0.90, 1.02}},
			echoStage(0.8, 0.88, 120, 0.4),
		)
	case strings.HasPrefix(npc.Race, "Golem"):
		spec.Stages = append(spec.Stages, rateStage(0.85, 1/0.85))
	case strings.HasPrefix(npc.Race, "Giant"):
		spec.Stages = append(spec.Stages, rateStage(0.75, 1/0.85))
	}

	if strings.HasPrefix(npc.Kind, "Primal") {
		addEcho = true
	}
	switch npc.Kind {
	case "Primal M1":
		spec.Stages = append(spec.Stages, rateStage(0.85, 1/0.9))
	case "Primal Dual":
		// The twin deity speaks as either half or as both at once.
		switch {
		case in.Speaker == "Thal" || strings.HasPrefix(in.Sentence, "Nald"):
			spec.Stages = append(spec.Stages, types.FilterStage{Kind: types.KindPitchLayer, Pitches: []float64{0.92}})
		case in.Speaker == "Nald" || strings.HasPrefix(in.Sentence, "Thal"):
			spec.Stages = append(spec.Stages, types.FilterStage{Kind: types.KindPitchLayer, Pitches: []float64{1.03}})
		default:
			spec.Stages = append(spec.Stages, types.FilterStage{Kind: types.KindPitchLayer, Pitches: []float64{0.93, 1.04}})
		}
	}

	if strings.HasPrefix(npc.Kind, "Boss") {
		addEcho = true
	}
	if npc.Kind == "Boss F1" {
		spec.Stages = append(spec.Stages, types.FilterStage{Kind: types.KindPitchLayer, Pitches: []float64{0.8, 1.0}})
	}

	if addEcho {
		spec.Stages = append(spec.Stages, echoStage(0.8, 0.9, 500, 0.1))
	}

	if in.SpeedPercent != 0 && in.SpeedPercent != 100 {
		spec.Stages = append(spec.Stages, types.FilterStage{
			Kind:  types.KindSpeed,
			Tempo: float64(in.SpeedPercent) / 100,
		})
	}

	if voiceID == "Omicron" || voiceID == "Node" || strings.Contains(npc.Kind, "Robot") {
		spec.Stages = append(spec.Stages, types.FilterStage{Kind: types.KindRobot})
	}

	return spec
}

// rateStage shifts sample rate by rateMul and compensates tempo by
// tempoMul, relative to the 48 kHz base.
func rateStage(rateMul, tempoMul float64) types.FilterStage {
	return types.FilterStage{
		Kind:  types.KindRate,
		Rate:  baseSampleRate * rateMul,
		Tempo: tempoMul,
	}
}

func echoStage(inGain, outGain, delayMs, decay float64) types.FilterStage {
	return types.FilterStage{
		Kind:        types.KindEcho,
		EchoInGain:  inGain,
		EchoOutGain: outGain,
		EchoDelayMs: delayMs,
		EchoDecay:   decay,
	}
}
