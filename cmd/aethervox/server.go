package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kvxd/aethervox/internal/dispatch"
	"github.com/kvxd/aethervox/internal/health"
	"github.com/kvxd/aethervox/internal/observe"
	"github.com/kvxd/aethervox/internal/playback"
	"github.com/kvxd/aethervox/internal/queue"
	"github.com/kvxd/aethervox/internal/report"
	"github.com/kvxd/aethervox/internal/world"
	"github.com/kvxd/aethervox/pkg/types"
)

// server exposes the host-facing ingestion endpoints and the operator
// diagnostics surface over one mux.
type server struct {
	dispatcher *dispatch.Dispatcher
	controller *playback.Controller
	queue      *queue.Manager
	reports    *report.Service
	world      *world.State
}

type serverDeps struct {
	dispatcher *dispatch.Dispatcher
	controller *playback.Controller
	queue      *queue.Manager
	reports    *report.Service
	world      *world.State
}

func newServer(deps serverDeps) *server {
	return &server{
		dispatcher: deps.dispatcher,
		controller: deps.controller,
		queue:      deps.queue,
		reports:    deps.reports,
		world:      deps.world,
	}
}

func (s *server) routes(metrics *observe.Metrics, checks *health.Handler) http.Handler {
	mux := http.NewServeMux()
	checks.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /dialogue", s.handleDialogue)
	mux.HandleFunc("POST /world", s.handleWorld)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("POST /replay", s.handleReplay)
	mux.HandleFunc("POST /skip", s.handleSkip)
	mux.HandleFunc("POST /stop", s.handleStop)
	mux.HandleFunc("POST /report", s.handleReport)

	return observe.Middleware(metrics)(mux)
}

// dialoguePayload is one raw dialogue event from the host.
type dialoguePayload struct {
	Channel     string `json:"channel"`
	Speaker     string `json:"speaker"`
	Sentence    string `json:"sentence"`
	BaseID      uint32 `json:"baseId"`
	ProxyTarget bool   `json:"proxyTarget"`
}

func (s *server) handleDialogue(w http.ResponseWriter, r *http.Request) {
	var p dialoguePayload
	if !decode(w, r, &p) {
		return
	}
	ch := types.Channel(p.Channel)
	if !ch.IsValid() {
		httpError(w, http.StatusBadRequest, "unknown channel")
		return
	}
	out := s.dispatcher.Dispatch(r.Context(), dispatch.Event{
		Channel:     ch,
		Speaker:     p.Speaker,
		Sentence:    p.Sentence,
		BaseID:      p.BaseID,
		ProxyTarget: p.ProxyTarget,
	})
	writeJSON(w, http.StatusOK, map[string]string{"outcome": string(out)})
}

// worldPayload is the host state snapshot pushed once per frame batch.
type worldPayload struct {
	PlayerName string            `json:"playerName"`
	Camera     *types.CameraView `json:"camera"`
	InCutscene bool              `json:"inCutscene"`
	InDuty     bool              `json:"inDuty"`
	Region     string            `json:"region"`
	Zone       string            `json:"zone"`
	Position   types.Vector3     `json:"position"`
	Quests     []string          `json:"quests"`
	Entities   []entityPayload   `json:"entities"`
}

type entityPayload struct {
	Name       string               `json:"name"`
	BaseID     uint32               `json:"baseId"`
	Position   types.Vector3        `json:"position"`
	Attributes *types.NpcAttributes `json:"attributes"`
}

func (s *server) handleWorld(w http.ResponseWriter, r *http.Request) {
	var p worldPayload
	if !decode(w, r, &p) {
		return
	}
	snap := world.Snapshot{
		PlayerName: p.PlayerName,
		InCutscene: p.InCutscene,
		InDuty:     p.InDuty,
		Region:     p.Region,
		Zone:       p.Zone,
		Position:   p.Position,
		Quests:     p.Quests,
	}
	if p.Camera != nil {
		snap.Camera = *p.Camera
		snap.HasCamera = true
	}
	for _, e := range p.Entities {
		snap.Entities = append(snap.Entities, world.Entity{
			Name:       e.Name,
			BaseID:     e.BaseID,
			Position:   e.Position,
			Attributes: e.Attributes,
		})
	}
	s.world.Update(snap)
	w.WriteHeader(http.StatusNoContent)
}

// historyEntry is the wire form of one played line.
type historyEntry struct {
	ID       string  `json:"id"`
	Channel  string  `json:"channel"`
	Speaker  string  `json:"speaker"`
	Sentence string  `json:"sentence"`
	Playing  bool    `json:"playing"`
	Percent  float64 `json:"percent"`
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	entries := s.controller.History()
	out := make([]historyEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, historyEntry{
			ID:       e.Message.ID,
			Channel:  string(e.Message.Source),
			Speaker:  e.Message.Speaker,
			Sentence: e.Message.Sentence,
			Playing:  e.Playing,
			Percent:  float64(e.Percent),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleReplay(w http.ResponseWriter, r *http.Request) {
	var p struct {
		ID string `json:"id"`
	}
	if !decode(w, r, &p) {
		return
	}
	msg, ok := s.fromHistory(p.ID)
	if !ok {
		httpError(w, http.StatusNotFound, "not in history")
		return
	}
	s.dispatcher.Replay(msg)
	w.WriteHeader(http.StatusAccepted)
}

// handleSkip skips a queued line when channel and id are given, otherwise
// fades out the most recently started track.
func (s *server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var p struct {
		Channel string `json:"channel"`
		ID      string `json:"id"`
	}
	if !decode(w, r, &p) {
		return
	}
	if p.ID != "" && p.Channel != "" {
		if !s.queue.SkipQueued(types.Channel(p.Channel), p.ID) {
			// Not queued; it may already be playing.
			s.controller.StopMessage(p.ID)
		}
	} else {
		s.controller.Skip()
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStop stops one channel, or everything when no channel is given
// (the host sends that on zone changes).
func (s *server) handleStop(w http.ResponseWriter, r *http.Request) {
	var p struct {
		Channel string `json:"channel"`
	}
	if !decode(w, r, &p) {
		return
	}
	if p.Channel == "" {
		for _, ch := range types.Channels {
			s.queue.Clear(ch)
		}
		s.controller.StopAll()
	} else {
		ch := types.Channel(p.Channel)
		s.queue.Clear(ch)
		s.controller.Stop(ch)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleReport(w http.ResponseWriter, r *http.Request) {
	var p struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
	}
	if !decode(w, r, &p) {
		return
	}
	msg, ok := s.fromHistory(p.ID)
	if !ok {
		httpError(w, http.StatusNotFound, "not in history")
		return
	}
	s.reports.Manual(r.Context(), msg, p.Reason)
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) fromHistory(id string) (*types.DialogueMessage, bool) {
	for _, e := range s.controller.History() {
		if e.Message.ID == id {
			return e.Message, true
		}
	}
	return nil, false
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		httpError(w, http.StatusBadRequest, "malformed body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode error", "err", err)
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
