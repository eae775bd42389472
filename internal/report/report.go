// Package report emits diagnostic reports for dialogue lines that resolved
// to no voice asset. Reports capture the full resolution result plus a
// snapshot of where the player was, so missing lines can be triaged and
// recorded later. Emission is fire-and-forget: a failing sink never blocks
// or fails a dispatch.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kvxd/aethervox/internal/world"
	"github.com/kvxd/aethervox/pkg/types"
)

// Kind distinguishes automatic miss reports from user-submitted ones.
type Kind string

const (
	KindAutomatic Kind = "automatic"
	KindManual    Kind = "manual"
)

// Report is one diagnostic record. Player-state fields are only set on
// automatic reports; by the time a user submits a manual report they may be
// in another zone entirely.
type Report struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	Date string `json:"date"`

	Message *types.DialogueMessage `json:"message"`

	Location    string   `json:"location,omitempty"`
	Coordinates string   `json:"coordinates,omitempty"`
	InCutscene  *bool    `json:"isInCutscene,omitempty"`
	InDuty      *bool    `json:"isInDuty,omitempty"`
	Quests      []string `json:"activeQuests,omitempty"`

	Reason string `json:"reason,omitempty"`
}

// Sink persists or forwards reports. Emit must be safe for concurrent use.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	Emit(ctx context.Context, r *Report) error
}

// Service builds reports and fans them out to every configured sink.
type Service struct {
	world  world.Query
	sinks  []Sink
	logger *slog.Logger

	// recorded is called once per report per sink with the sink name and
	// whether emission succeeded. Wired to metrics by the daemon.
	recorded func(sink string, ok bool)
}

// Option is a functional option for the Service.
type Option func(*Service)

// WithRecorder registers a callback invoked after each sink emission.
func WithRecorder(fn func(sink string, ok bool)) Option {
	return func(s *Service) {
		s.recorded = fn
	}
}

// New constructs a Service. A nil logger uses slog.Default; zero sinks is
// valid and makes every report a no-op.
func New(w world.Query, logger *slog.Logger, sinks []Sink, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{world: w, sinks: sinks, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Automatic reports a line that resolved to no asset. Each message is
// reported at most once: repeat dispatches of the same message are dropped
// here. The world snapshot is taken synchronously; sink emission happens on
// a background goroutine.
func (s *Service) Automatic(ctx context.Context, msg *types.DialogueMessage) {
	if len(s.sinks) == 0 {
		return
	}
	if !msg.MarkReported() {
		s.logger.Debug("report already emitted for message", "id", msg.ID)
		return
	}

	loc := s.world.Location()
	cutscene := s.world.IsInCutscene()
	duty := s.world.IsInDuty()

	r := &Report{
		ID:          uuid.NewString(),
		Kind:        KindAutomatic,
		Date:        time.Now().UTC().Format(time.RFC3339Nano),
		Message:     msg,
		Location:    loc.Region + ", " + loc.Zone,
		Coordinates: fmt.Sprintf("%.2f, %.2f, %.2f", loc.Coordinates.X, loc.Coordinates.Y, loc.Coordinates.Z),
		InCutscene:  &cutscene,
		InDuty:      &duty,
		Quests:      s.world.ActiveQuests(),
	}

	go s.emit(context.WithoutCancel(ctx), r)
}

// Manual submits a user-initiated report with a free-form reason.
func (s *Service) Manual(ctx context.Context, msg *types.DialogueMessage, reason string) {
	if len(s.sinks) == 0 {
		return
	}
	r := &Report{
		ID:      uuid.NewString(),
		Kind:    KindManual,
		Date:    time.Now().UTC().Format(time.RFC3339Nano),
		Message: msg,
		Reason:  reason,
	}
	go s.emit(context.WithoutCancel(ctx), r)
}

func (s *Service) emit(ctx context.Context, r *Report) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	for _, sink := range s.sinks {
		err := sink.Emit(ctx, r)
		if err != nil {
			s.logger.Warn("report sink failed",
				"sink", sink.Name(), "report", r.ID, "error", err)
		} else {
			s.logger.Debug("report emitted",
				"sink", sink.Name(), "report", r.ID, "speaker", r.Message.Speaker)
		}
		if s.recorded != nil {
			s.recorded(sink.Name(), err == nil)
		}
	}
}
