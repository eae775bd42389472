// Package health serves the daemon's liveness and readiness probes.
//
// /healthz answers 200 whenever the process can serve HTTP at all.
// /readyz runs every registered [Checker] (manifest loaded, audio
// device open, report sink reachable) and answers 503 until all of
// them pass, so the host plugin can tell "daemon up" from "daemon
// ready to voice lines".
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds a single readiness check. Checks that block on a
// dead dependency must not stall the probe endpoint.
const probeTimeout = 2 * time.Second

// Checker probes one dependency. Check returns nil when the dependency
// is usable and must honor context cancellation.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

type checkReport struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

type probeReport struct {
	Status string        `json:"status"`
	Checks []checkReport `json:"checks,omitempty"`
}

// Handler answers /healthz and /readyz. The checker set is fixed at
// construction; the handler itself carries no mutable state.
type Handler struct {
	checkers []Checker
}

func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Healthz reports liveness. Serving the request is the proof.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, probeReport{Status: "ok"})
}

// Readyz runs every checker in registration order and reports each
// outcome with its probe latency. Any failure turns the overall status
// to "fail" with a 503.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := probeReport{Status: "ok", Checks: make([]checkReport, 0, len(h.checkers))}
	status := http.StatusOK

	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		start := time.Now()
		err := c.Check(ctx)
		elapsed := time.Since(start)
		cancel()

		cr := checkReport{Name: c.Name, Status: "ok", LatencyMS: elapsed.Milliseconds()}
		if err != nil {
			cr.Status = "fail"
			cr.Error = err.Error()
			rep.Status = "fail"
			status = http.StatusServiceUnavailable
		}
		rep.Checks = append(rep.Checks, cr)
	}

	writeJSON(w, status, rep)
}

// Register adds both probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
