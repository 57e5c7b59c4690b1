package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/completion"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/model"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/remote"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/timer"
	"github.com/carlosvictorodrigues/Editaliza-sub008/internal/visual"
)

// Timers is the registry surface the API drives.
type Timers interface {
	Start(sessionID string)
	Stop(sessionID string)
	Toggle(sessionID string)
	Clear(sessionID string)
	Get(sessionID string) (timer.Timer, bool)
	Timers() []timer.Timer
}

// Completer runs the session completion workflow.
type Completer interface {
	Complete(ctx context.Context, sessionID string) (model.CompletedSession, error)
}

// PlannedMinutes returns the planned length of a session, or 0 when unknown.
type PlannedMinutes func(sessionID string) int

type progressView struct {
	Minutes  int     `json:"minutes"`
	Planned  int     `json:"planned"`
	Fraction float64 `json:"fraction"`
}

type timerView struct {
	SessionID string       `json:"sessionId"`
	Exists    bool         `json:"exists"`
	ElapsedMs int64        `json:"elapsedMs"`
	Elapsed   string       `json:"elapsed"`
	Running   bool         `json:"running"`
	Pomodoros int          `json:"pomodoros"`
	Visual    visual.State `json:"visual"`
	Progress  progressView `json:"progress"`
}

type completedView struct {
	SessionID      string    `json:"sessionId"`
	StudiedSeconds int64     `json:"studiedSeconds"`
	Pomodoros      int       `json:"pomodoros"`
	Status         string    `json:"status"`
	Synced         bool      `json:"synced"`
	CompletedAt    time.Time `json:"completedAt"`
}

// TimerHandler handles timer HTTP requests.
type TimerHandler struct {
	timers    Timers
	completer Completer
	planned   PlannedMinutes
	logger    *slog.Logger
}

func NewTimerHandler(timers Timers, completer Completer, planned PlannedMinutes, logger *slog.Logger) *TimerHandler {
	return &TimerHandler{timers: timers, completer: completer, planned: planned, logger: logger}
}

// List handles GET /timers
func (h *TimerHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.timers.Timers()
	views := make([]timerView, 0, len(all))
	for _, t := range all {
		views = append(views, h.view(t, true))
	}
	writeJSON(w, http.StatusOK, views)
}

// Get handles GET /timers/{id}. A session without a timer is reported in its
// start state rather than as an error.
func (h *TimerHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.respond(w, chi.URLParam(r, "id"))
}

// Start handles POST /timers/{id}/start
func (h *TimerHandler) Start(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.timers.Start(id)
	h.respond(w, id)
}

// Stop handles POST /timers/{id}/stop
func (h *TimerHandler) Stop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.timers.Stop(id)
	h.respond(w, id)
}

// Toggle handles POST /timers/{id}/toggle
func (h *TimerHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.timers.Toggle(id)
	h.respond(w, id)
}

// Clear handles DELETE /timers/{id}
func (h *TimerHandler) Clear(w http.ResponseWriter, r *http.Request) {
	h.timers.Clear(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// Complete handles POST /timers/{id}/complete
func (h *TimerHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if h.completer == nil {
		writeError(w, http.StatusNotImplemented, "session completion is not configured")
		return
	}
	id := chi.URLParam(r, "id")
	cs, err := h.completer.Complete(r.Context(), id)
	switch {
	case errors.Is(err, completion.ErrNoTimer):
		writeError(w, http.StatusNotFound, "no timer for session "+id)
		return
	case errors.Is(err, remote.ErrStatus):
		h.logger.Warn("study server rejected completion", "session_id", id, "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	case err != nil:
		h.logger.Error("completion failed", "session_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "complete session: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, completedView{
		SessionID:      cs.SessionID,
		StudiedSeconds: cs.StudiedSeconds,
		Pomodoros:      cs.Pomodoros,
		Status:         cs.Status,
		Synced:         cs.Synced,
		CompletedAt:    cs.CompletedAt,
	})
}

func (h *TimerHandler) respond(w http.ResponseWriter, id string) {
	t, ok := h.timers.Get(id)
	if !ok {
		t = timer.Timer{SessionID: id}
	}
	writeJSON(w, http.StatusOK, h.view(t, ok))
}

func (h *TimerHandler) view(t timer.Timer, exists bool) timerView {
	planned := 0
	if h.planned != nil {
		planned = h.planned(t.SessionID)
	}
	p := visual.ProgressOf(t.Elapsed, planned)
	return timerView{
		SessionID: t.SessionID,
		Exists:    exists,
		ElapsedMs: t.Elapsed.Milliseconds(),
		Elapsed:   visual.FormatElapsed(t.Elapsed),
		Running:   t.Running,
		Pomodoros: t.Pomodoros,
		Visual:    visual.For(t),
		Progress:  progressView{Minutes: p.Minutes, Planned: p.Planned, Fraction: p.Fraction},
	}
}
