// Package api exposes the timer registry over HTTP.
package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates the Chi router with all routes and middleware. completer
// may be nil, in which case the complete route answers 501.
func NewRouter(timers Timers, completer Completer, planned PlannedMinutes, token string, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	healthH := NewHealthHandler(timers)
	timerH := NewTimerHandler(timers, completer, planned, logger)

	r.Get("/health", healthH.Health)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(token))

		r.Route("/timers", func(r chi.Router) {
			r.Get("/", timerH.List)
			r.Get("/{id}", timerH.Get)
			r.Post("/{id}/start", timerH.Start)
			r.Post("/{id}/stop", timerH.Stop)
			r.Post("/{id}/toggle", timerH.Toggle)
			r.Post("/{id}/complete", timerH.Complete)
			r.Delete("/{id}", timerH.Clear)
		})
	})

	return r
}
