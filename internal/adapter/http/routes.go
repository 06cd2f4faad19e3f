package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Runs
		r.Post("/runs", h.SubmitRun)
		r.Get("/runs/{id}/status", h.GetStatus)
		r.Get("/runs/{id}/results", h.GetResults)
		r.Get("/runs/{id}/report", h.GetReport)
		r.Get("/runs/{id}/trace", h.GetTrace)
		r.Post("/runs/{id}/query", h.AskQuestion)
	})
}
