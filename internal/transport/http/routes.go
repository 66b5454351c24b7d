package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// request logger runs after RequestID so the id is in context
	r.Use(RequestLogger)

	r.Get("/health", h.Health)
	r.Get("/diagnostics", h.Diagnostics)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", h.SubmitJob)
		r.Get("/", h.ListJobs)
		r.Get("/{id}", h.GetJob)
		r.Delete("/{id}", h.CancelJob)
	})

	r.Get("/events", h.StreamEvents)
	r.Get("/artifacts/{name}", h.GetArtifact)

	return r
}
