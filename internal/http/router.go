package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"notesdb/internal/handlers"
	"notesdb/internal/report"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	DB        handlers.Pinger
	Notes     handlers.NoteGetter
	Generator report.Generator
	TopN      int
}

// NewRouter creates a new read-only HTTP router over an imported database.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.DB))
		r.Method(http.MethodGet, "/stats", handlers.NewStatsHandler(deps.Generator, deps.TopN))
		r.Method(http.MethodGet, "/notes/{noteID}", handlers.NewNoteHandler(deps.Notes))
	})

	return r
}
