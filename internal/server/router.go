package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/nocturne/internal/api"
	"github.com/cloo-solutions/nocturne/internal/api/handlers"
	"github.com/cloo-solutions/nocturne/internal/api/middleware"
)

type RouterConfig struct {
	StageHandler  *handlers.StageHandler
	NoteHandler   *handlers.NoteHandler
	ActionHandler *handlers.ActionHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/stages", func(r chi.Router) {
		r.Post("/structure", cfg.StageHandler.Structure)
		r.Post("/actions", cfg.StageHandler.Actions)
		r.Post("/observations", cfg.StageHandler.Observations)
	})

	r.Route("/notes", func(r chi.Router) {
		r.Post("/", cfg.NoteHandler.Create)
		r.Get("/", cfg.NoteHandler.List)
		r.Get("/{id}", cfg.NoteHandler.Get)
		r.Delete("/{id}", cfg.NoteHandler.Delete)
		r.Get("/{id}/export", cfg.NoteHandler.Export)
	})

	r.Get("/tags", cfg.NoteHandler.Tags)

	r.Route("/actions", func(r chi.Router) {
		r.Post("/{id}/toggle", cfg.ActionHandler.Toggle)
		r.Patch("/{id}", cfg.ActionHandler.Update)
	})

	return r
}
