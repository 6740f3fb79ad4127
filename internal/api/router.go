package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/inkwell/internal/auth"
	"github.com/starford/inkwell/internal/pipeline"
)

// NewRouter creates a chi router with all API routes mounted.
// sseHandler, if non-nil, is mounted at GET /events behind the same auth.
func NewRouter(svc *pipeline.Service, verifier *auth.Verifier, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(verifier))

	// Keyword queue.
	r.Get("/keywords", h.ListKeywords)
	r.Post("/keywords", h.AddKeyword)
	r.Delete("/keywords/{keyword}", h.RemoveKeyword)
	r.Patch("/keywords/{keyword}", h.SetStatus)

	// Published content.
	r.Get("/content", h.ListContent)
	r.Delete("/content/{slug}", h.DeleteContent)
	r.Get("/search", h.Search)

	r.Post("/reconcile", h.Reconcile)
	r.Get("/history", h.History)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
