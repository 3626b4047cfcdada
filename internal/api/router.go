package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/sowilo/internal/gallery"
	"github.com/starford/sowilo/internal/storage"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(ctrl *gallery.Controller, query *gallery.Query, store storage.Provider, authEnabled bool, token string) chi.Router {
	h := NewHandler(ctrl, query)
	fh := NewFileHandler(query, store)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Photos.
	r.Get("/photos", h.ListPhotos)
	r.Post("/photos", h.Upload)
	r.Get("/photos/*", h.GetPhoto)
	r.Put("/photos/*", h.UpdateTags)
	r.Delete("/photos/*", h.DeletePhoto)

	// Raw image bytes.
	r.Get("/files/*", fh.ServeFile)

	// Search.
	r.Get("/search", h.Search)

	// Explicit reconciliation.
	r.Post("/resync", h.Resync)

	return r
}
