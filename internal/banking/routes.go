package banking

import "github.com/go-chi/chi/v5"

// MountRoutes registers banking endpoints on the router.
func MountRoutes(r chi.Router, h *Handler) {
	r.Post("/import", h.Import)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}/category", h.Categorize)
	r.Post("/{id}/suggest-category", h.Suggest)
	r.Post("/post-batch", h.PostBatch)
}
