package journals

import "github.com/go-chi/chi/v5"

// MountRoutes registers journal entry endpoints on the router.
func MountRoutes(r chi.Router, h *Handler) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/post", h.Post)
	r.Delete("/{id}", h.Delete)
}
