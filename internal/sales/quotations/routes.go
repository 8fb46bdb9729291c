package quotations

import "github.com/go-chi/chi/v5"

// MountRoutes registers quotation endpoints on the router.
func MountRoutes(r chi.Router, h *Handler) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/send", h.MarkSent)
	r.Post("/{id}/accept", h.MarkAccepted)
	r.Post("/{id}/convert", h.Convert)
}
