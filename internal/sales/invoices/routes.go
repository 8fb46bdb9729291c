package invoices

import "github.com/go-chi/chi/v5"

// MountRoutes registers invoice endpoints on the router.
func MountRoutes(r chi.Router, h *Handler) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/send", h.MarkSent)
	r.Post("/{id}/pay", h.MarkPaid)
	r.Post("/{id}/cancel", h.Cancel)
}
