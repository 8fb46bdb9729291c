package accounts

import "github.com/go-chi/chi/v5"

// MountRoutes registers chart-of-accounts endpoints on the router.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}/opening-balance", h.SetOpeningBalance)
	r.Put("/{id}/active", h.SetActive)
}
