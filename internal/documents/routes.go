package documents

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Upload)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Delete)
}

func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func ownerHeader(raw string) int64 {
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
