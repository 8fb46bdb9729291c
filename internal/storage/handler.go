package storage

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler serves stored blobs to callers holding a valid signed URL.
type Handler struct {
	store  *Store
	logger *slog.Logger
}

// NewHandler constructs the blob retrieval handler.
func NewHandler(store *Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// MountRoutes attaches the signed retrieval route.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/*", h.serve)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	if err := h.store.VerifyQuery(rel, r.URL.Query()); err != nil {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	blob, err := h.store.Open(rel)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	defer blob.Close()

	w.Header().Set("Cache-Control", "private, no-store")
	if _, err := io.Copy(w, blob); err != nil {
		h.logger.Warn("serve blob", slog.String("path", rel), slog.Any("error", err))
	}
}
