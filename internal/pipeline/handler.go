package pipeline

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// TaskDispatcher hands a document to the background pipeline immediately.
type TaskDispatcher interface {
	DispatchPipeline(ctx context.Context, documentID uuid.UUID) error
}

// Handler exposes pipeline administration endpoints: re-running a document
// and reviving dead queue items. Recovery of stuck work is an explicit
// administrative action.
type Handler struct {
	queue  Repository
	tasks  TaskDispatcher
	logger *slog.Logger
}

// NewHandler constructs the pipeline HTTP handler.
func NewHandler(logger *slog.Logger, queue Repository, tasks TaskDispatcher) *Handler {
	return &Handler{queue: queue, tasks: tasks, logger: logger}
}

// MountRoutes attaches pipeline admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/documents/{id}/rerun", h.Rerun)
	r.Post("/documents/{id}/requeue-dead", h.RequeueDead)
}

// Rerun dispatches the pipeline for a document again. Completed stages
// short-circuit, so this is the manual retry mechanism.
func (h *Handler) Rerun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid document id")
		return
	}
	if err := h.tasks.DispatchPipeline(r.Context(), id); err != nil {
		h.logger.Error("dispatch pipeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"document_id": id.String(), "dispatched": true})
}

// RequeueDead resets dead queue items for a document and dispatches a run.
func (h *Handler) RequeueDead(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid document id")
		return
	}
	revived, err := h.queue.RequeueDead(r.Context(), id)
	if err != nil {
		h.logger.Error("requeue dead", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if revived > 0 {
		_ = h.tasks.DispatchPipeline(r.Context(), id)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"document_id": id.String(), "revived": revived})
}
