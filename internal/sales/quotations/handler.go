package quotations

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// Handler exposes quotation endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the quotations HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	quotation, err := h.service.Create(r.Context(), in)
	if err != nil {
		if !errors.Is(err, httpx.ErrValidation) {
			h.logger.Error("create quotation", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, quotation)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := quotationID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	quotation, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quotation)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.service.List(r.Context(), QuotationStatus(r.URL.Query().Get("status")), limit)
	if err != nil {
		h.logger.Error("list quotations", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if out == nil {
		out = []Quotation{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) MarkSent(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkSent)
}

func (h *Handler) MarkAccepted(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.MarkAccepted)
}

func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	id, err := quotationID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	invoice, err := h.service.Convert(r.Context(), id)
	if err != nil {
		if !errors.Is(err, httpx.ErrConflict) && !errors.Is(err, httpx.ErrNotFound) {
			h.logger.Error("convert quotation", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id int64) error) {
	id, err := quotationID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := fn(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func quotationID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, httpx.ErrValidation
	}
	return id, nil
}
