package posting

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// Handler exposes document posting endpoints.
type Handler struct {
	engine *Engine
	logger *slog.Logger
}

// NewHandler constructs the posting HTTP handler.
func NewHandler(logger *slog.Logger, engine *Engine) *Handler {
	return &Handler{engine: engine, logger: logger}
}

type directPostRequest struct {
	DebitAccountID  int64 `json:"debit_account_id"`
	CreditAccountID int64 `json:"credit_account_id"`
}

func (h *Handler) PostSales(w http.ResponseWriter, r *http.Request) {
	id, err := docID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.engine.PostSalesDocument(r.Context(), id)
	h.respond(w, result, err, "post sales document")
}

func (h *Handler) PostPurchase(w http.ResponseWriter, r *http.Request) {
	h.direct(w, r, h.engine.PostPurchaseDocument, "post purchase document")
}

func (h *Handler) PostExpense(w http.ResponseWriter, r *http.Request) {
	h.direct(w, r, h.engine.PostExpenseDocument, "post expense document")
}

func (h *Handler) direct(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, docID uuid.UUID, debit, credit int64) (Result, error), action string) {
	id, err := docID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req directPostRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	result, err := fn(r.Context(), id, req.DebitAccountID, req.CreditAccountID)
	h.respond(w, result, err, action)
}

func (h *Handler) respond(w http.ResponseWriter, result Result, err error, action string) {
	if err != nil {
		if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrConflict) && !errors.Is(err, httpx.ErrNotFound) {
			h.logger.Error(action, slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func docID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, httpx.ErrValidation
	}
	return id, nil
}

// MountRoutes registers posting endpoints on the router.
func MountRoutes(r chi.Router, h *Handler) {
	r.Post("/documents/{id}/sales", h.PostSales)
	r.Post("/documents/{id}/purchase", h.PostPurchase)
	r.Post("/documents/{id}/expense", h.PostExpense)
}
