package accounts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// Handler exposes chart-of-accounts endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the accounts HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger}
}

type createRequest struct {
	Name           string      `json:"account_name"`
	Type           AccountType `json:"account_type"`
	OpeningBalance float64     `json:"opening_balance"`
}

type balanceRequest struct {
	OpeningBalance float64 `json:"opening_balance"`
}

type activeRequest struct {
	IsActive bool `json:"is_active"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	out, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if out == nil {
		out = []Account{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	account, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	account, err := h.service.Create(r.Context(), Account{
		Name:           req.Name,
		Type:           req.Type,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		if !errors.Is(err, httpx.ErrValidation) {
			h.logger.Error("create account", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) SetOpeningBalance(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req balanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.service.SetOpeningBalance(r.Context(), id, req.OpeningBalance); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	id, err := accountID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req activeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.service.SetActive(r.Context(), id, req.IsActive); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func accountID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, httpx.ErrValidation
	}
	return id, nil
}
