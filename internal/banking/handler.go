package banking

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// Handler exposes bank transaction endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the banking HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed multipart body")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing file field")
		return
	}
	defer file.Close()

	result, err := h.service.ImportCSV(r.Context(), file)
	if err != nil {
		if !errors.Is(err, httpx.ErrValidation) {
			h.logger.Error("import bank statement", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	out, err := h.service.List(r.Context(), TransactionStatus(r.URL.Query().Get("status")), limit)
	if err != nil {
		h.logger.Error("list bank transactions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if out == nil {
		out = []BankTransaction{}
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := txnID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	txn, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

type categorizeRequest struct {
	Category string `json:"category"`
}

func (h *Handler) Categorize(w http.ResponseWriter, r *http.Request) {
	id, err := txnID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req categorizeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.service.Categorize(r.Context(), id, req.Category); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	id, err := txnID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	txn, err := h.service.SuggestCategory(r.Context(), id)
	if err != nil {
		if !errors.Is(err, httpx.ErrConflict) && !errors.Is(err, httpx.ErrNotFound) {
			h.logger.Error("suggest category", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

type postBatchRequest struct {
	TransactionIDs  []int64 `json:"transaction_ids"`
	BankAccountID   int64   `json:"bank_account_id"`
	OffsetAccountID int64   `json:"offset_account_id"`
}

func (h *Handler) PostBatch(w http.ResponseWriter, r *http.Request) {
	var req postBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	entry, err := h.service.PostBatch(r.Context(), req.TransactionIDs, req.BankAccountID, req.OffsetAccountID)
	if err != nil {
		if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrConflict) && !errors.Is(err, httpx.ErrNotFound) {
			h.logger.Error("post bank batch", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func txnID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, httpx.ErrValidation
	}
	return id, nil
}
