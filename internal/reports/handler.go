package reports

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// Handler exposes the report endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs the reports HTTP handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.TrialBalance(r.Context())
	if err != nil {
		h.logger.Error("trial balance report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) TrialBalanceCSV(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.TrialBalanceCSV(r.Context())
	if err != nil {
		h.logger.Error("trial balance export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="trial_balance.csv"`)
	_, _ = w.Write(data)
}

func (h *Handler) ProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.ProfitAndLoss(r.Context())
	if err != nil {
		h.logger.Error("profit and loss report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) DayBook(w http.ResponseWriter, r *http.Request) {
	var from, to *time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			from = &t
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			to = &t
		}
	}
	var accountID *int64
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			accountID = &id
		}
	}
	report, err := h.service.DayBook(r.Context(), from, to, accountID)
	if err != nil {
		h.logger.Error("day book report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

// MountRoutes registers report endpoints on the router.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/trial-balance", h.TrialBalance)
	r.Get("/trial-balance.csv", h.TrialBalanceCSV)
	r.Get("/profit-and-loss", h.ProfitAndLoss)
	r.Get("/day-book", h.DayBook)
}
