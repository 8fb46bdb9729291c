package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/banking"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/documents"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/accounts"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/journals"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/posting"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/observability"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/pipeline"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/reports"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/sales/customers"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/sales/invoices"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/sales/quotations"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/storage"
	"github.com/SarathManas/Finbuddy-Main-sub001/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	DocumentsHandler  *documents.Handler
	PipelineHandler   *pipeline.Handler
	AccountsHandler   *accounts.Handler
	JournalsHandler   *journals.Handler
	PostingHandler    *posting.Handler
	CustomersHandler  *customers.Handler
	InvoicesHandler   *invoices.Handler
	QuotationsHandler *quotations.Handler
	BankingHandler    *banking.Handler
	ReportsHandler    *reports.Handler
	FilesHandler      *storage.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with Finbuddy defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/documents", params.DocumentsHandler.MountRoutes)
	r.Route("/pipeline", params.PipelineHandler.MountRoutes)
	r.Route("/ledger", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			accounts.MountRoutes(r, params.AccountsHandler)
		})
		r.Route("/journal-entries", func(r chi.Router) {
			journals.MountRoutes(r, params.JournalsHandler)
		})
		posting.MountRoutes(r, params.PostingHandler)
	})
	r.Route("/sales", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			customers.MountRoutes(r, params.CustomersHandler)
		})
		r.Route("/invoices", func(r chi.Router) {
			invoices.MountRoutes(r, params.InvoicesHandler)
		})
		r.Route("/quotations", func(r chi.Router) {
			quotations.MountRoutes(r, params.QuotationsHandler)
		})
	})
	r.Route("/banking", func(r chi.Router) {
		banking.MountRoutes(r, params.BankingHandler)
	})
	r.Route("/reports", func(r chi.Router) {
		reports.MountRoutes(r, params.ReportsHandler)
	})
	if params.FilesHandler != nil {
		r.Route("/files", params.FilesHandler.MountRoutes)
	}
	r.Route("/jobs", params.JobHandler.MountRoutes)
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
