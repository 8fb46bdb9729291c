package quotations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/sales/invoices"
)

const numberConflictRetries = 3

// Service exposes quotation operations including the one-way conversion to
// an invoice.
type Service struct {
	repo     Repository
	invoices *invoices.Service
	logger   *slog.Logger
}

// NewService constructs the quotations service.
func NewService(repo Repository, invoiceSvc *invoices.Service, logger *slog.Logger) *Service {
	return &Service{repo: repo, invoices: invoiceSvc, logger: logger}
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Quotation, error) {
	if err := in.Validate(); err != nil {
		return Quotation{}, err
	}
	quotation := Quotation{
		CustomerID:  in.CustomerID,
		QuoteDate:   in.QuoteDate,
		ValidUntil:  in.ValidUntil,
		TotalAmount: in.TotalAmount,
		Status:      StatusDraft,
		Notes:       in.Notes,
	}
	var out Quotation
	var err error
	for attempt := 0; attempt <= numberConflictRetries; attempt++ {
		out, err = s.repo.Create(ctx, quotation)
		if err == nil {
			return out, nil
		}
		if !IsNumberConflict(err) {
			return Quotation{}, err
		}
		s.logger.Warn("quotation number conflict, retrying", slog.Int("attempt", attempt+1))
	}
	return Quotation{}, err
}

func (s *Service) Get(ctx context.Context, id int64) (Quotation, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, status QuotationStatus, limit int) ([]Quotation, error) {
	return s.repo.List(ctx, status, limit)
}

// MarkSent transitions draft to sent.
func (s *Service) MarkSent(ctx context.Context, id int64) error {
	return s.repo.UpdateStatus(ctx, id, StatusDraft, StatusSent)
}

// MarkAccepted transitions sent to accepted.
func (s *Service) MarkAccepted(ctx context.Context, id int64) error {
	return s.repo.UpdateStatus(ctx, id, StatusSent, StatusAccepted)
}

// Convert creates a draft invoice from the quotation and flips the
// quotation to converted. Conversion is one-way and one-time: the
// conditional update in MarkConverted rejects a second attempt, and losing
// a concurrent race voids the freshly created invoice.
func (s *Service) Convert(ctx context.Context, id int64) (invoices.Invoice, error) {
	quotation, err := s.repo.Get(ctx, id)
	if err != nil {
		return invoices.Invoice{}, err
	}
	if quotation.Status == StatusConverted || quotation.Status == StatusExpired {
		return invoices.Invoice{}, fmt.Errorf("%w: quotation is %s and cannot be converted", httpx.ErrConflict, quotation.Status)
	}

	notes := fmt.Sprintf("Converted from quotation %s", quotation.QuotationNumber)
	invoice, err := s.invoices.CreateDraft(ctx, invoices.CreateInput{
		CustomerID:      quotation.CustomerID,
		InvoiceDate:     quotation.QuoteDate,
		Subtotal:        quotation.TotalAmount,
		TotalAmount:     quotation.TotalAmount,
		Notes:           &notes,
		SourceQuotation: &quotation.ID,
	})
	if err != nil {
		return invoices.Invoice{}, fmt.Errorf("quotations: create invoice: %w", err)
	}

	if err := s.repo.MarkConverted(ctx, id, invoice.ID); err != nil {
		if cancelErr := s.invoices.Cancel(ctx, invoice.ID); cancelErr != nil {
			s.logger.Error("void invoice after lost conversion race",
				slog.Int64("invoice_id", invoice.ID), slog.Any("error", cancelErr))
		}
		return invoices.Invoice{}, err
	}

	s.logger.Info("quotation converted",
		slog.Int64("quotation_id", id),
		slog.Int64("invoice_id", invoice.ID))
	return invoice, nil
}
