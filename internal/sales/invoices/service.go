package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

const numberConflictRetries = 3

// CreateInput carries the fields required to create a draft invoice.
type CreateInput struct {
	CustomerID      int64      `json:"customer_id"`
	InvoiceDate     time.Time  `json:"invoice_date"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	Subtotal        float64    `json:"subtotal"`
	TaxAmount       float64    `json:"tax_amount"`
	TotalAmount     float64    `json:"total_amount"`
	Notes           *string    `json:"notes,omitempty"`
	SourceDocument  *uuid.UUID `json:"source_document,omitempty"`
	SourceQuotation *int64     `json:"source_quotation,omitempty"`
}

// Validate checks the input.
func (in CreateInput) Validate() error {
	if in.CustomerID == 0 {
		return fmt.Errorf("%w: customer required", httpx.ErrValidation)
	}
	if in.InvoiceDate.IsZero() {
		return fmt.Errorf("%w: invoice date required", httpx.ErrValidation)
	}
	if in.Subtotal < 0 || in.TaxAmount < 0 || in.TotalAmount < 0 {
		return fmt.Errorf("%w: negative amount", httpx.ErrValidation)
	}
	return nil
}

// Service exposes invoice operations.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService constructs the invoices service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateDraft persists a draft invoice, retrying with a fresh number when a
// concurrent creation won the numbering race.
func (s *Service) CreateDraft(ctx context.Context, in CreateInput) (Invoice, error) {
	if err := in.Validate(); err != nil {
		return Invoice{}, err
	}
	invoice := Invoice{
		CustomerID:      in.CustomerID,
		InvoiceDate:     in.InvoiceDate,
		DueDate:         in.DueDate,
		Subtotal:        in.Subtotal,
		TaxAmount:       in.TaxAmount,
		TotalAmount:     in.TotalAmount,
		Status:          StatusDraft,
		Notes:           in.Notes,
		SourceDocument:  in.SourceDocument,
		SourceQuotation: in.SourceQuotation,
	}
	var out Invoice
	var err error
	for attempt := 0; attempt <= numberConflictRetries; attempt++ {
		out, err = s.repo.Create(ctx, invoice)
		if err == nil {
			return out, nil
		}
		if !IsNumberConflict(err) {
			return Invoice{}, err
		}
		s.logger.Warn("invoice number conflict, retrying", slog.Int("attempt", attempt+1))
	}
	return Invoice{}, err
}

func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, status InvoiceStatus, limit int) ([]Invoice, error) {
	return s.repo.List(ctx, status, limit)
}

// MarkSent transitions draft to sent.
func (s *Service) MarkSent(ctx context.Context, id int64) error {
	return s.repo.UpdateStatus(ctx, id, StatusDraft, StatusSent)
}

// MarkPaid transitions sent to paid.
func (s *Service) MarkPaid(ctx context.Context, id int64) error {
	return s.repo.UpdateStatus(ctx, id, StatusSent, StatusPaid)
}

// Cancel voids a draft invoice.
func (s *Service) Cancel(ctx context.Context, id int64) error {
	return s.repo.UpdateStatus(ctx, id, StatusDraft, StatusCancelled)
}
