package quotations

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/sales/invoices"
)

type stubQuoteRepo struct {
	quotation      Quotation
	convertErr     error
	convertedWith  int64
	statusUpdates  []QuotationStatus
	createAttempts int
}

func (s *stubQuoteRepo) Create(ctx context.Context, q Quotation) (Quotation, error) {
	s.createAttempts++
	q.ID = 1
	q.QuotationNumber = "QUO20250820001"
	return q, nil
}

func (s *stubQuoteRepo) Get(ctx context.Context, id int64) (Quotation, error) {
	return s.quotation, nil
}

func (s *stubQuoteRepo) List(ctx context.Context, status QuotationStatus, limit int) ([]Quotation, error) {
	return nil, nil
}

func (s *stubQuoteRepo) UpdateStatus(ctx context.Context, id int64, from, to QuotationStatus) error {
	s.statusUpdates = append(s.statusUpdates, to)
	return nil
}

func (s *stubQuoteRepo) MarkConverted(ctx context.Context, id, invoiceID int64) error {
	if s.convertErr != nil {
		return s.convertErr
	}
	s.convertedWith = invoiceID
	return nil
}

type stubInvoiceRepo struct {
	created   invoices.Invoice
	lastInput invoices.Invoice
	cancelled []int64
}

func (s *stubInvoiceRepo) Create(ctx context.Context, invoice invoices.Invoice) (invoices.Invoice, error) {
	s.lastInput = invoice
	invoice.ID = 30
	invoice.InvoiceNumber = "INV20250820001"
	s.created = invoice
	return invoice, nil
}

func (s *stubInvoiceRepo) Get(ctx context.Context, id int64) (invoices.Invoice, error) {
	return s.created, nil
}

func (s *stubInvoiceRepo) List(ctx context.Context, status invoices.InvoiceStatus, limit int) ([]invoices.Invoice, error) {
	return nil, nil
}

func (s *stubInvoiceRepo) UpdateStatus(ctx context.Context, id int64, from, to invoices.InvoiceStatus) error {
	if to == invoices.StatusCancelled {
		s.cancelled = append(s.cancelled, id)
	}
	return nil
}

func acceptedQuotation() Quotation {
	return Quotation{
		ID:              5,
		QuotationNumber: "QUO20250801002",
		CustomerID:      9,
		QuoteDate:       time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		TotalAmount:     2500,
		Status:          StatusAccepted,
	}
}

func newConvertFixture(quoteRepo *stubQuoteRepo) (*Service, *stubInvoiceRepo) {
	invoiceRepo := &stubInvoiceRepo{}
	invoiceSvc := invoices.NewService(invoiceRepo, slog.Default())
	return NewService(quoteRepo, invoiceSvc, slog.Default()), invoiceRepo
}

func TestConvertCreatesDraftInvoice(t *testing.T) {
	quoteRepo := &stubQuoteRepo{quotation: acceptedQuotation()}
	svc, invoiceRepo := newConvertFixture(quoteRepo)

	invoice, err := svc.Convert(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, int64(30), invoice.ID)
	require.Equal(t, invoices.StatusDraft, invoice.Status)
	require.Equal(t, 2500.0, invoice.TotalAmount)
	require.NotNil(t, invoiceRepo.lastInput.SourceQuotation)
	require.Equal(t, int64(5), *invoiceRepo.lastInput.SourceQuotation)
	require.Equal(t, int64(30), quoteRepo.convertedWith)
	require.Empty(t, invoiceRepo.cancelled)
}

func TestConvertRefusesConvertedQuotation(t *testing.T) {
	q := acceptedQuotation()
	q.Status = StatusConverted
	svc, invoiceRepo := newConvertFixture(&stubQuoteRepo{quotation: q})

	_, err := svc.Convert(context.Background(), 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cannot be converted")
	require.Zero(t, invoiceRepo.created.ID, "no invoice may be created")
}

func TestConvertRefusesExpiredQuotation(t *testing.T) {
	q := acceptedQuotation()
	q.Status = StatusExpired
	svc, _ := newConvertFixture(&stubQuoteRepo{quotation: q})

	_, err := svc.Convert(context.Background(), 5)
	require.Error(t, err)
}

func TestConvertVoidsInvoiceOnLostRace(t *testing.T) {
	quoteRepo := &stubQuoteRepo{
		quotation:  acceptedQuotation(),
		convertErr: errors.New("already converted by concurrent request"),
	}
	svc, invoiceRepo := newConvertFixture(quoteRepo)

	_, err := svc.Convert(context.Background(), 5)
	require.Error(t, err)
	require.Equal(t, []int64{30}, invoiceRepo.cancelled, "the freshly created invoice must be voided")
}

func TestCreateValidatesInput(t *testing.T) {
	svc, _ := newConvertFixture(&stubQuoteRepo{})

	_, err := svc.Create(context.Background(), CreateInput{QuoteDate: time.Now()})
	require.Error(t, err, "customer is required")

	valid := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Create(context.Background(), CreateInput{
		CustomerID: 1,
		QuoteDate:  time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		ValidUntil: &valid,
	})
	require.Error(t, err, "valid_until before quote date is rejected")
}

func TestCreateReturnsNumberedQuotation(t *testing.T) {
	repo := &stubQuoteRepo{}
	svc, _ := newConvertFixture(repo)

	q, err := svc.Create(context.Background(), CreateInput{
		CustomerID:  1,
		QuoteDate:   time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC),
		TotalAmount: 100,
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, q.Status)
	require.Equal(t, "QUO20250820001", q.QuotationNumber)
	require.Equal(t, 1, repo.createAttempts)
}
