package posting

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/documents"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/journals"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/shared"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/sales/customers"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/sales/invoices"
)

type stubDocs struct {
	doc    documents.Document
	marker *documents.PostingMarker
}

func (s *stubDocs) Insert(ctx context.Context, doc documents.Document) error { return nil }

func (s *stubDocs) Get(ctx context.Context, id uuid.UUID) (documents.Document, error) {
	return s.doc, nil
}

func (s *stubDocs) List(ctx context.Context, ownerID int64) ([]documents.Document, error) {
	return nil, nil
}

func (s *stubDocs) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubDocs) UpdateStatus(ctx context.Context, id uuid.UUID, status documents.Status, errorMessage *string) error {
	return nil
}

func (s *stubDocs) MergeExtracted(ctx context.Context, id uuid.UUID, patch documents.ExtractedData) (documents.ExtractedData, error) {
	return s.doc.ExtractedData, nil
}

func (s *stubDocs) MarkPosted(ctx context.Context, id uuid.UUID, marker documents.PostingMarker) error {
	if s.doc.ExtractedData.IsPosted() {
		return documents.ErrAlreadyPosted
	}
	s.marker = &marker
	s.doc.ExtractedData.Posting = &marker
	return nil
}

func (s *stubDocs) SetProcessingSummary(ctx context.Context, id uuid.UUID, summary documents.ProcessingSummary) error {
	return nil
}

func (s *stubDocs) SetProcessedAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

type stubResolver struct {
	resolved string
	customer customers.Customer
}

func (s *stubResolver) Resolve(ctx context.Context, name string) (customers.Customer, error) {
	s.resolved = name
	return s.customer, nil
}

type stubInvoices struct {
	input   invoices.CreateInput
	invoice invoices.Invoice
}

func (s *stubInvoices) CreateDraft(ctx context.Context, in invoices.CreateInput) (invoices.Invoice, error) {
	s.input = in
	s.invoice.ID = 77
	s.invoice.Status = invoices.StatusDraft
	return s.invoice, nil
}

type stubJournals struct {
	input journals.CreateInput
	entry journals.JournalEntry
}

func (s *stubJournals) CreatePosted(ctx context.Context, in journals.CreateInput, postedBy *int64) (journals.JournalEntry, error) {
	s.input = in
	s.entry.ID = 42
	s.entry.EntryNumber = "JE20250815001"
	s.entry.Status = journals.StatusPosted
	return s.entry, nil
}

func salesDocument() documents.Document {
	structured, _ := json.Marshal(map[string]any{
		"customer_name": "Globex Ltd",
		"invoice_date":  "2025-08-10",
		"due_date":      "2025-09-10",
		"subtotal":      "1,000.00",
		"tax_amount":    200.0,
		"total_amount":  "$1,200.00",
	})
	return documents.Document{
		ID:       uuid.New(),
		FileName: "scan.pdf",
		ExtractedData: documents.ExtractedData{
			Extraction: &documents.ExtractionResult{StructuredData: structured},
		},
	}
}

func newTestEngine(docs *stubDocs) (*Engine, *stubResolver, *stubInvoices, *stubJournals) {
	resolver := &stubResolver{customer: customers.Customer{ID: 9, Name: "Globex Ltd"}}
	invoiceSvc := &stubInvoices{}
	journalSvc := &stubJournals{}
	return NewEngine(docs, resolver, invoiceSvc, journalSvc, slog.Default()), resolver, invoiceSvc, journalSvc
}

func TestPostSalesDocumentCreatesDraftInvoice(t *testing.T) {
	docs := &stubDocs{doc: salesDocument()}
	engine, resolver, invoiceSvc, _ := newTestEngine(docs)

	result, err := engine.PostSalesDocument(context.Background(), docs.doc.ID)
	require.NoError(t, err)
	require.Equal(t, "invoice", result.ReferenceType)
	require.Equal(t, "77", result.ReferenceID)

	require.Equal(t, "Globex Ltd", resolver.resolved)
	require.Equal(t, int64(9), invoiceSvc.input.CustomerID)
	require.Equal(t, 1000.0, invoiceSvc.input.Subtotal)
	require.Equal(t, 200.0, invoiceSvc.input.TaxAmount)
	require.Equal(t, 1200.0, invoiceSvc.input.TotalAmount)
	require.Equal(t, time.Date(2025, 8, 10, 0, 0, 0, 0, time.UTC), invoiceSvc.input.InvoiceDate)
	require.NotNil(t, invoiceSvc.input.DueDate)
	require.NotNil(t, invoiceSvc.input.SourceDocument)
	require.Equal(t, docs.doc.ID, *invoiceSvc.input.SourceDocument)

	require.NotNil(t, docs.marker)
	require.True(t, docs.marker.Posted)
	require.Equal(t, "invoice", docs.marker.ReferenceType)
}

func TestPostExpenseDocumentCreatesBalancedEntry(t *testing.T) {
	doc := salesDocument()
	doc.ExtractedData.Extraction.StructuredData, _ = json.Marshal(map[string]any{
		"vendor_name":  "City Power",
		"date":         "2025-08-12",
		"total_amount": 350.0,
	})
	docs := &stubDocs{doc: doc}
	engine, _, _, journalSvc := newTestEngine(docs)

	result, err := engine.PostExpenseDocument(context.Background(), doc.ID, 501, 101)
	require.NoError(t, err)
	require.Equal(t, "journal_entry", result.ReferenceType)
	require.Equal(t, "42", result.ReferenceID)

	require.Equal(t, "Expense: City Power", journalSvc.input.Description)
	require.Len(t, journalSvc.input.Lines, 2)
	require.Equal(t, int64(501), journalSvc.input.Lines[0].AccountID)
	require.Equal(t, 350.0, journalSvc.input.Lines[0].DebitAmount)
	require.Equal(t, int64(101), journalSvc.input.Lines[1].AccountID)
	require.Equal(t, 350.0, journalSvc.input.Lines[1].CreditAmount)
	require.NoError(t, journalSvc.input.Validate())
	require.NotNil(t, docs.marker)
	require.Equal(t, "journal_entry", docs.marker.ReferenceType)
}

func TestPostRejectsDocumentWithoutExtraction(t *testing.T) {
	docs := &stubDocs{doc: documents.Document{ID: uuid.New()}}
	engine, _, _, _ := newTestEngine(docs)

	_, err := engine.PostSalesDocument(context.Background(), docs.doc.ID)
	require.ErrorIs(t, err, shared.ErrMissingData)
}

func TestPostRejectsAlreadyPostedDocument(t *testing.T) {
	doc := salesDocument()
	doc.ExtractedData.Posting = &documents.PostingMarker{Posted: true}
	engine, _, _, _ := newTestEngine(&stubDocs{doc: doc})

	_, err := engine.PostSalesDocument(context.Background(), doc.ID)
	require.ErrorIs(t, err, shared.ErrAlreadyPosted)
}

func TestPostDirectRequiresBothAccounts(t *testing.T) {
	docs := &stubDocs{doc: salesDocument()}
	engine, _, _, _ := newTestEngine(docs)

	_, err := engine.PostPurchaseDocument(context.Background(), docs.doc.ID, 501, 0)
	require.ErrorIs(t, err, shared.ErrMissingData)
	require.Nil(t, docs.marker, "a rejected posting must not mark the document")
}

func TestParseFieldsToleratesMessyValues(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{
		"vendor":    "Acme",
		"subtotal":  "€1,500.00",
		"tax":       "300",
		"date":      "12/08/2025",
		"not_a_key": true,
	})
	doc := documents.Document{ExtractedData: documents.ExtractedData{
		Extraction:     &documents.ExtractionResult{StructuredData: raw},
		Categorization: &documents.CategorizationResult{AutoFilledFields: map[string]string{"customer_name": "Filled Co"}},
	}}

	fields := parseFields(doc, time.Now)
	require.Equal(t, "Acme", fields.VendorName)
	require.Equal(t, "Filled Co", fields.CustomerName, "auto-filled fields supplement extraction")
	require.Equal(t, 1500.0, fields.Subtotal)
	require.Equal(t, 300.0, fields.TaxAmount)
	require.Equal(t, 1800.0, fields.TotalAmount, "missing total falls back to subtotal plus tax")
	require.Equal(t, time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC), fields.DocumentDate)
}

func TestParseFieldsDefaultsDocumentDate(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{"total_amount": 10.0})
	doc := documents.Document{ExtractedData: documents.ExtractedData{
		Extraction: &documents.ExtractionResult{StructuredData: raw},
	}}
	fixed := time.Date(2025, 8, 30, 14, 5, 0, 0, time.UTC)

	fields := parseFields(doc, func() time.Time { return fixed })
	require.Equal(t, fixed.Truncate(24*time.Hour), fields.DocumentDate)
}
