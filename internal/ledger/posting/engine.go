// Package posting translates reviewed documents into permanent ledger
// artifacts: sales documents become draft invoices, purchase and expense
// documents become posted journal entries.
package posting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/documents"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/journals"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/shared"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/sales/customers"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/sales/invoices"
)

// CustomerResolver finds or creates the counterparty for a sales posting.
type CustomerResolver interface {
	Resolve(ctx context.Context, name string) (customers.Customer, error)
}

// InvoiceCreator persists draft invoices.
type InvoiceCreator interface {
	CreateDraft(ctx context.Context, in invoices.CreateInput) (invoices.Invoice, error)
}

// JournalCreator persists journal entries directly in posted state.
type JournalCreator interface {
	CreatePosted(ctx context.Context, in journals.CreateInput, postedBy *int64) (journals.JournalEntry, error)
}

// Result reports the ledger artifact a posting produced so callers can
// navigate to it.
type Result struct {
	ReferenceID   string `json:"reference_id"`
	ReferenceType string `json:"reference_type"`
}

// Engine performs document postings.
type Engine struct {
	docs      documents.Repository
	customers CustomerResolver
	invoices  InvoiceCreator
	journals  JournalCreator
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine constructs the posting engine.
func NewEngine(docs documents.Repository, resolver CustomerResolver, invoiceSvc InvoiceCreator, journalSvc JournalCreator, logger *slog.Logger) *Engine {
	return &Engine{
		docs:      docs,
		customers: resolver,
		invoices:  invoiceSvc,
		journals:  journalSvc,
		logger:    logger,
		now:       time.Now,
	}
}

// extractedFields is the lenient view over a document's structured data.
// Documents come from an OCR pipeline, so any field may be missing or carry
// the wrong JSON type; numbers default to 0 and strings to "".
type extractedFields struct {
	CustomerName string
	VendorName   string
	DocumentDate time.Time
	DueDate      *time.Time
	Subtotal     float64
	TaxAmount    float64
	TotalAmount  float64
}

// PostSalesDocument creates a draft invoice from the document's extracted
// totals, resolving the customer by case-insensitive name or creating a
// placeholder. The posting marker makes the operation one-time.
func (e *Engine) PostSalesDocument(ctx context.Context, docID uuid.UUID) (Result, error) {
	doc, fields, err := e.load(ctx, docID)
	if err != nil {
		return Result{}, err
	}

	customer, err := e.customers.Resolve(ctx, fields.CustomerName)
	if err != nil {
		return Result{}, fmt.Errorf("posting: resolve customer: %w", err)
	}

	notes := fmt.Sprintf("Posted from document %s", doc.FileName)
	invoice, err := e.invoices.CreateDraft(ctx, invoices.CreateInput{
		CustomerID:     customer.ID,
		InvoiceDate:    fields.DocumentDate,
		DueDate:        fields.DueDate,
		Subtotal:       fields.Subtotal,
		TaxAmount:      fields.TaxAmount,
		TotalAmount:    fields.TotalAmount,
		Notes:          &notes,
		SourceDocument: &doc.ID,
	})
	if err != nil {
		return Result{}, fmt.Errorf("posting: create invoice: %w", err)
	}

	result := Result{ReferenceID: strconv.FormatInt(invoice.ID, 10), ReferenceType: "invoice"}
	if err := e.mark(ctx, doc.ID, result); err != nil {
		return Result{}, err
	}
	e.logger.Info("sales document posted",
		slog.String("document_id", doc.ID.String()),
		slog.Int64("invoice_id", invoice.ID),
		slog.Int64("customer_id", customer.ID))
	return result, nil
}

// PostPurchaseDocument posts the document total as a single undifferentiated
// journal movement, skipping the draft review step.
func (e *Engine) PostPurchaseDocument(ctx context.Context, docID uuid.UUID, debitAccountID, creditAccountID int64) (Result, error) {
	return e.postDirect(ctx, docID, debitAccountID, creditAccountID, "purchase")
}

// PostExpenseDocument is the expense twin of PostPurchaseDocument.
func (e *Engine) PostExpenseDocument(ctx context.Context, docID uuid.UUID, debitAccountID, creditAccountID int64) (Result, error) {
	return e.postDirect(ctx, docID, debitAccountID, creditAccountID, "expense")
}

func (e *Engine) postDirect(ctx context.Context, docID uuid.UUID, debitAccountID, creditAccountID int64, kind string) (Result, error) {
	doc, fields, err := e.load(ctx, docID)
	if err != nil {
		return Result{}, err
	}
	if debitAccountID == 0 || creditAccountID == 0 {
		return Result{}, fmt.Errorf("%w: debit and credit accounts required", shared.ErrMissingData)
	}

	name := fields.VendorName
	if name == "" {
		name = doc.FileName
	}
	description := fmt.Sprintf("%s: %s", strings.ToUpper(kind[:1])+kind[1:], name)

	entry, err := e.journals.CreatePosted(ctx, journals.CreateInput{
		EntryDate:      fields.DocumentDate,
		Description:    description,
		SourceDocument: &doc.ID,
		Lines: []journals.LineInput{
			{AccountID: debitAccountID, DebitAmount: fields.TotalAmount},
			{AccountID: creditAccountID, CreditAmount: fields.TotalAmount},
		},
	}, nil)
	if err != nil {
		return Result{}, fmt.Errorf("posting: create journal entry: %w", err)
	}

	result := Result{ReferenceID: strconv.FormatInt(entry.ID, 10), ReferenceType: "journal_entry"}
	if err := e.mark(ctx, doc.ID, result); err != nil {
		return Result{}, err
	}
	e.logger.Info(kind+" document posted",
		slog.String("document_id", doc.ID.String()),
		slog.Int64("journal_entry_id", entry.ID),
		slog.String("entry_number", entry.EntryNumber))
	return result, nil
}

func (e *Engine) load(ctx context.Context, docID uuid.UUID) (documents.Document, extractedFields, error) {
	doc, err := e.docs.Get(ctx, docID)
	if err != nil {
		return documents.Document{}, extractedFields{}, err
	}
	if doc.ExtractedData.Extraction == nil {
		return documents.Document{}, extractedFields{}, shared.ErrMissingData
	}
	if doc.ExtractedData.IsPosted() {
		return documents.Document{}, extractedFields{}, shared.ErrAlreadyPosted
	}
	return doc, parseFields(doc, e.now), nil
}

func (e *Engine) mark(ctx context.Context, docID uuid.UUID, result Result) error {
	err := e.docs.MarkPosted(ctx, docID, documents.PostingMarker{
		Posted:        true,
		PostedAt:      e.now().UTC(),
		ReferenceID:   result.ReferenceID,
		ReferenceType: result.ReferenceType,
	})
	if err != nil {
		return fmt.Errorf("posting: mark document: %w", err)
	}
	return nil
}

// parseFields pulls the posting-relevant values out of the extraction stage
// output, supplemented by categorization auto-filled fields.
func parseFields(doc documents.Document, now func() time.Time) extractedFields {
	fields := extractedFields{DocumentDate: now().UTC().Truncate(24 * time.Hour)}

	var raw map[string]any
	if data := doc.ExtractedData.Extraction.StructuredData; len(data) > 0 {
		_ = json.Unmarshal(data, &raw)
	}
	if cat := doc.ExtractedData.Categorization; cat != nil {
		for key, value := range cat.AutoFilledFields {
			if _, exists := raw[key]; !exists {
				if raw == nil {
					raw = map[string]any{}
				}
				raw[key] = value
			}
		}
	}

	fields.CustomerName = strField(raw, "customer_name", "customer", "client_name")
	fields.VendorName = strField(raw, "vendor_name", "vendor", "supplier_name")
	fields.Subtotal = numField(raw, "subtotal", "sub_total")
	fields.TaxAmount = numField(raw, "tax_amount", "tax")
	fields.TotalAmount = numField(raw, "total_amount", "total", "amount")
	if fields.TotalAmount == 0 && fields.Subtotal > 0 {
		fields.TotalAmount = fields.Subtotal + fields.TaxAmount
	}

	if t, ok := dateField(raw, "invoice_date", "document_date", "date"); ok {
		fields.DocumentDate = t
	}
	if t, ok := dateField(raw, "due_date"); ok {
		fields.DueDate = &t
	}
	return fields
}

func strField(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// numField tolerates numeric values arriving as JSON numbers or as strings
// with currency noise; anything unparsable counts as 0.
func numField(raw map[string]any, keys ...string) float64 {
	for _, key := range keys {
		switch v := raw[key].(type) {
		case float64:
			return v
		case string:
			cleaned := strings.TrimSpace(strings.NewReplacer(",", "", "$", "", "€", "", "£", "").Replace(v))
			if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func dateField(raw map[string]any, keys ...string) (time.Time, bool) {
	layouts := []string{"2006-01-02", time.RFC3339, "02/01/2006", "01/02/2006", "02-01-2006"}
	for _, key := range keys {
		v, ok := raw[key].(string)
		if !ok {
			continue
		}
		for _, layout := range layouts {
			if t, err := time.Parse(layout, strings.TrimSpace(v)); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
