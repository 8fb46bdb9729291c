package invoices

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus enumerates invoice lifecycle values.
type InvoiceStatus string

const (
	StatusDraft     InvoiceStatus = "draft"
	StatusSent      InvoiceStatus = "sent"
	StatusPaid      InvoiceStatus = "paid"
	StatusCancelled InvoiceStatus = "cancelled"
)

// Invoice is a customer-facing sales document. Invoices created by document
// posting carry a source_document back-reference; those created by quotation
// conversion carry source_quotation.
type Invoice struct {
	ID              int64         `json:"id"`
	InvoiceNumber   string        `json:"invoice_number"`
	CustomerID      int64         `json:"customer_id"`
	InvoiceDate     time.Time     `json:"invoice_date"`
	DueDate         *time.Time    `json:"due_date,omitempty"`
	Subtotal        float64       `json:"subtotal"`
	TaxAmount       float64       `json:"tax_amount"`
	TotalAmount     float64       `json:"total_amount"`
	Status          InvoiceStatus `json:"status"`
	Notes           *string       `json:"notes,omitempty"`
	SourceDocument  *uuid.UUID    `json:"source_document,omitempty"`
	SourceQuotation *int64        `json:"source_quotation,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
