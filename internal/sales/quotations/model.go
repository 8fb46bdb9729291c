package quotations

import "time"

// QuotationStatus enumerates quotation lifecycle values. Converted is
// terminal; a converted quotation is immutable.
type QuotationStatus string

const (
	StatusDraft     QuotationStatus = "draft"
	StatusSent      QuotationStatus = "sent"
	StatusAccepted  QuotationStatus = "accepted"
	StatusConverted QuotationStatus = "converted"
	StatusExpired   QuotationStatus = "expired"
)

// Quotation is a price offer that may be converted into exactly one invoice.
type Quotation struct {
	ID                 int64           `json:"id"`
	QuotationNumber    string          `json:"quotation_number"`
	CustomerID         int64           `json:"customer_id"`
	QuoteDate          time.Time       `json:"quote_date"`
	ValidUntil         *time.Time      `json:"valid_until,omitempty"`
	TotalAmount        float64         `json:"total_amount"`
	Status             QuotationStatus `json:"status"`
	ConvertedInvoiceID *int64          `json:"converted_invoice_id,omitempty"`
	Notes              *string         `json:"notes,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
