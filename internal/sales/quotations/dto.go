package quotations

import (
	"fmt"
	"time"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// CreateInput carries the fields required to create a draft quotation.
type CreateInput struct {
	CustomerID  int64      `json:"customer_id"`
	QuoteDate   time.Time  `json:"quote_date"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
	TotalAmount float64    `json:"total_amount"`
	Notes       *string    `json:"notes,omitempty"`
}

// Validate checks the input.
func (in CreateInput) Validate() error {
	if in.CustomerID == 0 {
		return fmt.Errorf("%w: customer required", httpx.ErrValidation)
	}
	if in.QuoteDate.IsZero() {
		return fmt.Errorf("%w: quote date required", httpx.ErrValidation)
	}
	if in.ValidUntil != nil && in.ValidUntil.Before(in.QuoteDate) {
		return fmt.Errorf("%w: valid_until must be after quote_date", httpx.ErrValidation)
	}
	if in.TotalAmount < 0 {
		return fmt.Errorf("%w: negative amount", httpx.ErrValidation)
	}
	return nil
}
