package customers

import "time"

// Customer is a sales counterparty. Placeholder customers are created
// automatically by document posting when no match exists; they carry only a
// name until a user fills in the rest.
type Customer struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          *string   `json:"email,omitempty"`
	Phone          *string   `json:"phone,omitempty"`
	BillingAddress *string   `json:"billing_address,omitempty"`
	IsPlaceholder  bool      `json:"is_placeholder"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
