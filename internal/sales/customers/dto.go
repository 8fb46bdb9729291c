package customers

import (
	"fmt"
	"strings"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// UpsertInput carries the fields a client may set on a customer.
type UpsertInput struct {
	Name           string  `json:"name"`
	Email          *string `json:"email,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	BillingAddress *string `json:"billing_address,omitempty"`
}

// Validate checks the input.
func (in UpsertInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: customer name required", httpx.ErrValidation)
	}
	return nil
}
