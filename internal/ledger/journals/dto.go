package journals

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/shared"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// LineInput describes one journal line in a creation request.
type LineInput struct {
	AccountID    int64   `json:"account_id"`
	Description  *string `json:"description,omitempty"`
	DebitAmount  float64 `json:"debit_amount"`
	CreditAmount float64 `json:"credit_amount"`
}

// CreateInput groups the fields required to create a draft journal entry.
type CreateInput struct {
	EntryDate      time.Time   `json:"entry_date"`
	Description    string      `json:"description"`
	SourceDocument *uuid.UUID  `json:"source_document,omitempty"`
	Lines          []LineInput `json:"lines"`
}

// Totals sums the line amounts.
func (in CreateInput) Totals() (debit, credit float64) {
	for _, line := range in.Lines {
		debit += line.DebitAmount
		credit += line.CreditAmount
	}
	return debit, credit
}

// Validate enforces the creation invariants: a description, at least two
// lines carrying a non-zero amount, no negative or double-sided lines, and
// balanced totals within the tolerance.
func (in CreateInput) Validate() error {
	if in.Description == "" {
		return fmt.Errorf("%w: description required", httpx.ErrValidation)
	}
	if in.EntryDate.IsZero() {
		return fmt.Errorf("%w: entry date required", httpx.ErrValidation)
	}
	usable := 0
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("%w: line %d missing account", httpx.ErrValidation, idx)
		}
		if line.DebitAmount < 0 || line.CreditAmount < 0 {
			return fmt.Errorf("%w: line %d negative amount", httpx.ErrValidation, idx)
		}
		if line.DebitAmount > 0 && line.CreditAmount > 0 {
			return fmt.Errorf("%w: line %d cannot be both debit and credit", httpx.ErrValidation, idx)
		}
		if line.DebitAmount > 0 || line.CreditAmount > 0 {
			usable++
		}
	}
	if usable < 2 {
		return shared.ErrTooFewLines
	}
	debit, credit := in.Totals()
	if math.Abs(debit-credit) > shared.BalanceTolerance+1e-9 {
		return shared.ErrUnbalanced
	}
	return nil
}
