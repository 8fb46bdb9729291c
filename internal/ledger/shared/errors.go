// Package shared holds sentinel errors common to the ledger packages.
package shared

import (
	"fmt"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

var (
	// ErrUnbalanced indicates total debits and credits differ by more than
	// the accepted tolerance. This is never silently tolerated.
	ErrUnbalanced = fmt.Errorf("%w: journal entry debits and credits do not balance", httpx.ErrValidation)
	// ErrTooFewLines indicates fewer than two usable lines.
	ErrTooFewLines = fmt.Errorf("%w: journal entry requires at least two lines", httpx.ErrValidation)
	// ErrInvalidStatus indicates a forbidden status transition.
	ErrInvalidStatus = fmt.Errorf("%w: invalid status transition", httpx.ErrConflict)
	// ErrJournalNotFound indicates a missing journal entry.
	ErrJournalNotFound = fmt.Errorf("journal entry %w", httpx.ErrNotFound)
	// ErrAccountNotFound indicates a missing ledger account.
	ErrAccountNotFound = fmt.Errorf("account %w", httpx.ErrNotFound)
	// ErrAlreadyPosted indicates a document whose ledger effects were
	// already committed.
	ErrAlreadyPosted = fmt.Errorf("%w: document already posted", httpx.ErrConflict)
	// ErrMissingData indicates a document without extracted data at
	// posting time.
	ErrMissingData = fmt.Errorf("%w: document has no extracted data", httpx.ErrValidation)
)

// BalanceTolerance is the accepted absolute difference between total debit
// and total credit.
const BalanceTolerance = 0.01
