// Package banking manages imported bank statement transactions through
// categorization and posting into the ledger.
package banking

import "time"

// TransactionType distinguishes money in from money out.
type TransactionType string

const (
	TypeCredit TransactionType = "credit"
	TypeDebit  TransactionType = "debit"
)

// TransactionStatus enumerates the bank transaction lifecycle. A posted
// transaction is immutable.
type TransactionStatus string

const (
	StatusPending       TransactionStatus = "pending"
	StatusUncategorized TransactionStatus = "uncategorized"
	StatusCategorized   TransactionStatus = "categorized"
	StatusPosted        TransactionStatus = "posted"
)

// BankTransaction is one statement line. Category is null exactly when the
// status is uncategorized; the two are always updated together.
type BankTransaction struct {
	ID              int64             `json:"id"`
	TransactionDate time.Time         `json:"transaction_date"`
	Description     string            `json:"description"`
	Amount          float64           `json:"amount"`
	Type            TransactionType   `json:"transaction_type"`
	Category        *string           `json:"category,omitempty"`
	AIConfidence    *float64          `json:"ai_category_confidence,omitempty"`
	Status          TransactionStatus `json:"status"`
	JournalEntryID  *int64            `json:"journal_entry_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
