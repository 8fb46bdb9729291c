// Package daybook reads the append-only posting trail. Rows are written
// exclusively by the journal posting transaction and never mutated here.
package daybook

import "time"

// Entry is one immutable day-book row.
type Entry struct {
	ID             int64     `json:"id"`
	JournalEntryID int64     `json:"journal_entry_id"`
	AccountID      int64     `json:"account_id"`
	AccountName    string    `json:"account_name"`
	EntryDate      time.Time `json:"entry_date"`
	Description    *string   `json:"description,omitempty"`
	DebitAmount    float64   `json:"debit_amount"`
	CreditAmount   float64   `json:"credit_amount"`
	CreatedAt      time.Time `json:"created_at"`
}
