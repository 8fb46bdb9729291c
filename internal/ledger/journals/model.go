package journals

import (
	"time"

	"github.com/google/uuid"
)

// EntryStatus enumerates journal entry lifecycle values. Drafts are mutable
// and deletable; posted entries are permanent and have already affected
// account balances.
type EntryStatus string

const (
	StatusDraft     EntryStatus = "draft"
	StatusPosted    EntryStatus = "posted"
	StatusCancelled EntryStatus = "cancelled"
)

// JournalEntry captures the entry header.
type JournalEntry struct {
	ID             int64       `json:"id"`
	EntryNumber    string      `json:"entry_number"`
	EntryDate      time.Time   `json:"entry_date"`
	Description    string      `json:"description"`
	TotalDebit     float64     `json:"total_debit"`
	TotalCredit    float64     `json:"total_credit"`
	Status         EntryStatus `json:"status"`
	SourceDocument *uuid.UUID  `json:"source_document,omitempty"`
	PostedBy       *int64      `json:"posted_by,omitempty"`
	PostedAt       *time.Time  `json:"posted_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	Lines          []Line      `json:"lines,omitempty"`
}

// Line stores a debit or credit amount for one account. Typically exactly
// one of the two amounts is non-zero.
type Line struct {
	ID             int64   `json:"id"`
	JournalEntryID int64   `json:"journal_entry_id"`
	AccountID      int64   `json:"account_id"`
	Description    *string `json:"description,omitempty"`
	DebitAmount    float64 `json:"debit_amount"`
	CreditAmount   float64 `json:"credit_amount"`
}
