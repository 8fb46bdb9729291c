package accounts

import "time"

// AccountType enumerates chart-of-accounts categories.
type AccountType string

const (
	TypeAsset     AccountType = "asset"
	TypeLiability AccountType = "liability"
	TypeEquity    AccountType = "equity"
	TypeIncome    AccountType = "income"
	TypeExpense   AccountType = "expense"
)

// Account models a chart-of-accounts node with a running balance. The
// current balance is only mutated through posting; opening-balance edits are
// administrative corrections.
type Account struct {
	ID             int64       `json:"id"`
	Name           string      `json:"account_name"`
	Type           AccountType `json:"account_type"`
	OpeningBalance float64     `json:"opening_balance"`
	CurrentBalance float64     `json:"current_balance"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}
