// Package reports provides the read-side views over the ledger: trial
// balance, profit and loss, and the day book.
package reports

import "time"

// TrialBalanceRow presents one account in debit/credit column form.
type TrialBalanceRow struct {
	AccountID   int64   `json:"account_id"`
	AccountName string  `json:"account_name"`
	AccountType string  `json:"account_type"`
	Debit       float64 `json:"debit"`
	Credit      float64 `json:"credit"`
	Contra      bool    `json:"contra,omitempty"`
}

// TrialBalance is the full report. Discrepancy carries the signed
// debit-minus-credit difference whenever the report does not balance; it is
// surfaced, never rounded away.
type TrialBalance struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  float64           `json:"total_debit"`
	TotalCredit float64           `json:"total_credit"`
	Balanced    bool              `json:"balanced"`
	Discrepancy float64           `json:"discrepancy,omitempty"`
}

// ProfitAndLossRow presents one income or expense account.
type ProfitAndLossRow struct {
	AccountID   int64   `json:"account_id"`
	AccountName string  `json:"account_name"`
	Amount      float64 `json:"amount"`
}

// ProfitAndLoss summarizes income against expenses.
type ProfitAndLoss struct {
	GeneratedAt  time.Time          `json:"generated_at"`
	Income       []ProfitAndLossRow `json:"income"`
	Expenses     []ProfitAndLossRow `json:"expenses"`
	TotalIncome  float64            `json:"total_income"`
	TotalExpense float64            `json:"total_expense"`
	NetProfit    float64            `json:"net_profit"`
}

// DayBookRow is one posting trail line in the day book view.
type DayBookRow struct {
	EntryDate      time.Time `json:"entry_date"`
	JournalEntryID int64     `json:"journal_entry_id"`
	AccountName    string    `json:"account_name"`
	Description    string    `json:"description"`
	Debit          float64   `json:"debit"`
	Credit         float64   `json:"credit"`
}

// DayBookReport lists posting activity over a date range.
type DayBookReport struct {
	From        *time.Time   `json:"from,omitempty"`
	To          *time.Time   `json:"to,omitempty"`
	Rows        []DayBookRow `json:"rows"`
	TotalDebit  float64      `json:"total_debit"`
	TotalCredit float64      `json:"total_credit"`
}
