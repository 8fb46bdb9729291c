package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/accounts"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/daybook"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/shared"
)

// Service assembles report views from ledger state, caching the account
// level reports for a short interval.
type Service struct {
	accounts accounts.Repository
	daybook  daybook.Repository
	cache    *Cache
	now      func() time.Time
}

// NewService constructs the reports service. cache may be nil.
func NewService(accountRepo accounts.Repository, daybookRepo daybook.Repository, cache *Cache) *Service {
	return &Service{accounts: accountRepo, daybook: daybookRepo, cache: cache, now: time.Now}
}

// TrialBalance builds the trial balance over current account balances.
func (s *Service) TrialBalance(ctx context.Context) (TrialBalance, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "trial_balance")
	if err != nil {
		return TrialBalance{}, err
	}
	var report TrialBalance
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		accts, err := s.accounts.List(ctx, true)
		if err != nil {
			return nil, err
		}
		return ComputeTrialBalance(accts, s.now().UTC()), nil
	})
	return report, err
}

// ComputeTrialBalance applies the column sign rule: asset and expense
// accounts show non-negative balances as debits, the rest as credits, and a
// negative balance flips to the opposite column as a contra amount.
func ComputeTrialBalance(accts []accounts.Account, generatedAt time.Time) TrialBalance {
	report := TrialBalance{GeneratedAt: generatedAt, Rows: []TrialBalanceRow{}}
	for _, account := range accts {
		row := TrialBalanceRow{
			AccountID:   account.ID,
			AccountName: account.Name,
			AccountType: string(account.Type),
		}
		balance := account.CurrentBalance
		debitNormal := account.Type == accounts.TypeAsset || account.Type == accounts.TypeExpense
		switch {
		case debitNormal && balance >= 0:
			row.Debit = balance
		case debitNormal:
			row.Credit = -balance
			row.Contra = true
		case balance >= 0:
			row.Credit = balance
		default:
			row.Debit = -balance
			row.Contra = true
		}
		report.Rows = append(report.Rows, row)
		report.TotalDebit += row.Debit
		report.TotalCredit += row.Credit
	}
	diff := report.TotalDebit - report.TotalCredit
	report.Balanced = math.Abs(diff) <= shared.BalanceTolerance
	if !report.Balanced {
		report.Discrepancy = diff
	}
	return report
}

// ProfitAndLoss builds the income statement over current balances. Income
// accounts accumulate credits, so their balances are negated for display.
func (s *Service) ProfitAndLoss(ctx context.Context) (ProfitAndLoss, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "profit_and_loss")
	if err != nil {
		return ProfitAndLoss{}, err
	}
	var report ProfitAndLoss
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		accts, err := s.accounts.List(ctx, true)
		if err != nil {
			return nil, err
		}
		return ComputeProfitAndLoss(accts, s.now().UTC()), nil
	})
	return report, err
}

// ComputeProfitAndLoss is the pure transformation behind ProfitAndLoss.
func ComputeProfitAndLoss(accts []accounts.Account, generatedAt time.Time) ProfitAndLoss {
	report := ProfitAndLoss{GeneratedAt: generatedAt, Income: []ProfitAndLossRow{}, Expenses: []ProfitAndLossRow{}}
	for _, account := range accts {
		switch account.Type {
		case accounts.TypeIncome:
			amount := -account.CurrentBalance
			report.Income = append(report.Income, ProfitAndLossRow{
				AccountID: account.ID, AccountName: account.Name, Amount: amount,
			})
			report.TotalIncome += amount
		case accounts.TypeExpense:
			report.Expenses = append(report.Expenses, ProfitAndLossRow{
				AccountID: account.ID, AccountName: account.Name, Amount: account.CurrentBalance,
			})
			report.TotalExpense += account.CurrentBalance
		}
	}
	report.NetProfit = report.TotalIncome - report.TotalExpense
	return report
}

// DayBook lists posting activity over a date range. It reads the immutable
// trail directly, so no caching applies.
func (s *Service) DayBook(ctx context.Context, from, to *time.Time, accountID *int64) (DayBookReport, error) {
	entries, err := s.daybook.List(ctx, daybook.Filter{From: from, To: to, AccountID: accountID})
	if err != nil {
		return DayBookReport{}, err
	}
	report := DayBookReport{From: from, To: to, Rows: []DayBookRow{}}
	for _, entry := range entries {
		row := DayBookRow{
			EntryDate:      entry.EntryDate,
			JournalEntryID: entry.JournalEntryID,
			AccountName:    entry.AccountName,
			Debit:          entry.DebitAmount,
			Credit:         entry.CreditAmount,
		}
		if entry.Description != nil {
			row.Description = *entry.Description
		}
		report.Rows = append(report.Rows, row)
		report.TotalDebit += entry.DebitAmount
		report.TotalCredit += entry.CreditAmount
	}
	return report, nil
}

var csvPrinter = message.NewPrinter(language.English)

// TrialBalanceCSV renders the trial balance for download, with grouped
// thousands in the amount columns.
func (s *Service) TrialBalanceCSV(ctx context.Context) ([]byte, error) {
	report, err := s.TrialBalance(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Account", "Type", "Debit", "Credit"})
	for _, row := range report.Rows {
		_ = w.Write([]string{
			row.AccountName,
			row.AccountType,
			csvPrinter.Sprintf("%.2f", row.Debit),
			csvPrinter.Sprintf("%.2f", row.Credit),
		})
	}
	_ = w.Write([]string{"TOTAL", "",
		csvPrinter.Sprintf("%.2f", report.TotalDebit),
		csvPrinter.Sprintf("%.2f", report.TotalCredit)})
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
