package banking

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/inference"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/journals"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// InferenceClient suggests categories for statement lines.
type InferenceClient interface {
	Complete(ctx context.Context, messages []inference.Message) (string, error)
}

// JournalCreator persists journal entries directly in posted state, running
// a follow-up inside the same transaction.
type JournalCreator interface {
	CreatePostedWith(ctx context.Context, in journals.CreateInput, postedBy *int64, follow journals.FollowUp) (journals.JournalEntry, error)
}

// ImportResult summarizes a statement import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// Service exposes bank transaction operations.
type Service struct {
	repo      Repository
	inference InferenceClient
	journals  JournalCreator
	logger    *slog.Logger
}

// NewService constructs the banking service.
func NewService(repo Repository, ai InferenceClient, journalSvc JournalCreator, logger *slog.Logger) *Service {
	return &Service{repo: repo, inference: ai, journals: journalSvc, logger: logger}
}

var csvDateLayouts = []string{"2006-01-02", "02/01/2006", "01/02/2006", "02-01-2006"}

// ImportCSV reads statement lines of the form date,description,amount.
// A header row is detected and skipped; malformed rows are reported but do
// not abort the import. Negative amounts are debits (money out).
func (s *Service) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var result ImportResult
	var txns []BankTransaction
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		if len(record) < 3 {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: expected date,description,amount", line))
			continue
		}
		if line == 1 && looksLikeHeader(record) {
			continue
		}

		txn, err := parseRecord(record)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		txns = append(txns, txn)
	}

	if len(txns) == 0 {
		if result.Skipped > 0 {
			return result, nil
		}
		return ImportResult{}, fmt.Errorf("%w: statement contains no rows", httpx.ErrValidation)
	}

	inserted, err := s.repo.InsertBatch(ctx, txns)
	result.Imported = inserted
	if err != nil {
		return result, err
	}
	s.logger.Info("bank statement imported",
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped))
	return result, nil
}

func looksLikeHeader(record []string) bool {
	_, err := parseRecord(record)
	return err != nil
}

func parseRecord(record []string) (BankTransaction, error) {
	var date time.Time
	var err error
	for _, layout := range csvDateLayouts {
		if date, err = time.Parse(layout, strings.TrimSpace(record[0])); err == nil {
			break
		}
	}
	if err != nil {
		return BankTransaction{}, fmt.Errorf("unparsable date %q", record[0])
	}

	description := strings.TrimSpace(record[1])
	if description == "" {
		return BankTransaction{}, fmt.Errorf("empty description")
	}

	cleaned := strings.ReplaceAll(strings.TrimSpace(record[2]), ",", "")
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return BankTransaction{}, fmt.Errorf("unparsable amount %q", record[2])
	}

	txnType := TypeCredit
	if amount < 0 {
		txnType = TypeDebit
	}
	return BankTransaction{
		TransactionDate: date,
		Description:     description,
		Amount:          math.Abs(amount),
		Type:            txnType,
	}, nil
}

func (s *Service) Get(ctx context.Context, id int64) (BankTransaction, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, status TransactionStatus, limit int) ([]BankTransaction, error) {
	return s.repo.List(ctx, status, limit)
}

// Categorize applies a user-chosen category. An empty category reverts the
// transaction to uncategorized.
func (s *Service) Categorize(ctx context.Context, id int64, category string) error {
	category = strings.TrimSpace(category)
	if category == "" {
		return s.repo.ClearCategory(ctx, id)
	}
	return s.repo.Categorize(ctx, id, category, nil)
}

const categorizePrompt = `You are an accounting assistant. Given a bank transaction description and amount, respond with JSON only: {"category": "<one of: sales, rent, utilities, payroll, supplies, travel, bank_fees, taxes, other>", "confidence": <0..1>}`

type categorySuggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// SuggestCategory asks the inference service for a category and applies it
// with the returned confidence. An unparsable reply falls back to "other"
// at low confidence rather than failing.
func (s *Service) SuggestCategory(ctx context.Context, id int64) (BankTransaction, error) {
	txn, err := s.repo.Get(ctx, id)
	if err != nil {
		return BankTransaction{}, err
	}
	if txn.Status == StatusPosted {
		return BankTransaction{}, ErrPosted
	}

	reply, err := s.inference.Complete(ctx, []inference.Message{
		inference.TextMessage("system", categorizePrompt),
		inference.TextMessage("user", fmt.Sprintf("%s %s %.2f", txn.Type, txn.Description, txn.Amount)),
	})
	if err != nil {
		return BankTransaction{}, fmt.Errorf("banking: suggest category: %w", err)
	}

	suggestion := categorySuggestion{Category: "other", Confidence: 0.5}
	trimmed := strings.TrimSpace(strings.Trim(strings.TrimSpace(reply), "`"))
	if start := strings.Index(trimmed, "{"); start >= 0 {
		if end := strings.LastIndex(trimmed, "}"); end > start {
			_ = json.Unmarshal([]byte(trimmed[start:end+1]), &suggestion)
		}
	}
	if suggestion.Category == "" {
		suggestion.Category = "other"
	}

	if err := s.repo.Categorize(ctx, id, suggestion.Category, &suggestion.Confidence); err != nil {
		return BankTransaction{}, err
	}
	return s.repo.Get(ctx, id)
}

// PostBatch turns categorized transactions into one balanced journal entry.
// Each transaction contributes a bank line and an offset line, so the entry
// balances by construction. The entry and the posted stamps commit in one
// transaction; a failed stamp rolls the entry back, so a retried batch can
// never double-book the ledger.
func (s *Service) PostBatch(ctx context.Context, ids []int64, bankAccountID, offsetAccountID int64) (journals.JournalEntry, error) {
	if len(ids) == 0 {
		return journals.JournalEntry{}, fmt.Errorf("%w: no transactions selected", httpx.ErrValidation)
	}
	if bankAccountID == 0 || offsetAccountID == 0 {
		return journals.JournalEntry{}, fmt.Errorf("%w: bank and offset accounts required", httpx.ErrValidation)
	}

	txns, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return journals.JournalEntry{}, err
	}
	if len(txns) != len(ids) {
		return journals.JournalEntry{}, ErrNotFound
	}

	var lines []journals.LineInput
	entryDate := txns[0].TransactionDate
	for _, txn := range txns {
		if txn.Status != StatusCategorized {
			return journals.JournalEntry{}, fmt.Errorf("%w: transaction %d is %s, expected categorized",
				httpx.ErrConflict, txn.ID, txn.Status)
		}
		if txn.TransactionDate.After(entryDate) {
			entryDate = txn.TransactionDate
		}
		description := txn.Description
		if txn.Category != nil {
			description = fmt.Sprintf("%s (%s)", txn.Description, *txn.Category)
		}
		switch txn.Type {
		case TypeCredit:
			lines = append(lines,
				journals.LineInput{AccountID: bankAccountID, Description: &description, DebitAmount: txn.Amount},
				journals.LineInput{AccountID: offsetAccountID, Description: &description, CreditAmount: txn.Amount})
		default:
			lines = append(lines,
				journals.LineInput{AccountID: offsetAccountID, Description: &description, DebitAmount: txn.Amount},
				journals.LineInput{AccountID: bankAccountID, Description: &description, CreditAmount: txn.Amount})
		}
	}

	entry, err := s.journals.CreatePostedWith(ctx, journals.CreateInput{
		EntryDate:   entryDate,
		Description: fmt.Sprintf("Bank statement batch (%d transactions)", len(txns)),
		Lines:       lines,
	}, nil, func(ctx context.Context, tx pgx.Tx, entry journals.JournalEntry) error {
		return s.repo.MarkPosted(ctx, tx, ids, entry.ID)
	})
	if err != nil {
		return journals.JournalEntry{}, fmt.Errorf("banking: post batch: %w", err)
	}
	s.logger.Info("bank transactions posted",
		slog.Int("count", len(ids)),
		slog.Int64("journal_entry_id", entry.ID))
	return entry, nil
}
