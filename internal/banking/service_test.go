package banking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/inference"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/journals"
)

type memRepo struct {
	txns       map[int64]BankTransaction
	nextID     int64
	inserted   []BankTransaction
	postedIDs  []int64
	postedWith int64
	markErr    error
}

func newMemRepo(txns ...BankTransaction) *memRepo {
	repo := &memRepo{txns: map[int64]BankTransaction{}, nextID: 1}
	for _, t := range txns {
		repo.txns[t.ID] = t
		if t.ID >= repo.nextID {
			repo.nextID = t.ID + 1
		}
	}
	return repo
}

func (m *memRepo) InsertBatch(ctx context.Context, txns []BankTransaction) (int, error) {
	for _, t := range txns {
		t.ID = m.nextID
		m.nextID++
		t.Status = StatusUncategorized
		m.txns[t.ID] = t
		m.inserted = append(m.inserted, t)
	}
	return len(txns), nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (BankTransaction, error) {
	t, ok := m.txns[id]
	if !ok {
		return BankTransaction{}, ErrNotFound
	}
	return t, nil
}

func (m *memRepo) List(ctx context.Context, status TransactionStatus, limit int) ([]BankTransaction, error) {
	return nil, nil
}

func (m *memRepo) GetMany(ctx context.Context, ids []int64) ([]BankTransaction, error) {
	var out []BankTransaction
	for _, id := range ids {
		if t, ok := m.txns[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memRepo) Categorize(ctx context.Context, id int64, category string, confidence *float64) error {
	t := m.txns[id]
	t.Category = &category
	t.AIConfidence = confidence
	t.Status = StatusCategorized
	m.txns[id] = t
	return nil
}

func (m *memRepo) ClearCategory(ctx context.Context, id int64) error {
	t := m.txns[id]
	t.Category = nil
	t.AIConfidence = nil
	t.Status = StatusUncategorized
	m.txns[id] = t
	return nil
}

func (m *memRepo) MarkPosted(ctx context.Context, tx pgx.Tx, ids []int64, journalEntryID int64) error {
	if m.markErr != nil {
		return m.markErr
	}
	for _, id := range ids {
		t := m.txns[id]
		t.Status = StatusPosted
		t.JournalEntryID = &journalEntryID
		m.txns[id] = t
	}
	m.postedIDs = ids
	m.postedWith = journalEntryID
	return nil
}

type fixedAI struct{ reply string }

func (f fixedAI) Complete(ctx context.Context, messages []inference.Message) (string, error) {
	return f.reply, nil
}

type capturingJournals struct {
	input     journals.CreateInput
	committed int
}

func (c *capturingJournals) CreatePostedWith(ctx context.Context, in journals.CreateInput, postedBy *int64, follow journals.FollowUp) (journals.JournalEntry, error) {
	c.input = in
	debit, credit := in.Totals()
	entry := journals.JournalEntry{ID: 5, EntryNumber: "JE20250820001", TotalDebit: debit, TotalCredit: credit, Status: journals.StatusPosted}
	// A failed follow-up rolls the entry back with it.
	if follow != nil {
		if err := follow(ctx, nil, entry); err != nil {
			return journals.JournalEntry{}, err
		}
	}
	c.committed++
	return entry, nil
}

func TestImportCSVSkipsHeaderAndBadRows(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, fixedAI{}, &capturingJournals{}, slog.Default())

	statement := strings.Join([]string{
		"Date,Description,Amount",
		"2025-08-01,Client payment,\"1,500.00\"",
		"2025-08-02,Electricity bill,-230.50",
		"garbage line without amount,x",
		"not-a-date,Coffee,4.50",
	}, "\n")

	result, err := svc.ImportCSV(context.Background(), strings.NewReader(statement))
	require.NoError(t, err)
	require.Equal(t, 2, result.Imported)
	require.Equal(t, 2, result.Skipped)
	require.Len(t, result.Errors, 2)

	require.Equal(t, TypeCredit, repo.inserted[0].Type)
	require.Equal(t, 1500.0, repo.inserted[0].Amount)
	require.Equal(t, TypeDebit, repo.inserted[1].Type)
	require.Equal(t, 230.5, repo.inserted[1].Amount, "debit amounts are stored positive")
	require.Equal(t, StatusUncategorized, repo.inserted[0].Status)
}

func TestImportCSVRejectsEmptyStatement(t *testing.T) {
	svc := NewService(newMemRepo(), fixedAI{}, &capturingJournals{}, slog.Default())

	_, err := svc.ImportCSV(context.Background(), strings.NewReader(""))
	require.Error(t, err)
}

func TestCategorizeEmptyRevertsToUncategorized(t *testing.T) {
	cat := "rent"
	conf := 0.8
	repo := newMemRepo(BankTransaction{ID: 1, Status: StatusCategorized, Category: &cat, AIConfidence: &conf})
	svc := NewService(repo, fixedAI{}, &capturingJournals{}, slog.Default())

	require.NoError(t, svc.Categorize(context.Background(), 1, "  "))
	txn := repo.txns[1]
	require.Equal(t, StatusUncategorized, txn.Status)
	require.Nil(t, txn.Category, "category is null exactly when uncategorized")
	require.Nil(t, txn.AIConfidence)
}

func TestSuggestCategoryAppliesModelReply(t *testing.T) {
	repo := newMemRepo(BankTransaction{ID: 1, Description: "EDF monthly", Amount: 80, Type: TypeDebit, Status: StatusUncategorized})
	svc := NewService(repo, fixedAI{reply: `{"category":"utilities","confidence":0.93}`}, &capturingJournals{}, slog.Default())

	txn, err := svc.SuggestCategory(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusCategorized, txn.Status)
	require.NotNil(t, txn.Category)
	require.Equal(t, "utilities", *txn.Category)
	require.NotNil(t, txn.AIConfidence)
	require.Equal(t, 0.93, *txn.AIConfidence)
}

func TestSuggestCategoryFallsBackOnGarbageReply(t *testing.T) {
	repo := newMemRepo(BankTransaction{ID: 1, Description: "???", Status: StatusUncategorized})
	svc := NewService(repo, fixedAI{reply: "I am not sure about this one."}, &capturingJournals{}, slog.Default())

	txn, err := svc.SuggestCategory(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "other", *txn.Category)
	require.Equal(t, 0.5, *txn.AIConfidence)
}

func TestSuggestCategoryRefusesPostedTransaction(t *testing.T) {
	repo := newMemRepo(BankTransaction{ID: 1, Status: StatusPosted})
	svc := NewService(repo, fixedAI{}, &capturingJournals{}, slog.Default())

	_, err := svc.SuggestCategory(context.Background(), 1)
	require.ErrorIs(t, err, ErrPosted)
}

func TestPostBatchBuildsBalancedEntry(t *testing.T) {
	sales := "sales"
	rent := "rent"
	repo := newMemRepo(
		BankTransaction{ID: 1, TransactionDate: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), Description: "Client payment", Amount: 1500, Type: TypeCredit, Category: &sales, Status: StatusCategorized},
		BankTransaction{ID: 2, TransactionDate: time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC), Description: "Office rent", Amount: 900, Type: TypeDebit, Category: &rent, Status: StatusCategorized},
	)
	journalSvc := &capturingJournals{}
	svc := NewService(repo, fixedAI{}, journalSvc, slog.Default())

	entry, err := svc.PostBatch(context.Background(), []int64{1, 2}, 10, 20)
	require.NoError(t, err)
	require.Equal(t, int64(5), entry.ID)

	in := journalSvc.input
	require.Len(t, in.Lines, 4)
	require.Equal(t, time.Date(2025, 8, 5, 0, 0, 0, 0, time.UTC), in.EntryDate, "entry date is the latest transaction date")
	require.NoError(t, in.Validate())

	// Credit transaction: money into the bank account.
	require.Equal(t, int64(10), in.Lines[0].AccountID)
	require.Equal(t, 1500.0, in.Lines[0].DebitAmount)
	require.Equal(t, int64(20), in.Lines[1].AccountID)
	require.Equal(t, 1500.0, in.Lines[1].CreditAmount)
	// Debit transaction: money out of the bank account.
	require.Equal(t, int64(20), in.Lines[2].AccountID)
	require.Equal(t, 900.0, in.Lines[2].DebitAmount)
	require.Equal(t, int64(10), in.Lines[3].AccountID)
	require.Equal(t, 900.0, in.Lines[3].CreditAmount)

	require.Equal(t, []int64{1, 2}, repo.postedIDs)
	require.Equal(t, int64(5), repo.postedWith)
}

func TestPostBatchRollsBackEntryWhenStampFails(t *testing.T) {
	sales := "sales"
	repo := newMemRepo(
		BankTransaction{ID: 1, TransactionDate: time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC), Description: "Client payment", Amount: 1500, Type: TypeCredit, Category: &sales, Status: StatusCategorized},
	)
	repo.markErr = errors.New("stamp failed")
	journalSvc := &capturingJournals{}
	svc := NewService(repo, fixedAI{}, journalSvc, slog.Default())

	_, err := svc.PostBatch(context.Background(), []int64{1}, 10, 20)
	require.Error(t, err)
	require.Zero(t, journalSvc.committed, "entry must not survive a failed stamp")
	require.Equal(t, StatusCategorized, repo.txns[1].Status)

	// A retry after the transient failure books the batch exactly once.
	repo.markErr = nil
	_, err = svc.PostBatch(context.Background(), []int64{1}, 10, 20)
	require.NoError(t, err)
	require.Equal(t, 1, journalSvc.committed)
	require.Equal(t, StatusPosted, repo.txns[1].Status)
}

func TestPostBatchRejectsUncategorized(t *testing.T) {
	repo := newMemRepo(
		BankTransaction{ID: 1, TransactionDate: time.Now(), Description: "x", Amount: 10, Type: TypeCredit, Status: StatusUncategorized},
	)
	svc := NewService(repo, fixedAI{}, &capturingJournals{}, slog.Default())

	_, err := svc.PostBatch(context.Background(), []int64{1}, 10, 20)
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected categorized")
}

func TestPostBatchRejectsMissingTransaction(t *testing.T) {
	svc := NewService(newMemRepo(), fixedAI{}, &capturingJournals{}, slog.Default())

	_, err := svc.PostBatch(context.Background(), []int64{99}, 10, 20)
	require.ErrorIs(t, err, ErrNotFound)
}
