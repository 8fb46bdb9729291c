package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/shared"
)

type fakeRepo struct {
	createCalls  int
	failuresLeft int
	created      []JournalEntry
	current      JournalEntry
	posted       JournalEntry
	postErr      error
	postCalls    int
}

func (f *fakeRepo) Create(ctx context.Context, in CreateInput, status EntryStatus, postedBy *int64, follow FollowUp) (JournalEntry, error) {
	f.createCalls++
	if f.failuresLeft > 0 {
		f.failuresLeft--
		return JournalEntry{}, &pgconn.PgError{Code: "23505", ConstraintName: "uq_journal_entries_number"}
	}
	debit, credit := in.Totals()
	entry := JournalEntry{
		ID:          int64(len(f.created) + 1),
		EntryNumber: fmt.Sprintf("JE20250815%03d", f.createCalls),
		EntryDate:   in.EntryDate,
		Description: in.Description,
		TotalDebit:  debit,
		TotalCredit: credit,
		Status:      status,
	}
	// A failed follow-up rolls the whole transaction back.
	if follow != nil {
		if err := follow(ctx, nil, entry); err != nil {
			return JournalEntry{}, err
		}
	}
	f.created = append(f.created, entry)
	return entry, nil
}

func (f *fakeRepo) Get(ctx context.Context, id int64) (JournalEntry, error) {
	if f.current.ID == 0 {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	return f.current, nil
}

func (f *fakeRepo) List(ctx context.Context, filter Filter) ([]JournalEntry, error) {
	return nil, nil
}

func (f *fakeRepo) Post(ctx context.Context, id int64, postedBy *int64) (JournalEntry, error) {
	f.postCalls++
	if f.postErr != nil {
		return JournalEntry{}, f.postErr
	}
	f.posted.ID = id
	f.posted.Status = StatusPosted
	return f.posted, nil
}

func (f *fakeRepo) DeleteDraft(ctx context.Context, id int64) error { return nil }

type countingInvalidator struct{ bumps int }

func (c *countingInvalidator) Bump(ctx context.Context) error {
	c.bumps++
	return nil
}

func validInput() CreateInput {
	return CreateInput{
		EntryDate:   time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC),
		Description: "Office rent",
		Lines: []LineInput{
			{AccountID: 10, DebitAmount: 500},
			{AccountID: 20, CreditAmount: 500},
		},
	}
}

func TestCreateRejectsUnbalancedEntry(t *testing.T) {
	svc := NewService(&fakeRepo{}, slog.Default(), nil)

	in := validInput()
	in.Lines[1].CreditAmount = 500.02
	if _, err := svc.Create(context.Background(), in); err != shared.ErrUnbalanced {
		t.Fatalf("expected ErrUnbalanced, got %v", err)
	}
}

func TestCreateAcceptsRoundingTolerance(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, slog.Default(), nil)

	in := validInput()
	in.Lines[1].CreditAmount = 500.009
	entry, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Status != StatusDraft {
		t.Fatalf("expected draft, got %s", entry.Status)
	}
}

func TestCreateRejectsTooFewLines(t *testing.T) {
	svc := NewService(&fakeRepo{}, slog.Default(), nil)

	in := validInput()
	in.Lines = in.Lines[:1]
	if _, err := svc.Create(context.Background(), in); err != shared.ErrTooFewLines {
		t.Fatalf("expected ErrTooFewLines, got %v", err)
	}
}

func TestCreateRejectsDoubleSidedLine(t *testing.T) {
	svc := NewService(&fakeRepo{}, slog.Default(), nil)

	in := validInput()
	in.Lines[0].CreditAmount = 500
	if _, err := svc.Create(context.Background(), in); err == nil {
		t.Fatal("expected validation error for double-sided line")
	}
}

func TestCreateRetriesNumberConflict(t *testing.T) {
	repo := &fakeRepo{failuresLeft: 2}
	svc := NewService(repo, slog.Default(), nil)

	entry, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.createCalls != 3 {
		t.Fatalf("expected 3 create attempts, got %d", repo.createCalls)
	}
	if entry.EntryNumber == "" {
		t.Fatal("expected an entry number after retry")
	}
}

func TestCreateGivesUpAfterRetryBudget(t *testing.T) {
	repo := &fakeRepo{failuresLeft: 10}
	svc := NewService(repo, slog.Default(), nil)

	if _, err := svc.Create(context.Background(), validInput()); !IsEntryNumberConflict(err) {
		t.Fatalf("expected number conflict after exhausting retries, got %v", err)
	}
	if repo.createCalls != numberConflictRetries+1 {
		t.Fatalf("expected %d attempts, got %d", numberConflictRetries+1, repo.createCalls)
	}
}

func TestPostBumpsReportCaches(t *testing.T) {
	inv := &countingInvalidator{}
	svc := NewService(&fakeRepo{
		current: JournalEntry{ID: 1, Status: StatusDraft},
		posted:  JournalEntry{EntryNumber: "JE20250815001"},
	}, slog.Default(), inv)

	if _, err := svc.Post(context.Background(), 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.bumps != 1 {
		t.Fatalf("expected one cache bump, got %d", inv.bumps)
	}
}

func TestPostDoesNotBumpOnFailure(t *testing.T) {
	inv := &countingInvalidator{}
	svc := NewService(&fakeRepo{
		current: JournalEntry{ID: 1, Status: StatusDraft},
		postErr: shared.ErrInvalidStatus,
	}, slog.Default(), inv)

	if _, err := svc.Post(context.Background(), 1, nil); err == nil {
		t.Fatal("expected error")
	}
	if inv.bumps != 0 {
		t.Fatalf("expected no cache bump, got %d", inv.bumps)
	}
}

func TestPostRejectsAlreadyPostedEntry(t *testing.T) {
	inv := &countingInvalidator{}
	repo := &fakeRepo{current: JournalEntry{ID: 1, Status: StatusPosted}}
	svc := NewService(repo, slog.Default(), inv)

	_, err := svc.Post(context.Background(), 1, nil)
	if !errors.Is(err, shared.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if repo.postCalls != 0 {
		t.Fatalf("expected no posting attempt, got %d", repo.postCalls)
	}
	if inv.bumps != 0 {
		t.Fatalf("expected no cache bump, got %d", inv.bumps)
	}
}

func TestCreatePostedWithRollsBackOnFollowUpError(t *testing.T) {
	inv := &countingInvalidator{}
	repo := &fakeRepo{}
	svc := NewService(repo, slog.Default(), inv)

	boom := errors.New("stamp failed")
	_, err := svc.CreatePostedWith(context.Background(), validInput(), nil, func(ctx context.Context, tx pgx.Tx, entry JournalEntry) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected follow-up error, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no committed entry, got %d", len(repo.created))
	}
	if inv.bumps != 0 {
		t.Fatalf("expected no cache bump, got %d", inv.bumps)
	}
}

func TestCreatePostedBumpsReportCaches(t *testing.T) {
	inv := &countingInvalidator{}
	svc := NewService(&fakeRepo{}, slog.Default(), inv)

	entry, err := svc.CreatePosted(context.Background(), validInput(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Status != StatusPosted {
		t.Fatalf("expected posted, got %s", entry.Status)
	}
	if inv.bumps != 1 {
		t.Fatalf("expected one cache bump, got %d", inv.bumps)
	}
}
