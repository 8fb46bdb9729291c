package journals

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/ledger/shared"
)

// numberConflictRetries bounds how many times a creation retries after
// losing the entry-number race to a concurrent transaction.
const numberConflictRetries = 3

// Invalidator is notified after posted ledger state changes so cached
// report views refresh. A nil invalidator is ignored.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service exposes journal entry operations.
type Service struct {
	repo       Repository
	logger     *slog.Logger
	invalidate Invalidator
}

// NewService constructs the journals service.
func NewService(repo Repository, logger *slog.Logger, invalidate Invalidator) *Service {
	return &Service{repo: repo, logger: logger, invalidate: invalidate}
}

func (s *Service) bumpCaches(ctx context.Context) {
	if s.invalidate == nil {
		return
	}
	if err := s.invalidate.Bump(ctx); err != nil {
		s.logger.Warn("bump report caches", slog.Any("error", err))
	}
}

// Create validates the input and persists a draft entry. Lost entry-number
// races surface as unique violations and are retried with a fresh number.
func (s *Service) Create(ctx context.Context, in CreateInput) (JournalEntry, error) {
	return s.create(ctx, in, StatusDraft, nil, nil)
}

// CreatePosted persists an entry directly in posted state, applying balance
// deltas and day-book rows in the same transaction. Used by automated
// posting flows where no review step exists.
func (s *Service) CreatePosted(ctx context.Context, in CreateInput, postedBy *int64) (JournalEntry, error) {
	return s.create(ctx, in, StatusPosted, postedBy, nil)
}

// CreatePostedWith is CreatePosted plus a follow-up that runs inside the
// same transaction. Batch flows use it to stamp their source rows, so the
// stamp and the entry commit or roll back together.
func (s *Service) CreatePostedWith(ctx context.Context, in CreateInput, postedBy *int64, follow FollowUp) (JournalEntry, error) {
	return s.create(ctx, in, StatusPosted, postedBy, follow)
}

func (s *Service) create(ctx context.Context, in CreateInput, status EntryStatus, postedBy *int64, follow FollowUp) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}

	var entry JournalEntry
	var err error
	for attempt := 0; attempt <= numberConflictRetries; attempt++ {
		entry, err = s.repo.Create(ctx, in, status, postedBy, follow)
		if err == nil {
			if status == StatusPosted {
				s.bumpCaches(ctx)
			}
			return entry, nil
		}
		if !IsEntryNumberConflict(err) {
			return JournalEntry{}, err
		}
		s.logger.Warn("journal entry number conflict, retrying",
			slog.Int("attempt", attempt+1))
	}
	return JournalEntry{}, err
}

func (s *Service) Get(ctx context.Context, id int64) (JournalEntry, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter) ([]JournalEntry, error) {
	return s.repo.List(ctx, filter)
}

// Post flips a draft to posted and applies its ledger effects atomically.
// The repository re-checks the draft status under a row lock; the check here
// surfaces the conflict before a transaction is opened.
func (s *Service) Post(ctx context.Context, id int64, postedBy *int64) (JournalEntry, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return JournalEntry{}, err
	}
	if current.Status != StatusDraft {
		return JournalEntry{}, fmt.Errorf("%w: only draft entries can be posted (current %s)", shared.ErrInvalidStatus, current.Status)
	}

	entry, err := s.repo.Post(ctx, id, postedBy)
	if err != nil {
		return JournalEntry{}, err
	}
	s.logger.Info("journal entry posted",
		slog.Int64("journal_entry_id", entry.ID),
		slog.String("entry_number", entry.EntryNumber))
	s.bumpCaches(ctx)
	return entry, nil
}

// DeleteDraft removes a draft entry. Posted entries are immutable.
func (s *Service) DeleteDraft(ctx context.Context, id int64) error {
	return s.repo.DeleteDraft(ctx, id)
}
