package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/documents"
)

// Repository encapsulates DB operations for the processing queue.
type Repository interface {
	EnqueueDocument(ctx context.Context, documentID uuid.UUID, priority int) error
	// Claim atomically flips the oldest highest-priority queued item for the
	// given document and stage to processing. The bool result reports whether
	// an item was claimed; no queued work is not an error.
	Claim(ctx context.Context, documentID uuid.UUID, stage Stage) (QueueItem, bool, error)
	Complete(ctx context.Context, id int64, result json.RawMessage) error
	Fail(ctx context.Context, id int64, message string) error
	MarkDead(ctx context.Context, id int64, message string) error
	Requeue(ctx context.Context, id int64) error

	PendingForDocument(ctx context.Context, documentID uuid.UUID) (int, error)
	SummaryForDocument(ctx context.Context, documentID uuid.UUID) (documents.ProcessingSummary, error)
	StageStatus(ctx context.Context, documentID uuid.UUID, stage Stage) (QueueStatus, error)
	DocumentsWithQueuedWork(ctx context.Context, limit int) ([]uuid.UUID, error)

	// RequeueStalled recovers items stuck in processing longer than maxAge,
	// and RequeueDead gives exhausted items a fresh retry budget. Both are
	// administrative operations.
	RequeueStalled(ctx context.Context, maxAge time.Duration) (int64, error)
	RequeueDead(ctx context.Context, documentID uuid.UUID) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed queue repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) EnqueueDocument(ctx context.Context, documentID uuid.UUID, priority int) error {
	for _, stage := range StageOrder {
		_, err := r.db.Exec(ctx, `INSERT INTO processing_queue (document_id, stage, priority)
VALUES ($1,$2,$3)
ON CONFLICT (document_id, stage) WHERE status IN ('queued','processing') DO NOTHING`,
			documentID, stage, priority)
		if err != nil {
			return err
		}
	}
	return nil
}

const queueColumns = `id, document_id, stage, status, priority, attempts, result, error_message, created_at, started_at, completed_at`

// Claim uses FOR UPDATE SKIP LOCKED so concurrent workers never grab the
// same item.
func (r *repository) Claim(ctx context.Context, documentID uuid.UUID, stage Stage) (QueueItem, bool, error) {
	row := r.db.QueryRow(ctx, `UPDATE processing_queue
SET status='processing', started_at=now(), attempts=attempts+1
WHERE id = (
	SELECT id FROM processing_queue
	WHERE document_id=$1 AND stage=$2 AND status='queued'
	ORDER BY priority ASC, created_at ASC
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING `+queueColumns, documentID, stage)

	item, err := scanQueueItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return QueueItem{}, false, nil
		}
		return QueueItem{}, false, err
	}
	return item, true, nil
}

func (r *repository) Complete(ctx context.Context, id int64, result json.RawMessage) error {
	_, err := r.db.Exec(ctx, `UPDATE processing_queue
SET status='completed', result=$2, completed_at=now()
WHERE id=$1 AND status='processing'`, id, result)
	return err
}

func (r *repository) Fail(ctx context.Context, id int64, message string) error {
	_, err := r.db.Exec(ctx, `UPDATE processing_queue
SET status='failed', error_message=$2, completed_at=now()
WHERE id=$1 AND status='processing'`, id, message)
	return err
}

func (r *repository) MarkDead(ctx context.Context, id int64, message string) error {
	_, err := r.db.Exec(ctx, `UPDATE processing_queue
SET status='dead', error_message=$2, completed_at=now()
WHERE id=$1 AND status IN ('processing','failed')`, id, message)
	return err
}

func (r *repository) Requeue(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE processing_queue
SET status='queued', started_at=NULL, completed_at=NULL
WHERE id=$1 AND status='failed'`, id)
	return err
}

func (r *repository) PendingForDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	var pending int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM processing_queue
WHERE document_id=$1 AND status IN ('queued','processing')`, documentID).Scan(&pending)
	return pending, err
}

func (r *repository) SummaryForDocument(ctx context.Context, documentID uuid.UUID) (documents.ProcessingSummary, error) {
	rows, err := r.db.Query(ctx, `SELECT stage, status, error_message FROM processing_queue
WHERE document_id=$1 ORDER BY id ASC`, documentID)
	if err != nil {
		return documents.ProcessingSummary{}, err
	}
	defer rows.Close()

	var summary documents.ProcessingSummary
	for rows.Next() {
		var stage, status string
		var message *string
		if err := rows.Scan(&stage, &status, &message); err != nil {
			return documents.ProcessingSummary{}, err
		}
		switch QueueStatus(status) {
		case StatusCompleted:
			summary.Processed++
		case StatusFailed, StatusDead:
			summary.Failed++
			if message != nil {
				summary.Errors = append(summary.Errors, documents.StageError{Stage: stage, Message: *message})
			}
		}
	}
	return summary, rows.Err()
}

func (r *repository) StageStatus(ctx context.Context, documentID uuid.UUID, stage Stage) (QueueStatus, error) {
	var status string
	err := r.db.QueryRow(ctx, `SELECT status FROM processing_queue
WHERE document_id=$1 AND stage=$2 ORDER BY id DESC LIMIT 1`, documentID, stage).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return QueueStatus(status), nil
}

func (r *repository) DocumentsWithQueuedWork(ctx context.Context, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, `SELECT DISTINCT document_id FROM processing_queue
WHERE status='queued' LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repository) RequeueStalled(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	cmd, err := r.db.Exec(ctx, `UPDATE processing_queue
SET status='queued', started_at=NULL
WHERE status='processing' AND started_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *repository) RequeueDead(ctx context.Context, documentID uuid.UUID) (int64, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE processing_queue
SET status='queued', attempts=0, error_message=NULL, started_at=NULL, completed_at=NULL
WHERE document_id=$1 AND status='dead'`, documentID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueueItem(row rowScanner) (QueueItem, error) {
	var item QueueItem
	err := row.Scan(&item.ID, &item.DocumentID, &item.Stage, &item.Status, &item.Priority, &item.Attempts,
		&item.Result, &item.ErrorMessage, &item.CreatedAt, &item.StartedAt, &item.CompletedAt)
	if err != nil {
		return QueueItem{}, err
	}
	return item, nil
}
