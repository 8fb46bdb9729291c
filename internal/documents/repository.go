package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/platform/httpx"
)

// ErrNotFound indicates a missing document.
var ErrNotFound = fmt.Errorf("documents: %w", httpx.ErrNotFound)

// ErrAlreadyPosted indicates the document's ledger effects were committed
// earlier; posting must not run twice.
var ErrAlreadyPosted = fmt.Errorf("%w: document already posted", httpx.ErrConflict)

// Repository encapsulates DB operations for documents.
type Repository interface {
	Insert(ctx context.Context, doc Document) error
	Get(ctx context.Context, id uuid.UUID) (Document, error)
	List(ctx context.Context, ownerID int64) ([]Document, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// UpdateStatus only moves forward from processing; flipping an already
	// terminal document is a no-op reported via ErrNotFound.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, errorMessage *string) error
	MergeExtracted(ctx context.Context, id uuid.UUID, patch ExtractedData) (ExtractedData, error)
	// MarkPosted stamps the posting marker under the same row lock that
	// checks it, so a document can be posted at most once.
	MarkPosted(ctx context.Context, id uuid.UUID, marker PostingMarker) error
	SetProcessingSummary(ctx context.Context, id uuid.UUID, summary ProcessingSummary) error
	SetProcessedAt(ctx context.Context, id uuid.UUID, at time.Time) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const documentColumns = `id, owner_id, file_name, file_size, mime_type, storage_path, checksum,
status, extracted_data, processing_summary, error_message, created_at, updated_at, processed_at`

func (r *repository) Insert(ctx context.Context, doc Document) error {
	data, err := json.Marshal(doc.ExtractedData)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO documents (id, owner_id, file_name, file_size, mime_type, storage_path, checksum, status, extracted_data)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		doc.ID, doc.OwnerID, doc.FileName, doc.FileSize, doc.MimeType, doc.StoragePath, doc.Checksum, doc.Status, data)
	return err
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	row := r.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1`, id)
	return scanDocument(row)
}

func (r *repository) List(ctx context.Context, ownerID int64) ([]Document, error) {
	rows, err := r.db.Query(ctx, `SELECT `+documentColumns+` FROM documents WHERE owner_id=$1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, errorMessage *string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE documents SET status=$2, error_message=COALESCE($3, error_message), updated_at=now()
WHERE id=$1 AND status='processing'`, id, status, errorMessage)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MergeExtracted folds patch into the stored accumulator under a row lock so
// concurrent stage writers cannot drop each other's keys.
func (r *repository) MergeExtracted(ctx context.Context, id uuid.UUID, patch ExtractedData) (ExtractedData, error) {
	var merged ExtractedData
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ExtractedData{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var raw []byte
	if err := tx.QueryRow(ctx, `SELECT extracted_data FROM documents WHERE id=$1 FOR UPDATE`, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ExtractedData{}, ErrNotFound
		}
		return ExtractedData{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &merged); err != nil {
			return ExtractedData{}, fmt.Errorf("documents: corrupt extracted_data: %w", err)
		}
	}
	merged.Merge(patch)

	data, err := json.Marshal(merged)
	if err != nil {
		return ExtractedData{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE documents SET extracted_data=$2, updated_at=now() WHERE id=$1`, id, data); err != nil {
		return ExtractedData{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return ExtractedData{}, err
	}
	return merged, nil
}

func (r *repository) MarkPosted(ctx context.Context, id uuid.UUID, marker PostingMarker) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var raw []byte
	if err := tx.QueryRow(ctx, `SELECT extracted_data FROM documents WHERE id=$1 FOR UPDATE`, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	var merged ExtractedData
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &merged); err != nil {
			return fmt.Errorf("documents: corrupt extracted_data: %w", err)
		}
	}
	if merged.IsPosted() {
		return ErrAlreadyPosted
	}
	merged.Posting = &marker

	data, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE documents SET extracted_data=$2, updated_at=now() WHERE id=$1`, id, data); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repository) SetProcessingSummary(ctx context.Context, id uuid.UUID, summary ProcessingSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `UPDATE documents SET processing_summary=$2, updated_at=now() WHERE id=$1`, id, data)
	return err
}

func (r *repository) SetProcessedAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE documents SET processed_at=$2, updated_at=now() WHERE id=$1`, id, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var doc Document
	var extracted, summary []byte
	err := row.Scan(&doc.ID, &doc.OwnerID, &doc.FileName, &doc.FileSize, &doc.MimeType, &doc.StoragePath, &doc.Checksum,
		&doc.Status, &extracted, &summary, &doc.ErrorMessage, &doc.CreatedAt, &doc.UpdatedAt, &doc.ProcessedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if len(extracted) > 0 {
		if err := json.Unmarshal(extracted, &doc.ExtractedData); err != nil {
			return Document{}, fmt.Errorf("documents: corrupt extracted_data: %w", err)
		}
	}
	if len(summary) > 0 {
		doc.ProcessingSummary = &ProcessingSummary{}
		if err := json.Unmarshal(summary, doc.ProcessingSummary); err != nil {
			return Document{}, fmt.Errorf("documents: corrupt processing_summary: %w", err)
		}
	}
	return doc, nil
}
