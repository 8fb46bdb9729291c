package documents

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/storage"
)

// BlobStore is the storage gateway the service writes uploads through.
type BlobStore interface {
	Put(key string, r io.Reader) (storage.Blob, error)
	Delete(rel string) error
}

// StageQueue enqueues the pipeline work items for a freshly uploaded document.
type StageQueue interface {
	EnqueueDocument(ctx context.Context, documentID uuid.UUID, priority int) error
}

// TaskDispatcher hands a document to the background pipeline.
type TaskDispatcher interface {
	DispatchPipeline(ctx context.Context, documentID uuid.UUID) error
}

// Service implements the upload boundary and document lifecycle operations.
type Service struct {
	repo     Repository
	store    BlobStore
	queue    StageQueue
	tasks    TaskDispatcher
	maxBytes int64
	now      func() time.Time
}

// NewService wires the document service.
func NewService(repo Repository, store BlobStore, queue StageQueue, tasks TaskDispatcher, maxBytes int64) *Service {
	return &Service{
		repo:     repo,
		store:    store,
		queue:    queue,
		tasks:    tasks,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Upload validates the file, stores its bytes, creates the document record
// and enqueues the processing pipeline. Validation failures happen before
// any storage write.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Document, error) {
	if err := in.Validate(s.maxBytes); err != nil {
		return Document{}, err
	}

	id := uuid.New()
	key := blobKey(id, in.FileName)
	blob, err := s.store.Put(key, in.Content)
	if err != nil {
		return Document{}, fmt.Errorf("documents: store upload: %w", err)
	}

	doc := Document{
		ID:          id,
		OwnerID:     in.OwnerID,
		FileName:    in.FileName,
		FileSize:    blob.Size,
		MimeType:    in.MimeType,
		StoragePath: blob.Path,
		Checksum:    blob.Checksum,
		Status:      StatusProcessing,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Insert(ctx, doc); err != nil {
		_ = s.store.Delete(blob.Path)
		return Document{}, fmt.Errorf("documents: insert: %w", err)
	}

	if err := s.queue.EnqueueDocument(ctx, id, defaultPriority); err != nil {
		return Document{}, fmt.Errorf("documents: enqueue stages: %w", err)
	}
	// Dispatch is best-effort. Queued stage items remain durable, so the
	// periodic sweep picks the document up if the dispatch is lost.
	_ = s.tasks.DispatchPipeline(ctx, id)

	return doc, nil
}

const defaultPriority = 5

// Get returns one document.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	return s.repo.Get(ctx, id)
}

// List returns an owner's documents, newest first.
func (s *Service) List(ctx context.Context, ownerID int64) ([]Document, error) {
	return s.repo.List(ctx, ownerID)
}

// Delete removes the document record, its queue items (DB cascade) and the
// stored blob.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(doc.StoragePath)
}

func blobKey(id uuid.UUID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	name := id.String()
	return name[:2] + "/" + name + ext
}
