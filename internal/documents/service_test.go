package documents

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/storage"
)

type memStore struct {
	puts    []string
	deletes []string
	putErr  error
}

func (m *memStore) Put(key string, r io.Reader) (storage.Blob, error) {
	if m.putErr != nil {
		return storage.Blob{}, m.putErr
	}
	m.puts = append(m.puts, key)
	data, _ := io.ReadAll(r)
	return storage.Blob{Path: key, Size: int64(len(data)), Checksum: "abc123"}, nil
}

func (m *memStore) Delete(rel string) error {
	m.deletes = append(m.deletes, rel)
	return nil
}

type memDocRepo struct {
	docs      map[uuid.UUID]Document
	insertErr error
}

func newMemDocRepo() *memDocRepo { return &memDocRepo{docs: map[uuid.UUID]Document{}} }

func (m *memDocRepo) Insert(ctx context.Context, doc Document) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *memDocRepo) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (m *memDocRepo) List(ctx context.Context, ownerID int64) ([]Document, error) { return nil, nil }

func (m *memDocRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(m.docs, id)
	return nil
}

func (m *memDocRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status, errorMessage *string) error {
	return nil
}

func (m *memDocRepo) MergeExtracted(ctx context.Context, id uuid.UUID, patch ExtractedData) (ExtractedData, error) {
	return ExtractedData{}, nil
}

func (m *memDocRepo) MarkPosted(ctx context.Context, id uuid.UUID, marker PostingMarker) error {
	return nil
}

func (m *memDocRepo) SetProcessingSummary(ctx context.Context, id uuid.UUID, summary ProcessingSummary) error {
	return nil
}

func (m *memDocRepo) SetProcessedAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

type memStageQueue struct {
	enqueued []uuid.UUID
}

func (m *memStageQueue) EnqueueDocument(ctx context.Context, documentID uuid.UUID, priority int) error {
	m.enqueued = append(m.enqueued, documentID)
	return nil
}

type memDispatcher struct {
	dispatched []uuid.UUID
	err        error
}

func (m *memDispatcher) DispatchPipeline(ctx context.Context, documentID uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	m.dispatched = append(m.dispatched, documentID)
	return nil
}

func uploadInput() UploadInput {
	return UploadInput{
		OwnerID:  1,
		FileName: "invoice.pdf",
		MimeType: "application/pdf",
		Size:     11,
		Content:  strings.NewReader("hello world"),
	}
}

func TestUploadStoresAndEnqueues(t *testing.T) {
	repo := newMemDocRepo()
	store := &memStore{}
	queue := &memStageQueue{}
	dispatcher := &memDispatcher{}
	svc := NewService(repo, store, queue, dispatcher, 0)

	doc, err := svc.Upload(context.Background(), uploadInput())
	require.NoError(t, err)
	require.Equal(t, StatusProcessing, doc.Status)
	require.Equal(t, int64(11), doc.FileSize)
	require.Equal(t, "abc123", doc.Checksum)
	require.True(t, strings.HasSuffix(doc.StoragePath, ".pdf"))

	require.Len(t, store.puts, 1)
	require.Equal(t, []uuid.UUID{doc.ID}, queue.enqueued)
	require.Equal(t, []uuid.UUID{doc.ID}, dispatcher.dispatched)
	require.Contains(t, repo.docs, doc.ID)
}

func TestUploadRejectsDisallowedMimeType(t *testing.T) {
	store := &memStore{}
	svc := NewService(newMemDocRepo(), store, &memStageQueue{}, &memDispatcher{}, 0)

	in := uploadInput()
	in.MimeType = "application/x-msdownload"
	_, err := svc.Upload(context.Background(), in)
	require.Error(t, err)
	require.Empty(t, store.puts, "validation must happen before any storage write")
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc := NewService(newMemDocRepo(), &memStore{}, &memStageQueue{}, &memDispatcher{}, 100)

	in := uploadInput()
	in.Size = 101
	_, err := svc.Upload(context.Background(), in)
	require.Error(t, err)
}

func TestUploadCleansUpBlobOnInsertFailure(t *testing.T) {
	repo := newMemDocRepo()
	repo.insertErr = errors.New("db down")
	store := &memStore{}
	svc := NewService(repo, store, &memStageQueue{}, &memDispatcher{}, 0)

	_, err := svc.Upload(context.Background(), uploadInput())
	require.Error(t, err)
	require.Len(t, store.deletes, 1, "orphaned blob must be removed")
}

func TestUploadSurvivesLostDispatch(t *testing.T) {
	repo := newMemDocRepo()
	queue := &memStageQueue{}
	svc := NewService(repo, &memStore{}, queue, &memDispatcher{err: errors.New("redis down")}, 0)

	doc, err := svc.Upload(context.Background(), uploadInput())
	require.NoError(t, err, "queued stage items make the dispatch best-effort")
	require.Len(t, queue.enqueued, 1)
	require.Contains(t, repo.docs, doc.ID)
}

func TestDeleteRemovesBlob(t *testing.T) {
	repo := newMemDocRepo()
	store := &memStore{}
	svc := NewService(repo, store, &memStageQueue{}, &memDispatcher{}, 0)

	doc, err := svc.Upload(context.Background(), uploadInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), doc.ID))
	require.Equal(t, []string{doc.StoragePath}, store.deletes)
	_, err = svc.Get(context.Background(), doc.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
