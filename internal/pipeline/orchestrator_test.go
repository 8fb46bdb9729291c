package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/documents"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/observability"
)

type memDocs struct {
	doc         documents.Document
	status      documents.Status
	statusMsg   *string
	summary     *documents.ProcessingSummary
	processedAt *time.Time
}

func (m *memDocs) Insert(ctx context.Context, doc documents.Document) error { return nil }

func (m *memDocs) Get(ctx context.Context, id uuid.UUID) (documents.Document, error) {
	return m.doc, nil
}

func (m *memDocs) List(ctx context.Context, ownerID int64) ([]documents.Document, error) {
	return nil, nil
}

func (m *memDocs) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (m *memDocs) UpdateStatus(ctx context.Context, id uuid.UUID, status documents.Status, errorMessage *string) error {
	m.status = status
	m.statusMsg = errorMessage
	return nil
}

func (m *memDocs) MergeExtracted(ctx context.Context, id uuid.UUID, patch documents.ExtractedData) (documents.ExtractedData, error) {
	m.doc.ExtractedData.Merge(patch)
	return m.doc.ExtractedData, nil
}

func (m *memDocs) MarkPosted(ctx context.Context, id uuid.UUID, marker documents.PostingMarker) error {
	m.doc.ExtractedData.Posting = &marker
	return nil
}

func (m *memDocs) SetProcessingSummary(ctx context.Context, id uuid.UUID, summary documents.ProcessingSummary) error {
	m.summary = &summary
	return nil
}

func (m *memDocs) SetProcessedAt(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.processedAt = &at
	return nil
}

type memQueue struct {
	items     map[Stage]*QueueItem
	dead      []int64
	requeued  []int64
	completed []Stage
}

func newMemQueue(docID uuid.UUID, stages ...Stage) *memQueue {
	q := &memQueue{items: map[Stage]*QueueItem{}}
	for i, stage := range stages {
		q.items[stage] = &QueueItem{ID: int64(i + 1), DocumentID: docID, Stage: stage, Status: StatusQueued}
	}
	return q
}

func (q *memQueue) EnqueueDocument(ctx context.Context, documentID uuid.UUID, priority int) error {
	return nil
}

func (q *memQueue) Claim(ctx context.Context, documentID uuid.UUID, stage Stage) (QueueItem, bool, error) {
	item, ok := q.items[stage]
	if !ok || item.Status != StatusQueued {
		return QueueItem{}, false, nil
	}
	item.Status = StatusProcessing
	item.Attempts++
	return *item, true, nil
}

func (q *memQueue) Complete(ctx context.Context, id int64, result json.RawMessage) error {
	for _, item := range q.items {
		if item.ID == id {
			item.Status = StatusCompleted
			item.Result = result
			q.completed = append(q.completed, item.Stage)
		}
	}
	return nil
}

func (q *memQueue) Fail(ctx context.Context, id int64, message string) error {
	for _, item := range q.items {
		if item.ID == id {
			item.Status = StatusFailed
			item.ErrorMessage = &message
		}
	}
	return nil
}

func (q *memQueue) MarkDead(ctx context.Context, id int64, message string) error {
	for _, item := range q.items {
		if item.ID == id {
			item.Status = StatusDead
			item.ErrorMessage = &message
			q.dead = append(q.dead, id)
		}
	}
	return nil
}

func (q *memQueue) Requeue(ctx context.Context, id int64) error {
	for _, item := range q.items {
		if item.ID == id {
			item.Status = StatusQueued
			q.requeued = append(q.requeued, id)
		}
	}
	return nil
}

func (q *memQueue) PendingForDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	pending := 0
	for _, item := range q.items {
		if item.Status == StatusQueued || item.Status == StatusProcessing {
			pending++
		}
	}
	return pending, nil
}

func (q *memQueue) SummaryForDocument(ctx context.Context, documentID uuid.UUID) (documents.ProcessingSummary, error) {
	var summary documents.ProcessingSummary
	for _, item := range q.items {
		switch item.Status {
		case StatusCompleted:
			summary.Processed++
		case StatusFailed, StatusDead:
			summary.Failed++
			msg := ""
			if item.ErrorMessage != nil {
				msg = *item.ErrorMessage
			}
			summary.Errors = append(summary.Errors, documents.StageError{Stage: string(item.Stage), Message: msg})
		}
	}
	return summary, nil
}

func (q *memQueue) StageStatus(ctx context.Context, documentID uuid.UUID, stage Stage) (QueueStatus, error) {
	if item, ok := q.items[stage]; ok {
		return item.Status, nil
	}
	return "", nil
}

func (q *memQueue) DocumentsWithQueuedWork(ctx context.Context, limit int) ([]uuid.UUID, error) {
	return nil, nil
}

func (q *memQueue) RequeueStalled(ctx context.Context, maxAge time.Duration) (int64, error) {
	return 0, nil
}

func (q *memQueue) RequeueDead(ctx context.Context, documentID uuid.UUID) (int64, error) {
	return 0, nil
}

type recordingDispatcher struct{ delays []time.Duration }

func (d *recordingDispatcher) DispatchPipelineIn(ctx context.Context, documentID uuid.UUID, delay time.Duration) error {
	d.delays = append(d.delays, delay)
	return nil
}

func newTestOrchestrator(docs documents.Repository, queue Repository, ai InferenceClient, dispatcher Dispatcher) *Orchestrator {
	return NewOrchestrator(Config{
		Documents: docs,
		Queue:     queue,
		Processors: []Processor{
			NewConverter(ai, staticSigner{url: "http://localhost/files/x"}),
			NewExtractor(ai),
			NewCategorizer(ai),
		},
		Dispatcher: dispatcher,
		Metrics:    observability.NewMetrics(),
		Logger:     slog.Default(),
	})
}

func TestRunCompletesAllStages(t *testing.T) {
	docID := uuid.New()
	docs := &memDocs{doc: documents.Document{ID: docID, FileName: "invoice.pdf", StoragePath: "2025/invoice.pdf", Status: documents.StatusProcessing}}
	queue := newMemQueue(docID, StageOrder...)
	ai := &scriptedAI{replies: []string{
		"INVOICE #42\nAcme Corp\nTotal: 1200.00",
		`{"vendor_name":"Acme Corp","total_amount":1200,"ocr_text":"INVOICE #42"}`,
		`{"document_type":"invoice","category":"sales","confidence":0.92}`,
	}}

	orch := newTestOrchestrator(docs, queue, ai, nil)
	require.NoError(t, orch.Run(context.Background(), docID))

	require.Equal(t, documents.StatusCompleted, docs.status)
	require.Equal(t, StageOrder, queue.completed)
	require.Equal(t, 3, ai.calls)
	require.NotNil(t, docs.processedAt, "categorization must stamp processed_at")
	require.NotNil(t, docs.summary)
	require.Equal(t, 3, docs.summary.Processed)
	require.Zero(t, docs.summary.Failed)

	data := docs.doc.ExtractedData
	require.NotNil(t, data.Conversion)
	require.NotNil(t, data.Extraction)
	require.NotNil(t, data.Categorization)
	require.Equal(t, "sales", data.Categorization.Category)
}

func TestRunSchedulesRetryOnStageFailure(t *testing.T) {
	docID := uuid.New()
	docs := &memDocs{doc: documents.Document{ID: docID, StoragePath: "x"}}
	queue := newMemQueue(docID, StageConversion)
	dispatcher := &recordingDispatcher{}
	ai := &scriptedAI{err: errors.New("model down")}

	orch := newTestOrchestrator(docs, queue, ai, dispatcher)
	require.NoError(t, orch.Run(context.Background(), docID))

	require.Len(t, queue.requeued, 1, "first failure requeues the item")
	require.Len(t, dispatcher.delays, 1)
	require.Equal(t, Backoff(1), dispatcher.delays[0])
	require.Empty(t, queue.dead)
	// Item is queued again, so the document stays in processing.
	require.Equal(t, documents.Status(""), docs.status)
}

func TestRunMarksDeadAfterRetryBudget(t *testing.T) {
	docID := uuid.New()
	docs := &memDocs{doc: documents.Document{ID: docID, StoragePath: "x"}}
	queue := newMemQueue(docID, StageConversion)
	queue.items[StageConversion].Attempts = MaxAttempts - 1
	ai := &scriptedAI{err: errors.New("model down")}

	orch := newTestOrchestrator(docs, queue, ai, &recordingDispatcher{})
	require.NoError(t, orch.Run(context.Background(), docID))

	require.Len(t, queue.dead, 1)
	require.Equal(t, documents.StatusFailed, docs.status)
	require.NotNil(t, docs.statusMsg)
	require.NotNil(t, docs.summary)
	require.Equal(t, 1, docs.summary.Failed)
}

func TestRunCompletesWithPartialDataWhenLateStageDies(t *testing.T) {
	docID := uuid.New()
	docs := &memDocs{doc: documents.Document{ID: docID, StoragePath: "x", ExtractedData: documents.ExtractedData{
		Conversion: &documents.ConversionResult{ConvertedContent: "text"},
	}}}
	queue := newMemQueue(docID, StageOCRExtraction)
	queue.items[StageOCRExtraction].Attempts = MaxAttempts - 1
	ai := &scriptedAI{err: errors.New("model down")}

	orch := newTestOrchestrator(docs, queue, ai, nil)
	require.NoError(t, orch.Run(context.Background(), docID))

	// A dead extraction leaves the document completed with partial data.
	require.Equal(t, documents.StatusCompleted, docs.status)
	require.Equal(t, 1, docs.summary.Failed)
}
