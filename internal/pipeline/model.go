package pipeline

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Stage enumerates the pipeline stages in their fixed execution order.
type Stage string

const (
	StageConversion     Stage = "conversion"
	StageOCRExtraction  Stage = "ocr_extraction"
	StageCategorization Stage = "categorization"
)

// StageOrder is the fixed sequence the orchestrator walks for a document.
var StageOrder = []Stage{StageConversion, StageOCRExtraction, StageCategorization}

// QueueStatus enumerates queue item lifecycle values.
type QueueStatus string

const (
	StatusQueued     QueueStatus = "queued"
	StatusProcessing QueueStatus = "processing"
	StatusCompleted  QueueStatus = "completed"
	StatusFailed     QueueStatus = "failed"
	// StatusDead marks an item that exhausted its retry budget. Dead items
	// only leave this state through an administrative requeue.
	StatusDead QueueStatus = "dead"
)

// MaxAttempts bounds how often a stage is retried before going dead.
const MaxAttempts = 3

// QueueItem is one unit of stage work for a document.
type QueueItem struct {
	ID           int64
	DocumentID   uuid.UUID
	Stage        Stage
	Status       QueueStatus
	Priority     int
	Attempts     int
	Result       json.RawMessage
	ErrorMessage *string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Backoff returns the re-dispatch delay before retry attempt n (1-based).
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := 30 * time.Second
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	if d > 10*time.Minute {
		d = 10 * time.Minute
	}
	return d
}
