package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskDocumentPipeline runs the processing pipeline for one document.
	TaskDocumentPipeline = "document:pipeline"
	// TaskPipelineSweep re-dispatches documents with queued or stalled work.
	TaskPipelineSweep = "pipeline:sweep"
)

// DocumentPipelinePayload identifies the document a pipeline run covers.
type DocumentPipelinePayload struct {
	DocumentID uuid.UUID `json:"document_id"`
}

// NewDocumentPipelineTask constructs an Asynq task for one document.
func NewDocumentPipelineTask(payload DocumentPipelinePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDocumentPipeline, data), nil
}

// NewPipelineSweepTask constructs the periodic sweep task.
func NewPipelineSweepTask() *asynq.Task {
	return asynq.NewTask(TaskPipelineSweep, nil)
}
