package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/pipeline"
)

// PipelineJobs adapts the document pipeline orchestrator to Asynq handlers.
type PipelineJobs struct {
	orchestrator *pipeline.Orchestrator
	logger       *slog.Logger
}

// NewPipelineJobs constructs the pipeline job handlers.
func NewPipelineJobs(orchestrator *pipeline.Orchestrator, logger *slog.Logger) *PipelineJobs {
	return &PipelineJobs{orchestrator: orchestrator, logger: logger}
}

// HandleDocumentPipeline processes TaskDocumentPipeline tasks. Stage
// failures are recorded on the queue items by the orchestrator, so only
// infrastructure errors propagate into Asynq's retry machinery.
func (p *PipelineJobs) HandleDocumentPipeline(ctx context.Context, t *asynq.Task) error {
	var payload DocumentPipelinePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	p.logger.Info("pipeline run", slog.String("document_id", payload.DocumentID.String()))
	return p.orchestrator.Run(ctx, payload.DocumentID)
}

// HandlePipelineSweep processes TaskPipelineSweep tasks.
func (p *PipelineJobs) HandlePipelineSweep(ctx context.Context, t *asynq.Task) error {
	return p.orchestrator.Sweep(ctx)
}

// Handlers returns the task registrations for worker setup.
func (p *PipelineJobs) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskDocumentPipeline, Handler: p.HandleDocumentPipeline},
		{Type: TaskPipelineSweep, Handler: p.HandlePipelineSweep},
	}
}
