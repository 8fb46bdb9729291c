package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/SarathManas/Finbuddy-Main-sub001/internal/documents"
	"github.com/SarathManas/Finbuddy-Main-sub001/internal/observability"
)

// Dispatcher schedules a delayed pipeline re-run, used for retry backoff.
type Dispatcher interface {
	DispatchPipelineIn(ctx context.Context, documentID uuid.UUID, delay time.Duration) error
}

// Orchestrator runs the ordered stage sequence for a document and computes
// its terminal status. Stage failures are recorded per stage and never abort
// the remaining stages.
type Orchestrator struct {
	docs        documents.Repository
	queue       Repository
	processors  []Processor
	dispatcher  Dispatcher
	metrics     *observability.Metrics
	logger      *slog.Logger
	maxAttempts int
	sweepLimit  int
	now         func() time.Time
}

// Config groups orchestrator dependencies.
type Config struct {
	Documents  documents.Repository
	Queue      Repository
	Processors []Processor
	Dispatcher Dispatcher
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// NewOrchestrator wires the orchestrator. Processors run in StageOrder; the
// supplied slice is matched against it by stage name.
func NewOrchestrator(cfg Config) *Orchestrator {
	byStage := make(map[Stage]Processor, len(cfg.Processors))
	for _, p := range cfg.Processors {
		byStage[p.Stage()] = p
	}
	ordered := make([]Processor, 0, len(StageOrder))
	for _, stage := range StageOrder {
		if p, ok := byStage[stage]; ok {
			ordered = append(ordered, p)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		docs:        cfg.Documents,
		queue:       cfg.Queue,
		processors:  ordered,
		dispatcher:  cfg.Dispatcher,
		metrics:     cfg.Metrics,
		logger:      logger,
		maxAttempts: MaxAttempts,
		sweepLimit:  4,
		now:         time.Now,
	}
}

// Run processes every queued stage for one document, in fixed order, then
// computes the document's terminal status.
func (o *Orchestrator) Run(ctx context.Context, documentID uuid.UUID) error {
	doc, err := o.docs.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("pipeline: load document: %w", err)
	}
	logger := o.logger.With(slog.String("document_id", documentID.String()))

	for _, proc := range o.processors {
		item, ok, err := o.queue.Claim(ctx, documentID, proc.Stage())
		if err != nil {
			return fmt.Errorf("pipeline: claim %s: %w", proc.Stage(), err)
		}
		if !ok {
			continue
		}

		start := o.now()
		result, procErr := proc.Process(ctx, doc)
		elapsed := time.Since(start)

		if procErr != nil {
			o.metrics.ObserveStage(string(proc.Stage()), "failed", elapsed)
			logger.Error("stage failed",
				slog.String("stage", string(proc.Stage())),
				slog.Int("attempt", item.Attempts),
				slog.Any("error", procErr))
			o.handleStageFailure(ctx, item, procErr)
			continue
		}

		merged, err := o.docs.MergeExtracted(ctx, documentID, result.Patch)
		if err != nil {
			return fmt.Errorf("pipeline: merge %s result: %w", proc.Stage(), err)
		}
		doc.ExtractedData = merged
		if err := o.queue.Complete(ctx, item.ID, result.Raw); err != nil {
			return fmt.Errorf("pipeline: complete %s: %w", proc.Stage(), err)
		}
		o.metrics.ObserveStage(string(proc.Stage()), "completed", elapsed)

		// The final stage stamps processed_at by convention.
		if proc.Stage() == StageCategorization {
			if err := o.docs.SetProcessedAt(ctx, documentID, o.now()); err != nil {
				logger.Warn("stamp processed_at", slog.Any("error", err))
			}
		}
	}

	return o.finalize(ctx, documentID, logger)
}

// handleStageFailure marks the item failed and either schedules a backoff
// retry or declares it dead. A dead conversion fails the whole document;
// later-stage failures leave it completable with partial data.
func (o *Orchestrator) handleStageFailure(ctx context.Context, item QueueItem, procErr error) {
	if item.Attempts >= o.maxAttempts {
		if err := o.queue.MarkDead(ctx, item.ID, procErr.Error()); err != nil {
			o.logger.Warn("mark dead", slog.Int64("item", item.ID), slog.Any("error", err))
		}
		return
	}
	if err := o.queue.Fail(ctx, item.ID, procErr.Error()); err != nil {
		o.logger.Warn("mark failed", slog.Int64("item", item.ID), slog.Any("error", err))
		return
	}
	if err := o.queue.Requeue(ctx, item.ID); err != nil {
		o.logger.Warn("requeue", slog.Int64("item", item.ID), slog.Any("error", err))
		return
	}
	if o.dispatcher != nil {
		if err := o.dispatcher.DispatchPipelineIn(ctx, item.DocumentID, Backoff(item.Attempts)); err != nil {
			// The sweep recovers queued items even when the dispatch is lost.
			o.logger.Warn("schedule retry", slog.Int64("item", item.ID), slog.Any("error", err))
		}
	}
}

// finalize writes the processing summary snapshot and, once no live queue
// items remain, the terminal document status.
func (o *Orchestrator) finalize(ctx context.Context, documentID uuid.UUID, logger *slog.Logger) error {
	summary, err := o.queue.SummaryForDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("pipeline: summarize: %w", err)
	}
	if err := o.docs.SetProcessingSummary(ctx, documentID, summary); err != nil {
		return fmt.Errorf("pipeline: save summary: %w", err)
	}

	pending, err := o.queue.PendingForDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("pipeline: pending count: %w", err)
	}
	if pending > 0 {
		return nil
	}

	convStatus, err := o.queue.StageStatus(ctx, documentID, StageConversion)
	if err != nil {
		return fmt.Errorf("pipeline: conversion status: %w", err)
	}

	status := documents.StatusCompleted
	var message *string
	if convStatus == StatusDead {
		status = documents.StatusFailed
		msg := "document conversion failed"
		message = &msg
	}
	if err := o.docs.UpdateStatus(ctx, documentID, status, message); err != nil {
		// Already terminal: a concurrent run finished first.
		if errors.Is(err, documents.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("pipeline: update status: %w", err)
	}
	o.metrics.ObserveDocument(string(status))
	logger.Info("document pipeline finished",
		slog.String("status", string(status)),
		slog.Int("stages_processed", summary.Processed),
		slog.Int("stages_failed", summary.Failed))
	return nil
}

// Sweep recovers stalled items and runs the pipeline for every document with
// outstanding queued work, with bounded parallelism.
func (o *Orchestrator) Sweep(ctx context.Context) error {
	if recovered, err := o.queue.RequeueStalled(ctx, 30*time.Minute); err != nil {
		o.logger.Warn("requeue stalled", slog.Any("error", err))
	} else if recovered > 0 {
		o.logger.Info("requeued stalled items", slog.Int64("count", recovered))
	}

	ids, err := o.queue.DocumentsWithQueuedWork(ctx, 50)
	if err != nil {
		return fmt.Errorf("pipeline: sweep scan: %w", err)
	}
	if len(ids) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.sweepLimit)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := o.Run(ctx, id); err != nil {
				o.logger.Error("sweep run", slog.String("document_id", id.String()), slog.Any("error", err))
			}
			// Per-document failures never abort the sweep.
			return nil
		})
	}
	return g.Wait()
}
