package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"reprint/internal/logging"
	"reprint/internal/pubsub"
	"reprint/internal/services"
	"reprint/internal/store"
)

// chunkJob describes one workflow's chunk handling for the shared runner:
// identity for logging and events, plus the three hooks a workflow differs
// in. Both pipelines funnel through runChunk so the processing/completed/
// failed event sequence and the last-chunk fan-in stay identical.
type chunkJob struct {
	workflow    pubsub.Workflow
	taskID      string
	jobID       string
	chunkIndex  int
	totalChunks int

	// mirror repeats every chunk event on the video status subject, for
	// subscribers following the job rather than individual tasks.
	mirror bool

	process    func(ctx context.Context, logger *slog.Logger) (chunkResult, error)
	finalize   func(ctx context.Context) error
	markFailed func(ctx context.Context, reason string) error
}

// chunkResult carries the post-completion counters and whatever the chunk
// scored, for the completion event.
type chunkResult struct {
	progress    store.Progress
	imageScore  *float64
	audioScore  *float64
	provisional bool
}

func (p *Pipeline) runChunk(ctx context.Context, job chunkJob) error {
	ctx = services.WithJobID(services.WithChunkIndex(services.WithTaskID(ctx, job.taskID), job.chunkIndex), job.jobID)
	logger := p.logger.With(
		logging.String(logging.FieldJobID, job.jobID),
		logging.Int(logging.FieldChunkIndex, job.chunkIndex),
		logging.String(logging.FieldWorkflow, string(job.workflow)),
	)

	pending := chunkResult{progress: store.Progress{Total: job.totalChunks}}
	p.publishChunk(ctx, job, pubsub.EventChunkProcessing, pending, "")

	result, err := job.process(ctx, logger)
	if err != nil {
		logger.Error(string(job.workflow)+" chunk failed", logging.Error(err))
		p.publishChunk(ctx, job, pubsub.EventChunkFailed, pending, err.Error())
		return err
	}

	p.publishChunk(ctx, job, pubsub.EventChunkCompleted, result, "")

	if result.progress.Done() {
		return p.finalizeJob(ctx, job, logger)
	}
	return nil
}

// finalizeJob seals the job after the last chunk completes. Runs at most
// once per job: only the last completion observes a full counter, and the
// store rejects a second finalize.
func (p *Pipeline) finalizeJob(ctx context.Context, job chunkJob, logger *slog.Logger) error {
	logger.Info("finalizing " + string(job.workflow))

	err := job.finalize(ctx)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyFinalized) {
			return nil
		}
		logger.Error("finalize "+string(job.workflow)+" failed", logging.Error(err))
		if markErr := job.markFailed(ctx, err.Error()); markErr != nil {
			logger.Error("mark job failed", logging.Error(markErr))
		}
		p.publishJob(ctx, pubsub.JobEvent{
			JobID:    job.jobID,
			Workflow: job.workflow,
			Type:     pubsub.EventJobFailed,
			Message:  err.Error(),
		})
		p.notify(p.notifier.NotifyJobFailed(ctx, job.jobID, err.Error()))
		return err
	}
	return nil
}

func (p *Pipeline) publishChunk(ctx context.Context, job chunkJob, eventType pubsub.EventType, result chunkResult, message string) {
	index := job.chunkIndex
	event := pubsub.TaskEvent{
		TaskID:      job.taskID,
		JobID:       job.jobID,
		Workflow:    job.workflow,
		Type:        eventType,
		ChunkIndex:  &index,
		Completed:   result.progress.Completed,
		Total:       result.progress.Total,
		ImageScore:  result.imageScore,
		AudioScore:  result.audioScore,
		Provisional: result.provisional,
		Message:     message,
	}
	if err := p.publisher.PublishTask(ctx, event); err != nil {
		p.logger.Warn("task event publish failed", logging.Error(err))
	}
	if job.mirror {
		if err := p.publisher.MirrorTask(ctx, event); err != nil {
			p.logger.Warn("task event mirror failed", logging.Error(err))
		}
	}
}

func (p *Pipeline) publishJob(ctx context.Context, event pubsub.JobEvent) {
	if err := p.publisher.PublishJob(ctx, event); err != nil {
		p.logger.Warn("job event publish failed", logging.Error(err))
	}
}

func (p *Pipeline) notify(err error) {
	if err != nil {
		p.logger.Warn("notification failed", logging.Error(err))
	}
}
