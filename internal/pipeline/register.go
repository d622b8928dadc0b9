package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"reprint/internal/chunking"
	"reprint/internal/fingerprint"
	"reprint/internal/logging"
	"reprint/internal/mediastore"
	"reprint/internal/pubsub"
	"reprint/internal/services"
	"reprint/internal/store"
)

// ProcessRegisterChunk runs the registration workflow for one chunk:
// download, frame extraction, embedding, audio fingerprinting, and the
// atomic completion step. The worker whose completion fills the counter also
// finalizes the whole video.
func (p *Pipeline) ProcessRegisterChunk(ctx context.Context, task RegisterTask) error {
	if err := task.Validate(); err != nil {
		return err
	}

	return p.runChunk(ctx, chunkJob{
		workflow:    pubsub.WorkflowRegister,
		taskID:      task.TaskID,
		jobID:       task.VideoID,
		chunkIndex:  task.ChunkIndex,
		totalChunks: task.TotalChunks,
		process: func(ctx context.Context, logger *slog.Logger) (chunkResult, error) {
			return p.registerChunk(ctx, task, logger)
		},
		finalize: func(ctx context.Context) error {
			return p.finalizeRegistration(ctx, task.VideoID)
		},
		markFailed: func(ctx context.Context, reason string) error {
			return p.store.MarkReferenceFailed(ctx, task.VideoID, reason)
		},
	})
}

func (p *Pipeline) registerChunk(ctx context.Context, task RegisterTask, logger *slog.Logger) (chunkResult, error) {
	workDir, err := p.workDir()
	if err != nil {
		return chunkResult{}, services.Wrap(services.ErrTransient, "pipeline", "register", "create work dir", err)
	}
	defer os.RemoveAll(workDir)

	videoPath, err := p.objects.DownloadToFile(ctx, task.ObjectKey, workDir)
	if err != nil {
		if errors.Is(err, mediastore.ErrObjectNotFound) {
			return chunkResult{}, services.Wrap(services.ErrNotFound, "pipeline", "register", "chunk media unavailable", err)
		}
		return chunkResult{}, services.Wrap(services.ErrTransient, "pipeline", "register", "download chunk", err)
	}

	fps := p.cfg.Media.ExtractFPS
	framePaths, err := p.extractor.ExtractFrames(ctx, videoPath, fps, workDir)
	if err != nil {
		return chunkResult{}, err
	}
	if err := p.store.SetReferenceFPS(ctx, task.VideoID, fps); err != nil {
		return chunkResult{}, err
	}

	if len(framePaths) > 0 {
		vectors, err := p.embedder.EmbedFrames(ctx, framePaths)
		if err != nil {
			return chunkResult{}, err
		}
		frameBase := chunking.FrameBase(task.StartTime, fps)
		prints := make([]store.FrameFingerprint, 0, len(vectors))
		for i, vec := range vectors {
			prints = append(prints, store.FrameFingerprint{
				VideoID:    task.VideoID,
				ChunkIndex: task.ChunkIndex,
				FrameIndex: frameBase + i,
				Timestamp:  task.StartTime + float64(i)/fps,
				Embedding:  vec,
			})
		}
		if err := p.store.SaveFrameFingerprints(ctx, prints); err != nil {
			return chunkResult{}, err
		}
	}

	wavPath, audioDuration, err := p.extractor.ExtractAudio(ctx, videoPath, workDir)
	if err != nil {
		return chunkResult{}, err
	}
	if wavPath != "" {
		fp, err := p.extractor.AudioFingerprint(ctx, wavPath)
		if err != nil {
			logger.Warn("audio fingerprint failed, continuing without audio", logging.Error(err))
		} else if len(fp) > 0 {
			if err := p.store.SaveChunkAudioFingerprint(ctx, task.VideoID, task.ChunkIndex, task.StartTime, fp, audioDuration); err != nil {
				return chunkResult{}, err
			}
		}
	}

	progress, err := p.store.CompleteRegisterChunk(ctx, task.VideoID, task.ChunkIndex, len(framePaths))
	if err != nil {
		return chunkResult{}, err
	}

	logger.Info("register chunk completed",
		logging.Int("frames", len(framePaths)),
		logging.Int("completed_chunks", progress.Completed),
		logging.Int("total_chunks", progress.Total),
	)
	return chunkResult{progress: progress}, nil
}

// finalizeRegistration merges the per-chunk audio fingerprints and seals the
// reference video.
func (p *Pipeline) finalizeRegistration(ctx context.Context, videoID string) error {
	audioRows, err := p.store.AudioChunkFingerprints(ctx, videoID)
	if err != nil {
		return err
	}
	if len(audioRows) > 0 {
		chunks := make([]fingerprint.AudioChunk, 0, len(audioRows))
		for _, row := range audioRows {
			index := 0
			if row.ChunkIndex != nil {
				index = *row.ChunkIndex
			}
			chunks = append(chunks, fingerprint.AudioChunk{
				ChunkIndex:  index,
				StartTime:   row.StartTime,
				Duration:    row.Duration,
				Fingerprint: row.Fingerprint,
			})
		}
		merged, totalDuration := fingerprint.MergeChunks(chunks)
		if len(merged) > 0 {
			if err := p.store.ReplaceWithMergedFingerprint(ctx, videoID, merged, totalDuration); err != nil {
				return err
			}
		}
	}

	frameCount, duration, err := p.store.RegisterChunkTotals(ctx, videoID)
	if err != nil {
		return err
	}
	if err := p.store.FinalizeReferenceVideo(ctx, videoID, duration, frameCount); err != nil {
		return err
	}

	p.publishJob(ctx, pubsub.JobEvent{
		JobID:    videoID,
		Workflow: pubsub.WorkflowRegister,
		Type:     pubsub.EventJobCompleted,
	})
	p.notify(p.notifier.NotifyRegistrationComplete(ctx, videoID, frameCount, duration))
	return nil
}
