package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"reprint/internal/fingerprint"
	"reprint/internal/logging"
	"reprint/internal/mediastore"
	"reprint/internal/pubsub"
	"reprint/internal/services"
	"reprint/internal/store"
)

// ProcessVerifyChunk runs the verification workflow for one query chunk:
// download, fingerprint, score against the registered reference, and the
// atomic completion step. The worker whose completion fills the counter also
// finalizes the session. Verify chunk events carry the per-chunk scores and
// are mirrored onto the video status subject.
func (p *Pipeline) ProcessVerifyChunk(ctx context.Context, task VerifyTask) error {
	if err := task.Validate(); err != nil {
		return err
	}

	return p.runChunk(ctx, chunkJob{
		workflow:    pubsub.WorkflowVerify,
		taskID:      task.TaskID,
		jobID:       task.SessionID,
		chunkIndex:  task.ChunkIndex,
		totalChunks: task.TotalChunks,
		mirror:      true,
		process: func(ctx context.Context, logger *slog.Logger) (chunkResult, error) {
			return p.verifyChunk(ctx, task, logger)
		},
		finalize: func(ctx context.Context) error {
			return p.finalizeVerification(ctx, task.SessionID, task.VideoID)
		},
		markFailed: func(ctx context.Context, reason string) error {
			return p.store.MarkSessionFailed(ctx, task.SessionID, reason)
		},
	})
}

func (p *Pipeline) verifyChunk(ctx context.Context, task VerifyTask, logger *slog.Logger) (chunkResult, error) {
	reference, err := p.store.GetReferenceVideo(ctx, task.VideoID)
	if err != nil {
		return chunkResult{}, err
	}
	if reference == nil {
		return chunkResult{}, services.Wrap(services.ErrValidation, "pipeline", "verify", "unknown reference video "+task.VideoID, nil)
	}
	provisional := reference.Status != store.JobCompleted
	if provisional {
		// Scoring proceeds against whatever the registration has stored so
		// far; the similarity is provisional until the reference completes.
		logger.Warn("reference video not finalized",
			logging.String("reference_status", string(reference.Status)))
	}

	workDir, err := p.workDir()
	if err != nil {
		return chunkResult{}, services.Wrap(services.ErrTransient, "pipeline", "verify", "create work dir", err)
	}
	defer os.RemoveAll(workDir)

	videoPath, err := p.objects.DownloadToFile(ctx, task.ObjectKey, workDir)
	if err != nil {
		if errors.Is(err, mediastore.ErrObjectNotFound) {
			return chunkResult{}, services.Wrap(services.ErrNotFound, "pipeline", "verify", "chunk media unavailable", err)
		}
		return chunkResult{}, services.Wrap(services.ErrTransient, "pipeline", "verify", "download chunk", err)
	}

	imageScore, matchCount, err := p.scoreImages(ctx, task, videoPath, workDir)
	if err != nil {
		return chunkResult{}, err
	}

	audioScore, err := p.scoreAudio(ctx, task, videoPath, workDir, logger)
	if err != nil {
		return chunkResult{}, err
	}

	progress, err := p.store.CompleteVerifyChunk(ctx, task.SessionID, task.ChunkIndex, &imageScore, audioScore)
	if err != nil {
		return chunkResult{}, err
	}

	logger.Info("verify chunk completed",
		logging.Float64("image_similarity", imageScore),
		logging.Any("audio_similarity", deref(audioScore)),
		logging.Int("matched_frames", matchCount),
		logging.Int("completed_chunks", progress.Completed),
		logging.Int("total_chunks", progress.Total),
	)
	return chunkResult{
		progress:    progress,
		imageScore:  &imageScore,
		audioScore:  audioScore,
		provisional: provisional,
	}, nil
}

// scoreImages extracts and embeds the chunk's frames and scores them
// against the reference's stored embeddings. A chunk with no frames, or a
// reference with no stored embeddings, scores 0.0 rather than being
// excluded from the session average.
func (p *Pipeline) scoreImages(ctx context.Context, task VerifyTask, videoPath, workDir string) (float64, int, error) {
	framePaths, err := p.extractor.ExtractFrames(ctx, videoPath, p.cfg.Media.ExtractFPS, workDir)
	if err != nil {
		return 0, 0, err
	}
	if len(framePaths) == 0 {
		return 0, 0, nil
	}

	vectors, err := p.embedder.EmbedFrames(ctx, framePaths)
	if err != nil {
		return 0, 0, err
	}
	query := make([]fingerprint.FrameEmbedding, 0, len(vectors))
	for i, vec := range vectors {
		query = append(query, fingerprint.FrameEmbedding{FrameIndex: i, Vector: vec})
	}

	stored, err := p.store.FrameFingerprints(ctx, task.VideoID)
	if err != nil {
		return 0, 0, err
	}
	if len(stored) == 0 {
		return 0, 0, nil
	}
	base := make([]fingerprint.FrameEmbedding, 0, len(stored))
	for _, row := range stored {
		base = append(base, fingerprint.FrameEmbedding{FrameIndex: row.FrameIndex, Vector: row.Embedding})
	}

	score, matches := fingerprint.CompareFrames(query, base)
	return score, len(matches), nil
}

// scoreAudio fingerprints the chunk's audio and aligns it against the
// reference's merged fingerprint. Absence of audio on either side yields a
// nil score rather than a failure.
func (p *Pipeline) scoreAudio(ctx context.Context, task VerifyTask, videoPath, workDir string, logger *slog.Logger) (*float64, error) {
	wavPath, _, err := p.extractor.ExtractAudio(ctx, videoPath, workDir)
	if err != nil {
		return nil, err
	}
	if wavPath == "" {
		return nil, nil
	}

	queryFP, err := p.extractor.AudioFingerprint(ctx, wavPath)
	if err != nil {
		logger.Warn("audio fingerprint failed, scoring on image alone", logging.Error(err))
		return nil, nil
	}
	baseFP, err := p.store.MergedAudioFingerprint(ctx, task.VideoID)
	if err != nil {
		return nil, err
	}
	if len(queryFP) == 0 || len(baseFP) == 0 {
		return nil, nil
	}

	score := fingerprint.Compare(queryFP, baseFP)
	return &score, nil
}

// finalizeVerification seals the session, applies the similarity thresholds,
// and publishes the verdict.
func (p *Pipeline) finalizeVerification(ctx context.Context, sessionID, videoID string) error {
	logger := p.logger.With(logging.String(logging.FieldJobID, sessionID))

	session, err := p.store.FinalizeVerifySession(ctx, sessionID)
	if err != nil {
		return err
	}

	matched := p.isMatch(session.AvgImageScore, session.AvgAudioScore)
	logger.Info("verification complete",
		logging.Any("avg_image_similarity", deref(session.AvgImageScore)),
		logging.Any("avg_audio_similarity", deref(session.AvgAudioScore)),
		logging.Bool("matched", matched),
	)
	p.publishJob(ctx, pubsub.JobEvent{
		JobID:      sessionID,
		Workflow:   pubsub.WorkflowVerify,
		Type:       pubsub.EventJobCompleted,
		ImageScore: session.AvgImageScore,
		AudioScore: session.AvgAudioScore,
		Matched:    &matched,
	})
	p.notify(p.notifier.NotifyVerificationComplete(ctx, sessionID, videoID, matched, session.AvgImageScore, session.AvgAudioScore))
	return nil
}

// isMatch applies the configured thresholds: a reprint is declared when
// either modality clears its bar.
func (p *Pipeline) isMatch(imageScore, audioScore *float64) bool {
	if imageScore != nil && *imageScore >= p.cfg.Thresholds.Image {
		return true
	}
	if audioScore != nil && *audioScore >= p.cfg.Thresholds.Audio {
		return true
	}
	return false
}

func deref(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
