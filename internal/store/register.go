package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateReferenceVideo registers a new reference video job with zero
// completed chunks. Fails with ErrDuplicateJob when the id already exists.
func (s *Store) CreateReferenceVideo(ctx context.Context, id, displayName string, totalChunks int) (*ReferenceVideo, error) {
	now := timestamp(time.Now())
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO reference_videos (id, display_name, status, total_chunks, completed_chunks, created_at, updated_at)
         VALUES (?, ?, ?, ?, 0, ?, ?)`,
		id, displayName, JobProcessing, totalChunks, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("reference video %s: %w", id, ErrDuplicateJob)
		}
		return nil, fmt.Errorf("insert reference video: %w", err)
	}
	return s.GetReferenceVideo(ctx, id)
}

// GetReferenceVideo fetches a reference video by id, or nil when absent.
func (s *Store) GetReferenceVideo(ctx context.Context, id string) (*ReferenceVideo, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, display_name, status, total_chunks, completed_chunks,
                duration_seconds, fps_extracted, frame_count, error_message,
                created_at, updated_at
         FROM reference_videos WHERE id = ?`,
		id,
	)
	video, err := scanReferenceVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reference video: %w", err)
	}
	return video, nil
}

// ListReferenceVideos returns all reference videos ordered by creation time.
func (s *Store) ListReferenceVideos(ctx context.Context) ([]*ReferenceVideo, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, display_name, status, total_chunks, completed_chunks,
                duration_seconds, fps_extracted, frame_count, error_message,
                created_at, updated_at
         FROM reference_videos ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list reference videos: %w", err)
	}
	defer rows.Close()

	var videos []*ReferenceVideo
	for rows.Next() {
		video, err := scanReferenceVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

// SetReferenceFPS records the frame sampling rate observed during
// extraction. Idempotent across chunks of the same video.
func (s *Store) SetReferenceFPS(ctx context.Context, id string, fps float64) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE reference_videos SET fps_extracted = ?, updated_at = ? WHERE id = ?`,
		fps, timestamp(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set reference fps: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("reference video %s: %w", id, ErrUnknownJob)
	}
	return nil
}

// AddRegisterChunk creates a pending chunk record. Fails with
// ErrDuplicateChunk when the (video, index) pair exists and ErrUnknownJob
// when the video does not.
func (s *Store) AddRegisterChunk(ctx context.Context, videoID string, chunkIndex int, startTime, duration float64) error {
	video, err := s.GetReferenceVideo(ctx, videoID)
	if err != nil {
		return err
	}
	if video == nil {
		return fmt.Errorf("reference video %s: %w", videoID, ErrUnknownJob)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO register_chunks (video_id, chunk_index, start_time, duration, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		videoID, chunkIndex, startTime, duration, ChunkPending, timestamp(time.Now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("register chunk %s/%d: %w", videoID, chunkIndex, ErrDuplicateChunk)
		}
		return fmt.Errorf("insert register chunk: %w", err)
	}
	return nil
}

// RegisterChunks returns a video's chunks ordered by chunk index.
func (s *Store) RegisterChunks(ctx context.Context, videoID string) ([]*RegisterChunk, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, video_id, chunk_index, start_time, duration, frame_count, status, created_at, completed_at
         FROM register_chunks WHERE video_id = ? ORDER BY chunk_index`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("list register chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*RegisterChunk
	for rows.Next() {
		chunk, err := scanRegisterChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// CompleteRegisterChunk marks a chunk completed, stores its frame count, and
// advances the video's completed counter, returning the post-increment
// (completed, total) pair. See completeChunk for the atomicity and
// idempotency contract.
func (s *Store) CompleteRegisterChunk(ctx context.Context, videoID string, chunkIndex, frameCount int) (Progress, error) {
	return s.completeChunk(ctx, registerTables, videoID, chunkIndex, func(tx *sql.Tx, now string) error {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE register_chunks SET status = ?, frame_count = ?, completed_at = ?
             WHERE video_id = ? AND chunk_index = ?`,
			ChunkCompleted, frameCount, now, videoID, chunkIndex,
		); err != nil {
			return fmt.Errorf("complete register chunk: %w", err)
		}
		return nil
	})
}

// SaveFrameFingerprints persists a chunk's frame embeddings in one
// transaction. Rows are write-once; the batch belongs to exactly one chunk.
func (s *Store) SaveFrameFingerprints(ctx context.Context, prints []FrameFingerprint) error {
	if len(prints) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin fingerprint tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(
		ctx,
		`INSERT INTO frame_fingerprints (video_id, chunk_index, frame_index, timestamp_seconds, embedding, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("prepare fingerprint insert: %w", err)
	}
	defer stmt.Close()

	now := timestamp(time.Now())
	for _, print := range prints {
		if _, err := stmt.ExecContext(
			ctx,
			print.VideoID, print.ChunkIndex, print.FrameIndex, print.Timestamp,
			encodeEmbedding(print.Embedding), now,
		); err != nil {
			return fmt.Errorf("insert frame fingerprint %d: %w", print.FrameIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit fingerprint tx: %w", err)
	}
	return nil
}

// FrameFingerprints returns every frame embedding of a video ordered by
// global frame index.
func (s *Store) FrameFingerprints(ctx context.Context, videoID string) ([]FrameFingerprint, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT video_id, chunk_index, frame_index, timestamp_seconds, embedding
         FROM frame_fingerprints WHERE video_id = ? ORDER BY frame_index`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("query frame fingerprints: %w", err)
	}
	defer rows.Close()

	var prints []FrameFingerprint
	for rows.Next() {
		var print FrameFingerprint
		var blob []byte
		if err := rows.Scan(&print.VideoID, &print.ChunkIndex, &print.FrameIndex, &print.Timestamp, &blob); err != nil {
			return nil, fmt.Errorf("scan frame fingerprint: %w", err)
		}
		print.Embedding = decodeEmbedding(blob)
		prints = append(prints, print)
	}
	return prints, rows.Err()
}

// SaveChunkAudioFingerprint persists the per-chunk audio fingerprint
// produced during registration.
func (s *Store) SaveChunkAudioFingerprint(ctx context.Context, videoID string, chunkIndex int, startTime float64, fp []byte, duration float64) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO audio_fingerprints (video_id, chunk_index, start_time, fingerprint, duration_seconds, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		videoID, chunkIndex, startTime, fp, duration, timestamp(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("insert audio fingerprint: %w", err)
	}
	return nil
}

// AudioChunkFingerprints returns the per-chunk audio fingerprints of a video
// ordered by chunk start time. The merged row, when present, is excluded.
func (s *Store) AudioChunkFingerprints(ctx context.Context, videoID string) ([]AudioFingerprint, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT video_id, chunk_index, start_time, fingerprint, duration_seconds
         FROM audio_fingerprints
         WHERE video_id = ? AND chunk_index IS NOT NULL
         ORDER BY start_time`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("query audio fingerprints: %w", err)
	}
	defer rows.Close()

	var prints []AudioFingerprint
	for rows.Next() {
		print, err := scanAudioFingerprint(rows)
		if err != nil {
			return nil, err
		}
		prints = append(prints, print)
	}
	return prints, rows.Err()
}

// ReplaceWithMergedFingerprint deletes a video's per-chunk audio
// fingerprints and stores the merged fingerprint in their place, so
// verification always matches against one row.
func (s *Store) ReplaceWithMergedFingerprint(ctx context.Context, videoID string, fp []byte, duration float64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin merge tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM audio_fingerprints WHERE video_id = ?`, videoID); err != nil {
		return fmt.Errorf("delete chunk fingerprints: %w", err)
	}
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO audio_fingerprints (video_id, chunk_index, start_time, fingerprint, duration_seconds, created_at)
         VALUES (?, NULL, NULL, ?, ?, ?)`,
		videoID, fp, duration, timestamp(time.Now()),
	); err != nil {
		return fmt.Errorf("insert merged fingerprint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit merge tx: %w", err)
	}
	return nil
}

// MergedAudioFingerprint returns the merged fingerprint bytes of a video, or
// nil when the video has no merged fingerprint.
func (s *Store) MergedAudioFingerprint(ctx context.Context, videoID string) ([]byte, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT fingerprint FROM audio_fingerprints WHERE video_id = ? AND chunk_index IS NULL LIMIT 1`,
		videoID,
	)
	var fp []byte
	if err := row.Scan(&fp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merged fingerprint: %w", err)
	}
	return fp, nil
}

// RegisterChunkTotals sums frame counts and durations over a video's
// completed chunks, the aggregate persisted at finalize.
func (s *Store) RegisterChunkTotals(ctx context.Context, videoID string) (frameCount int, duration float64, err error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT COALESCE(SUM(frame_count), 0), COALESCE(SUM(duration), 0)
         FROM register_chunks WHERE video_id = ? AND status = ?`,
		videoID, ChunkCompleted,
	)
	if err := row.Scan(&frameCount, &duration); err != nil {
		return 0, 0, fmt.Errorf("sum register chunks: %w", err)
	}
	return frameCount, duration, nil
}

// FinalizeReferenceVideo stores the aggregate result and transitions the job
// to completed. Fails with ErrAlreadyFinalized when the job is already
// completed and ErrJobFailed when it is in the failed terminal state.
func (s *Store) FinalizeReferenceVideo(ctx context.Context, videoID string, duration float64, frameCount int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin finalize tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := guardFinalize(ctx, tx, "reference_videos", videoID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE reference_videos SET status = ?, duration_seconds = ?, frame_count = ?, updated_at = ?
         WHERE id = ?`,
		JobCompleted, duration, frameCount, timestamp(time.Now()), videoID,
	); err != nil {
		return fmt.Errorf("finalize reference video: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finalize tx: %w", err)
	}
	return nil
}

// MarkReferenceFailed transitions a reference video to the failed terminal
// state. No-op when the job has already completed.
func (s *Store) MarkReferenceFailed(ctx context.Context, videoID, reason string) error {
	return s.markFailed(ctx, "reference_videos", videoID, reason)
}

func scanReferenceVideo(scanner interface{ Scan(dest ...any) error }) (*ReferenceVideo, error) {
	var (
		video      ReferenceVideo
		statusStr  string
		duration   sql.NullFloat64
		fps        sql.NullFloat64
		frameCount sql.NullInt64
		errMessage sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&video.ID, &video.DisplayName, &statusStr, &video.TotalChunks, &video.CompletedChunks,
		&duration, &fps, &frameCount, &errMessage, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	video.Status = JobStatus(statusStr)
	video.Duration = duration.Float64
	video.FPS = fps.Float64
	video.FrameCount = int(frameCount.Int64)
	video.ErrorMessage = errMessage.String
	if created, err := parseTimeString(createdRaw); err == nil {
		video.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		video.UpdatedAt = updated
	}
	return &video, nil
}

func scanRegisterChunk(scanner interface{ Scan(dest ...any) error }) (*RegisterChunk, error) {
	var (
		chunk        RegisterChunk
		frameCount   sql.NullInt64
		statusStr    string
		createdRaw   string
		completedRaw sql.NullString
	)
	if err := scanner.Scan(
		&chunk.ID, &chunk.VideoID, &chunk.ChunkIndex, &chunk.StartTime, &chunk.Duration,
		&frameCount, &statusStr, &createdRaw, &completedRaw,
	); err != nil {
		return nil, err
	}
	chunk.FrameCount = int(frameCount.Int64)
	chunk.Status = ChunkStatus(statusStr)
	if created, err := parseTimeString(createdRaw); err == nil {
		chunk.CreatedAt = created
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			chunk.CompletedAt = &completed
		}
	}
	return &chunk, nil
}

func scanAudioFingerprint(scanner interface{ Scan(dest ...any) error }) (AudioFingerprint, error) {
	var (
		print      AudioFingerprint
		chunkIndex sql.NullInt64
		startTime  sql.NullFloat64
		duration   sql.NullFloat64
	)
	if err := scanner.Scan(&print.VideoID, &chunkIndex, &startTime, &print.Fingerprint, &duration); err != nil {
		return AudioFingerprint{}, fmt.Errorf("scan audio fingerprint: %w", err)
	}
	if chunkIndex.Valid {
		index := int(chunkIndex.Int64)
		print.ChunkIndex = &index
	}
	print.StartTime = startTime.Float64
	print.Duration = duration.Float64
	return print, nil
}
