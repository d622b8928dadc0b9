package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateVerifySession opens a verification run of a query video against a
// registered reference. Fails with ErrUnknownJob when the reference does not
// exist and ErrDuplicateJob when the session id is already taken.
func (s *Store) CreateVerifySession(ctx context.Context, id, videoID, queryName string, totalChunks int) (*VerifySession, error) {
	reference, err := s.GetReferenceVideo(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if reference == nil {
		return nil, fmt.Errorf("reference video %s: %w", videoID, ErrUnknownJob)
	}

	now := timestamp(time.Now())
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO verify_sessions (id, video_id, query_name, status, total_chunks, completed_chunks, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		id, videoID, queryName, JobProcessing, totalChunks, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("verify session %s: %w", id, ErrDuplicateJob)
		}
		return nil, fmt.Errorf("insert verify session: %w", err)
	}
	return s.GetVerifySession(ctx, id)
}

// GetVerifySession fetches a verify session by id, or nil when absent.
func (s *Store) GetVerifySession(ctx context.Context, id string) (*VerifySession, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, video_id, query_name, status, total_chunks, completed_chunks,
                avg_image_similarity, avg_audio_similarity, error_message,
                created_at, updated_at
         FROM verify_sessions WHERE id = ?`,
		id,
	)
	session, err := scanVerifySession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get verify session: %w", err)
	}
	return session, nil
}

// ListVerifySessions returns all verify sessions ordered by creation time.
func (s *Store) ListVerifySessions(ctx context.Context) ([]*VerifySession, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, video_id, query_name, status, total_chunks, completed_chunks,
                avg_image_similarity, avg_audio_similarity, error_message,
                created_at, updated_at
         FROM verify_sessions ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("list verify sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*VerifySession
	for rows.Next() {
		session, err := scanVerifySession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// AddVerifyChunk creates a pending chunk record for a session. Fails with
// ErrDuplicateChunk when the (session, index) pair exists and ErrUnknownJob
// when the session does not.
func (s *Store) AddVerifyChunk(ctx context.Context, sessionID string, chunkIndex int, startTime, duration float64) error {
	session, err := s.GetVerifySession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("verify session %s: %w", sessionID, ErrUnknownJob)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO verify_chunks (session_id, chunk_index, start_time, duration, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, chunkIndex, startTime, duration, ChunkPending, timestamp(time.Now()),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("verify chunk %s/%d: %w", sessionID, chunkIndex, ErrDuplicateChunk)
		}
		return fmt.Errorf("insert verify chunk: %w", err)
	}
	return nil
}

// VerifyChunks returns a session's chunks ordered by chunk index.
func (s *Store) VerifyChunks(ctx context.Context, sessionID string) ([]*VerifyChunk, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, session_id, chunk_index, start_time, duration,
                image_similarity, audio_similarity, status, created_at, completed_at
         FROM verify_chunks WHERE session_id = ? ORDER BY chunk_index`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list verify chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*VerifyChunk
	for rows.Next() {
		chunk, err := scanVerifyChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// CompleteVerifyChunk records a chunk's similarity scores, marks it
// completed, and advances the session counter, returning the post-increment
// (completed, total) pair. Either score may be nil when that modality could
// not be compared for the chunk. See completeChunk for the atomicity and
// idempotency contract; re-completion leaves the stored scores untouched.
func (s *Store) CompleteVerifyChunk(ctx context.Context, sessionID string, chunkIndex int, imageScore, audioScore *float64) (Progress, error) {
	return s.completeChunk(ctx, verifyTables, sessionID, chunkIndex, func(tx *sql.Tx, now string) error {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE verify_chunks SET status = ?, image_similarity = ?, audio_similarity = ?, completed_at = ?
             WHERE session_id = ? AND chunk_index = ?`,
			ChunkCompleted, floatArg(imageScore), floatArg(audioScore), now, sessionID, chunkIndex,
		); err != nil {
			return fmt.Errorf("complete verify chunk: %w", err)
		}
		return nil
	})
}

// FinalizeVerifySession averages the per-chunk similarities over completed
// chunks and transitions the session to completed. Chunks without a score in
// a modality are excluded from that modality's average. Fails with
// ErrAlreadyFinalized when the session is already completed and ErrJobFailed
// when it is in the failed terminal state.
func (s *Store) FinalizeVerifySession(ctx context.Context, sessionID string) (*VerifySession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin finalize tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := guardFinalize(ctx, tx, "verify_sessions", sessionID); err != nil {
		return nil, err
	}

	// AVG skips NULLs, so chunks without a similarity in one modality do
	// not drag that modality's average toward zero.
	var avgImage, avgAudio sql.NullFloat64
	row := tx.QueryRowContext(
		ctx,
		`SELECT AVG(image_similarity), AVG(audio_similarity)
         FROM verify_chunks WHERE session_id = ? AND status = ?`,
		sessionID, ChunkCompleted,
	)
	if err := row.Scan(&avgImage, &avgAudio); err != nil {
		return nil, fmt.Errorf("average chunk scores: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`UPDATE verify_sessions SET status = ?, avg_image_similarity = ?, avg_audio_similarity = ?, updated_at = ?
         WHERE id = ?`,
		JobCompleted, nullFloatArg(avgImage), nullFloatArg(avgAudio), timestamp(time.Now()), sessionID,
	); err != nil {
		return nil, fmt.Errorf("finalize verify session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit finalize tx: %w", err)
	}
	return s.GetVerifySession(ctx, sessionID)
}

// MarkSessionFailed transitions a verify session to the failed terminal
// state. No-op when the session has already completed.
func (s *Store) MarkSessionFailed(ctx context.Context, sessionID, reason string) error {
	return s.markFailed(ctx, "verify_sessions", sessionID, reason)
}

func nullFloatArg(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func scanVerifySession(scanner interface{ Scan(dest ...any) error }) (*VerifySession, error) {
	var (
		session    VerifySession
		statusStr  string
		avgImage   sql.NullFloat64
		avgAudio   sql.NullFloat64
		errMessage sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&session.ID, &session.VideoID, &session.QueryName, &statusStr,
		&session.TotalChunks, &session.CompletedChunks,
		&avgImage, &avgAudio, &errMessage, &createdRaw, &updatedRaw,
	); err != nil {
		return nil, err
	}
	session.Status = JobStatus(statusStr)
	session.AvgImageScore = nullableFloat(avgImage)
	session.AvgAudioScore = nullableFloat(avgAudio)
	session.ErrorMessage = errMessage.String
	if created, err := parseTimeString(createdRaw); err == nil {
		session.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		session.UpdatedAt = updated
	}
	return &session, nil
}

func scanVerifyChunk(scanner interface{ Scan(dest ...any) error }) (*VerifyChunk, error) {
	var (
		chunk        VerifyChunk
		imageScore   sql.NullFloat64
		audioScore   sql.NullFloat64
		statusStr    string
		createdRaw   string
		completedRaw sql.NullString
	)
	if err := scanner.Scan(
		&chunk.ID, &chunk.SessionID, &chunk.ChunkIndex, &chunk.StartTime, &chunk.Duration,
		&imageScore, &audioScore, &statusStr, &createdRaw, &completedRaw,
	); err != nil {
		return nil, err
	}
	chunk.ImageScore = nullableFloat(imageScore)
	chunk.AudioScore = nullableFloat(audioScore)
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
