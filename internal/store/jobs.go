package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// jobTables names the pair of tables backing one chunked workflow: the job
// table carrying the counters and the chunk table keyed by (job, index).
type jobTables struct {
	job         string
	chunk       string
	chunkJobCol string
}

var (
	registerTables = jobTables{job: "reference_videos", chunk: "register_chunks", chunkJobCol: "video_id"}
	verifyTables   = jobTables{job: "verify_sessions", chunk: "verify_chunks", chunkJobCol: "session_id"}
)

// completeChunk is the shared atomic completion step of both workflows. The
// chunk status check, the workflow's payload write, the counter increment,
// and the read of the resulting counters execute in one write transaction so
// exactly one caller observes completed == total even under concurrent
// last-chunk completions. Re-completion of a finished chunk skips the payload
// write and returns the current counters.
//
// complete writes the workflow's chunk payload (status, frame count or
// scores, completion time) inside the transaction.
func (s *Store) completeChunk(ctx context.Context, tables jobTables, jobID string, chunkIndex int, complete func(tx *sql.Tx, now string) error) (Progress, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Progress{}, fmt.Errorf("begin complete tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var status string
	row := tx.QueryRowContext(
		ctx,
		`SELECT status FROM `+tables.chunk+` WHERE `+tables.chunkJobCol+` = ? AND chunk_index = ?`,
		jobID, chunkIndex,
	)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Progress{}, fmt.Errorf("chunk %s/%d: %w", jobID, chunkIndex, ErrUnknownChunk)
		}
		return Progress{}, fmt.Errorf("read chunk status: %w", err)
	}

	var progress Progress
	if ChunkStatus(status) == ChunkCompleted {
		row = tx.QueryRowContext(ctx, `SELECT completed_chunks, total_chunks FROM `+tables.job+` WHERE id = ?`, jobID)
		if err := row.Scan(&progress.Completed, &progress.Total); err != nil {
			return Progress{}, fmt.Errorf("read job counters: %w", err)
		}
		return progress, tx.Commit()
	}

	now := timestamp(time.Now())
	if err := complete(tx, now); err != nil {
		return Progress{}, err
	}

	row = tx.QueryRowContext(
		ctx,
		`UPDATE `+tables.job+` SET completed_chunks = completed_chunks + 1, updated_at = ?
         WHERE id = ?
         RETURNING completed_chunks, total_chunks`,
		now, jobID,
	)
	if err := row.Scan(&progress.Completed, &progress.Total); err != nil {
		return Progress{}, fmt.Errorf("advance job counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Progress{}, fmt.Errorf("commit complete tx: %w", err)
	}
	return progress, nil
}

func (s *Store) markFailed(ctx context.Context, table, id, reason string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE `+table+` SET status = ?, error_message = ?, updated_at = ? WHERE id = ? AND status != ?`,
		JobFailed, reason, timestamp(time.Now()), id, JobCompleted,
	)
	if err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		existing := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+table+` WHERE id = ?`, id)
		var count int
		if scanErr := existing.Scan(&count); scanErr == nil && count == 0 {
			return fmt.Errorf("job %s: %w", id, ErrUnknownJob)
		}
	}
	return nil
}

func guardFinalize(ctx context.Context, tx *sql.Tx, table, id string) error {
	var status string
	row := tx.QueryRowContext(ctx, `SELECT status FROM `+table+` WHERE id = ?`, id)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("job %s: %w", id, ErrUnknownJob)
		}
		return fmt.Errorf("read job status: %w", err)
	}
	switch JobStatus(status) {
	case JobCompleted:
		return fmt.Errorf("job %s: %w", id, ErrAlreadyFinalized)
	case JobFailed:
		return fmt.Errorf("job %s: %w", id, ErrJobFailed)
	}
	return nil
}
