package store

import (
	"context"
	"fmt"
	"time"
)

// MarkDone transitions a job to done, stamping finished_at and clearing
// last_error. Jobs already in a terminal state are left untouched.
func (s *Store) MarkDone(ctx context.Context, id int64) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE media_jobs
         SET status = ?, finished_at = ?, last_error = NULL
         WHERE id = ? AND status NOT IN (?, ?)`,
		StatusDone,
		formatTime(time.Now()),
		id,
		StatusDone,
		StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("mark job %d done: %w", id, err)
	}
	return nil
}

// MarkFailed transitions a job to failed with the given error message,
// truncated to a bounded length. Jobs already in a terminal state are left
// untouched.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	if len(message) > maxLastErrorLen {
		message = message[:maxLastErrorLen]
	}
	_, err := s.execWithRetry(
		ctx,
		`UPDATE media_jobs
         SET status = ?, finished_at = ?, last_error = ?
         WHERE id = ? AND status NOT IN (?, ?)`,
		StatusFailed,
		formatTime(time.Now()),
		message,
		id,
		StatusDone,
		StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("mark job %d failed: %w", id, err)
	}
	return nil
}

// RecycleStalled returns jobs stuck in processing since before cutoff back to
// pending, clearing started_at. Attempts are deliberately preserved so
// repeated stalls stay visible in listings. This is crash recovery, not
// error retry; failed jobs are never recycled.
func (s *Store) RecycleStalled(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE media_jobs
         SET status = ?, started_at = NULL
         WHERE status = ? AND started_at IS NOT NULL AND started_at < ?`,
		StatusPending,
		StatusProcessing,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("recycle stalled jobs: %w", err)
	}
	return res.RowsAffected()
}
