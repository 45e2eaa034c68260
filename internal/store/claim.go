package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ClaimPending atomically transitions the oldest pending job to processing
// and returns it, or nil when no pending job exists.
//
// The select-then-update runs inside a BEGIN IMMEDIATE transaction on a
// pinned connection so no two callers can claim the same job: the immediate
// lock serializes claimers at the database level regardless of how many
// workers a future deployment runs. The claim increments attempts, stamps
// started_at, and clears last_error.
func (s *Store) ClaimPending(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if err := retryOnBusy(ctx, func() error {
		_, beginErr := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		return beginErr
	}); err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}

	var id int64
	row := conn.QueryRowContext(
		ctx,
		`SELECT id FROM media_jobs WHERE status = ? ORDER BY id LIMIT 1`,
		StatusPending,
	)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if _, commitErr := conn.ExecContext(ctx, "COMMIT"); commitErr != nil {
				return nil, fmt.Errorf("commit empty claim: %w", commitErr)
			}
			return nil, nil
		}
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		return nil, fmt.Errorf("select pending job: %w", err)
	}

	now := formatTime(time.Now())
	if _, err := conn.ExecContext(
		ctx,
		`UPDATE media_jobs
         SET status = ?, attempts = attempts + 1, started_at = ?, last_error = NULL
         WHERE id = ?`,
		StatusProcessing,
		now,
		id,
	); err != nil {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		return nil, fmt.Errorf("claim job %d: %w", id, err)
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		_, _ = conn.ExecContext(ctx, "ROLLBACK")
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	return s.GetJob(ctx, id)
}
