package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"almsdesk/internal/domain"
	"almsdesk/internal/ports"
)

func (db *DB) Enqueue(ctx context.Context, donationID string) (string, error) {
	var jobID string
	err := db.Pool.QueryRow(ctx, `
        INSERT INTO match_jobs (donation_id) VALUES ($1) RETURNING id
    `, donationID).Scan(&jobID)
	if isForeignKeyViolation(err) {
		return "", domain.ErrNotFound
	}
	return jobID, err
}

// ClaimNext selects the oldest queued match job using SKIP LOCKED and
// marks it running, so concurrent workers never claim the same job twice.
func (db *DB) ClaimNext(ctx context.Context) (job ports.MatchJob, found bool, err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return job, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
        SELECT id, donation_id FROM match_jobs
        WHERE status = 'queued'
        ORDER BY queued_at
        FOR UPDATE SKIP LOCKED
        LIMIT 1
    `).Scan(&job.ID, &job.DonationID)
	if errors.Is(err, pgx.ErrNoRows) {
		err = nil
		return job, false, nil
	}
	if err != nil {
		return job, false, err
	}

	if _, err = tx.Exec(ctx, `
        UPDATE match_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1
    `, job.ID); err != nil {
		return job, false, err
	}
	return job, true, nil
}

func (db *DB) MarkCompleted(ctx context.Context, jobID string) error {
	tag, err := db.Pool.Exec(ctx, `
        UPDATE match_jobs SET status='completed', finished_at=now() WHERE id=$1
    `, jobID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
	tag, err := db.Pool.Exec(ctx, `
        UPDATE match_jobs SET status='failed', finished_at=now(), last_error=$2 WHERE id=$1
    `, jobID, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
