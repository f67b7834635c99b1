package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"almsdesk/internal/domain"
)

func (db *DB) AddNote(ctx context.Context, donorID, body string) (domain.Note, error) {
	var n domain.Note
	err := db.Pool.QueryRow(ctx, `
        INSERT INTO notes (donor_id, body)
        VALUES ($1, $2)
        RETURNING id, donor_id, body, created_at
    `, donorID, body).Scan(&n.ID, &n.DonorID, &n.Body, &n.CreatedAt)
	if isForeignKeyViolation(err) {
		return domain.Note{}, domain.ErrDonorMissing
	}
	if err != nil {
		return domain.Note{}, err
	}
	return n, nil
}

func (db *DB) NotesByDonor(ctx context.Context, donorID string) ([]domain.Note, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT id, donor_id, body, created_at
        FROM notes WHERE donor_id = $1
        ORDER BY created_at, id
    `, donorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Note
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.DonorID, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// isForeignKeyViolation reports Postgres error class 23503.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
