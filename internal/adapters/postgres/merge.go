package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"almsdesk/internal/domain"
)

// MergeDonors runs the whole consolidation in one transaction: verify,
// repoint, fill, delete. Any failure rolls the entire merge back.
func (db *DB) MergeDonors(ctx context.Context, primaryID string, secondaryIDs []string) (err error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	// Lock the primary so two merges into the same donor serialize.
	var exists bool
	err = tx.QueryRow(ctx, `
        SELECT true FROM donors WHERE id = $1 FOR UPDATE
    `, primaryID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("primary donor %s: %w", primaryID, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}

	// Every named secondary must still exist; a concurrent merge deleting
	// one fails this merge loudly rather than silently shrinking it.
	for _, id := range secondaryIDs {
		err = tx.QueryRow(ctx, `SELECT true FROM donors WHERE id = $1 FOR UPDATE`, id).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("secondary donor %s: %w", id, domain.ErrDonorMissing)
		}
		if err != nil {
			return err
		}
	}

	for _, table := range []string{"donations", "notes", "tasks", "files", "pledges"} {
		if _, err = tx.Exec(ctx, `
            UPDATE `+table+` SET donor_id = $1 WHERE donor_id = ANY($2)
        `, primaryID, secondaryIDs); err != nil {
			return err
		}
	}
	// Candidate suggestions pointing at a donor that is about to disappear
	// follow the merge: the best-scored one per donation is repointed to the
	// primary, unless the primary is already a candidate there. A pending
	// donation never loses its last candidate this way.
	if _, err = tx.Exec(ctx, `
        INSERT INTO resolution_candidates (donation_id, donor_id, score, reason)
        SELECT DISTINCT ON (donation_id) donation_id, $1, score, reason
        FROM resolution_candidates
        WHERE donor_id = ANY($2)
        ORDER BY donation_id, score DESC
        ON CONFLICT (donation_id, donor_id) DO NOTHING
    `, primaryID, secondaryIDs); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `
        DELETE FROM resolution_candidates WHERE donor_id = ANY($1)
    `, secondaryIDs); err != nil {
		return err
	}

	// Fill policy: empty primary contact fields take the first non-empty
	// value among the secondaries in caller order.
	for _, id := range secondaryIDs {
		if _, err = tx.Exec(ctx, `
            UPDATE donors p
            SET email  = CASE WHEN p.email  = '' THEN s.email  ELSE p.email  END,
                phone  = CASE WHEN p.phone  = '' THEN s.phone  ELSE p.phone  END,
                street = CASE WHEN p.street = '' THEN s.street ELSE p.street END,
                city   = CASE WHEN p.city   = '' THEN s.city   ELSE p.city   END,
                state  = CASE WHEN p.state  = '' THEN s.state  ELSE p.state  END,
                zip    = CASE WHEN p.zip    = '' THEN s.zip    ELSE p.zip    END
            FROM donors s
            WHERE p.id = $1 AND s.id = $2
        `, primaryID, id); err != nil {
			return err
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM donors WHERE id = ANY($1)`, secondaryIDs)
	if err != nil {
		return err
	}
	if int(tag.RowsAffected()) != len(secondaryIDs) {
		return fmt.Errorf("expected to delete %d donors, deleted %d: %w",
			len(secondaryIDs), tag.RowsAffected(), domain.ErrDonorMissing)
	}
	return nil
}

// ScanDuplicates proposes donor groups sharing an exact key. Two passes,
// one per key shape; nothing is written.
func (db *DB) ScanDuplicates(ctx context.Context) ([]domain.DuplicateGroup, error) {
	var out []domain.DuplicateGroup

	emailGroups, err := db.duplicateGroups(ctx, `
        SELECT 'email:' || lower(email) AS match_key, `+donorColumns+`
        FROM donors
        WHERE email <> '' AND lower(email) IN (
            SELECT lower(email) FROM donors WHERE email <> ''
            GROUP BY lower(email) HAVING count(*) > 1
        )
        ORDER BY match_key, id
    `)
	if err != nil {
		return nil, err
	}
	out = append(out, emailGroups...)

	nameGroups, err := db.duplicateGroups(ctx, `
        SELECT 'name:' || lower(first_name) || ' ' || lower(last_name) || ' ' || zip AS match_key, `+donorColumns+`
        FROM donors
        WHERE first_name <> '' AND last_name <> '' AND zip <> ''
          AND (lower(first_name), lower(last_name), zip) IN (
            SELECT lower(first_name), lower(last_name), zip FROM donors
            WHERE first_name <> '' AND last_name <> '' AND zip <> ''
            GROUP BY lower(first_name), lower(last_name), zip HAVING count(*) > 1
        )
        ORDER BY match_key, id
    `)
	if err != nil {
		return nil, err
	}
	return append(out, nameGroups...), nil
}

func (db *DB) duplicateGroups(ctx context.Context, query string) ([]domain.DuplicateGroup, error) {
	rows, err := db.Pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DuplicateGroup
	for rows.Next() {
		var (
			key string
			d   domain.Donor
		)
		if err := rows.Scan(&key, &d.ID, &d.FirstName, &d.LastName, &d.Email, &d.Phone,
			&d.Street, &d.City, &d.State, &d.Zip, &d.CreatedAt); err != nil {
			return nil, err
		}
		if len(out) == 0 || out[len(out)-1].MatchKey != key {
			out = append(out, domain.DuplicateGroup{MatchKey: key})
		}
		out[len(out)-1].Donors = append(out[len(out)-1].Donors, d)
	}
	return out, rows.Err()
}
