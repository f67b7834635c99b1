package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"almsdesk/internal/domain"
)

const donationColumns = `id, donor_id, amount, method, check_number, fund, gift_date,
        raw_first, raw_last, raw_email, raw_street, raw_zip, resolution_status, created_at`

func scanDonation(row pgx.Row) (domain.Donation, error) {
	var d domain.Donation
	err := row.Scan(&d.ID, &d.DonorID, &d.Amount, &d.Method, &d.CheckNumber, &d.Fund,
		&d.GiftDate, &d.RawFirst, &d.RawLast, &d.RawEmail, &d.RawStreet, &d.RawZip,
		&d.Status, &d.CreatedAt)
	return d, err
}

func (db *DB) CreateDonation(ctx context.Context, d domain.Donation) (domain.Donation, error) {
	row := db.Pool.QueryRow(ctx, `
        INSERT INTO donations (donor_id, amount, method, check_number, fund, gift_date,
                               raw_first, raw_last, raw_email, raw_street, raw_zip, resolution_status)
        VALUES ($1, $2, $3, $4, $5, COALESCE(NULLIF($6::date, '0001-01-01'::date), CURRENT_DATE),
                $7, $8, $9, $10, $11, 'resolved')
        RETURNING `+donationColumns+`
    `, d.DonorID, d.Amount, d.Method, d.CheckNumber, d.Fund, d.GiftDate,
		d.RawFirst, d.RawLast, d.RawEmail, d.RawStreet, d.RawZip)
	return scanDonation(row)
}

func (db *DB) GetDonation(ctx context.Context, id string) (domain.Donation, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = $1`, id)
	d, err := scanDonation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Donation{}, domain.ErrNotFound
	}
	return d, err
}

func (db *DB) SetResolved(ctx context.Context, donationID, donorID string) (err error) {
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

	tag, err := tx.Exec(ctx, `
        UPDATE donations SET donor_id = $2, resolution_status = 'resolved' WHERE id = $1
    `, donationID, donorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	_, err = tx.Exec(ctx, `DELETE FROM resolution_candidates WHERE donation_id = $1`, donationID)
	return err
}

func (db *DB) MarkPending(ctx context.Context, donationID string, candidates []domain.Candidate) (err error) {
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

	tag, err := tx.Exec(ctx, `
        UPDATE donations SET donor_id = NULL, resolution_status = 'pending' WHERE id = $1
    `, donationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if _, err = tx.Exec(ctx, `DELETE FROM resolution_candidates WHERE donation_id = $1`, donationID); err != nil {
		return err
	}
	for _, c := range candidates {
		if _, err = tx.Exec(ctx, `
            INSERT INTO resolution_candidates (donation_id, donor_id, score, reason)
            VALUES ($1, $2, $3, $4)
        `, donationID, c.DonorID, c.Score, c.Reason); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) ResolveLink(ctx context.Context, donationID, donorID string) (err error) {
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

	var status string
	err = tx.QueryRow(ctx, `
        SELECT resolution_status FROM donations WHERE id = $1 FOR UPDATE
    `, donationID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	if status != string(domain.StatusPending) {
		return domain.ErrNotPending
	}

	// A bad donor id fails the foreign key here.
	if _, err = tx.Exec(ctx, `
        UPDATE donations SET donor_id = $2, resolution_status = 'resolved' WHERE id = $1
    `, donationID, donorID); err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("donor %s: %w", donorID, domain.ErrDonorMissing)
		}
		return err
	}
	_, err = tx.Exec(ctx, `DELETE FROM resolution_candidates WHERE donation_id = $1`, donationID)
	return err
}

func (db *DB) ResolveNew(ctx context.Context, donationID string) (err error) {
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

	var status string
	err = tx.QueryRow(ctx, `
        SELECT resolution_status FROM donations WHERE id = $1 FOR UPDATE
    `, donationID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	if status != string(domain.StatusPending) {
		return domain.ErrNotPending
	}

	if _, err = tx.Exec(ctx, `
        UPDATE donations SET donor_id = NULL, resolution_status = 'resolved' WHERE id = $1
    `, donationID); err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `DELETE FROM resolution_candidates WHERE donation_id = $1`, donationID)
	return err
}

func (db *DB) ClearPending(ctx context.Context, donationID string) (err error) {
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

	tag, err := tx.Exec(ctx, `
        UPDATE donations SET resolution_status = 'resolved' WHERE id = $1
    `, donationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	_, err = tx.Exec(ctx, `DELETE FROM resolution_candidates WHERE donation_id = $1`, donationID)
	return err
}

func (db *DB) ListPending(ctx context.Context) ([]domain.QueueEntry, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT d.id, d.donor_id, d.amount, d.method, d.check_number, d.fund, d.gift_date,
               d.raw_first, d.raw_last, d.raw_email, d.raw_street, d.raw_zip,
               d.resolution_status, d.created_at,
               c.score::float8, c.reason,
               n.id, n.first_name, n.last_name, n.email, n.phone, n.street, n.city, n.state, n.zip, n.created_at
        FROM donations d
        JOIN resolution_candidates c ON c.donation_id = d.id
        JOIN donors n ON n.id = c.donor_id
        WHERE d.resolution_status = 'pending'
        ORDER BY d.created_at, d.id, c.score DESC, n.id
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out  []domain.QueueEntry
		last string
	)
	for rows.Next() {
		var (
			don  domain.Donation
			cand domain.QueueCandidate
		)
		err := rows.Scan(&don.ID, &don.DonorID, &don.Amount, &don.Method, &don.CheckNumber,
			&don.Fund, &don.GiftDate, &don.RawFirst, &don.RawLast, &don.RawEmail,
			&don.RawStreet, &don.RawZip, &don.Status, &don.CreatedAt,
			&cand.Score, &cand.Reason,
			&cand.Donor.ID, &cand.Donor.FirstName, &cand.Donor.LastName, &cand.Donor.Email,
			&cand.Donor.Phone, &cand.Donor.Street, &cand.Donor.City, &cand.Donor.State,
			&cand.Donor.Zip, &cand.Donor.CreatedAt)
		if err != nil {
			return nil, err
		}
		if len(out) == 0 || don.ID != last {
			out = append(out, domain.QueueEntry{Donation: don})
			last = don.ID
		}
		out[len(out)-1].Candidates = append(out[len(out)-1].Candidates, cand)
	}
	return out, rows.Err()
}

func (db *DB) SummaryByDonor(ctx context.Context, donorID string) (domain.GivingSummary, error) {
	var (
		sum   domain.GivingSummary
		total decimal.Decimal
	)
	err := db.Pool.QueryRow(ctx, `
        SELECT count(*), COALESCE(sum(amount), 0), min(gift_date), max(gift_date)
        FROM donations WHERE donor_id = $1
    `, donorID).Scan(&sum.DonationCount, &total, &sum.FirstGift, &sum.LastGift)
	if err != nil {
		return domain.GivingSummary{}, err
	}
	sum.TotalAmount = total
	return sum, nil
}
