package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"almsdesk/internal/domain"
)

const donorColumns = `id, first_name, last_name, email, phone, street, city, state, zip, created_at`

func scanDonor(row pgx.Row) (domain.Donor, error) {
	var d domain.Donor
	err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Email, &d.Phone,
		&d.Street, &d.City, &d.State, &d.Zip, &d.CreatedAt)
	return d, err
}

func collectDonors(rows pgx.Rows) ([]domain.Donor, error) {
	defer rows.Close()
	var out []domain.Donor
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func collectMatches(rows pgx.Rows) ([]domain.DonorMatch, error) {
	defer rows.Close()
	var out []domain.DonorMatch
	for rows.Next() {
		var m domain.DonorMatch
		err := rows.Scan(&m.Donor.ID, &m.Donor.FirstName, &m.Donor.LastName, &m.Donor.Email,
			&m.Donor.Phone, &m.Donor.Street, &m.Donor.City, &m.Donor.State, &m.Donor.Zip,
			&m.Donor.CreatedAt, &m.Score)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (db *DB) CreateDonor(ctx context.Context, d domain.Donor) (domain.Donor, error) {
	row := db.Pool.QueryRow(ctx, `
        INSERT INTO donors (first_name, last_name, email, phone, street, city, state, zip)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING `+donorColumns+`
    `, d.FirstName, d.LastName, d.Email, d.Phone, d.Street, d.City, d.State, d.Zip)
	return scanDonor(row)
}

func (db *DB) GetDonor(ctx context.Context, id string) (domain.Donor, error) {
	row := db.Pool.QueryRow(ctx, `SELECT `+donorColumns+` FROM donors WHERE id = $1`, id)
	d, err := scanDonor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Donor{}, domain.ErrNotFound
	}
	return d, err
}

func (db *DB) UpdateDonor(ctx context.Context, d domain.Donor) (domain.Donor, error) {
	row := db.Pool.QueryRow(ctx, `
        UPDATE donors
        SET first_name=$2, last_name=$3, email=$4, phone=$5, street=$6, city=$7, state=$8, zip=$9
        WHERE id = $1
        RETURNING `+donorColumns+`
    `, d.ID, d.FirstName, d.LastName, d.Email, d.Phone, d.Street, d.City, d.State, d.Zip)
	out, err := scanDonor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Donor{}, domain.ErrNotFound
	}
	return out, err
}

func (db *DB) FindByEmail(ctx context.Context, email string) ([]domain.Donor, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT `+donorColumns+` FROM donors
        WHERE email <> '' AND lower(email) = lower($1)
        ORDER BY id
    `, email)
	if err != nil {
		return nil, err
	}
	return collectDonors(rows)
}

func (db *DB) FindByName(ctx context.Context, first, last string) ([]domain.Donor, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT `+donorColumns+` FROM donors
        WHERE lower(first_name) = lower($1) AND lower(last_name) = lower($2)
        ORDER BY id
    `, first, last)
	if err != nil {
		return nil, err
	}
	return collectDonors(rows)
}

func (db *DB) SearchByLastZip(ctx context.Context, last, zip, first string, minScore float64, limit int) ([]domain.DonorMatch, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT `+donorColumns+`, similarity(first_name, $3)::float8 AS score
        FROM donors
        WHERE lower(last_name) = lower($1) AND zip = $2 AND similarity(first_name, $3) > $4
        ORDER BY score DESC, id
        LIMIT $5
    `, last, zip, first, minScore, limit)
	if err != nil {
		return nil, err
	}
	return collectMatches(rows)
}

func (db *DB) SearchByLastStreet(ctx context.Context, last, street string, minScore float64, limit int) ([]domain.DonorMatch, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT `+donorColumns+`, similarity(street, $2)::float8 AS score
        FROM donors
        WHERE lower(last_name) = lower($1) AND street <> '' AND similarity(street, $2) > $3
        ORDER BY score DESC, id
        LIMIT $4
    `, last, street, minScore, limit)
	if err != nil {
		return nil, err
	}
	return collectMatches(rows)
}

func (db *DB) SearchName(ctx context.Context, query string, limit int) ([]domain.DonorMatch, error) {
	rows, err := db.Pool.Query(ctx, `
        SELECT `+donorColumns+`, similarity(trim(first_name || ' ' || last_name), $1)::float8 AS score
        FROM donors
        WHERE similarity(trim(first_name || ' ' || last_name), $1) > 0
        ORDER BY score DESC, id
        LIMIT $2
    `, query, limit)
	if err != nil {
		return nil, err
	}
	return collectMatches(rows)
}
