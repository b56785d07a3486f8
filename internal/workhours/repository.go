package workhours

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates no reference row for the requested month.
var ErrNotFound = errors.New("workhours: no reference for month")

// Repository provides PostgreSQL backed persistence for reference rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get retrieves the reference row for (year, month).
func (r *Repository) Get(ctx context.Context, year, month int) (*Reference, error) {
	var ref Reference
	err := r.pool.QueryRow(ctx,
		`SELECT year, month, weekdays, work_hours, updated_at FROM workhours_reference WHERE year = $1 AND month = $2`,
		year, month).
		Scan(&ref.Year, &ref.Month, &ref.Weekdays, &ref.WorkHours, &ref.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ref, nil
}

// ListYear returns all reference rows for a year ordered by month.
func (r *Repository) ListYear(ctx context.Context, year int) ([]Reference, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT year, month, weekdays, work_hours, updated_at FROM workhours_reference WHERE year = $1 ORDER BY month`,
		year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reference
	for rows.Next() {
		var ref Reference
		if err := rows.Scan(&ref.Year, &ref.Month, &ref.Weekdays, &ref.WorkHours, &ref.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// Upsert writes reference rows, replacing existing (year, month) entries.
func (r *Repository) Upsert(ctx context.Context, refs []ReferenceInput) error {
	for _, ref := range refs {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO workhours_reference (year, month, weekdays, work_hours, updated_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (year, month)
			DO UPDATE SET weekdays = EXCLUDED.weekdays, work_hours = EXCLUDED.work_hours, updated_at = NOW()`,
			ref.Year, ref.Month, ref.Weekdays, ref.WorkHours)
		if err != nil {
			return err
		}
	}
	return nil
}
