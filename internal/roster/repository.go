package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the consultant does not exist.
var ErrNotFound = errors.New("roster: consultant not found")

// ErrAlreadyTerminated indicates the consultant was terminated earlier.
var ErrAlreadyTerminated = errors.New("roster: consultant already terminated")

// Repository provides PostgreSQL backed persistence for the roster.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const consultantColumns = `id, name, email, hourly_rate, yearly_bonus, bonus_month, termination_date, created_at, updated_at`

func scanConsultant(row pgx.Row) (*Consultant, error) {
	var c Consultant
	var yearlyBonus pgtype.Float8
	var bonusMonth pgtype.Int4
	var terminated pgtype.Timestamptz

	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.HourlyRate, &yearlyBonus, &bonusMonth, &terminated, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if yearlyBonus.Valid {
		c.YearlyBonus = &yearlyBonus.Float64
	}
	if bonusMonth.Valid {
		m := int(bonusMonth.Int32)
		c.BonusMonth = &m
	}
	if terminated.Valid {
		c.TerminationDate = &terminated.Time
	}
	return &c, nil
}

// Create inserts a consultant.
func (r *Repository) Create(ctx context.Context, input ConsultantInput) (*Consultant, error) {
	query := `
		INSERT INTO consultants (name, email, hourly_rate, yearly_bonus, bonus_month, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING ` + consultantColumns

	var yearlyBonus pgtype.Float8
	if input.YearlyBonus != nil {
		yearlyBonus = pgtype.Float8{Float64: *input.YearlyBonus, Valid: true}
	}
	var bonusMonth pgtype.Int4
	if input.BonusMonth != nil {
		bonusMonth = pgtype.Int4{Int32: int32(*input.BonusMonth), Valid: true}
	}

	return scanConsultant(r.pool.QueryRow(ctx, query,
		input.Name, input.Email, input.HourlyRate, yearlyBonus, bonusMonth))
}

// GetByID retrieves a consultant by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Consultant, error) {
	query := `SELECT ` + consultantColumns + ` FROM consultants WHERE id = $1`
	return scanConsultant(r.pool.QueryRow(ctx, query, id))
}

// ListActive returns consultants without a termination date.
func (r *Repository) ListActive(ctx context.Context) ([]Consultant, error) {
	return r.list(ctx, `SELECT `+consultantColumns+` FROM consultants WHERE termination_date IS NULL ORDER BY name, id`)
}

// List returns every consultant, terminated included.
func (r *Repository) List(ctx context.Context) ([]Consultant, error) {
	return r.list(ctx, `SELECT `+consultantColumns+` FROM consultants ORDER BY name, id`)
}

func (r *Repository) list(ctx context.Context, query string) ([]Consultant, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Consultant
	for rows.Next() {
		c, err := scanConsultant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Update applies the provided field changes.
func (r *Repository) Update(ctx context.Context, id int64, update ConsultantUpdate) (*Consultant, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	argNum := 2

	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argNum))
		args = append(args, val)
		argNum++
	}

	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.Email != nil {
		add("email", *update.Email)
	}
	if update.HourlyRate != nil {
		add("hourly_rate", *update.HourlyRate)
	}
	if update.YearlyBonus != nil {
		add("yearly_bonus", *update.YearlyBonus)
	}
	if update.BonusMonth != nil {
		add("bonus_month", *update.BonusMonth)
	}

	query := `UPDATE consultants SET `
	for i, s := range sets {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += ` WHERE id = $1 RETURNING ` + consultantColumns

	return scanConsultant(r.pool.QueryRow(ctx, query, args...))
}

// Terminate marks the consultant as terminated. Repeat calls fail.
func (r *Repository) Terminate(ctx context.Context, id int64, at time.Time) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE consultants SET termination_date = $2, updated_at = NOW() WHERE id = $1 AND termination_date IS NULL`,
		id, at)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrAlreadyTerminated
	}
	return nil
}
