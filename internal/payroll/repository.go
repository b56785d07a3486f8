package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantage-payroll/vantage-payroll/internal/platform/db"
)

// LineItemSeed is the per-consultant snapshot captured at cycle creation.
type LineItemSeed struct {
	ConsultantID int64
	RatePerHour  float64
	BonusAdvance *float64
}

// CreateCycleData is the fully resolved insert payload for a new cycle.
type CreateCycleData struct {
	MonthLabel      string
	GlobalWorkHours *float64
	OmnigoBonus     float64
	InvoiceBonus    float64
	Lines           []LineItemSeed
}

// Repository provides PostgreSQL backed persistence for payroll cycles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const cycleColumns = `id, month_label, global_work_hours, omnigo_bonus, equipments_usd, pagamento_pix, pagamento_inter, invoice_bonus, payoneer_balance_carryover, payoneer_balance_applied, calculated_payment_date, archived_at, created_at, updated_at`

func scanCycle(row pgx.Row) (*Cycle, error) {
	var c Cycle
	var globalHours, carryover, applied pgtype.Float8
	var paymentDate, archivedAt pgtype.Timestamptz

	err := row.Scan(
		&c.ID, &c.MonthLabel, &globalHours,
		&c.OmnigoBonus, &c.EquipmentsUSD, &c.PagamentoPIX, &c.PagamentoInter, &c.InvoiceBonus,
		&carryover, &applied, &paymentDate, &archivedAt,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if globalHours.Valid {
		c.GlobalWorkHours = &globalHours.Float64
	}
	if carryover.Valid {
		c.PayoneerBalanceCarryover = &carryover.Float64
	}
	if applied.Valid {
		c.PayoneerBalanceApplied = &applied.Float64
	}
	if paymentDate.Valid {
		c.CalculatedPaymentDate = &paymentDate.Time
	}
	if archivedAt.Valid {
		c.ArchivedAt = &archivedAt.Time
	}
	return &c, nil
}

const lineItemColumns = `id, cycle_id, consultant_id, rate_per_hour, work_hours, adjustment_value, bonus_advance, informed_date, bonus_paydate, created_at, updated_at`

func scanLineItem(row pgx.Row) (*LineItem, error) {
	var li LineItem
	var workHours, adjustment, advance pgtype.Float8
	var informed, paydate pgtype.Timestamptz

	err := row.Scan(
		&li.ID, &li.CycleID, &li.ConsultantID, &li.RatePerHour,
		&workHours, &adjustment, &advance, &informed, &paydate,
		&li.CreatedAt, &li.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if workHours.Valid {
		li.WorkHours = &workHours.Float64
	}
	if adjustment.Valid {
		li.AdjustmentValue = &adjustment.Float64
	}
	if advance.Valid {
		li.BonusAdvance = &advance.Float64
	}
	if informed.Valid {
		li.InformedDate = &informed.Time
	}
	if paydate.Valid {
		li.BonusPaydate = &paydate.Time
	}
	return &li, nil
}

const workflowColumns = `id, cycle_id, bonus_recipient_consultant_id, bonus_announcement_date, email_generated, paid_with_payroll, bonus_payment_date, created_at, updated_at`

func scanWorkflow(row pgx.Row) (*BonusWorkflow, error) {
	var wf BonusWorkflow
	var recipient pgtype.Int8
	var announcement, paymentDate pgtype.Timestamptz

	err := row.Scan(
		&wf.ID, &wf.CycleID, &recipient, &announcement,
		&wf.EmailGenerated, &wf.PaidWithPayroll, &paymentDate,
		&wf.CreatedAt, &wf.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if recipient.Valid {
		wf.RecipientConsultantID = &recipient.Int64
	}
	if announcement.Valid {
		wf.AnnouncementDate = &announcement.Time
	}
	if paymentDate.Valid {
		wf.BonusPaymentDate = &paymentDate.Time
	}
	return &wf, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateCycle resolves the carryover chain and inserts the cycle with its
// line item snapshots inside one transaction. A crash or validation failure
// mid-sequence leaves no partial cycle. The partial unique index on
// (month_label) WHERE archived_at IS NULL serialises racing creations; its
// violation surfaces as ErrDuplicateCycle.
func (r *Repository) CreateCycle(ctx context.Context, data CreateCycleData) (*Cycle, []LineItem, error) {
	var created *Cycle
	var lines []LineItem

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		predecessor, err := scanCycle(tx.QueryRow(ctx,
			`SELECT `+cycleColumns+` FROM payroll_cycles WHERE archived_at IS NULL ORDER BY created_at DESC, id DESC LIMIT 1 FOR UPDATE`))
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		carryover := NextCarryover(predecessor)

		var globalHours, carryoverVal pgtype.Float8
		if data.GlobalWorkHours != nil {
			globalHours = pgtype.Float8{Float64: *data.GlobalWorkHours, Valid: true}
		}
		if carryover != nil {
			carryoverVal = pgtype.Float8{Float64: *carryover, Valid: true}
		}

		created, err = scanCycle(tx.QueryRow(ctx, `
			INSERT INTO payroll_cycles (month_label, global_work_hours, omnigo_bonus, invoice_bonus, payoneer_balance_carryover, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			RETURNING `+cycleColumns,
			data.MonthLabel, globalHours, data.OmnigoBonus, data.InvoiceBonus, carryoverVal))
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateCycle
			}
			return err
		}

		for _, seed := range data.Lines {
			var advance pgtype.Float8
			if seed.BonusAdvance != nil {
				advance = pgtype.Float8{Float64: *seed.BonusAdvance, Valid: true}
			}
			line, err := scanLineItem(tx.QueryRow(ctx, `
				INSERT INTO payroll_line_items (cycle_id, consultant_id, rate_per_hour, bonus_advance, created_at, updated_at)
				VALUES ($1, $2, $3, $4, NOW(), NOW())
				RETURNING `+lineItemColumns,
				created.ID, seed.ConsultantID, seed.RatePerHour, advance))
			if err != nil {
				return fmt.Errorf("insert line item for consultant %d: %w", seed.ConsultantID, err)
			}
			lines = append(lines, *line)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return created, lines, nil
}

// GetCycle retrieves a cycle by id, archived ones included.
func (r *Repository) GetCycle(ctx context.Context, id int64) (*Cycle, error) {
	return scanCycle(r.pool.QueryRow(ctx,
		`SELECT `+cycleColumns+` FROM payroll_cycles WHERE id = $1`, id))
}

// ListActiveCycles returns non-archived cycles, newest first.
func (r *Repository) ListActiveCycles(ctx context.Context) ([]Cycle, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+cycleColumns+` FROM payroll_cycles WHERE archived_at IS NULL ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ListLineItems returns a cycle's line items in insertion order.
func (r *Repository) ListLineItems(ctx context.Context, cycleID int64) ([]LineItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+lineItemColumns+` FROM payroll_line_items WHERE cycle_id = $1 ORDER BY id`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LineItem
	for rows.Next() {
		li, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *li)
	}
	return out, rows.Err()
}

// UpdateCycle applies field changes to a non-archived cycle.
func (r *Repository) UpdateCycle(ctx context.Context, id int64, update CycleUpdate) (*Cycle, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{id}
	argNum := 2

	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argNum))
		args = append(args, val)
		argNum++
	}

	if update.GlobalWorkHours != nil {
		add("global_work_hours", *update.GlobalWorkHours)
	}
	if update.OmnigoBonus != nil {
		add("omnigo_bonus", *update.OmnigoBonus)
	}
	if update.EquipmentsUSD != nil {
		add("equipments_usd", *update.EquipmentsUSD)
	}
	if update.PagamentoPIX != nil {
		add("pagamento_pix", *update.PagamentoPIX)
	}
	if update.PagamentoInter != nil {
		add("pagamento_inter", *update.PagamentoInter)
	}
	if update.InvoiceBonus != nil {
		add("invoice_bonus", *update.InvoiceBonus)
	}
	if update.PayoneerBalanceApplied != nil {
		add("payoneer_balance_applied", *update.PayoneerBalanceApplied)
	}

	query := "UPDATE payroll_cycles SET "
	for i, s := range sets {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += " WHERE id = $1 AND archived_at IS NULL RETURNING " + cycleColumns

	cycle, err := scanCycle(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, ErrNotFound) {
		return nil, r.archivedOrMissing(ctx, id)
	}
	return cycle, err
}

// UpdateLineItem applies field changes to a line item of a non-archived
// cycle. The rate snapshot is not updatable.
func (r *Repository) UpdateLineItem(ctx context.Context, lineItemID int64, update LineItemUpdate) (*LineItem, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{lineItemID}
	argNum := 2

	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argNum))
		args = append(args, val)
		argNum++
	}

	if update.WorkHours != nil {
		add("work_hours", *update.WorkHours)
	}
	if update.AdjustmentValue != nil {
		add("adjustment_value", *update.AdjustmentValue)
	}
	if update.BonusAdvance != nil {
		add("bonus_advance", *update.BonusAdvance)
	}
	if update.InformedDate != nil {
		add("informed_date", *update.InformedDate)
	}
	if update.BonusPaydate != nil {
		add("bonus_paydate", *update.BonusPaydate)
	}

	query := "UPDATE payroll_line_items SET "
	for i, s := range sets {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += ` WHERE id = $1 AND cycle_id IN (SELECT id FROM payroll_cycles WHERE archived_at IS NULL) RETURNING ` + lineItemColumns

	line, err := scanLineItem(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, ErrNotFound) {
		var cycleID int64
		lookupErr := r.pool.QueryRow(ctx, `SELECT cycle_id FROM payroll_line_items WHERE id = $1`, lineItemID).Scan(&cycleID)
		if lookupErr != nil {
			return nil, ErrNotFound
		}
		return nil, ErrAlreadyArchived
	}
	return line, err
}

// ArchiveCycle performs the one-way transition into the terminal state.
func (r *Repository) ArchiveCycle(ctx context.Context, id int64, at time.Time) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE payroll_cycles SET archived_at = $2, updated_at = NOW() WHERE id = $1 AND archived_at IS NULL`,
		id, at)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return r.archivedOrMissing(ctx, id)
	}
	return nil
}

// StampPaymentDate records when the payment instruction was last computed.
func (r *Repository) StampPaymentDate(ctx context.Context, id int64, at time.Time) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE payroll_cycles SET calculated_payment_date = $2, updated_at = NOW() WHERE id = $1`,
		id, at)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) archivedOrMissing(ctx context.Context, id int64) error {
	cycle, err := r.GetCycle(ctx, id)
	if err != nil {
		return err
	}
	if cycle.Archived() {
		return ErrAlreadyArchived
	}
	return ErrNotFound
}

// GetBonusWorkflow retrieves the cycle's workflow row.
func (r *Repository) GetBonusWorkflow(ctx context.Context, cycleID int64) (*BonusWorkflow, error) {
	return scanWorkflow(r.pool.QueryRow(ctx,
		`SELECT `+workflowColumns+` FROM payroll_bonus_workflows WHERE cycle_id = $1`, cycleID))
}

// CreateBonusWorkflow inserts the cycle's workflow, tolerating a concurrent
// insert: on conflict the existing row wins and is returned.
func (r *Repository) CreateBonusWorkflow(ctx context.Context, cycleID int64, recipientID *int64) (*BonusWorkflow, error) {
	var recipient pgtype.Int8
	if recipientID != nil {
		recipient = pgtype.Int8{Int64: *recipientID, Valid: true}
	}

	wf, err := scanWorkflow(r.pool.QueryRow(ctx, `
		INSERT INTO payroll_bonus_workflows (cycle_id, bonus_recipient_consultant_id, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (cycle_id) DO NOTHING
		RETURNING `+workflowColumns,
		cycleID, recipient))
	if errors.Is(err, ErrNotFound) {
		return r.GetBonusWorkflow(ctx, cycleID)
	}
	return wf, err
}

// FillInferredRecipient stores an inferred recipient only while the stored
// value is still null, so an explicit set racing the inference always wins.
// The current row is returned either way.
func (r *Repository) FillInferredRecipient(ctx context.Context, cycleID, consultantID int64) (*BonusWorkflow, error) {
	wf, err := scanWorkflow(r.pool.QueryRow(ctx, `
		UPDATE payroll_bonus_workflows
		SET bonus_recipient_consultant_id = $2, updated_at = NOW()
		WHERE cycle_id = $1 AND bonus_recipient_consultant_id IS NULL
		RETURNING `+workflowColumns,
		cycleID, consultantID))
	if errors.Is(err, ErrNotFound) {
		return r.GetBonusWorkflow(ctx, cycleID)
	}
	return wf, err
}

// SetRecipient stores an explicit recipient and, in the same transaction,
// clears informed/paydate fields on every other consultant's line item so
// only the designated recipient carries bonus dates.
func (r *Repository) SetRecipient(ctx context.Context, cycleID, consultantID int64) (*BonusWorkflow, error) {
	var wf *BonusWorkflow

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		wf, err = scanWorkflow(tx.QueryRow(ctx, `
			INSERT INTO payroll_bonus_workflows (cycle_id, bonus_recipient_consultant_id, created_at, updated_at)
			VALUES ($1, $2, NOW(), NOW())
			ON CONFLICT (cycle_id) DO UPDATE SET bonus_recipient_consultant_id = EXCLUDED.bonus_recipient_consultant_id, updated_at = NOW()
			RETURNING `+workflowColumns,
			cycleID, consultantID))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE payroll_line_items
			SET informed_date = NULL, bonus_paydate = NULL, updated_at = NOW()
			WHERE cycle_id = $1 AND consultant_id <> $2
			  AND (informed_date IS NOT NULL OR bonus_paydate IS NOT NULL)`,
			cycleID, consultantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return wf, nil
}

// UpdateBonusWorkflow applies non-recipient workflow changes.
func (r *Repository) UpdateBonusWorkflow(ctx context.Context, cycleID int64, update BonusWorkflowUpdate) (*BonusWorkflow, error) {
	sets := []string{"updated_at = NOW()"}
	args := []any{cycleID}
	argNum := 2

	add := func(col string, val any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, argNum))
		args = append(args, val)
		argNum++
	}

	if update.PaidWithPayroll != nil {
		add("paid_with_payroll", *update.PaidWithPayroll)
	}
	if update.BonusPaymentDate != nil {
		add("bonus_payment_date", *update.BonusPaymentDate)
	}

	query := "UPDATE payroll_bonus_workflows SET "
	for i, s := range sets {
		if i > 0 {
			query += ", "
		}
		query += s
	}
	query += " WHERE cycle_id = $1 RETURNING " + workflowColumns

	return scanWorkflow(r.pool.QueryRow(ctx, query, args...))
}

// MarkAnnouncement stamps the announcement date and marks the email as
// generated.
func (r *Repository) MarkAnnouncement(ctx context.Context, cycleID int64, at time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE payroll_bonus_workflows
		SET bonus_announcement_date = $2, email_generated = TRUE, updated_at = NOW()
		WHERE cycle_id = $1`,
		cycleID, at)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
