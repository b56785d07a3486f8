package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/vantage-payroll/vantage-payroll/internal/roster"
	"github.com/vantage-payroll/vantage-payroll/internal/shared"
)

// RepositoryPort defines data access methods for payroll cycles.
type RepositoryPort interface {
	CreateCycle(ctx context.Context, data CreateCycleData) (*Cycle, []LineItem, error)
	GetCycle(ctx context.Context, id int64) (*Cycle, error)
	ListActiveCycles(ctx context.Context) ([]Cycle, error)
	ListLineItems(ctx context.Context, cycleID int64) ([]LineItem, error)
	UpdateCycle(ctx context.Context, id int64, update CycleUpdate) (*Cycle, error)
	UpdateLineItem(ctx context.Context, lineItemID int64, update LineItemUpdate) (*LineItem, error)
	ArchiveCycle(ctx context.Context, id int64, at time.Time) error
	StampPaymentDate(ctx context.Context, id int64, at time.Time) error

	GetBonusWorkflow(ctx context.Context, cycleID int64) (*BonusWorkflow, error)
	CreateBonusWorkflow(ctx context.Context, cycleID int64, recipientID *int64) (*BonusWorkflow, error)
	FillInferredRecipient(ctx context.Context, cycleID, consultantID int64) (*BonusWorkflow, error)
	SetRecipient(ctx context.Context, cycleID, consultantID int64) (*BonusWorkflow, error)
	UpdateBonusWorkflow(ctx context.Context, cycleID int64, update BonusWorkflowUpdate) (*BonusWorkflow, error)
	MarkAnnouncement(ctx context.Context, cycleID int64, at time.Time) error
}

// RosterPort is the roster collaborator consumed by the engine.
type RosterPort interface {
	ListActiveConsultants(ctx context.Context) ([]roster.Consultant, error)
	GetConsultant(ctx context.Context, id int64) (*roster.Consultant, error)
}

// WorkHoursPort supplies working hours per calendar month, reference-backed
// with a weekday fallback.
type WorkHoursPort interface {
	HoursFor(ctx context.Context, year int, month time.Month) (hours float64, fromReference bool, err error)
}

// MailPort enqueues outbound mail; rendering and delivery live elsewhere.
type MailPort interface {
	EnqueueEmail(ctx context.Context, to, subject, body string) error
}

// AuditPort records engine actions.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig tunes engine behaviour.
type ServiceConfig struct {
	// BonusMonthOffset is the number of months between a cycle's month and
	// its bonus payment month. Zero value falls back to
	// DefaultBonusMonthOffset.
	BonusMonthOffset int
}

// Service handles the payroll cycle lifecycle.
type Service struct {
	repo        RepositoryPort
	roster      RosterPort
	workhours   WorkHoursPort
	mail        MailPort
	audit       AuditPort
	cache       *Cache
	logger      *slog.Logger
	bonusOffset int
	now         func() time.Time
}

// NewService builds a Service instance. mail, audit and cache may be nil.
func NewService(repo RepositoryPort, rosterPort RosterPort, workhoursPort WorkHoursPort, mail MailPort, audit AuditPort, cache *Cache, logger *slog.Logger, cfg ServiceConfig) *Service {
	offset := cfg.BonusMonthOffset
	if offset == 0 {
		offset = DefaultBonusMonthOffset
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		roster:      rosterPort,
		workhours:   workhoursPort,
		mail:        mail,
		audit:       audit,
		cache:       cache,
		logger:      logger,
		bonusOffset: offset,
		now:         time.Now,
	}
}

// CreateCycle snapshots the active roster into a new cycle. The carryover
// lookup, cycle insert and line item batch run atomically in the repository.
func (s *Service) CreateCycle(ctx context.Context, input CreateCycleInput) (*Cycle, []LineItem, error) {
	if input.MonthLabel == "" {
		return nil, nil, fmt.Errorf("%w: empty label", ErrInvalidMonthLabel)
	}
	if err := requireFinite(input.GlobalWorkHours, input.OmnigoBonus, input.InvoiceBonus); err != nil {
		return nil, nil, err
	}

	consultants, err := s.roster.ListActiveConsultants(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("payroll: list active roster: %w", err)
	}
	if len(consultants) == 0 {
		return nil, nil, ErrEmptyRoster
	}

	seeds := make([]LineItemSeed, 0, len(consultants))
	for _, c := range consultants {
		seeds = append(seeds, LineItemSeed{
			ConsultantID: c.ID,
			RatePerHour:  c.HourlyRate,
			BonusAdvance: c.YearlyBonus,
		})
	}

	cycle, lines, err := s.repo.CreateCycle(ctx, CreateCycleData{
		MonthLabel:      CanonicalMonthLabel(input.MonthLabel),
		GlobalWorkHours: input.GlobalWorkHours,
		OmnigoBonus:     deref(input.OmnigoBonus),
		InvoiceBonus:    deref(input.InvoiceBonus),
		Lines:           seeds,
	})
	if err != nil {
		return nil, nil, err
	}

	s.recordAudit(ctx, "cycle.create", cycle.ID, map[string]any{
		"monthLabel": cycle.MonthLabel,
		"lineItems":  len(lines),
	})
	s.bumpCache(ctx)

	s.logger.Info("payroll cycle created",
		slog.Int64("cycle_id", cycle.ID),
		slog.String("month_label", cycle.MonthLabel),
		slog.Int("line_items", len(lines)),
	)
	return cycle, lines, nil
}

// GetCycle returns a cycle by id, archived ones included.
func (s *Service) GetCycle(ctx context.Context, id int64) (*Cycle, error) {
	return s.repo.GetCycle(ctx, id)
}

// ListActiveCycles returns non-archived cycles, newest first.
func (s *Service) ListActiveCycles(ctx context.Context) ([]Cycle, error) {
	return s.repo.ListActiveCycles(ctx)
}

// ListLineItems returns a cycle's line items.
func (s *Service) ListLineItems(ctx context.Context, cycleID int64) ([]LineItem, error) {
	if _, err := s.repo.GetCycle(ctx, cycleID); err != nil {
		return nil, err
	}
	return s.repo.ListLineItems(ctx, cycleID)
}

// GetCycleSummary computes the cycle totals and advisory anomalies.
func (s *Service) GetCycleSummary(ctx context.Context, cycleID int64) (*CycleSummary, error) {
	if s.cache != nil {
		var summary CycleSummary
		key, err := s.cache.BuildKey(ctx, "payroll", "summary", strconv.FormatInt(cycleID, 10))
		if err == nil {
			err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
				return s.buildSummary(ctx, cycleID)
			})
			if err == nil {
				return &summary, nil
			}
			if errors.Is(err, ErrNotFound) {
				return nil, err
			}
			s.logger.Warn("summary cache bypass", slog.Any("error", err))
		}
	}
	return s.buildSummary(ctx, cycleID)
}

func (s *Service) buildSummary(ctx context.Context, cycleID int64) (*CycleSummary, error) {
	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.ListLineItems(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	active, err := s.activeConsultantSet(ctx)
	if err != nil {
		return nil, err
	}
	summary := Summarize(cycle, lines, active)
	return &summary, nil
}

// UpdateCycle applies explicit field edits to a non-archived cycle.
func (s *Service) UpdateCycle(ctx context.Context, id int64, update CycleUpdate) (*Cycle, error) {
	if err := requireFinite(
		update.GlobalWorkHours, update.OmnigoBonus, update.EquipmentsUSD,
		update.PagamentoPIX, update.PagamentoInter, update.InvoiceBonus,
		update.PayoneerBalanceApplied,
	); err != nil {
		return nil, err
	}

	cycle, err := s.repo.UpdateCycle(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.bumpCache(ctx)
	return cycle, nil
}

// UpdateLineItem applies explicit field edits to a line item. The rate
// snapshot is immutable by construction of LineItemUpdate.
func (s *Service) UpdateLineItem(ctx context.Context, lineItemID int64, update LineItemUpdate) (*LineItem, error) {
	if err := requireFinite(update.WorkHours, update.AdjustmentValue, update.BonusAdvance); err != nil {
		return nil, err
	}

	line, err := s.repo.UpdateLineItem(ctx, lineItemID, update)
	if err != nil {
		return nil, err
	}
	s.bumpCache(ctx)
	return line, nil
}

// ArchiveCycle performs the one-way terminal transition. The archived
// cycle's carryover and applied values are frozen from here on.
func (s *Service) ArchiveCycle(ctx context.Context, id int64) error {
	if err := s.repo.ArchiveCycle(ctx, id, s.now()); err != nil {
		return err
	}
	s.recordAudit(ctx, "cycle.archive", id, nil)
	s.bumpCache(ctx)
	s.logger.Info("payroll cycle archived", slog.Int64("cycle_id", id))
	return nil
}

func (s *Service) activeConsultantSet(ctx context.Context) (map[int64]bool, error) {
	consultants, err := s.roster.ListActiveConsultants(ctx)
	if err != nil {
		return nil, fmt.Errorf("payroll: list active roster: %w", err)
	}
	active := make(map[int64]bool, len(consultants))
	for _, c := range consultants {
		active[c.ID] = true
	}
	return active, nil
}

func (s *Service) recordAudit(ctx context.Context, action string, cycleID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "payroll_cycle",
		EntityID: strconv.FormatInt(cycleID, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) bumpCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("cache bump failed", slog.Any("error", err))
	}
}

func requireFinite(values ...*float64) error {
	for _, v := range values {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return ErrNonFiniteValue
		}
	}
	return nil
}
