package roster

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrNonFiniteValue indicates a NaN or infinite monetary value.
var ErrNonFiniteValue = errors.New("roster: monetary values must be finite")

// ErrInvalidBonusMonth indicates a bonus month outside 1..12.
var ErrInvalidBonusMonth = errors.New("roster: bonus month must be between 1 and 12")

// RepositoryPort defines data access methods for the roster.
type RepositoryPort interface {
	Create(ctx context.Context, input ConsultantInput) (*Consultant, error)
	GetByID(ctx context.Context, id int64) (*Consultant, error)
	ListActive(ctx context.Context) ([]Consultant, error)
	List(ctx context.Context) ([]Consultant, error)
	Update(ctx context.Context, id int64, update ConsultantUpdate) (*Consultant, error)
	Terminate(ctx context.Context, id int64, at time.Time) error
}

// Service handles roster business logic.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateConsultant registers a new consultant.
func (s *Service) CreateConsultant(ctx context.Context, input ConsultantInput) (*Consultant, error) {
	if input.Name == "" {
		return nil, errors.New("roster: name required")
	}
	if err := checkFinite(&input.HourlyRate, input.YearlyBonus); err != nil {
		return nil, err
	}
	if input.HourlyRate < 0 {
		return nil, errors.New("roster: hourly rate must not be negative")
	}
	if err := checkBonusMonth(input.BonusMonth); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, input)
}

// GetConsultant returns one consultant by id.
func (s *Service) GetConsultant(ctx context.Context, id int64) (*Consultant, error) {
	return s.repo.GetByID(ctx, id)
}

// ListActiveConsultants returns the active roster.
func (s *Service) ListActiveConsultants(ctx context.Context) ([]Consultant, error) {
	return s.repo.ListActive(ctx)
}

// ListConsultants returns the full roster, terminated included.
func (s *Service) ListConsultants(ctx context.Context) ([]Consultant, error) {
	return s.repo.List(ctx)
}

// UpdateConsultant applies field changes. Rate changes never propagate to
// payroll line items already snapshotted from this consultant.
func (s *Service) UpdateConsultant(ctx context.Context, id int64, update ConsultantUpdate) (*Consultant, error) {
	if err := checkFinite(update.HourlyRate, update.YearlyBonus); err != nil {
		return nil, err
	}
	if update.HourlyRate != nil && *update.HourlyRate < 0 {
		return nil, errors.New("roster: hourly rate must not be negative")
	}
	if err := checkBonusMonth(update.BonusMonth); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, id, update)
}

// TerminateConsultant removes the consultant from the active roster.
func (s *Service) TerminateConsultant(ctx context.Context, id int64) error {
	return s.repo.Terminate(ctx, id, s.now())
}

func checkFinite(values ...*float64) error {
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

func checkBonusMonth(m *int) error {
	if m == nil {
		return nil
	}
	if *m < 1 || *m > 12 {
		return ErrInvalidBonusMonth
	}
	return nil
}
