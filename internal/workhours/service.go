package workhours

import (
	"context"
	"errors"
	"math"
	"time"
)

// ErrInvalidReference indicates an import row outside acceptable ranges.
var ErrInvalidReference = errors.New("workhours: reference row invalid")

// RepositoryPort defines data access methods for reference rows.
type RepositoryPort interface {
	Get(ctx context.Context, year, month int) (*Reference, error)
	ListYear(ctx context.Context, year int) ([]Reference, error)
	Upsert(ctx context.Context, refs []ReferenceInput) error
}

// Service handles work-hours lookups and imports.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get returns the stored reference row for (year, month).
func (s *Service) Get(ctx context.Context, year int, month time.Month) (*Reference, error) {
	return s.repo.Get(ctx, year, int(month))
}

// ListYear returns all stored rows for a year.
func (s *Service) ListYear(ctx context.Context, year int) ([]Reference, error) {
	return s.repo.ListYear(ctx, year)
}

// HoursFor returns the working hours for a month, preferring the imported
// reference row and falling back to weekday count times HoursPerWeekday when
// the row is missing or non-positive. fromReference reports which source won.
func (s *Service) HoursFor(ctx context.Context, year int, month time.Month) (hours float64, fromReference bool, err error) {
	ref, err := s.repo.Get(ctx, year, int(month))
	switch {
	case err == nil && ref.WorkHours > 0:
		return ref.WorkHours, true, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		return 0, false, err
	}
	return FallbackHours(year, month), false, nil
}

// Import upserts reference rows after validation.
func (s *Service) Import(ctx context.Context, refs []ReferenceInput) error {
	for _, ref := range refs {
		if ref.Month < 1 || ref.Month > 12 {
			return ErrInvalidReference
		}
		if ref.Year < 2000 || ref.Year > 2200 {
			return ErrInvalidReference
		}
		if ref.Weekdays < 0 || ref.Weekdays > 31 {
			return ErrInvalidReference
		}
		if math.IsNaN(ref.WorkHours) || math.IsInf(ref.WorkHours, 0) || ref.WorkHours < 0 {
			return ErrInvalidReference
		}
	}
	return s.repo.Upsert(ctx, refs)
}
