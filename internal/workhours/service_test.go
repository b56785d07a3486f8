package workhours

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	refs map[[2]int]Reference
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{refs: make(map[[2]int]Reference)}
}

func (r *memoryRepo) Get(ctx context.Context, year, month int) (*Reference, error) {
	ref, ok := r.refs[[2]int{year, month}]
	if !ok {
		return nil, ErrNotFound
	}
	return &ref, nil
}

func (r *memoryRepo) ListYear(ctx context.Context, year int) ([]Reference, error) {
	var result []Reference
	for key, ref := range r.refs {
		if key[0] == year {
			result = append(result, ref)
		}
	}
	return result, nil
}

func (r *memoryRepo) Upsert(ctx context.Context, refs []ReferenceInput) error {
	for _, in := range refs {
		r.refs[[2]int{in.Year, in.Month}] = Reference{
			Year:      in.Year,
			Month:     in.Month,
			Weekdays:  in.Weekdays,
			WorkHours: in.WorkHours,
			UpdatedAt: time.Now(),
		}
	}
	return nil
}

func TestCountWeekdays(t *testing.T) {
	// December 2025 starts on a Monday and has 23 weekdays.
	require.Equal(t, 23, CountWeekdays(2025, time.December))
	// Leap February.
	require.Equal(t, 21, CountWeekdays(2024, time.February))
	require.InDelta(t, 184, FallbackHours(2025, time.December), 0.0001)
}

func TestHoursForPrefersReference(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	err := svc.Import(ctx, []ReferenceInput{{Year: 2026, Month: 1, Weekdays: 22, WorkHours: 176}})
	require.NoError(t, err)

	hours, fromRef, err := svc.HoursFor(ctx, 2026, time.January)
	require.NoError(t, err)
	require.True(t, fromRef)
	require.InDelta(t, 176, hours, 0.0001)
}

func TestHoursForFallsBackWithoutReference(t *testing.T) {
	svc := NewService(newMemoryRepo())

	hours, fromRef, err := svc.HoursFor(context.Background(), 2025, time.December)
	require.NoError(t, err)
	require.False(t, fromRef)
	require.InDelta(t, 184, hours, 0.0001)
}

func TestHoursForIgnoresNonPositiveReference(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	err := svc.Import(ctx, []ReferenceInput{{Year: 2025, Month: 12, Weekdays: 23, WorkHours: 0}})
	require.NoError(t, err)

	hours, fromRef, err := svc.HoursFor(ctx, 2025, time.December)
	require.NoError(t, err)
	require.False(t, fromRef)
	require.InDelta(t, 184, hours, 0.0001)
}

func TestImportValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	bad := []ReferenceInput{
		{Year: 2026, Month: 0, Weekdays: 20, WorkHours: 160},
		{Year: 2026, Month: 13, Weekdays: 20, WorkHours: 160},
		{Year: 1999, Month: 1, Weekdays: 20, WorkHours: 160},
		{Year: 2026, Month: 1, Weekdays: 40, WorkHours: 160},
		{Year: 2026, Month: 1, Weekdays: 20, WorkHours: -8},
		{Year: 2026, Month: 1, Weekdays: 20, WorkHours: math.NaN()},
	}
	for _, row := range bad {
		require.ErrorIs(t, svc.Import(ctx, []ReferenceInput{row}), ErrInvalidReference)
	}

	err := svc.Import(ctx, []ReferenceInput{{Year: 2026, Month: 1, Weekdays: 22, WorkHours: 176}})
	require.NoError(t, err)
}
