package payroll

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCalculatePaymentUsesNextMonthHours(t *testing.T) {
	repo := newMemoryRepo()
	hours := &fakeWorkHours{hours: 168, fromRef: true}
	svc := NewService(repo, testRoster(), hours, nil, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	cycle, _, err := svc.CreateCycle(ctx, CreateCycleInput{
		MonthLabel:      "December 2025",
		GlobalWorkHours: fptr(184),
		OmnigoBonus:     fptr(500),
	})
	require.NoError(t, err)
	_, err = svc.UpdateCycle(ctx, cycle.ID, CycleUpdate{
		EquipmentsUSD:          fptr(200),
		PayoneerBalanceApplied: fptr(300),
	})
	require.NoError(t, err)

	result, err := svc.CalculatePayment(ctx, cycle.ID, PaymentOptions{})
	require.NoError(t, err)

	// December's cycle pays in January of the next year.
	require.Equal(t, 2026, result.PaymentYear)
	require.Equal(t, time.January, result.PaymentMonth)
	require.Equal(t, 2026, hours.year)
	require.Equal(t, time.January, hours.month)
	require.True(t, result.WorkHoursFromReference)
	require.InDelta(t, 168, result.PaymentWorkHours, 0.0001)

	// Rates 50 and 40, Bob carries a 1200 advance.
	require.Len(t, result.Lines, 2)
	require.InDelta(t, 168*50, result.Lines[0].Subtotal, 0.0001)
	require.InDelta(t, 168*40-1200, result.Lines[1].Subtotal, 0.0001)

	wantPayments := 168*50 + 168*40 - 1200
	require.InDelta(t, wantPayments, result.TotalConsultantPayments, 0.0001)
	require.InDelta(t, float64(wantPayments)+500+200-300, result.TotalTransferAmount, 0.0001)
	require.InDelta(t, (50+40)*168+(500+200), result.USDTotal, 0.0001)

	// The calculation stamps its timestamp but nothing else.
	stored, err := svc.GetCycle(ctx, cycle.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.CalculatedPaymentDate)
	require.InDelta(t, 184, *stored.GlobalWorkHours, 0.0001)
}

func TestCalculatePaymentNoBonus(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testRoster(), &fakeWorkHours{hours: 160}, nil, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	cycle, _, err := svc.CreateCycle(ctx, CreateCycleInput{
		MonthLabel:  "October 2025",
		OmnigoBonus: fptr(500),
	})
	require.NoError(t, err)

	result, err := svc.CalculatePayment(ctx, cycle.ID, PaymentOptions{NoBonus: true})
	require.NoError(t, err)
	require.InDelta(t, 0, result.OmnigoBonus, 0.0001)
	require.InDelta(t, result.TotalConsultantPayments, result.TotalTransferAmount, 0.0001)

	// The flag shapes this computation only; the stored value survives.
	stored, err := svc.GetCycle(ctx, cycle.ID)
	require.NoError(t, err)
	require.InDelta(t, 500, stored.OmnigoBonus, 0.0001)
}

func TestCalculatePaymentExcludesInactiveConsultants(t *testing.T) {
	repo := newMemoryRepo()
	people := testRoster()
	svc := NewService(repo, people, &fakeWorkHours{hours: 160}, nil, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	cycle, _, err := svc.CreateCycle(ctx, CreateCycleInput{MonthLabel: "October 2025"})
	require.NoError(t, err)

	terminated := time.Now()
	people.consultants[1].TerminationDate = &terminated

	result, err := svc.CalculatePayment(ctx, cycle.ID, PaymentOptions{})
	require.NoError(t, err)
	require.Len(t, result.Lines, 1)
	require.Equal(t, int64(1), result.Lines[0].ConsultantID)
}

func TestCalculatePaymentRejectsFreeFormLabel(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testRoster(), &fakeWorkHours{hours: 160}, nil, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	cycle, _, err := svc.CreateCycle(ctx, CreateCycleInput{MonthLabel: "Folha Outubro"})
	require.NoError(t, err)

	_, err = svc.CalculatePayment(ctx, cycle.ID, PaymentOptions{})
	require.ErrorIs(t, err, ErrInvalidMonthLabel)
}
