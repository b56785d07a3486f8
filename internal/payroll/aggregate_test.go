package payroll

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineSubtotalHourPrecedence(t *testing.T) {
	cycle := &Cycle{GlobalWorkHours: fptr(160)}

	// Line override beats the cycle's global figure.
	line := LineItem{RatePerHour: 50, WorkHours: fptr(120)}
	require.InDelta(t, 120*50, LineSubtotal(cycle, line), 0.0001)

	// No override falls back to the global figure.
	line = LineItem{RatePerHour: 50}
	require.InDelta(t, 160*50, LineSubtotal(cycle, line), 0.0001)

	// Neither set counts as zero hours.
	require.InDelta(t, 0, LineSubtotal(&Cycle{}, line), 0.0001)

	// Adjustments add, bonus advances subtract.
	line = LineItem{RatePerHour: 50, WorkHours: fptr(100), AdjustmentValue: fptr(250), BonusAdvance: fptr(1000)}
	require.InDelta(t, 100*50+250-1000, LineSubtotal(cycle, line), 0.0001)
}

func TestSummarize(t *testing.T) {
	cycle := &Cycle{
		ID:              7,
		GlobalWorkHours: fptr(160),
		OmnigoBonus:     500,
		EquipmentsUSD:   200,
		PagamentoPIX:    300,
		PagamentoInter:  100,
	}
	lines := []LineItem{
		{ID: 1, CycleID: 7, ConsultantID: 1, RatePerHour: 50},
		{ID: 2, CycleID: 7, ConsultantID: 2, RatePerHour: 40, WorkHours: fptr(80)},
		{ID: 3, CycleID: 7, ConsultantID: 3, RatePerHour: 60},
	}
	active := map[int64]bool{1: true, 2: true}

	summary := Summarize(cycle, lines, active)
	require.Equal(t, int64(7), summary.CycleID)
	require.Len(t, summary.Lines, 2)
	require.InDelta(t, 90, summary.TotalHourlyValue, 0.0001)
	require.InDelta(t, 90*160-(300+100)+(500+200), summary.USDTotal, 0.0001)
	require.Empty(t, summary.Anomalies)
}

func TestSummarizeAnomalies(t *testing.T) {
	cycle := &Cycle{ID: 9}
	lines := []LineItem{
		{ID: 1, CycleID: 9, ConsultantID: 1, RatePerHour: 0},
		{ID: 2, CycleID: 9, ConsultantID: 2, RatePerHour: 40, BonusAdvance: fptr(1000)},
	}
	active := map[int64]bool{1: true, 2: true}

	summary := Summarize(cycle, lines, active)

	kinds := make([]string, 0, len(summary.Anomalies))
	for _, a := range summary.Anomalies {
		kinds = append(kinds, a.Kind)
	}
	require.Contains(t, kinds, AnomalyMissingGlobalHours)
	require.Contains(t, kinds, AnomalyZeroRate)
	require.Contains(t, kinds, AnomalyBonusAdvanceDates)

	// Advisory only: totals still come back.
	require.Len(t, summary.Lines, 2)
}

func TestNextCarryover(t *testing.T) {
	require.Nil(t, NextCarryover(nil))

	balance := NextCarryover(&Cycle{
		PayoneerBalanceCarryover: fptr(1000),
		PayoneerBalanceApplied:   fptr(300),
	})
	require.NotNil(t, balance)
	require.InDelta(t, 700, *balance, 0.0001)

	// Unset halves count as zero, and a zero result is still a chained value.
	balance = NextCarryover(&Cycle{})
	require.NotNil(t, balance)
	require.InDelta(t, 0, *balance, 0.0001)
}
