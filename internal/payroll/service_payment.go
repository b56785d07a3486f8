package payroll

import (
	"context"
	"fmt"
	"log/slog"
)

// CalculatePayment produces the cross-month payment instruction: the cycle
// labels the preparation month, the transfer happens the following calendar
// month, so the work-hours figure comes from that next month. The stored
// cycle is untouched apart from the calculated-payment timestamp.
func (s *Service) CalculatePayment(ctx context.Context, cycleID int64, opts PaymentOptions) (*PaymentResult, error) {
	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	year, month, err := ParseMonthLabel(cycle.MonthLabel)
	if err != nil {
		return nil, err
	}
	payYear, payMonth := nextMonth(year, month)

	payHours, fromRef, err := s.workhours.HoursFor(ctx, payYear, payMonth)
	if err != nil {
		return nil, fmt.Errorf("payroll: payment work hours: %w", err)
	}

	lines, err := s.repo.ListLineItems(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	active, err := s.activeConsultantSet(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	result := &PaymentResult{
		CycleID:                cycle.ID,
		PaymentYear:            payYear,
		PaymentMonth:           payMonth,
		PaymentWorkHours:       payHours,
		WorkHoursFromReference: fromRef,
		EquipmentsUSD:          cycle.EquipmentsUSD,
		PayoneerBalanceApplied: deref(cycle.PayoneerBalanceApplied),
		CalculatedAt:           now,
	}
	if !opts.NoBonus {
		result.OmnigoBonus = cycle.OmnigoBonus
	}

	totalHourlyValue := 0.0
	for _, line := range lines {
		if !active[line.ConsultantID] {
			continue
		}
		base := payHours * line.RatePerHour
		subtotal := base + deref(line.AdjustmentValue) - deref(line.BonusAdvance)
		result.Lines = append(result.Lines, PaymentLine{
			LineItemID:   line.ID,
			ConsultantID: line.ConsultantID,
			RatePerHour:  line.RatePerHour,
			BaseAmount:   base,
			Adjustment:   deref(line.AdjustmentValue),
			BonusAdvance: deref(line.BonusAdvance),
			Subtotal:     subtotal,
		})
		result.TotalConsultantPayments += subtotal
		totalHourlyValue += line.RatePerHour
	}

	result.TotalTransferAmount = result.TotalConsultantPayments +
		result.OmnigoBonus + result.EquipmentsUSD - result.PayoneerBalanceApplied

	// Payment-month view of the cycle total, using next month's hours in
	// place of the cycle's own global figure.
	result.USDTotal = totalHourlyValue*payHours -
		(cycle.PagamentoPIX + cycle.PagamentoInter) +
		(result.OmnigoBonus + cycle.EquipmentsUSD)

	if err := s.repo.StampPaymentDate(ctx, cycleID, now); err != nil {
		return nil, err
	}
	s.bumpCache(ctx)

	s.logger.Info("payment calculated",
		slog.Int64("cycle_id", cycleID),
		slog.Int("payment_year", payYear),
		slog.String("payment_month", payMonth.String()),
		slog.Float64("total_transfer", result.TotalTransferAmount),
		slog.Bool("no_bonus", opts.NoBonus),
	)
	return result, nil
}
