package payroll

import "fmt"

// LineSubtotal computes one line's contribution:
// (workHours ?? cycle.globalWorkHours ?? 0) * ratePerHour + adjustment - bonusAdvance.
func LineSubtotal(cycle *Cycle, line LineItem) float64 {
	hours := 0.0
	switch {
	case line.WorkHours != nil:
		hours = *line.WorkHours
	case cycle.GlobalWorkHours != nil:
		hours = *cycle.GlobalWorkHours
	}
	return hours*line.RatePerHour + deref(line.AdjustmentValue) - deref(line.BonusAdvance)
}

// Summarize folds a cycle and its line items into totals. Lines belonging to
// consultants no longer on the active roster are excluded from totals even
// though their historical rows remain stored. Anomalies are advisory only.
func Summarize(cycle *Cycle, lines []LineItem, activeConsultants map[int64]bool) CycleSummary {
	summary := CycleSummary{
		CycleID:   cycle.ID,
		Lines:     make([]LineTotal, 0, len(lines)),
		Anomalies: []Anomaly{},
	}

	if cycle.GlobalWorkHours == nil {
		summary.Anomalies = append(summary.Anomalies, Anomaly{
			Kind:   AnomalyMissingGlobalHours,
			Detail: "cycle has no global work hours; lines without an override count as zero hours",
		})
	}

	for _, line := range lines {
		if !activeConsultants[line.ConsultantID] {
			continue
		}

		hours := 0.0
		switch {
		case line.WorkHours != nil:
			hours = *line.WorkHours
		case cycle.GlobalWorkHours != nil:
			hours = *cycle.GlobalWorkHours
		}

		summary.TotalHourlyValue += line.RatePerHour
		summary.Lines = append(summary.Lines, LineTotal{
			LineItemID:   line.ID,
			ConsultantID: line.ConsultantID,
			RatePerHour:  line.RatePerHour,
			WorkHours:    hours,
			Subtotal:     LineSubtotal(cycle, line),
		})

		if line.RatePerHour == 0 {
			summary.Anomalies = append(summary.Anomalies, Anomaly{
				Kind:         AnomalyZeroRate,
				ConsultantID: line.ConsultantID,
				Detail:       fmt.Sprintf("line item %d carries a zero hourly rate", line.ID),
			})
		}
		if line.BonusAdvance != nil && (line.BonusPaydate == nil || line.InformedDate == nil) {
			summary.Anomalies = append(summary.Anomalies, Anomaly{
				Kind:         AnomalyBonusAdvanceDates,
				ConsultantID: line.ConsultantID,
				Detail:       fmt.Sprintf("line item %d has a bonus advance without paydate or informed date", line.ID),
			})
		}
	}

	summary.USDTotal = summary.TotalHourlyValue*deref(cycle.GlobalWorkHours) -
		(cycle.PagamentoPIX + cycle.PagamentoInter) +
		(cycle.OmnigoBonus + cycle.EquipmentsUSD)

	return summary
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
