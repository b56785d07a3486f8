package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// GetOrInferBonusRecipient returns the cycle's bonus workflow, lazily
// creating it and filling the recipient by inference when none is stored.
// Inference is write-once: a stored recipient is never overridden, and the
// fill re-checks the stored value is still null at write time so a racing
// explicit set wins.
func (s *Service) GetOrInferBonusRecipient(ctx context.Context, cycleID int64) (*BonusWorkflow, error) {
	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	wf, err := s.repo.GetBonusWorkflow(ctx, cycleID)
	switch {
	case errors.Is(err, ErrNotFound):
		inferred, inferErr := s.inferRecipient(ctx, cycle)
		if inferErr != nil {
			return nil, inferErr
		}
		wf, err = s.repo.CreateBonusWorkflow(ctx, cycleID, inferred)
		if err != nil {
			return nil, err
		}
		if inferred != nil {
			s.logger.Info("bonus recipient inferred",
				slog.Int64("cycle_id", cycleID),
				slog.Int64("consultant_id", *inferred),
			)
		}
		return wf, nil
	case err != nil:
		return nil, err
	}

	if wf.RecipientConsultantID != nil {
		return wf, nil
	}

	inferred, err := s.inferRecipient(ctx, cycle)
	if err != nil {
		return nil, err
	}
	if inferred == nil {
		return wf, nil
	}

	wf, err = s.repo.FillInferredRecipient(ctx, cycleID, *inferred)
	if err != nil {
		return nil, err
	}
	s.logger.Info("bonus recipient inferred",
		slog.Int64("cycle_id", cycleID),
		slog.Int64("consultant_id", *inferred),
	)
	return wf, nil
}

// inferRecipient applies the two heuristics in strict precedence order:
// month matching first, line item dates second.
func (s *Service) inferRecipient(ctx context.Context, cycle *Cycle) (*int64, error) {
	if month, ok := monthTokenOf(cycle.MonthLabel); ok {
		bonusMonth := int(shiftMonth(month, s.bonusOffset))
		consultants, err := s.roster.ListActiveConsultants(ctx)
		if err != nil {
			return nil, fmt.Errorf("payroll: list active roster: %w", err)
		}

		var match *int64
		matches := 0
		for _, c := range consultants {
			if c.BonusMonth != nil && *c.BonusMonth == bonusMonth {
				id := c.ID
				match = &id
				matches++
			}
		}
		switch matches {
		case 1:
			return match, nil
		default:
			if matches > 1 {
				// Ambiguous month match: found candidates but selected
				// none, so the fallback heuristic stays off.
				return nil, nil
			}
		}
	}

	lines, err := s.repo.ListLineItems(ctx, cycle.ID)
	if err != nil {
		return nil, err
	}
	for _, line := range lines {
		if line.InformedDate != nil || line.BonusPaydate != nil {
			id := line.ConsultantID
			return &id, nil
		}
	}
	return nil, nil
}

// SetBonusRecipient stores an explicit recipient, bypassing inference. When
// the recipient changes, informed/paydate fields on every other consultant's
// line item are cleared in the same transaction, so only the designated
// recipient carries bonus dates.
func (s *Service) SetBonusRecipient(ctx context.Context, cycleID, consultantID int64) (*BonusWorkflow, error) {
	if _, err := s.repo.GetCycle(ctx, cycleID); err != nil {
		return nil, err
	}

	lines, err := s.repo.ListLineItems(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	found := false
	for _, line := range lines {
		if line.ConsultantID == consultantID {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrNoLineItem
	}

	wf, err := s.repo.SetRecipient(ctx, cycleID, consultantID)
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "bonus.set_recipient", cycleID, map[string]any{
		"consultantId": consultantID,
	})
	s.bumpCache(ctx)
	return wf, nil
}

// UpdateBonusWorkflow applies non-recipient workflow edits.
func (s *Service) UpdateBonusWorkflow(ctx context.Context, cycleID int64, update BonusWorkflowUpdate) (*BonusWorkflow, error) {
	return s.repo.UpdateBonusWorkflow(ctx, cycleID, update)
}

// GenerateAnnouncement renders the bonus announcement for the cycle's
// recipient and enqueues the outbound email. Without a stored or inferable
// recipient the request fails with ErrRecipientRequired.
func (s *Service) GenerateAnnouncement(ctx context.Context, cycleID int64) (*Announcement, error) {
	wf, err := s.GetOrInferBonusRecipient(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if wf.RecipientConsultantID == nil {
		return nil, ErrRecipientRequired
	}

	cycle, err := s.repo.GetCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	consultant, err := s.roster.GetConsultant(ctx, *wf.RecipientConsultantID)
	if err != nil {
		return nil, fmt.Errorf("payroll: load recipient: %w", err)
	}

	announcement := &Announcement{
		CycleID:      cycleID,
		ConsultantID: consultant.ID,
		Recipient:    consultant.Name,
		Subject:      fmt.Sprintf("Annual bonus for the %s cycle", cycle.MonthLabel),
		Body: fmt.Sprintf(
			"Hello %s,\n\nYour annual bonus tied to the %s payroll cycle has been scheduled. "+
				"It will be settled together with the upcoming transfer.\n\nVantage Payroll",
			consultant.Name, cycle.MonthLabel),
	}

	if s.mail != nil && consultant.Email != "" {
		if err := s.mail.EnqueueEmail(ctx, consultant.Email, announcement.Subject, announcement.Body); err != nil {
			s.logger.Warn("enqueue announcement email failed",
				slog.Int64("cycle_id", cycleID),
				slog.Any("error", err),
			)
		}
	}

	if err := s.repo.MarkAnnouncement(ctx, cycleID, s.now()); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "bonus.announce", cycleID, map[string]any{
		"consultantId": consultant.ID,
	})
	return announcement, nil
}
