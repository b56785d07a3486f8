package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/vantage-payroll/vantage-payroll/internal/payroll"
	"github.com/vantage-payroll/vantage-payroll/internal/roster"
)

// CycleSource reads payroll cycles for the sweep.
type CycleSource interface {
	ListActiveCycles(ctx context.Context) ([]payroll.Cycle, error)
	ListLineItems(ctx context.Context, cycleID int64) ([]payroll.LineItem, error)
}

// RosterSource reads the active roster for the sweep.
type RosterSource interface {
	ListActive(ctx context.Context) ([]roster.Consultant, error)
}

// AnomalyScanJob sweeps active cycles and logs advisory anomalies so they
// surface in operations tooling without blocking any payroll workflow.
type AnomalyScanJob struct {
	Cycles CycleSource
	Roster RosterSource
	Logger *slog.Logger
	clock  func() time.Time
}

// NewAnomalyScanJob initialises the anomaly scan handler.
func NewAnomalyScanJob(cycles CycleSource, rosterSource RosterSource, logger *slog.Logger) *AnomalyScanJob {
	return &AnomalyScanJob{
		Cycles: cycles,
		Roster: rosterSource,
		Logger: logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the anomaly scan logic.
func (j *AnomalyScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cycles == nil || j.Roster == nil {
		return errors.New("anomaly scan: handler not configured")
	}
	var payload AnomalyScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.clock()
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("starting payroll anomaly scan")

	cycles, err := j.Cycles.ListActiveCycles(ctx)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return err
	}
	if payload.MaxCycles > 0 && len(cycles) > payload.MaxCycles {
		cycles = cycles[:payload.MaxCycles]
	}

	consultants, err := j.Roster.ListActive(ctx)
	if err != nil {
		logger.Error("scan failed", slog.Any("error", err))
		return err
	}
	active := make(map[int64]bool, len(consultants))
	for _, c := range consultants {
		active[c.ID] = true
	}

	total := 0
	for _, cycle := range cycles {
		lines, err := j.Cycles.ListLineItems(ctx, cycle.ID)
		if err != nil {
			logger.Error("scan failed",
				slog.Int64("cycle_id", cycle.ID),
				slog.Any("error", err),
			)
			return err
		}
		summary := payroll.Summarize(&cycle, lines, active)
		for _, anomaly := range summary.Anomalies {
			logger.Warn("payroll anomaly detected",
				slog.Int64("cycle_id", cycle.ID),
				slog.String("month_label", cycle.MonthLabel),
				slog.String("kind", anomaly.Kind),
				slog.Int64("consultant_id", anomaly.ConsultantID),
				slog.String("detail", anomaly.Detail),
			)
		}
		total += len(summary.Anomalies)
	}

	logger.Info("completed payroll anomaly scan",
		slog.Int("cycles", len(cycles)),
		slog.Int("anomalies", total),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
