package payroll

import (
	"context"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vantage-payroll/vantage-payroll/internal/roster"
	"github.com/vantage-payroll/vantage-payroll/internal/shared"
)

type memoryRepo struct {
	cycles    map[int64]*Cycle
	lines     map[int64]*LineItem
	workflows map[int64]*BonusWorkflow
	order     []int64

	nextCycleID int64
	nextLineID  int64
	nextWFID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		cycles:    make(map[int64]*Cycle),
		lines:     make(map[int64]*LineItem),
		workflows: make(map[int64]*BonusWorkflow),
	}
}

func (r *memoryRepo) CreateCycle(ctx context.Context, data CreateCycleData) (*Cycle, []LineItem, error) {
	for _, c := range r.cycles {
		if c.ArchivedAt == nil && c.MonthLabel == data.MonthLabel {
			return nil, nil, ErrDuplicateCycle
		}
	}

	var predecessor *Cycle
	for i := len(r.order) - 1; i >= 0; i-- {
		if c := r.cycles[r.order[i]]; c.ArchivedAt == nil {
			predecessor = c
			break
		}
	}

	r.nextCycleID++
	now := time.Now()
	cycle := &Cycle{
		ID:                       r.nextCycleID,
		MonthLabel:               data.MonthLabel,
		GlobalWorkHours:          data.GlobalWorkHours,
		OmnigoBonus:              data.OmnigoBonus,
		InvoiceBonus:             data.InvoiceBonus,
		PayoneerBalanceCarryover: NextCarryover(predecessor),
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	r.cycles[cycle.ID] = cycle
	r.order = append(r.order, cycle.ID)

	items := make([]LineItem, 0, len(data.Lines))
	for _, seed := range data.Lines {
		r.nextLineID++
		line := &LineItem{
			ID:           r.nextLineID,
			CycleID:      cycle.ID,
			ConsultantID: seed.ConsultantID,
			RatePerHour:  seed.RatePerHour,
			BonusAdvance: seed.BonusAdvance,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		r.lines[line.ID] = line
		items = append(items, *line)
	}

	copied := *cycle
	return &copied, items, nil
}

func (r *memoryRepo) GetCycle(ctx context.Context, id int64) (*Cycle, error) {
	cycle, ok := r.cycles[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *cycle
	return &copied, nil
}

func (r *memoryRepo) ListActiveCycles(ctx context.Context) ([]Cycle, error) {
	var result []Cycle
	for i := len(r.order) - 1; i >= 0; i-- {
		if c := r.cycles[r.order[i]]; c.ArchivedAt == nil {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (r *memoryRepo) ListLineItems(ctx context.Context, cycleID int64) ([]LineItem, error) {
	var result []LineItem
	for _, line := range r.lines {
		if line.CycleID == cycleID {
			result = append(result, *line)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *memoryRepo) UpdateCycle(ctx context.Context, id int64, update CycleUpdate) (*Cycle, error) {
	cycle, ok := r.cycles[id]
	if !ok {
		return nil, ErrNotFound
	}
	if cycle.ArchivedAt != nil {
		return nil, ErrAlreadyArchived
	}
	if update.GlobalWorkHours != nil {
		cycle.GlobalWorkHours = update.GlobalWorkHours
	}
	if update.OmnigoBonus != nil {
		cycle.OmnigoBonus = *update.OmnigoBonus
	}
	if update.EquipmentsUSD != nil {
		cycle.EquipmentsUSD = *update.EquipmentsUSD
	}
	if update.PagamentoPIX != nil {
		cycle.PagamentoPIX = *update.PagamentoPIX
	}
	if update.PagamentoInter != nil {
		cycle.PagamentoInter = *update.PagamentoInter
	}
	if update.InvoiceBonus != nil {
		cycle.InvoiceBonus = *update.InvoiceBonus
	}
	if update.PayoneerBalanceApplied != nil {
		cycle.PayoneerBalanceApplied = update.PayoneerBalanceApplied
	}
	cycle.UpdatedAt = time.Now()
	copied := *cycle
	return &copied, nil
}

func (r *memoryRepo) UpdateLineItem(ctx context.Context, lineItemID int64, update LineItemUpdate) (*LineItem, error) {
	line, ok := r.lines[lineItemID]
	if !ok {
		return nil, ErrNotFound
	}
	if cycle, ok := r.cycles[line.CycleID]; ok && cycle.ArchivedAt != nil {
		return nil, ErrAlreadyArchived
	}
	if update.WorkHours != nil {
		line.WorkHours = update.WorkHours
	}
	if update.AdjustmentValue != nil {
		line.AdjustmentValue = update.AdjustmentValue
	}
	if update.BonusAdvance != nil {
		line.BonusAdvance = update.BonusAdvance
	}
	if update.InformedDate != nil {
		line.InformedDate = update.InformedDate
	}
	if update.BonusPaydate != nil {
		line.BonusPaydate = update.BonusPaydate
	}
	line.UpdatedAt = time.Now()
	copied := *line
	return &copied, nil
}

func (r *memoryRepo) ArchiveCycle(ctx context.Context, id int64, at time.Time) error {
	cycle, ok := r.cycles[id]
	if !ok {
		return ErrNotFound
	}
	if cycle.ArchivedAt != nil {
		return ErrAlreadyArchived
	}
	cycle.ArchivedAt = &at
	cycle.UpdatedAt = at
	return nil
}

func (r *memoryRepo) StampPaymentDate(ctx context.Context, id int64, at time.Time) error {
	cycle, ok := r.cycles[id]
	if !ok {
		return ErrNotFound
	}
	cycle.CalculatedPaymentDate = &at
	return nil
}

func (r *memoryRepo) GetBonusWorkflow(ctx context.Context, cycleID int64) (*BonusWorkflow, error) {
	wf, ok := r.workflows[cycleID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *wf
	return &copied, nil
}

func (r *memoryRepo) CreateBonusWorkflow(ctx context.Context, cycleID int64, recipientID *int64) (*BonusWorkflow, error) {
	if wf, ok := r.workflows[cycleID]; ok {
		copied := *wf
		return &copied, nil
	}
	r.nextWFID++
	now := time.Now()
	wf := &BonusWorkflow{
		ID:                    r.nextWFID,
		CycleID:               cycleID,
		RecipientConsultantID: recipientID,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	r.workflows[cycleID] = wf
	copied := *wf
	return &copied, nil
}

func (r *memoryRepo) FillInferredRecipient(ctx context.Context, cycleID, consultantID int64) (*BonusWorkflow, error) {
	wf, ok := r.workflows[cycleID]
	if !ok {
		return nil, ErrNotFound
	}
	if wf.RecipientConsultantID == nil {
		id := consultantID
		wf.RecipientConsultantID = &id
		wf.UpdatedAt = time.Now()
	}
	copied := *wf
	return &copied, nil
}

func (r *memoryRepo) SetRecipient(ctx context.Context, cycleID, consultantID int64) (*BonusWorkflow, error) {
	wf, ok := r.workflows[cycleID]
	if !ok {
		r.nextWFID++
		wf = &BonusWorkflow{ID: r.nextWFID, CycleID: cycleID, CreatedAt: time.Now()}
		r.workflows[cycleID] = wf
	}
	id := consultantID
	wf.RecipientConsultantID = &id
	wf.UpdatedAt = time.Now()

	for _, line := range r.lines {
		if line.CycleID == cycleID && line.ConsultantID != consultantID {
			line.InformedDate = nil
			line.BonusPaydate = nil
		}
	}

	copied := *wf
	return &copied, nil
}

func (r *memoryRepo) UpdateBonusWorkflow(ctx context.Context, cycleID int64, update BonusWorkflowUpdate) (*BonusWorkflow, error) {
	wf, ok := r.workflows[cycleID]
	if !ok {
		return nil, ErrNotFound
	}
	if update.PaidWithPayroll != nil {
		wf.PaidWithPayroll = *update.PaidWithPayroll
	}
	if update.BonusPaymentDate != nil {
		wf.BonusPaymentDate = update.BonusPaymentDate
	}
	wf.UpdatedAt = time.Now()
	copied := *wf
	return &copied, nil
}

func (r *memoryRepo) MarkAnnouncement(ctx context.Context, cycleID int64, at time.Time) error {
	wf, ok := r.workflows[cycleID]
	if !ok {
		return ErrNotFound
	}
	wf.AnnouncementDate = &at
	wf.EmailGenerated = true
	wf.UpdatedAt = at
	return nil
}

type fakeRoster struct {
	consultants []roster.Consultant
}

func (f *fakeRoster) ListActiveConsultants(ctx context.Context) ([]roster.Consultant, error) {
	var active []roster.Consultant
	for _, c := range f.consultants {
		if c.Active() {
			active = append(active, c)
		}
	}
	return active, nil
}

func (f *fakeRoster) GetConsultant(ctx context.Context, id int64) (*roster.Consultant, error) {
	for _, c := range f.consultants {
		if c.ID == id {
			copied := c
			return &copied, nil
		}
	}
	return nil, roster.ErrNotFound
}

type fakeWorkHours struct {
	hours   float64
	fromRef bool
	year    int
	month   time.Month
}

func (f *fakeWorkHours) HoursFor(ctx context.Context, year int, month time.Month) (float64, bool, error) {
	f.year = year
	f.month = month
	return f.hours, f.fromRef, nil
}

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) EnqueueEmail(ctx context.Context, to, subject, body string) error {
	f.sent = append(f.sent, to)
	return nil
}

type fakeAudit struct {
	actions []string
}

func (f *fakeAudit) Record(ctx context.Context, log shared.AuditLog) error {
	f.actions = append(f.actions, log.Action)
	return nil
}

func fptr(v float64) *float64 { return &v }

func iptr(v int) *int { return &v }

func testRoster() *fakeRoster {
	return &fakeRoster{consultants: []roster.Consultant{
		{ID: 1, Name: "Alice", Email: "alice@example.com", HourlyRate: 50},
		{ID: 2, Name: "Bob", Email: "bob@example.com", HourlyRate: 40, YearlyBonus: fptr(1200), BonusMonth: iptr(12)},
	}}
}

func TestCreateCycleSnapshotsRoster(t *testing.T) {
	repo := newMemoryRepo()
	people := testRoster()
	svc := NewService(repo, people, &fakeWorkHours{}, nil, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	cycle, lines, err := svc.CreateCycle(ctx, CreateCycleInput{MonthLabel: "october 2025", GlobalWorkHours: fptr(160)})
	require.NoError(t, err)
	require.Equal(t, "October 2025", cycle.MonthLabel)
	require.Nil(t, cycle.PayoneerBalanceCarryover)
	require.Len(t, lines, 2)
	require.InDelta(t, 50, lines[0].RatePerHour, 0.0001)
	require.InDelta(t, 40, lines[1].RatePerHour, 0.0001)
	require.NotNil(t, lines[1].BonusAdvance)
	require.InDelta(t, 1200, *lines[1].BonusAdvance, 0.0001)

	// Later roster edits never touch the stored snapshot.
	people.consultants[0].HourlyRate = 90
	stored, err := svc.ListLineItems(ctx, cycle.ID)
	require.NoError(t, err)
	require.InDelta(t, 50, stored[0].RatePerHour, 0.0001)
}

func TestCreateCycleDuplicateLabel(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testRoster(), &fakeWorkHours{}, nil, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	first, _, err := svc.CreateCycle(ctx, CreateCycleInput{MonthLabel: "October 2025"})
	require.NoError(t, err)

	_, _, err = svc.CreateCycle(ctx, CreateCycleInput{MonthLabel: "October 2025"})
	require.ErrorIs(t, err, ErrDuplicateCycle)

	// Archiving the conflicting cycle frees the label.
	require.NoError(t, svc.ArchiveCycle(ctx, first.ID))
	_, _, err = svc.CreateCycle(ctx, CreateCycleInput{MonthLabel: "October 2025"})
	require.NoError(t, err)
}

func TestCreateCycleEmptyRoster(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &fakeRoster{}, &fakeWorkHours{}, nil, nil, nil, nil, ServiceConfig{})

	_, _, err := svc.CreateCycle(context.Background(), CreateCycleInput{MonthLabel: "October 2025"})
	require.ErrorIs(t, err, ErrEmptyRoster)
}

func TestCreateCycleChainsCarryover(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testRoster(), &fakeWorkHours{}, nil, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	first, _, err := svc.CreateCycle(ctx, CreateCycleInput{MonthLabel: "October 2025"})
	require.NoError(t, err)
	require.Nil(t, first.PayoneerBalanceCarryover)

	repo.cycles[first.ID].PayoneerBalanceCarryover = fptr(1000)
	_, err = svc.UpdateCycle(ctx, first.ID, CycleUpdate{PayoneerBalanceApplied: fptr(300)})
	require.NoError(t, err)

	second, _, err := svc.CreateCycle(ctx, CreateCycleInput{MonthLabel: "November 2025"})
	require.NoError(t, err)
	require.NotNil(t, second.PayoneerBalanceCarryover)
	require.InDelta(t, 700, *second.PayoneerBalanceCarryover, 0.0001)
}

func TestCreateCycleRejectsNonFinite(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testRoster(), &fakeWorkHours{}, nil, nil, nil, nil, ServiceConfig{})

	_, _, err := svc.CreateCycle(context.Background(), CreateCycleInput{
		MonthLabel:      "October 2025",
		GlobalWorkHours: fptr(math.NaN()),
	})
	require.ErrorIs(t, err, ErrNonFiniteValue)

	_, _, err = svc.CreateCycle(context.Background(), CreateCycleInput{
		MonthLabel:  "October 2025",
		OmnigoBonus: fptr(math.Inf(1)),
	})
	require.ErrorIs(t, err, ErrNonFiniteValue)
}

func TestUpdateCycleRejectsNonFinite(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testRoster(), &fakeWorkHours{}, nil, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	cycle, _, err := svc.CreateCycle(ctx, CreateCycleInput{MonthLabel: "October 2025"})
	require.NoError(t, err)

	_, err = svc.UpdateCycle(ctx, cycle.ID, CycleUpdate{PagamentoPIX: fptr(math.Inf(-1))})
	require.ErrorIs(t, err, ErrNonFiniteValue)
}

func TestArchiveCycleIsTerminal(t *testing.T) {
	repo := newMemoryRepo()
	audit := &fakeAudit{}
	svc := NewService(repo, testRoster(), &fakeWorkHours{}, nil, audit, nil, nil, ServiceConfig{})
	ctx := context.Background()

	cycle, _, err := svc.CreateCycle(ctx, CreateCycleInput{MonthLabel: "October 2025"})
	require.NoError(t, err)

	require.NoError(t, svc.ArchiveCycle(ctx, cycle.ID))
	require.ErrorIs(t, svc.ArchiveCycle(ctx, cycle.ID), ErrAlreadyArchived)

	_, err = svc.UpdateCycle(ctx, cycle.ID, CycleUpdate{OmnigoBonus: fptr(10)})
	require.ErrorIs(t, err, ErrAlreadyArchived)

	lines, err := svc.ListLineItems(ctx, cycle.ID)
	require.NoError(t, err)
	_, err = svc.UpdateLineItem(ctx, lines[0].ID, LineItemUpdate{WorkHours: fptr(100)})
	require.ErrorIs(t, err, ErrAlreadyArchived)

	require.Contains(t, audit.actions, "cycle.create")
	require.Contains(t, audit.actions, "cycle.archive")
}

func TestGetCycleSummaryExcludesInactiveConsultants(t *testing.T) {
	repo := newMemoryRepo()
	people := testRoster()
	svc := NewService(repo, people, &fakeWorkHours{}, nil, nil, nil, nil, ServiceConfig{})
	ctx := context.Background()

	cycle, _, err := svc.CreateCycle(ctx, CreateCycleInput{MonthLabel: "October 2025", GlobalWorkHours: fptr(160)})
	require.NoError(t, err)

	terminated := time.Now()
	people.consultants[1].TerminationDate = &terminated

	summary, err := svc.GetCycleSummary(ctx, cycle.ID)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 1)
	require.Equal(t, int64(1), summary.Lines[0].ConsultantID)
	require.InDelta(t, 50, summary.TotalHourlyValue, 0.0001)
	require.InDelta(t, 50*160, summary.USDTotal, 0.0001)
}

func TestGetCycleSummaryNotFound(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, testRoster(), &fakeWorkHours{}, nil, nil, nil, nil, ServiceConfig{})

	_, err := svc.GetCycleSummary(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
}
