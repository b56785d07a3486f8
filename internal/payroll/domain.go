package payroll

import "time"

// Cycle is one month's payroll preparation period. Rates are snapshotted into
// line items when the cycle is created; archived cycles are terminal and
// frozen.
type Cycle struct {
	ID              int64
	MonthLabel      string
	GlobalWorkHours *float64

	OmnigoBonus    float64
	EquipmentsUSD  float64
	PagamentoPIX   float64
	PagamentoInter float64
	InvoiceBonus   float64

	PayoneerBalanceCarryover *float64
	PayoneerBalanceApplied   *float64

	CalculatedPaymentDate *time.Time
	ArchivedAt            *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Archived reports whether the cycle reached its terminal state.
func (c *Cycle) Archived() bool {
	return c.ArchivedAt != nil
}

// LineItem is the per-consultant record within a cycle. RatePerHour is a
// snapshot taken at cycle creation and never re-synced from the roster.
type LineItem struct {
	ID           int64
	CycleID      int64
	ConsultantID int64

	RatePerHour     float64
	WorkHours       *float64
	AdjustmentValue *float64
	BonusAdvance    *float64
	InformedDate    *time.Time
	BonusPaydate    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BonusWorkflow tracks the annual bonus handling for one cycle. At most one
// workflow exists per cycle; the recipient stays unset until inferred or
// chosen explicitly.
type BonusWorkflow struct {
	ID                    int64
	CycleID               int64
	RecipientConsultantID *int64
	AnnouncementDate      *time.Time
	EmailGenerated        bool
	PaidWithPayroll       bool
	BonusPaymentDate      *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// CreateCycleInput carries creation parameters for a new cycle.
type CreateCycleInput struct {
	MonthLabel      string
	GlobalWorkHours *float64
	OmnigoBonus     *float64
	InvoiceBonus    *float64
}

// CycleUpdate carries optional cycle field changes; nil means leave as is.
// The carryover opening balance is computed by chaining and is not editable.
type CycleUpdate struct {
	GlobalWorkHours        *float64
	OmnigoBonus            *float64
	EquipmentsUSD          *float64
	PagamentoPIX           *float64
	PagamentoInter         *float64
	InvoiceBonus           *float64
	PayoneerBalanceApplied *float64
}

// LineItemUpdate carries optional line item field changes. RatePerHour is
// deliberately absent: the snapshot is immutable.
type LineItemUpdate struct {
	WorkHours       *float64
	AdjustmentValue *float64
	BonusAdvance    *float64
	InformedDate    *time.Time
	BonusPaydate    *time.Time
}

// BonusWorkflowUpdate carries optional workflow field changes other than the
// recipient, which has its own guarded paths.
type BonusWorkflowUpdate struct {
	PaidWithPayroll  *bool
	BonusPaymentDate *time.Time
}

// Anomaly is an advisory diagnostic surfaced alongside totals. Anomalies
// never block reads or writes.
type Anomaly struct {
	Kind         string `json:"kind"`
	ConsultantID int64  `json:"consultantId,omitempty"`
	Detail       string `json:"detail"`
}

// Anomaly kinds reported by Summarize.
const (
	AnomalyZeroRate           = "zero_rate"
	AnomalyBonusAdvanceDates  = "bonus_advance_dates"
	AnomalyMissingGlobalHours = "missing_global_work_hours"
)

// LineTotal is one consultant's computed share within a summary.
type LineTotal struct {
	LineItemID   int64   `json:"lineItemId"`
	ConsultantID int64   `json:"consultantId"`
	RatePerHour  float64 `json:"ratePerHour"`
	WorkHours    float64 `json:"workHours"`
	Subtotal     float64 `json:"subtotal"`
}

// CycleSummary aggregates a cycle's totals over active-consultant lines.
type CycleSummary struct {
	CycleID          int64       `json:"cycleId"`
	TotalHourlyValue float64     `json:"totalHourlyValue"`
	USDTotal         float64     `json:"usdTotal"`
	Lines            []LineTotal `json:"lines"`
	Anomalies        []Anomaly   `json:"anomalies"`
}

// PaymentLine is one consultant's payment instruction entry.
type PaymentLine struct {
	LineItemID   int64   `json:"lineItemId"`
	ConsultantID int64   `json:"consultantId"`
	RatePerHour  float64 `json:"ratePerHour"`
	BaseAmount   float64 `json:"baseAmount"`
	Adjustment   float64 `json:"adjustment"`
	BonusAdvance float64 `json:"bonusAdvance"`
	Subtotal     float64 `json:"subtotal"`
}

// PaymentResult is the cross-month payment instruction: the cycle describes
// preparation work and the transfer happens in the following month.
type PaymentResult struct {
	CycleID                 int64         `json:"cycleId"`
	PaymentYear             int           `json:"paymentYear"`
	PaymentMonth            time.Month    `json:"paymentMonth"`
	PaymentWorkHours        float64       `json:"paymentWorkHours"`
	WorkHoursFromReference  bool          `json:"workHoursFromReference"`
	Lines                   []PaymentLine `json:"lines"`
	TotalConsultantPayments float64       `json:"totalConsultantPayments"`
	OmnigoBonus             float64       `json:"omnigoBonus"`
	EquipmentsUSD           float64       `json:"equipmentsUSD"`
	PayoneerBalanceApplied  float64       `json:"payoneerBalanceApplied"`
	TotalTransferAmount     float64       `json:"totalTransferAmount"`
	USDTotal                float64       `json:"usdTotal"`
	CalculatedAt            time.Time     `json:"calculatedAt"`
}

// PaymentOptions tweaks a payment calculation without mutating stored values.
type PaymentOptions struct {
	// NoBonus forces OmnigoBonus to zero for this computation only.
	NoBonus bool
}

// Announcement is the generated bonus announcement content.
type Announcement struct {
	CycleID      int64  `json:"cycleId"`
	ConsultantID int64  `json:"consultantId"`
	Recipient    string `json:"recipient"`
	Subject      string `json:"subject"`
	Body         string `json:"body"`
}
