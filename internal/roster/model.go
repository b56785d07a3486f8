package roster

import "time"

// Consultant is a member of the billing roster. A consultant is active while
// TerminationDate is unset; terminated consultants stay on record for history.
type Consultant struct {
	ID              int64
	Name            string
	Email           string
	HourlyRate      float64
	YearlyBonus     *float64
	BonusMonth      *int
	TerminationDate *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Active reports whether the consultant is still on the roster.
func (c Consultant) Active() bool {
	return c.TerminationDate == nil
}

// ConsultantInput for creating consultants.
type ConsultantInput struct {
	Name        string
	Email       string
	HourlyRate  float64
	YearlyBonus *float64
	BonusMonth  *int
}

// ConsultantUpdate carries optional field changes; nil means leave as is.
type ConsultantUpdate struct {
	Name        *string
	Email       *string
	HourlyRate  *float64
	YearlyBonus *float64
	BonusMonth  *int
}
