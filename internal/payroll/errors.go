package payroll

import "errors"

var (
	// ErrNotFound indicates the cycle, line item or workflow does not exist.
	ErrNotFound = errors.New("payroll: not found")
	// ErrDuplicateCycle indicates an active cycle already holds the label.
	ErrDuplicateCycle = errors.New("payroll: an active cycle already exists for this month label; an archived cycle may also carry it, and the label can only be reused after archiving the conflicting active cycle")
	// ErrEmptyRoster indicates no active consultants exist at creation time.
	ErrEmptyRoster = errors.New("payroll: no active consultants on the roster; a cycle without line items is not created")
	// ErrInvalidMonthLabel indicates a label month arithmetic cannot parse.
	ErrInvalidMonthLabel = errors.New("payroll: month label must be in '<MonthName> <FourDigitYear>' form")
	// ErrAlreadyArchived indicates a write against a terminal cycle.
	ErrAlreadyArchived = errors.New("payroll: cycle is already archived")
	// ErrRecipientRequired indicates content generation without a recipient.
	ErrRecipientRequired = errors.New("payroll: no bonus recipient is set or resolvable for this cycle")
	// ErrNonFiniteValue indicates a NaN or infinite monetary/hours value.
	ErrNonFiniteValue = errors.New("payroll: monetary and hour values must be finite")
	// ErrNoLineItem indicates the consultant has no line item in the cycle.
	ErrNoLineItem = errors.New("payroll: consultant has no line item in this cycle")
)
