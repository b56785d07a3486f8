package workhours

import "time"

// Reference is the configured working-time row for one calendar month.
type Reference struct {
	Year      int
	Month     int
	Weekdays  int
	WorkHours float64
	UpdatedAt time.Time
}

// ReferenceInput for importing reference rows.
type ReferenceInput struct {
	Year      int
	Month     int
	Weekdays  int
	WorkHours float64
}
