package entity

import "time"

// Term is a named period inside an academic year.
type Term struct {
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	IsActive  bool      `json:"isActive"`
}

// AcademicYear is a school year in "YYYY-YYYY" form. At most one year is
// marked current; clearing the others is a service-layer step, not a
// storage trigger.
type AcademicYear struct {
	ID        string    `json:"id"`
	Year      string    `json:"year"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	IsCurrent bool      `json:"isCurrent"`
	IsActive  bool      `json:"isActive"`
	Terms     []Term    `json:"terms,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
