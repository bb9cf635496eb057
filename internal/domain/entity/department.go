package entity

import "time"

// Department groups teachers under a head of department.
// Name and code are unique; code is stored uppercase.
type Department struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Code            string     `json:"code"`
	Description     string     `json:"description,omitempty"`
	HeadID          string     `json:"headId,omitempty"`
	TeacherIDs      []string   `json:"teacherIds,omitempty"`
	IsActive        bool       `json:"isActive"`
	EstablishedDate *time.Time `json:"establishedDate,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}
