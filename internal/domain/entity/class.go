package entity

import "time"

// Subject is a taught subject within a class.
type Subject struct {
	Name         string `json:"name"`
	TeacherID    string `json:"teacherId,omitempty"`
	DepartmentID string `json:"departmentId,omitempty"`
}

// Class is a grade/section pair within an academic year.
// (grade, section, academic year) is unique.
type Class struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Grade          string    `json:"grade"`
	Section        string    `json:"section"`
	AcademicYearID string    `json:"academicYearId"`
	ClassTeacherID string    `json:"classTeacherId,omitempty"`
	StudentIDs     []string  `json:"studentIds,omitempty"`
	Subjects       []Subject `json:"subjects,omitempty"`
	MaxStudents    int       `json:"maxStudents"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// StudentCount is the current enrollment.
func (c *Class) StudentCount() int { return len(c.StudentIDs) }
