package repository

import (
	"context"

	"github.com/prernathite123/SchoolManagement/internal/domain/entity"
)

// DepartmentSummary backs the department summary report.
type DepartmentSummary struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	TeacherCount int    `json:"teacherCount"`
	IsActive     bool   `json:"isActive"`
}

// DepartmentRepository defines persistence for departments.
type DepartmentRepository interface {
	Create(ctx context.Context, d *entity.Department) error
	List(ctx context.Context) ([]*entity.Department, error)
	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	Summaries(ctx context.Context) ([]DepartmentSummary, error)
}

// AcademicYearRepository defines persistence for academic years.
type AcademicYearRepository interface {
	Create(ctx context.Context, ay *entity.AcademicYear) error
	List(ctx context.Context) ([]*entity.AcademicYear, error)
	Current(ctx context.Context) (*entity.AcademicYear, error)
	// ClearCurrent unsets is_current on every year except the given one.
	ClearCurrent(ctx context.Context, exceptID string) error
	Count(ctx context.Context) (int64, error)
}

// ClassEnrollment backs the class enrollment report.
type ClassEnrollment struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Grade        string `json:"grade"`
	Section      string `json:"section"`
	StudentCount int    `json:"studentCount"`
	MaxStudents  int    `json:"maxStudents"`
}

// ClassRepository defines persistence for classes.
type ClassRepository interface {
	Create(ctx context.Context, cl *entity.Class) error
	List(ctx context.Context) ([]*entity.Class, error)
	Count(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	Enrollments(ctx context.Context) ([]ClassEnrollment, error)
}
