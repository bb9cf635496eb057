package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prernathite123/SchoolManagement/internal/domain/entity"
	"github.com/prernathite123/SchoolManagement/internal/domain/repository"
)

type DepartmentRepository struct {
	pool *pgxpool.Pool
}

func NewDepartmentRepository(pool *pgxpool.Pool) *DepartmentRepository {
	return &DepartmentRepository{pool: pool}
}

// textArray keeps nil Go slices out of TEXT[] NOT NULL columns: pgx
// encodes a nil []string as SQL NULL, which would bypass the '{}' default.
func textArray(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func (r *DepartmentRepository) Create(ctx context.Context, d *entity.Department) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO departments (name, code, description, head_id, teacher_ids, is_active, established_date)
		VALUES ($1, upper($2), $3, $4, $5, $6, $7)
		RETURNING id, code, created_at, updated_at
	`, d.Name, d.Code, d.Description, nullable(d.HeadID), textArray(d.TeacherIDs), d.IsActive, d.EstablishedDate)
	if err := row.Scan(&d.ID, &d.Code, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *DepartmentRepository) List(ctx context.Context) ([]*entity.Department, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, code, description, head_id, teacher_ids, is_active, established_date, created_at, updated_at
		FROM departments ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Department
	for rows.Next() {
		d := &entity.Department{}
		var headID *string
		if err := rows.Scan(&d.ID, &d.Name, &d.Code, &d.Description, &headID,
			&d.TeacherIDs, &d.IsActive, &d.EstablishedDate, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.HeadID = deref(headID)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DepartmentRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM departments`).Scan(&n)
	return n, err
}

func (r *DepartmentRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM departments WHERE is_active`).Scan(&n)
	return n, err
}

func (r *DepartmentRepository) Summaries(ctx context.Context) ([]repository.DepartmentSummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, code, cardinality(teacher_ids), is_active
		FROM departments ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.DepartmentSummary
	for rows.Next() {
		var s repository.DepartmentSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Code, &s.TeacherCount, &s.IsActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

var _ repository.DepartmentRepository = (*DepartmentRepository)(nil)

type AcademicYearRepository struct {
	pool *pgxpool.Pool
}

func NewAcademicYearRepository(pool *pgxpool.Pool) *AcademicYearRepository {
	return &AcademicYearRepository{pool: pool}
}

func (r *AcademicYearRepository) Create(ctx context.Context, ay *entity.AcademicYear) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO academic_years (year, start_date, end_date, is_current, is_active, terms)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, ay.Year, ay.StartDate, ay.EndDate, ay.IsCurrent, ay.IsActive, ay.Terms)
	if err := row.Scan(&ay.ID, &ay.CreatedAt, &ay.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *AcademicYearRepository) List(ctx context.Context) ([]*entity.AcademicYear, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, year, start_date, end_date, is_current, is_active, terms, created_at, updated_at
		FROM academic_years ORDER BY year DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.AcademicYear
	for rows.Next() {
		ay := &entity.AcademicYear{}
		if err := rows.Scan(&ay.ID, &ay.Year, &ay.StartDate, &ay.EndDate,
			&ay.IsCurrent, &ay.IsActive, &ay.Terms, &ay.CreatedAt, &ay.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, ay)
	}
	return out, rows.Err()
}

func (r *AcademicYearRepository) Current(ctx context.Context) (*entity.AcademicYear, error) {
	ay := &entity.AcademicYear{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, year, start_date, end_date, is_current, is_active, terms, created_at, updated_at
		FROM academic_years WHERE is_current LIMIT 1
	`).Scan(&ay.ID, &ay.Year, &ay.StartDate, &ay.EndDate,
		&ay.IsCurrent, &ay.IsActive, &ay.Terms, &ay.CreatedAt, &ay.UpdatedAt)
	if err != nil {
		return nil, repository.ErrNotFound
	}
	return ay, nil
}

func (r *AcademicYearRepository) ClearCurrent(ctx context.Context, exceptID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE academic_years SET is_current = FALSE, updated_at = now()
		WHERE is_current AND id <> $1
	`, exceptID)
	return err
}

func (r *AcademicYearRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM academic_years`).Scan(&n)
	return n, err
}

var _ repository.AcademicYearRepository = (*AcademicYearRepository)(nil)

type ClassRepository struct {
	pool *pgxpool.Pool
}

func NewClassRepository(pool *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

func (r *ClassRepository) Create(ctx context.Context, cl *entity.Class) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO classes (name, grade, section, academic_year_id, class_teacher_id,
			student_ids, subjects, max_students, is_active)
		VALUES ($1, $2, upper($3), $4, $5, $6, $7, $8, $9)
		RETURNING id, section, created_at, updated_at
	`, cl.Name, cl.Grade, cl.Section, cl.AcademicYearID, nullable(cl.ClassTeacherID),
		textArray(cl.StudentIDs), cl.Subjects, cl.MaxStudents, cl.IsActive)
	if err := row.Scan(&cl.ID, &cl.Section, &cl.CreatedAt, &cl.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *ClassRepository) List(ctx context.Context) ([]*entity.Class, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, grade, section, academic_year_id, class_teacher_id,
			student_ids, subjects, max_students, is_active, created_at, updated_at
		FROM classes ORDER BY grade, section
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.Class
	for rows.Next() {
		cl := &entity.Class{}
		var teacherID *string
		if err := rows.Scan(&cl.ID, &cl.Name, &cl.Grade, &cl.Section, &cl.AcademicYearID,
			&teacherID, &cl.StudentIDs, &cl.Subjects, &cl.MaxStudents, &cl.IsActive,
			&cl.CreatedAt, &cl.UpdatedAt); err != nil {
			return nil, err
		}
		cl.ClassTeacherID = deref(teacherID)
		out = append(out, cl)
	}
	return out, rows.Err()
}

func (r *ClassRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM classes`).Scan(&n)
	return n, err
}

func (r *ClassRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM classes WHERE is_active`).Scan(&n)
	return n, err
}

func (r *ClassRepository) Enrollments(ctx context.Context) ([]repository.ClassEnrollment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, grade, section, cardinality(student_ids), max_students
		FROM classes ORDER BY grade, section
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.ClassEnrollment
	for rows.Next() {
		var e repository.ClassEnrollment
		if err := rows.Scan(&e.ID, &e.Name, &e.Grade, &e.Section, &e.StudentCount, &e.MaxStudents); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ repository.ClassRepository = (*ClassRepository)(nil)
