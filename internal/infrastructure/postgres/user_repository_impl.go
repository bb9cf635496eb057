package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prernathite123/SchoolManagement/internal/domain/entity"
	"github.com/prernathite123/SchoolManagement/internal/domain/repository"
)

const userColumns = `
	id, first_name, last_name, email, password_hash, role,
	student_id, employee_id, phone, profile_image,
	is_email_verified, email_verification_token, email_verification_expires,
	login_attempts, lock_until, is_active, last_login, parent_id,
	created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var studentID, employeeID, phone, profileImage, verifyToken, parentID *string
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Role,
		&studentID, &employeeID, &phone, &profileImage,
		&u.IsEmailVerified, &verifyToken, &u.VerificationExpires,
		&u.LoginAttempts, &u.LockUntil, &u.IsActive, &u.LastLogin, &parentID,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	u.StudentID = deref(studentID)
	u.EmployeeID = deref(employeeID)
	u.Phone = deref(phone)
	u.ProfileImage = deref(profileImage)
	u.VerificationToken = deref(verifyToken)
	u.ParentID = deref(parentID)
	return u, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (
			first_name, last_name, email, password_hash, role,
			student_id, employee_id, phone, profile_image,
			is_email_verified, email_verification_token, email_verification_expires,
			is_active, parent_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.Role,
		nullable(u.StudentID), nullable(u.EmployeeID), nullable(u.Phone), nullable(u.ProfileImage),
		u.IsEmailVerified, nullable(u.VerificationToken), u.VerificationExpires,
		u.IsActive, nullable(u.ParentID))

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email))
	return scanUser(row)
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now()
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET
			first_name = $1, last_name = $2, email = $3, role = $4,
			student_id = $5, employee_id = $6, phone = $7, profile_image = $8,
			is_active = $9, parent_id = $10, updated_at = $11
		WHERE id = $12
	`, u.FirstName, u.LastName, u.Email, u.Role,
		nullable(u.StudentID), nullable(u.EmployeeID), nullable(u.Phone), nullable(u.ProfileImage),
		u.IsActive, nullable(u.ParentID), u.UpdatedAt, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Deactivate(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET is_active = FALSE, updated_at = now() WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ConsumeVerificationToken performs match, verify and clear in a single
// conditional UPDATE so a token can never be redeemed twice.
func (r *UserRepository) ConsumeVerificationToken(ctx context.Context, tokenHash string, now time.Time) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users SET
			is_email_verified = TRUE,
			email_verification_token = NULL,
			email_verification_expires = NULL,
			updated_at = now()
		WHERE email_verification_token = $1
		  AND email_verification_expires > $2
		RETURNING`+userColumns, tokenHash, now)
	return scanUser(row)
}

// RecordFailedLogin increments the counter and arms the lock in one
// statement; concurrent failures on the same row serialize on the row
// lock, so no increment is lost.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, id string, threshold int, lockFor time.Duration) (int, *time.Time, error) {
	var attempts int
	var lockUntil *time.Time
	err := r.pool.QueryRow(ctx, `
		UPDATE users SET
			login_attempts = login_attempts + 1,
			lock_until = CASE
				WHEN login_attempts + 1 >= $2 THEN now() + make_interval(secs => $3)
				ELSE lock_until
			END,
			updated_at = now()
		WHERE id = $1
		RETURNING login_attempts, lock_until
	`, id, threshold, lockFor.Seconds()).Scan(&attempts, &lockUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil, repository.ErrNotFound
		}
		return 0, nil, err
	}
	return attempts, lockUntil, nil
}

func (r *UserRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE users SET
			login_attempts = 0,
			lock_until = NULL,
			last_login = $2,
			updated_at = now()
		WHERE id = $1
	`, id, at)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var sortColumns = map[string]string{
	"createdAt": "created_at",
	"firstName": "first_name",
	"lastName":  "last_name",
	"email":     "email",
	"role":      "role",
	"lastLogin": "last_login",
}

func (r *UserRepository) List(ctx context.Context, f repository.UserFilter) ([]*entity.User, int64, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 4)

	if f.Role != "" {
		args = append(args, f.Role)
		where = append(where, "role = $"+strconv.Itoa(len(args)))
	}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where = append(where, "is_active = $"+strconv.Itoa(len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		where = append(where, "(first_name ILIKE $"+n+" OR last_name ILIKE $"+n+
			" OR email ILIKE $"+n+" OR student_id ILIKE $"+n+" OR employee_id ILIKE $"+n+")")
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM users"+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := sortColumns[f.SortBy]
	if !ok {
		sortCol = "created_at"
	}
	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size < 1 {
		size = 10
	}
	args = append(args, size, (page-1)*size)
	q := fmt.Sprintf("SELECT%s FROM users%s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		userColumns, cond, sortCol, dir, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]*entity.User, 0, size)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) ChildrenOf(ctx context.Context, parentID string) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+userColumns+` FROM users WHERE parent_id = $1 ORDER BY first_name`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, u)
	}
	return children, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM users`)
}

func (r *UserRepository) CountActive(ctx context.Context) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM users WHERE is_active`)
}

func (r *UserRepository) CountByRoles(ctx context.Context, roles ...entity.Role) (int64, error) {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return r.count(ctx, `SELECT count(*) FROM users WHERE role = ANY($1)`, names)
}

func (r *UserRepository) CountCreatedSince(ctx context.Context, since time.Time) (int64, error) {
	return r.count(ctx, `SELECT count(*) FROM users WHERE created_at >= $1`, since)
}

func (r *UserRepository) count(ctx context.Context, q string, args ...any) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, q, args...).Scan(&n)
	return n, err
}

func (r *UserRepository) RoleDistribution(ctx context.Context) ([]repository.RoleCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT role, count(*) FROM users GROUP BY role ORDER BY count(*) DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.RoleCount
	for rows.Next() {
		var rc repository.RoleCount
		if err := rows.Scan(&rc.Role, &rc.Count); err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (r *UserRepository) RegistrationsByMonth(ctx context.Context, from, to *time.Time) ([]repository.RegistrationBucket, error) {
	where := ""
	args := []any{}
	if from != nil && to != nil {
		where = " WHERE created_at BETWEEN $1 AND $2"
		args = append(args, *from, *to)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT extract(year FROM created_at)::int,
		       extract(month FROM created_at)::int,
		       role, count(*)
		FROM users`+where+`
		GROUP BY 1, 2, 3
		ORDER BY 1, 2
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.RegistrationBucket
	for rows.Next() {
		var b repository.RegistrationBucket
		if err := rows.Scan(&b.Year, &b.Month, &b.Role, &b.Count); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

var _ repository.UserRepository = (*UserRepository)(nil)
