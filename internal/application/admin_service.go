package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/prernathite123/SchoolManagement/config"
	"github.com/prernathite123/SchoolManagement/internal/domain/entity"
	repo "github.com/prernathite123/SchoolManagement/internal/domain/repository"
	"github.com/prernathite123/SchoolManagement/pkg/helpers"
)

var (
	ErrDepartmentExists   = errors.New("department with this name or code already exists")
	ErrAcademicYearExists = errors.New("academic year already exists")
	ErrClassExists        = errors.New("class with this grade and section already exists for the academic year")
	ErrInvalidYearFormat  = errors.New("academic year must look like 2024-2025")
	ErrParentNotFound     = errors.New("parent not found")
	ErrChildNotFound      = errors.New("one or more children not found")
)

const (
	dashboardCacheKey = "admin:dashboard:stats"
	dashboardCacheTTL = 30 * time.Second
)

// AdminService backs the admin console: dashboard statistics, user
// management, departments, academic years and reports.
type AdminService struct {
	Users       repo.UserRepository
	Departments repo.DepartmentRepository
	Years       repo.AcademicYearRepository
	Classes     repo.ClassRepository
	Redis       *redis.Client
	ES          *elasticsearch.Client
	Cfg         *config.Config
	Logger      *logrus.Logger
}

func NewAdminService(users repo.UserRepository, deps repo.DepartmentRepository, years repo.AcademicYearRepository, classes repo.ClassRepository, rdb *redis.Client, es *elasticsearch.Client, cfg *config.Config, logger *logrus.Logger) *AdminService {
	return &AdminService{
		Users:       users,
		Departments: deps,
		Years:       years,
		Classes:     classes,
		Redis:       rdb,
		ES:          es,
		Cfg:         cfg,
		Logger:      logger,
	}
}

// DashboardStats is the admin landing-page summary.
type DashboardStats struct {
	TotalUsers        int64           `json:"totalUsers"`
	ActiveUsers       int64           `json:"activeUsers"`
	TotalStudents     int64           `json:"totalStudents"`
	TotalTeachers     int64           `json:"totalTeachers"`
	TotalParents      int64           `json:"totalParents"`
	TotalAdmins       int64           `json:"totalAdmins"`
	TotalDepartments  int64           `json:"totalDepartments"`
	ActiveDepartments int64           `json:"activeDepartments"`
	TotalClasses      int64           `json:"totalClasses"`
	AcademicYears     int64           `json:"academicYears"`
	NewUsersThisMonth int64           `json:"newUsersThisMonth"`
	RecentUsers       []SanitizedUser `json:"recentUsers"`
	GeneratedAt       time.Time       `json:"generatedAt"`
}

// Dashboard aggregates counts across users, departments, classes and
// academic years. The result is cached briefly in Redis; the dashboard is
// polled by every admin session and none of the numbers need to be fresh
// to the second.
func (s *AdminService) Dashboard(ctx context.Context) (*DashboardStats, error) {
	if s.Redis != nil {
		var cached DashboardStats
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, dashboardCacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	stats := &DashboardStats{GeneratedAt: time.Now()}
	var err error
	if stats.TotalUsers, err = s.Users.Count(ctx); err != nil {
		return nil, err
	}
	if stats.ActiveUsers, err = s.Users.CountActive(ctx); err != nil {
		return nil, err
	}
	if stats.TotalStudents, err = s.Users.CountByRoles(ctx, entity.RoleStudent); err != nil {
		return nil, err
	}
	if stats.TotalTeachers, err = s.Users.CountByRoles(ctx, entity.RoleTeacher); err != nil {
		return nil, err
	}
	if stats.TotalParents, err = s.Users.CountByRoles(ctx, entity.RoleParent); err != nil {
		return nil, err
	}
	if stats.TotalAdmins, err = s.Users.CountByRoles(ctx, entity.RoleAdmin, entity.RoleSuperAdmin); err != nil {
		return nil, err
	}
	if stats.TotalDepartments, err = s.Departments.Count(ctx); err != nil {
		return nil, err
	}
	if stats.ActiveDepartments, err = s.Departments.CountActive(ctx); err != nil {
		return nil, err
	}
	if stats.TotalClasses, err = s.Classes.Count(ctx); err != nil {
		return nil, err
	}
	if stats.AcademicYears, err = s.Years.Count(ctx); err != nil {
		return nil, err
	}

	monthStart := time.Date(stats.GeneratedAt.Year(), stats.GeneratedAt.Month(), 1, 0, 0, 0, 0, stats.GeneratedAt.Location())
	if stats.NewUsersThisMonth, err = s.Users.CountCreatedSince(ctx, monthStart); err != nil {
		return nil, err
	}

	recent, _, err := s.Users.List(ctx, repo.UserFilter{SortBy: "createdAt", SortDesc: true, Page: 1, PageSize: 5})
	if err != nil {
		return nil, err
	}
	stats.RecentUsers = make([]SanitizedUser, 0, len(recent))
	for _, u := range recent {
		stats.RecentUsers = append(stats.RecentUsers, Sanitize(u))
	}

	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, dashboardCacheKey, stats, dashboardCacheTTL); err != nil {
			s.Logger.WithError(err).Warn("failed to cache dashboard stats")
		}
	}
	return stats, nil
}

type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      entity.Role
	Phone     string
	ParentID  string
	Children  []string
}

// CreateUser provisions an account from the admin console. Unlike self
// registration the account comes out verified and no email is sent, and
// any role including parent can be created. Parent/child links are
// validated before the row is written.
func (s *AdminService) CreateUser(ctx context.Context, in CreateUserInput) (*SanitizedUser, error) {
	role := in.Role
	if role == "" {
		role = entity.RoleStudent
	}
	if !role.Valid() || role == entity.RoleSuperAdmin {
		return nil, ErrInvalidRole
	}

	email := normalizeEmail(in.Email)
	if existing, err := s.Users.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailExists
	}

	if in.ParentID != "" {
		p, err := s.Users.GetByID(ctx, in.ParentID)
		if err != nil || p == nil || p.Role != entity.RoleParent {
			return nil, ErrParentNotFound
		}
	}
	for _, childID := range in.Children {
		c, err := s.Users.GetByID(ctx, childID)
		if err != nil || c == nil || c.Role != entity.RoleStudent {
			return nil, ErrChildNotFound
		}
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &entity.User{
		FirstName:       strings.TrimSpace(in.FirstName),
		LastName:        strings.TrimSpace(in.LastName),
		Email:           email,
		PasswordHash:    hash,
		Role:            role,
		Phone:           in.Phone,
		ParentID:        in.ParentID,
		IsEmailVerified: true,
		IsActive:        true,
	}
	if err := AssignRoleScopedID(ctx, s.Users, u); err != nil {
		return nil, err
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	// Link children to the new parent account.
	if role == entity.RoleParent {
		for _, childID := range in.Children {
			c, err := s.Users.GetByID(ctx, childID)
			if err != nil || c == nil {
				continue
			}
			c.ParentID = u.ID
			if err := s.Users.Update(ctx, c); err != nil {
				s.Logger.WithError(err).WithField("child_id", childID).Warn("failed to link child to parent")
			}
		}
		u.Children = in.Children
	}

	s.indexUser(ctx, u)
	s.invalidateDashboard(ctx)

	out := Sanitize(u)
	return &out, nil
}

// UserPage is a paginated user listing.
type UserPage struct {
	Users      []SanitizedUser `json:"users"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalPages int             `json:"totalPages"`
}

func (s *AdminService) ListUsers(ctx context.Context, f repo.UserFilter) (*UserPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 10
	}
	users, total, err := s.Users.List(ctx, f)
	if err != nil {
		return nil, err
	}
	page := &UserPage{
		Users:    make([]SanitizedUser, 0, len(users)),
		Total:    total,
		Page:     f.Page,
		PageSize: f.PageSize,
	}
	for _, u := range users {
		page.Users = append(page.Users, Sanitize(u))
	}
	page.TotalPages = int((total + int64(f.PageSize) - 1) / int64(f.PageSize))
	return page, nil
}

// UserDetail is a single user with parent and children resolved.
type UserDetail struct {
	SanitizedUser
	Parent   *SanitizedUser  `json:"parent,omitempty"`
	Children []SanitizedUser `json:"children,omitempty"`
}

func (s *AdminService) GetUser(ctx context.Context, id string) (*UserDetail, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	detail := &UserDetail{SanitizedUser: Sanitize(u)}
	if u.ParentID != "" {
		if p, err := s.Users.GetByID(ctx, u.ParentID); err == nil && p != nil {
			sp := Sanitize(p)
			detail.Parent = &sp
		}
	}
	if u.Role == entity.RoleParent {
		children, err := s.Users.ChildrenOf(ctx, u.ID)
		if err == nil {
			for _, c := range children {
				detail.Children = append(detail.Children, Sanitize(c))
			}
		}
	}
	return detail, nil
}

type UpdateUserInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	IsActive  *bool
	Role      *entity.Role
}

// UpdateUser applies a partial update. Email, password and role-scoped
// IDs are not editable here.
func (s *AdminService) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (*SanitizedUser, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		u.Phone = *in.Phone
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.Role != nil {
		if !in.Role.Valid() || *in.Role == entity.RoleSuperAdmin {
			return nil, ErrInvalidRole
		}
		u.Role = *in.Role
		if err := AssignRoleScopedID(ctx, s.Users, u); err != nil {
			return nil, err
		}
	}
	if err := s.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.indexUser(ctx, u)
	s.invalidateDashboard(ctx)
	out := Sanitize(u)
	return &out, nil
}

// DeleteUser soft-deletes: the row stays for audit and re-activation,
// only is_active flips.
func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil || u == nil {
		return ErrUserNotFound
	}
	if err := s.Users.Deactivate(ctx, id); err != nil {
		return err
	}
	u.IsActive = false
	s.indexUser(ctx, u)
	s.invalidateDashboard(ctx)
	return nil
}

type CreateDepartmentInput struct {
	Name            string
	Code            string
	Description     string
	HeadID          string
	EstablishedDate *time.Time
}

func (s *AdminService) CreateDepartment(ctx context.Context, in CreateDepartmentInput) (*entity.Department, error) {
	d := &entity.Department{
		Name:            strings.TrimSpace(in.Name),
		Code:            strings.ToUpper(strings.TrimSpace(in.Code)),
		Description:     in.Description,
		HeadID:          in.HeadID,
		EstablishedDate: in.EstablishedDate,
		IsActive:        true,
	}
	if err := s.Departments.Create(ctx, d); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDepartmentExists
		}
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return d, nil
}

func (s *AdminService) ListDepartments(ctx context.Context) ([]*entity.Department, error) {
	return s.Departments.List(ctx)
}

type CreateAcademicYearInput struct {
	Year      string
	StartDate time.Time
	EndDate   time.Time
	IsCurrent bool
	Terms     []entity.Term
}

var yearPattern = func(y string) bool {
	if len(y) != 9 || y[4] != '-' {
		return false
	}
	for i, ch := range y {
		if i == 4 {
			continue
		}
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// CreateAcademicYear inserts a new school year. Marking it current
// clears the flag on every other year as a separate follow-up statement,
// so a brief window with two current years is possible under concurrency.
func (s *AdminService) CreateAcademicYear(ctx context.Context, in CreateAcademicYearInput) (*entity.AcademicYear, error) {
	if !yearPattern(in.Year) {
		return nil, ErrInvalidYearFormat
	}
	ay := &entity.AcademicYear{
		Year:      in.Year,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		IsCurrent: in.IsCurrent,
		IsActive:  true,
		Terms:     in.Terms,
	}
	if err := s.Years.Create(ctx, ay); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrAcademicYearExists
		}
		return nil, err
	}
	if ay.IsCurrent {
		if err := s.Years.ClearCurrent(ctx, ay.ID); err != nil {
			s.Logger.WithError(err).Error("failed to clear current flag on other academic years")
		}
	}
	s.invalidateDashboard(ctx)
	return ay, nil
}

func (s *AdminService) ListAcademicYears(ctx context.Context) ([]*entity.AcademicYear, error) {
	return s.Years.List(ctx)
}

type CreateClassInput struct {
	Name           string
	Grade          string
	Section        string
	AcademicYearID string
	ClassTeacherID string
	Subjects       []entity.Subject
	MaxStudents    int
}

// CreateClass adds a grade/section to an academic year. Sections are
// stored uppercased so "10-a" and "10-A" collide on the unique key.
func (s *AdminService) CreateClass(ctx context.Context, in CreateClassInput) (*entity.Class, error) {
	cl := &entity.Class{
		Name:           strings.TrimSpace(in.Name),
		Grade:          strings.TrimSpace(in.Grade),
		Section:        strings.ToUpper(strings.TrimSpace(in.Section)),
		AcademicYearID: in.AcademicYearID,
		ClassTeacherID: in.ClassTeacherID,
		Subjects:       in.Subjects,
		MaxStudents:    in.MaxStudents,
		IsActive:       true,
	}
	if err := s.Classes.Create(ctx, cl); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrClassExists
		}
		return nil, err
	}
	s.invalidateDashboard(ctx)
	return cl, nil
}

func (s *AdminService) ListClasses(ctx context.Context) ([]*entity.Class, error) {
	return s.Classes.List(ctx)
}

// RegistrationReport breaks registrations down per month and role.
type RegistrationReport struct {
	From    *time.Time                `json:"from,omitempty"`
	To      *time.Time                `json:"to,omitempty"`
	Buckets []repo.RegistrationBucket `json:"buckets"`
}

func (s *AdminService) UserRegistrationReport(ctx context.Context, from, to *time.Time) (*RegistrationReport, error) {
	buckets, err := s.Users.RegistrationsByMonth(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return &RegistrationReport{From: from, To: to, Buckets: buckets}, nil
}

func (s *AdminService) DepartmentReport(ctx context.Context) ([]repo.DepartmentSummary, error) {
	return s.Departments.Summaries(ctx)
}

func (s *AdminService) ClassEnrollmentReport(ctx context.Context) ([]repo.ClassEnrollment, error) {
	return s.Classes.Enrollments(ctx)
}

func (s *AdminService) RoleDistribution(ctx context.Context) ([]repo.RoleCount, error) {
	return s.Users.RoleDistribution(ctx)
}

// SearchUsers queries Elasticsearch for users by free text. When the
// cluster is unreachable the SQL listing takes over, so search degrades
// instead of failing.
func (s *AdminService) SearchUsers(ctx context.Context, query string, page, pageSize int) (*UserPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	if s.ES == nil {
		return s.ListUsers(ctx, repo.UserFilter{Search: query, Page: page, PageSize: pageSize})
	}

	body := map[string]any{
		"from": (page - 1) * pageSize,
		"size": pageSize,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"firstName^2", "lastName^2", "email", "studentId", "employeeId"},
				"type":   "best_fields",
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Cfg.ESUsersIndex),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		s.Logger.WithError(err).Warn("elasticsearch unavailable, falling back to sql search")
		return s.ListUsers(ctx, repo.UserFilter{Search: query, Page: page, PageSize: pageSize})
	}
	defer res.Body.Close()
	if res.IsError() {
		s.Logger.WithField("status", res.StatusCode).Warn("elasticsearch search failed, falling back to sql search")
		return s.ListUsers(ctx, repo.UserFilter{Search: query, Page: page, PageSize: pageSize})
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source SanitizedUser `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := &UserPage{
		Users:    make([]SanitizedUser, 0, len(parsed.Hits.Hits)),
		Total:    parsed.Hits.Total.Value,
		Page:     page,
		PageSize: pageSize,
	}
	for _, h := range parsed.Hits.Hits {
		out.Users = append(out.Users, h.Source)
	}
	out.TotalPages = int((out.Total + int64(pageSize) - 1) / int64(pageSize))
	return out, nil
}

// indexUser mirrors the user document into Elasticsearch. Indexing is
// best effort; Postgres stays the source of truth.
func (s *AdminService) indexUser(ctx context.Context, u *entity.User) {
	if s.ES == nil {
		return
	}
	doc, err := json.Marshal(Sanitize(u))
	if err != nil {
		return
	}
	res, err := s.ES.Index(
		s.Cfg.ESUsersIndex,
		bytes.NewReader(doc),
		s.ES.Index.WithDocumentID(u.ID),
		s.ES.Index.WithContext(ctx),
	)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("failed to index user")
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		s.Logger.WithFields(logrus.Fields{"user_id": u.ID, "status": res.StatusCode}).Warn("failed to index user")
	}
}

func (s *AdminService) invalidateDashboard(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := helpers.RedisDel(ctx, s.Redis, dashboardCacheKey); err != nil {
		s.Logger.WithError(err).Warn("failed to invalidate dashboard cache")
	}
}
