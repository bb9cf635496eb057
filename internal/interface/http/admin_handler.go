package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/prernathite123/SchoolManagement/internal/application"
	"github.com/prernathite123/SchoolManagement/internal/domain/entity"
	repo "github.com/prernathite123/SchoolManagement/internal/domain/repository"
	"github.com/prernathite123/SchoolManagement/pkg/response"
	"github.com/prernathite123/SchoolManagement/pkg/validation"
)

type AdminHandler struct {
	Admin  *application.AdminService
	Logger *logrus.Logger
}

func NewAdminHandler(admin *application.AdminService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{Admin: admin, Logger: logger}
}

// Dashboard GET /api/admin/dashboard
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.Admin.Dashboard(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Error("dashboard aggregation failed")
		response.Error(c, http.StatusInternalServerError, "failed to load dashboard", nil)
		return
	}
	response.Success(c, http.StatusOK, stats, "", nil)
}

func intQuery(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}

// ListUsers GET /api/admin/users?role=&isActive=&search=&sortBy=&order=&page=&pageSize=
func (h *AdminHandler) ListUsers(c *gin.Context) {
	f := repo.UserFilter{
		Role:     entity.Role(c.Query("role")),
		Search:   c.Query("search"),
		SortBy:   c.Query("sortBy"),
		SortDesc: c.Query("order") == "desc",
		Page:     intQuery(c, "page", 1),
		PageSize: intQuery(c, "pageSize", 10),
	}
	if v := c.Query("isActive"); v != "" {
		b := v == "true"
		f.IsActive = &b
	}

	page, err := h.Admin.ListUsers(c.Request.Context(), f)
	if err != nil {
		h.Logger.WithError(err).Error("user listing failed")
		response.Error(c, http.StatusInternalServerError, "failed to list users", nil)
		return
	}
	response.Success(c, http.StatusOK, page.Users, "", gin.H{
		"total":      page.Total,
		"page":       page.Page,
		"pageSize":   page.PageSize,
		"totalPages": page.TotalPages,
	})
}

// SearchUsers GET /api/admin/users/search?q=&page=&pageSize=
func (h *AdminHandler) SearchUsers(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error(c, http.StatusBadRequest, "query parameter q is required", nil)
		return
	}
	page, err := h.Admin.SearchUsers(c.Request.Context(), q, intQuery(c, "page", 1), intQuery(c, "pageSize", 10))
	if err != nil {
		h.Logger.WithError(err).Error("user search failed")
		response.Error(c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, page.Users, "", gin.H{
		"total":      page.Total,
		"page":       page.Page,
		"pageSize":   page.PageSize,
		"totalPages": page.TotalPages,
	})
}

// GetUser GET /api/admin/users/:id
func (h *AdminHandler) GetUser(c *gin.Context) {
	detail, err := h.Admin.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, detail, "", nil)
}

type createUserRequest struct {
	FirstName string   `json:"firstName" binding:"required,personname"`
	LastName  string   `json:"lastName" binding:"required,personname"`
	Email     string   `json:"email" binding:"required,email"`
	Password  string   `json:"password" binding:"required,pwd"`
	Role      string   `json:"role" binding:"required,oneof=student teacher parent admin"`
	Phone     string   `json:"phone" binding:"omitempty,max=20"`
	ParentID  string   `json:"parentId"`
	Children  []string `json:"children"`
}

// CreateUser POST /api/admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Admin.CreateUser(c.Request.Context(), application.CreateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      entity.Role(req.Role),
		Phone:     req.Phone,
		ParentID:  req.ParentID,
		Children:  req.Children,
	})
	if err != nil {
		switch {
		case errors.Is(err, application.ErrEmailExists),
			errors.Is(err, application.ErrInvalidRole),
			errors.Is(err, application.ErrParentNotFound),
			errors.Is(err, application.ErrChildNotFound):
			response.Error(c, http.StatusBadRequest, err.Error(), nil)
		default:
			h.Logger.WithError(err).Error("admin user creation failed")
			response.Error(c, http.StatusInternalServerError, "failed to create user", nil)
		}
		return
	}
	response.Success(c, http.StatusCreated, u, "user created", nil)
}

type updateUserRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,personname"`
	LastName  *string `json:"lastName" binding:"omitempty,personname"`
	Phone     *string `json:"phone" binding:"omitempty,max=20"`
	IsActive  *bool   `json:"isActive"`
	Role      *string `json:"role" binding:"omitempty,oneof=student teacher parent admin"`
}

// UpdateUser PUT /api/admin/users/:id
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	in := application.UpdateUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		IsActive:  req.IsActive,
	}
	if req.Role != nil {
		r := entity.Role(*req.Role)
		in.Role = &r
	}

	u, err := h.Admin.UpdateUser(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		switch {
		case errors.Is(err, application.ErrUserNotFound):
			response.Error(c, http.StatusNotFound, "user not found", nil)
		case errors.Is(err, application.ErrInvalidRole):
			response.Error(c, http.StatusBadRequest, err.Error(), nil)
		default:
			h.Logger.WithError(err).Error("admin user update failed")
			response.Error(c, http.StatusInternalServerError, "failed to update user", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, u, "user updated", nil)
}

// DeleteUser DELETE /api/admin/users/:id (soft delete)
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.Admin.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			response.Error(c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.Logger.WithError(err).Error("admin user deletion failed")
		response.Error(c, http.StatusInternalServerError, "failed to delete user", nil)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "user deactivated", nil)
}

type createDepartmentRequest struct {
	Name            string     `json:"name" binding:"required,min=2,max=100"`
	Code            string     `json:"code" binding:"required,min=2,max=10"`
	Description     string     `json:"description" binding:"omitempty,max=500"`
	HeadID          string     `json:"headId"`
	EstablishedDate *time.Time `json:"establishedDate"`
}

// CreateDepartment POST /api/admin/departments
func (h *AdminHandler) CreateDepartment(c *gin.Context) {
	var req createDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	d, err := h.Admin.CreateDepartment(c.Request.Context(), application.CreateDepartmentInput{
		Name:            req.Name,
		Code:            req.Code,
		Description:     req.Description,
		HeadID:          req.HeadID,
		EstablishedDate: req.EstablishedDate,
	})
	if err != nil {
		if errors.Is(err, application.ErrDepartmentExists) {
			response.Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		h.Logger.WithError(err).Error("department creation failed")
		response.Error(c, http.StatusInternalServerError, "failed to create department", nil)
		return
	}
	response.Success(c, http.StatusCreated, d, "department created", nil)
}

// ListDepartments GET /api/admin/departments
func (h *AdminHandler) ListDepartments(c *gin.Context) {
	deps, err := h.Admin.ListDepartments(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Error("department listing failed")
		response.Error(c, http.StatusInternalServerError, "failed to list departments", nil)
		return
	}
	response.Success(c, http.StatusOK, deps, "", nil)
}

type termRequest struct {
	Name      string    `json:"name" binding:"required"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
	IsActive  bool      `json:"isActive"`
}

type createAcademicYearRequest struct {
	Year      string        `json:"year" binding:"required"`
	StartDate time.Time     `json:"startDate" binding:"required"`
	EndDate   time.Time     `json:"endDate" binding:"required"`
	IsCurrent bool          `json:"isCurrent"`
	Terms     []termRequest `json:"terms" binding:"omitempty,dive"`
}

// CreateAcademicYear POST /api/admin/academic-years
func (h *AdminHandler) CreateAcademicYear(c *gin.Context) {
	var req createAcademicYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	terms := make([]entity.Term, 0, len(req.Terms))
	for _, t := range req.Terms {
		terms = append(terms, entity.Term{Name: t.Name, StartDate: t.StartDate, EndDate: t.EndDate, IsActive: t.IsActive})
	}

	ay, err := h.Admin.CreateAcademicYear(c.Request.Context(), application.CreateAcademicYearInput{
		Year:      req.Year,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		IsCurrent: req.IsCurrent,
		Terms:     terms,
	})
	if err != nil {
		switch {
		case errors.Is(err, application.ErrAcademicYearExists),
			errors.Is(err, application.ErrInvalidYearFormat):
			response.Error(c, http.StatusBadRequest, err.Error(), nil)
		default:
			h.Logger.WithError(err).Error("academic year creation failed")
			response.Error(c, http.StatusInternalServerError, "failed to create academic year", nil)
		}
		return
	}
	response.Success(c, http.StatusCreated, ay, "academic year created", nil)
}

// ListAcademicYears GET /api/admin/academic-years
func (h *AdminHandler) ListAcademicYears(c *gin.Context) {
	years, err := h.Admin.ListAcademicYears(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Error("academic year listing failed")
		response.Error(c, http.StatusInternalServerError, "failed to list academic years", nil)
		return
	}
	response.Success(c, http.StatusOK, years, "", nil)
}

type subjectRequest struct {
	Name         string `json:"name" binding:"required"`
	TeacherID    string `json:"teacherId"`
	DepartmentID string `json:"departmentId"`
}

type createClassRequest struct {
	Name           string           `json:"name" binding:"required"`
	Grade          string           `json:"grade" binding:"required"`
	Section        string           `json:"section" binding:"required"`
	AcademicYearID string           `json:"academicYearId" binding:"required"`
	ClassTeacherID string           `json:"classTeacherId"`
	Subjects       []subjectRequest `json:"subjects" binding:"omitempty,dive"`
	MaxStudents    int              `json:"maxStudents" binding:"required,min=1"`
}

// CreateClass POST /api/admin/classes
func (h *AdminHandler) CreateClass(c *gin.Context) {
	var req createClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	subjects := make([]entity.Subject, 0, len(req.Subjects))
	for _, s := range req.Subjects {
		subjects = append(subjects, entity.Subject{Name: s.Name, TeacherID: s.TeacherID, DepartmentID: s.DepartmentID})
	}

	cl, err := h.Admin.CreateClass(c.Request.Context(), application.CreateClassInput{
		Name:           req.Name,
		Grade:          req.Grade,
		Section:        req.Section,
		AcademicYearID: req.AcademicYearID,
		ClassTeacherID: req.ClassTeacherID,
		Subjects:       subjects,
		MaxStudents:    req.MaxStudents,
	})
	if err != nil {
		if errors.Is(err, application.ErrClassExists) {
			response.Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		h.Logger.WithError(err).Error("class creation failed")
		response.Error(c, http.StatusInternalServerError, "failed to create class", nil)
		return
	}
	response.Success(c, http.StatusCreated, cl, "class created", nil)
}

// ListClasses GET /api/admin/classes
func (h *AdminHandler) ListClasses(c *gin.Context) {
	classes, err := h.Admin.ListClasses(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Error("class listing failed")
		response.Error(c, http.StatusInternalServerError, "failed to list classes", nil)
		return
	}
	response.Success(c, http.StatusOK, classes, "", nil)
}

// RegistrationReport GET /api/admin/reports/registrations?from=&to= (RFC 3339)
func (h *AdminHandler) RegistrationReport(c *gin.Context) {
	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "from must be RFC 3339", nil)
			return
		}
		from = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "to must be RFC 3339", nil)
			return
		}
		to = &t
	}

	report, err := h.Admin.UserRegistrationReport(c.Request.Context(), from, to)
	if err != nil {
		h.Logger.WithError(err).Error("registration report failed")
		response.Error(c, http.StatusInternalServerError, "failed to build report", nil)
		return
	}
	response.Success(c, http.StatusOK, report, "", nil)
}

// DepartmentReport GET /api/admin/reports/departments
func (h *AdminHandler) DepartmentReport(c *gin.Context) {
	summaries, err := h.Admin.DepartmentReport(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Error("department report failed")
		response.Error(c, http.StatusInternalServerError, "failed to build report", nil)
		return
	}
	response.Success(c, http.StatusOK, summaries, "", nil)
}

// ClassEnrollmentReport GET /api/admin/reports/classes
func (h *AdminHandler) ClassEnrollmentReport(c *gin.Context) {
	enrollments, err := h.Admin.ClassEnrollmentReport(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Error("class enrollment report failed")
		response.Error(c, http.StatusInternalServerError, "failed to build report", nil)
		return
	}
	response.Success(c, http.StatusOK, enrollments, "", nil)
}

// RoleDistribution GET /api/admin/reports/roles
func (h *AdminHandler) RoleDistribution(c *gin.Context) {
	dist, err := h.Admin.RoleDistribution(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Error("role distribution report failed")
		response.Error(c, http.StatusInternalServerError, "failed to build report", nil)
		return
	}
	response.Success(c, http.StatusOK, dist, "", nil)
}
