package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/missioncontrol/internal/access"
	departmentdomain "github.com/smallbiznis/missioncontrol/internal/department/domain"
	"go.uber.org/zap"
)

type createDepartmentRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Plan string `json:"plan"`
}

type updateDepartmentRequest struct {
	Name string `json:"name"`
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (s *Server) CreateDepartment(c *gin.Context) {
	ctx := c.Request.Context()
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		return
	}

	var req createDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID, err := s.access.RequireAuthenticatedUser(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := s.access.RequireOrgAdminMembership(ctx, userID, orgID); err != nil {
		AbortWithError(c, err)
		return
	}

	id, err := s.departmentSvc.Create(ctx, departmentdomain.CreateRequest{
		Name:  req.Name,
		Slug:  req.Slug,
		OrgID: orgID,
		Plan:  req.Plan,
	})
	if err != nil {
		var hookErr *departmentdomain.HookError
		if errors.As(err, &hookErr) && id != 0 {
			s.log.Warn("department created with pending defaults",
				zap.String("department_id", id.String()),
				zap.String("hook", hookErr.Hook),
				zap.Error(hookErr.Err),
			)
			c.JSON(http.StatusCreated, gin.H{"id": id.String(), "defaults_pending": true})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": id.String()})
}

func (s *Server) ListDepartments(c *gin.Context) {
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	items, err := s.departmentSvc.List(c.Request.Context(), orgID, limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetDepartment(c *gin.Context) {
	ctx := c.Request.Context()
	departmentID, ok := departmentIDParam(c)
	if !ok {
		return
	}

	userID, err := s.access.RequireAuthenticatedUser(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := s.access.RequireDepartmentOrgMembership(ctx, userID, departmentID); err != nil {
		AbortWithError(c, err)
		return
	}

	dept, err := s.departmentSvc.Get(ctx, departmentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if dept == nil {
		AbortWithError(c, departmentdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dept})
}

func (s *Server) GetDepartmentBySlug(c *gin.Context) {
	ctx := c.Request.Context()
	userID, err := s.access.RequireAuthenticatedUser(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	dept, err := s.departmentSvc.GetBySlug(ctx, strings.TrimSpace(c.Param("slug")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if dept == nil {
		AbortWithError(c, departmentdomain.ErrNotFound)
		return
	}
	c.Set(contextDepartmentKey, dept.ID.String())

	// slugs are global; outsiders must not learn which ones are taken
	if _, err := s.access.RequireDepartmentOrgMembership(ctx, userID, dept.ID); err != nil {
		if errors.Is(err, access.ErrAccessDenied) || errors.Is(err, access.ErrDepartmentUnlinked) {
			err = departmentdomain.ErrNotFound
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dept})
}

func (s *Server) UpdateDepartmentName(c *gin.Context) {
	ctx := c.Request.Context()
	departmentID, ok := departmentIDParam(c)
	if !ok {
		return
	}

	var req updateDepartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.departmentSvc.UpdateName(ctx, departmentID, req.Name); err != nil {
		AbortWithError(c, err)
		return
	}

	dept, err := s.departmentSvc.Get(ctx, departmentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if dept == nil {
		AbortWithError(c, departmentdomain.ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": dept})
}

func (s *Server) PreviewDepartmentRemoval(c *gin.Context) {
	departmentID, ok := departmentIDParam(c)
	if !ok {
		return
	}

	report, err := s.departmentSvc.PreviewRemoval(c.Request.Context(), departmentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) RemoveDepartment(c *gin.Context) {
	departmentID, ok := departmentIDParam(c)
	if !ok {
		return
	}

	report, err := s.departmentSvc.Remove(c.Request.Context(), departmentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) AddDepartmentMember(c *gin.Context) {
	ctx := c.Request.Context()
	departmentID, ok := departmentIDParam(c)
	if !ok {
		return
	}

	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	memberID, err := parseOptionalSnowflakeID(req.UserID)
	if err != nil || memberID == nil {
		AbortWithError(c, newValidationError("user_id", "invalid_user", "invalid user"))
		return
	}

	callerID, err := s.access.RequireAuthenticatedUser(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if _, err := s.access.RequireDepartmentOrgAdminMembership(ctx, callerID, departmentID); err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.departmentSvc.AddMember(ctx, departmentdomain.AddMemberRequest{
		DepartmentID: departmentID,
		UserID:       *memberID,
		Role:         req.Role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyMember {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"data": result})
}

func (s *Server) ListMyDepartments(c *gin.Context) {
	ctx := c.Request.Context()
	userID, err := s.access.RequireAuthenticatedUser(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items, err := s.departmentSvc.GetForUser(ctx, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
