package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Operator-only routes. OperatorRequired guards the whole group.

func (s *Server) ListAllDepartments(c *gin.Context) {
	items, err := s.departmentSvc.ListAll(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) LinkDepartmentsToOrg(c *gin.Context) {
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		return
	}

	report, err := s.departmentSvc.LinkToOrg(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": report})
}

func (s *Server) EnsureDepartmentDefaults(c *gin.Context) {
	departmentID, ok := departmentIDParam(c)
	if !ok {
		return
	}

	if err := s.departmentSvc.EnsureDefaults(c.Request.Context(), departmentID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
