package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/missioncontrol/internal/audit/domain"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	ctx := c.Request.Context()
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
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

	items, err := s.auditSvc.List(ctx, auditdomain.ListFilter{
		OrgID:  orgID,
		Action: strings.TrimSpace(c.Query("action")),
		Limit:  limit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}
