package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/missioncontrol/internal/audit/domain"
	"github.com/smallbiznis/missioncontrol/internal/auditcontext"
	"github.com/smallbiznis/missioncontrol/internal/identity"
	"github.com/smallbiznis/missioncontrol/internal/orgcontext"
)

const (
	defaultIdentityHeader = "X-User-ID"
	contextUserIDKey      = "user_id"
	contextDepartmentKey  = "department_id"
)

// Identity attaches the upstream-authenticated user to the request. The
// header is ignored unless the deployment trusts it.
func (s *Server) Identity() gin.HandlerFunc {
	header := strings.TrimSpace(s.cfg.Identity.HeaderName)
	if header == "" {
		header = defaultIdentityHeader
	}
	trusted := s.cfg.Identity.TrustHeader

	return func(c *gin.Context) {
		if !trusted {
			c.Next()
			return
		}

		raw := strings.TrimSpace(c.GetHeader(header))
		if raw == "" {
			c.Next()
			return
		}

		userID, err := snowflake.ParseString(raw)
		if err != nil || userID == 0 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		ctx := identity.WithUserID(c.Request.Context(), userID)
		ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeUser), userID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextUserIDKey, userID.String())
		c.Next()
	}
}

// OrgContext scopes the request to the :orgId path parameter.
func OrgContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, err := snowflake.ParseString(strings.TrimSpace(c.Param("orgId")))
		if err != nil || orgID == 0 {
			AbortWithError(c, newValidationError("org_id", "invalid_org_id", "invalid organization id"))
			return
		}
		c.Request = c.Request.WithContext(orgcontext.WithOrgID(c.Request.Context(), orgID))
		c.Next()
	}
}

func (s *Server) OperatorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.access.RequireOperator(c.Request.Context()); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
