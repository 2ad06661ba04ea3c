package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	integrationdomain "github.com/smallbiznis/missioncontrol/internal/integration/domain"
)

type upsertGmailRequest struct {
	DepartmentID string `json:"department_id"`
	Name         string `json:"name"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`
	AppReturnURL string `json:"app_return_url"`
}

func (s *Server) UpsertGmailConfig(c *gin.Context) {
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		return
	}

	var req upsertGmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	departmentID, err := parseOptionalSnowflakeID(req.DepartmentID)
	if err != nil {
		AbortWithError(c, newValidationError("department_id", "invalid_department_id", "invalid department id"))
		return
	}

	result, err := s.integrationSvc.UpsertGmailConfig(c.Request.Context(), integrationdomain.UpsertGmailRequest{
		OrgID:        orgID,
		DepartmentID: departmentID,
		Name:         req.Name,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		RedirectURI:  req.RedirectURI,
		AppReturnURL: req.AppReturnURL,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": result})
}

func (s *Server) DisconnectGmail(c *gin.Context) {
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		return
	}
	departmentID, err := parseOptionalSnowflakeID(c.Query("department_id"))
	if err != nil {
		AbortWithError(c, newValidationError("department_id", "invalid_department_id", "invalid department id"))
		return
	}

	result, err := s.integrationSvc.DisconnectGmail(c.Request.Context(), orgID, departmentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) GetGmailStatus(c *gin.Context) {
	orgID, ok := orgIDFromRequest(c)
	if !ok {
		return
	}

	status, err := s.integrationSvc.GetGmailStatus(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}
