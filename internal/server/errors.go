package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/missioncontrol/internal/access"
	departmentdomain "github.com/smallbiznis/missioncontrol/internal/department/domain"
	"github.com/smallbiznis/missioncontrol/internal/entitlement"
	integrationdomain "github.com/smallbiznis/missioncontrol/internal/integration/domain"
	"github.com/smallbiznis/missioncontrol/internal/lock"
	orgdomain "github.com/smallbiznis/missioncontrol/internal/organization/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var cascadeErr *departmentdomain.CascadeError
	var hookErr *departmentdomain.HookError

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, access.ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, entitlement.ErrPlanRestricted):
		return http.StatusForbidden, errorPayload{
			Type:    "plan_restricted",
			Message: "integration is not available on the current plan",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, access.ErrAccessDenied):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, entitlement.ErrQuotaExceeded):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "quota_exceeded",
			Message: "plan limit reached",
		}
	case errors.Is(err, access.ErrDepartmentUnlinked):
		return http.StatusConflict, errorPayload{
			Type:    "invalid_state",
			Message: "department is not linked to an organization",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.As(err, &cascadeErr):
		return http.StatusInternalServerError, errorPayload{
			Type:    "cascade_failed",
			Message: "removal rolled back at " + cascadeErr.Collection,
		}
	case errors.As(err, &hookErr):
		return http.StatusInternalServerError, errorPayload{
			Type:    "defaults_incomplete",
			Message: "hook " + hookErr.Hook + " failed",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog returns the error type and code used in request logs.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, departmentdomain.ErrInvalidName),
		errors.Is(err, departmentdomain.ErrInvalidSlug),
		errors.Is(err, departmentdomain.ErrInvalidOrganization),
		errors.Is(err, departmentdomain.ErrInvalidUser),
		errors.Is(err, orgdomain.ErrInvalidRole),
		errors.Is(err, integrationdomain.ErrInvalidConfig),
		errors.Is(err, integrationdomain.ErrInvalidOrganization):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, departmentdomain.ErrSlugTaken),
		errors.Is(err, departmentdomain.ErrBusy),
		errors.Is(err, lock.ErrNotAcquired),
		errors.Is(err, integrationdomain.ErrDepartmentOrgMismatch),
		errors.Is(err, integrationdomain.ErrConcurrentUpdate):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, departmentdomain.ErrSlugTaken):
		return "department slug already exists"
	case errors.Is(err, integrationdomain.ErrDepartmentOrgMismatch):
		return "department belongs to a different organization"
	case errors.Is(err, departmentdomain.ErrBusy),
		errors.Is(err, lock.ErrNotAcquired),
		errors.Is(err, integrationdomain.ErrConcurrentUpdate):
		return "resource is being modified, retry"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, departmentdomain.ErrNotFound),
		errors.Is(err, departmentdomain.ErrOrganizationNotFound),
		errors.Is(err, orgdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, integrationdomain.ErrInvalidConfig):
		return "invalid_config"
	default:
		return err.Error()
	}
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_role":
		return "role must be owner, admin or member"
	default:
		return "invalid value"
	}
}
