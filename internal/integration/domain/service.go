package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	UpsertGmailConfig(ctx context.Context, req UpsertGmailRequest) (*UpsertResult, error)
	DisconnectGmail(ctx context.Context, orgID snowflake.ID, departmentID *snowflake.ID) (*DisconnectResult, error)
	GetGmailStatus(ctx context.Context, orgID snowflake.ID) (*StatusResponse, error)
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByOrgAndType(ctx context.Context, orgID snowflake.ID, integrationType string) (*Integration, error)
	Insert(ctx context.Context, item *Integration) error
	Update(ctx context.Context, item *Integration) error
}

type UpsertGmailRequest struct {
	OrgID        snowflake.ID  `json:"org_id"`
	DepartmentID *snowflake.ID `json:"department_id,omitempty"`
	Name         string        `json:"name"`
	ClientID     string        `json:"client_id"`
	ClientSecret string        `json:"client_secret"`
	RedirectURI  string        `json:"redirect_uri"`
	AppReturnURL string        `json:"app_return_url"`
}

type UpsertResult struct {
	IntegrationID snowflake.ID `json:"integration_id"`
	Created       bool         `json:"created"`
	Status        Status       `json:"status"`
}

type DisconnectResult struct {
	IntegrationID snowflake.ID `json:"integration_id,omitempty"`
	Disconnected  bool         `json:"disconnected"`
}

type StatusResponse struct {
	IntegrationID snowflake.ID   `json:"integration_id,omitempty"`
	Type          string         `json:"type"`
	Name          string         `json:"name,omitempty"`
	Status        Status         `json:"status"`
	Configured    bool           `json:"configured"`
	Config        map[string]any `json:"config,omitempty"`
	LastSyncAt    *time.Time     `json:"last_sync_at,omitempty"`
	LastError     *string        `json:"last_error,omitempty"`
	UpdatedAt     *time.Time     `json:"updated_at,omitempty"`
}

var (
	ErrInvalidConfig         = errors.New("invalid_integration_config")
	ErrInvalidOrganization   = errors.New("invalid_organization")
	ErrDepartmentOrgMismatch = errors.New("department_org_mismatch")
	ErrConcurrentUpdate      = errors.New("integration_concurrent_update")
	ErrSealedValue           = errors.New("integration_sealed_value_invalid")
)
