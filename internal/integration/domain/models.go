package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusNotConnected Status = "not_connected"
	StatusPending      Status = "pending"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

const (
	TypeGmail      = "gmail"
	AuthTypeOAuth2 = "oauth2"

	DefaultGmailName = "Gmail"
)

// Integration is the per-organization configuration of one connector type.
// DepartmentID is kept for legacy rows and is cleared on every write.
type Integration struct {
	ID           snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID      `gorm:"not null;uniqueIndex:ux_integrations_org_type,priority:1" json:"org_id"`
	DepartmentID *snowflake.ID     `gorm:"index:ix_integrations_department_id" json:"department_id,omitempty"`
	Type         string            `gorm:"type:text;not null;uniqueIndex:ux_integrations_org_type,priority:2" json:"type"`
	Name         string            `gorm:"type:text;not null" json:"name"`
	Config       datatypes.JSONMap `gorm:"type:jsonb;not null" json:"config"`
	AuthType     string            `gorm:"type:text;not null" json:"auth_type"`
	Status       Status            `gorm:"type:text;not null;default:'not_connected'" json:"status"`
	LastSyncAt   *time.Time        `json:"last_sync_at,omitempty"`
	LastError    *string           `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Integration) TableName() string { return "integrations" }
