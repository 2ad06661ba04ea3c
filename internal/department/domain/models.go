package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/smallbiznis/missioncontrol/internal/organization/domain"
)

const DefaultPlan = "free"

// Department is a workspace scoped to one organization.
type Department struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex:ux_departments_slug" json:"slug"`
	Org       OrgLink      `gorm:"column:org_id;type:bigint;index:ix_departments_org_id" json:"org_id"`
	Plan      string       `gorm:"type:text;not null;default:'free'" json:"plan"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_departments_created_at" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Department) TableName() string { return "departments" }

// Membership grants a user a role inside one department.
type Membership struct {
	ID           snowflake.ID   `gorm:"primaryKey" json:"id"`
	DepartmentID snowflake.ID   `gorm:"not null;uniqueIndex:ux_department_user,priority:1" json:"department_id"`
	UserID       snowflake.ID   `gorm:"not null;index;uniqueIndex:ux_department_user,priority:2" json:"user_id"`
	Role         orgdomain.Role `gorm:"type:text;not null" json:"role"`
	JoinedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"joined_at"`
}

// TableName sets the database table name.
func (Membership) TableName() string { return "department_memberships" }
