package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	DefaultAgentSlug  = "jarvis"
	DefaultAgentName  = "Jarvis"
	DefaultAgentRole  = "Head of Operations"
	DefaultAgentLevel = "lead"

	StatusIdle = "idle"
)

// Agent is an assistant persona operating inside a department.
type Agent struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	DepartmentID snowflake.ID `gorm:"not null;uniqueIndex:ux_agents_department_session,priority:1" json:"department_id"`
	Slug         string       `gorm:"type:text;not null" json:"slug"`
	Name         string       `gorm:"type:text;not null" json:"name"`
	Role         string       `gorm:"type:text;not null" json:"role"`
	Level        string       `gorm:"type:text;not null" json:"level"`
	Status       string       `gorm:"type:text;not null" json:"status"`
	SessionKey   string       `gorm:"type:text;not null;uniqueIndex:ux_agents_department_session,priority:2" json:"session_key"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Agent) TableName() string { return "agents" }

// Template is a reusable agent definition saved by a department.
type Template struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	DepartmentID snowflake.ID `gorm:"not null;index" json:"department_id"`
	Name         string       `gorm:"type:text;not null" json:"name"`
	Role         string       `gorm:"type:text;not null" json:"role"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Template) TableName() string { return "agent_templates" }

// SessionKeyFor builds the routing key of an agent within a department.
func SessionKeyFor(agentSlug, departmentSlug string) string {
	return fmt.Sprintf("agent:%s:%s", agentSlug, departmentSlug)
}

type Repository interface {
	FindBySessionKey(ctx context.Context, db *gorm.DB, departmentID snowflake.ID, sessionKey string) (*Agent, error)
	Insert(ctx context.Context, db *gorm.DB, agent *Agent) error
	ListByDepartment(ctx context.Context, db *gorm.DB, departmentID snowflake.ID) ([]Agent, error)
}
