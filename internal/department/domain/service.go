package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	orgdomain "github.com/smallbiznis/missioncontrol/internal/organization/domain"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (snowflake.ID, error)
	EnsureDefaults(ctx context.Context, departmentID snowflake.ID) error
	Get(ctx context.Context, departmentID snowflake.ID) (*Department, error)
	GetBySlug(ctx context.Context, slug string) (*Department, error)
	List(ctx context.Context, orgID snowflake.ID, limit int) ([]Department, error)
	ListAll(ctx context.Context) ([]Department, error)
	AddMember(ctx context.Context, req AddMemberRequest) (*MembershipResult, error)
	GetForUser(ctx context.Context, userID snowflake.ID) ([]DepartmentWithRole, error)
	UpdateName(ctx context.Context, departmentID snowflake.ID, name string) error
	PreviewRemoval(ctx context.Context, departmentID snowflake.ID) (*CascadeReport, error)
	Remove(ctx context.Context, departmentID snowflake.ID) (*CascadeReport, error)
	LinkToOrg(ctx context.Context, orgID snowflake.ID) (*RepairReport, error)
}

type CreateRequest struct {
	Name  string       `json:"name"`
	Slug  string       `json:"slug"`
	OrgID snowflake.ID `json:"org_id"`
	Plan  string       `json:"plan"`
}

type AddMemberRequest struct {
	DepartmentID snowflake.ID `json:"department_id"`
	UserID       snowflake.ID `json:"user_id"`
	Role         string       `json:"role"`
}

type MembershipResult struct {
	MembershipID  snowflake.ID   `json:"membership_id"`
	Role          orgdomain.Role `json:"role"`
	AlreadyMember bool           `json:"already_member"`
}

type DepartmentWithRole struct {
	Department
	Role     orgdomain.Role `json:"role"`
	JoinedAt time.Time      `json:"joined_at"`
}

// CascadeReport lists rows removed, or that would be removed, per collection.
type CascadeReport struct {
	DepartmentID snowflake.ID     `json:"department_id"`
	Deleted      map[string]int64 `json:"deleted"`
	Total        int64            `json:"total"`
}

type RepairReport struct {
	OrgID         snowflake.ID `json:"org_id"`
	Updated       int          `json:"updated"`
	AlreadyLinked int          `json:"already_linked"`
}

// CreateHook runs after a department row is committed. Hooks must be
// idempotent: they run again on EnsureDefaults.
type CreateHook interface {
	Name() string
	Order() int
	AfterCreate(ctx context.Context, department Department) error
}

// Cascader owns one collection of department-scoped records.
type Cascader interface {
	Collection() string
	CountByDepartment(ctx context.Context, db *gorm.DB, departmentID snowflake.ID) (int64, error)
	DeleteByDepartment(ctx context.Context, db *gorm.DB, departmentID snowflake.ID) (int64, error)
}

// HookError reports a department that was created but whose post-create
// hooks did not all complete.
type HookError struct {
	DepartmentID snowflake.ID
	Hook         string
	Err          error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("department %s created; hook %s failed: %v", e.DepartmentID, e.Hook, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// CascadeError reports the collection whose deletion aborted a removal.
// Nothing is deleted when it is returned.
type CascadeError struct {
	Collection string
	Err        error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("cascade %s: %v", e.Collection, e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }

var (
	ErrNotFound             = errors.New("department_not_found")
	ErrSlugTaken            = errors.New("department_slug_taken")
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidSlug          = errors.New("invalid_slug")
	ErrInvalidOrganization  = errors.New("invalid_organization")
	ErrOrganizationNotFound = errors.New("organization_not_found")
	ErrInvalidUser          = errors.New("invalid_user")
	ErrBusy                 = errors.New("department_busy")
)
