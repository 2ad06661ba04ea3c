package access

import (
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	orgdomain "github.com/smallbiznis/missioncontrol/internal/organization/domain"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectOrganization = "organization"
	ObjectMaintenance  = "maintenance"
)

const (
	ActionRead   = "read"
	ActionManage = "manage"
	ActionRun    = "run"
)

const subjectOperator = "role:operator"

// NewEnforcer builds a policy enforcer persisted through the casbin gorm adapter.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer builds an enforcer holding the seeded policies in memory.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// owner inherits admin, admin inherits member.
func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		{subjectForRole(orgdomain.RoleMember), ObjectOrganization, ActionRead},
		{subjectForRole(orgdomain.RoleAdmin), ObjectOrganization, ActionManage},
		{subjectOperator, ObjectMaintenance, ActionRun},
	}
	for _, rule := range policies {
		has, err := enforcer.HasPolicy(rule[0], rule[1], rule[2])
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
			return err
		}
	}

	groupings := [][]string{
		{subjectForRole(orgdomain.RoleOwner), subjectForRole(orgdomain.RoleAdmin)},
		{subjectForRole(orgdomain.RoleAdmin), subjectForRole(orgdomain.RoleMember)},
	}
	for _, rule := range groupings {
		has, err := enforcer.HasGroupingPolicy(rule[0], rule[1])
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
			return err
		}
	}
	return nil
}

func subjectForRole(role orgdomain.Role) string {
	return "role:" + strings.ToLower(strings.TrimSpace(string(role)))
}
