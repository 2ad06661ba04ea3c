// Package access resolves who the caller is and what organization and
// department scope they may act in.
package access

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	auditdomain "github.com/smallbiznis/missioncontrol/internal/audit/domain"
	"github.com/smallbiznis/missioncontrol/internal/auditcontext"
	"github.com/smallbiznis/missioncontrol/internal/config"
	departmentdomain "github.com/smallbiznis/missioncontrol/internal/department/domain"
	"github.com/smallbiznis/missioncontrol/internal/identity"
	obsmetrics "github.com/smallbiznis/missioncontrol/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/missioncontrol/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAccessDenied       = errors.New("access_denied")
	ErrDepartmentUnlinked = errors.New("department_unlinked")
)

// Resolver answers authorization questions for every org- and
// department-scoped operation.
type Resolver interface {
	RequireAuthenticatedUser(ctx context.Context) (snowflake.ID, error)
	RequireOrgMembership(ctx context.Context, userID, orgID snowflake.ID) (orgdomain.Role, error)
	RequireOrgAdminMembership(ctx context.Context, userID, orgID snowflake.ID) (orgdomain.Role, error)
	RequireDepartmentWithOrg(ctx context.Context, departmentID snowflake.ID) (*departmentdomain.Department, snowflake.ID, error)
	RequireDepartmentOrgMembership(ctx context.Context, userID, departmentID snowflake.ID) (*DepartmentAccess, error)
	RequireDepartmentOrgAdminMembership(ctx context.Context, userID, departmentID snowflake.ID) (*DepartmentAccess, error)
	RequireDepartmentMembership(ctx context.Context, userID, departmentID snowflake.ID) (*DepartmentAccess, error)
	RequireOperator(ctx context.Context) error
}

// DepartmentAccess is the scope resolved for a department-level check.
type DepartmentAccess struct {
	Department *departmentdomain.Department
	OrgID      snowflake.ID
	Role       orgdomain.Role
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	OrgRepo  orgdomain.Repository
	DeptRepo departmentdomain.Repository
	Identity identity.Provider
	Cfg      config.Config
	AuditSvc auditdomain.Service `optional:"true"`
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type resolver struct {
	log       *zap.Logger
	enforcer  *casbin.SyncedEnforcer
	orgRepo   orgdomain.Repository
	deptRepo  departmentdomain.Repository
	identity  identity.Provider
	operators map[snowflake.ID]struct{}
	auditSvc  auditdomain.Service
	metrics   *obsmetrics.Metrics
}

func NewResolver(p Params) Resolver {
	operators := make(map[snowflake.ID]struct{}, len(p.Cfg.Identity.OperatorUserIDs))
	for _, raw := range p.Cfg.Identity.OperatorUserIDs {
		id, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil || id == 0 {
			p.Log.Warn("ignoring invalid operator user id", zap.String("value", raw))
			continue
		}
		operators[id] = struct{}{}
	}

	return &resolver{
		log:       p.Log.Named("access.resolver"),
		enforcer:  p.Enforcer,
		orgRepo:   p.OrgRepo,
		deptRepo:  p.DeptRepo,
		identity:  p.Identity,
		operators: operators,
		auditSvc:  p.AuditSvc,
		metrics:   p.Metrics,
	}
}

func (r *resolver) RequireAuthenticatedUser(ctx context.Context) (snowflake.ID, error) {
	userID, ok := r.identity.CurrentUserID(ctx)
	if !ok || userID == 0 {
		r.metrics.RecordAuthorizationDenied(ctx, "authenticated", "no_identity")
		return 0, ErrUnauthorized
	}
	return userID, nil
}

func (r *resolver) RequireOrgMembership(ctx context.Context, userID, orgID snowflake.ID) (orgdomain.Role, error) {
	return r.requireOrgCapability(ctx, userID, orgID, ActionRead, "org_member")
}

func (r *resolver) RequireOrgAdminMembership(ctx context.Context, userID, orgID snowflake.ID) (orgdomain.Role, error) {
	return r.requireOrgCapability(ctx, userID, orgID, ActionManage, "org_admin")
}

func (r *resolver) requireOrgCapability(ctx context.Context, userID, orgID snowflake.ID, action, check string) (orgdomain.Role, error) {
	if userID == 0 {
		return "", ErrUnauthorized
	}
	if orgID == 0 {
		r.deny(ctx, orgID, userID, check, "invalid_org")
		return "", ErrAccessDenied
	}

	member, err := r.orgRepo.FindMember(ctx, orgID, userID)
	if err != nil {
		return "", err
	}
	if member == nil {
		r.deny(ctx, orgID, userID, check, "not_member")
		return "", ErrAccessDenied
	}

	allowed, err := r.enforcer.Enforce(subjectForRole(member.Role), ObjectOrganization, action)
	if err != nil {
		return "", err
	}
	if !allowed {
		r.deny(ctx, orgID, userID, check, "role")
		return "", ErrAccessDenied
	}
	return member.Role, nil
}

func (r *resolver) RequireDepartmentWithOrg(ctx context.Context, departmentID snowflake.ID) (*departmentdomain.Department, snowflake.ID, error) {
	if departmentID == 0 {
		return nil, 0, departmentdomain.ErrNotFound
	}
	dept, err := r.deptRepo.FindByID(ctx, departmentID)
	if err != nil {
		return nil, 0, err
	}
	if dept == nil {
		return nil, 0, departmentdomain.ErrNotFound
	}
	orgID, ok := dept.Org.Get()
	if !ok {
		return nil, 0, ErrDepartmentUnlinked
	}
	return dept, orgID, nil
}

func (r *resolver) RequireDepartmentOrgMembership(ctx context.Context, userID, departmentID snowflake.ID) (*DepartmentAccess, error) {
	dept, orgID, err := r.RequireDepartmentWithOrg(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	role, err := r.RequireOrgMembership(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	return &DepartmentAccess{Department: dept, OrgID: orgID, Role: role}, nil
}

func (r *resolver) RequireDepartmentOrgAdminMembership(ctx context.Context, userID, departmentID snowflake.ID) (*DepartmentAccess, error) {
	dept, orgID, err := r.RequireDepartmentWithOrg(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	role, err := r.RequireOrgAdminMembership(ctx, userID, orgID)
	if err != nil {
		return nil, err
	}
	return &DepartmentAccess{Department: dept, OrgID: orgID, Role: role}, nil
}

// RequireDepartmentMembership checks the direct department membership and
// also requires the user to still belong to the department's organization.
// The returned role is the department role.
func (r *resolver) RequireDepartmentMembership(ctx context.Context, userID, departmentID snowflake.ID) (*DepartmentAccess, error) {
	if userID == 0 {
		return nil, ErrUnauthorized
	}
	dept, orgID, err := r.RequireDepartmentWithOrg(ctx, departmentID)
	if err != nil {
		return nil, err
	}

	membership, err := r.deptRepo.FindMembership(ctx, departmentID, userID)
	if err != nil {
		return nil, err
	}
	if membership == nil {
		r.deny(ctx, orgID, userID, "department_member", "not_member")
		return nil, ErrAccessDenied
	}

	if _, err := r.RequireOrgMembership(ctx, userID, orgID); err != nil {
		return nil, err
	}
	return &DepartmentAccess{Department: dept, OrgID: orgID, Role: membership.Role}, nil
}

// RequireOperator admits the system actor and configured operator users.
func (r *resolver) RequireOperator(ctx context.Context) error {
	if actorType, _ := auditcontext.ActorFromContext(ctx); actorType == string(auditdomain.ActorTypeSystem) {
		return nil
	}

	userID, err := r.RequireAuthenticatedUser(ctx)
	if err != nil {
		return err
	}

	subject := "user:" + userID.String()
	if _, ok := r.operators[userID]; ok {
		subject = subjectOperator
	}
	allowed, err := r.enforcer.Enforce(subject, ObjectMaintenance, ActionRun)
	if err != nil {
		return err
	}
	if !allowed {
		r.deny(ctx, 0, userID, "operator", "not_operator")
		return ErrAccessDenied
	}
	return nil
}

func (r *resolver) deny(ctx context.Context, orgID, userID snowflake.ID, check, reason string) {
	r.metrics.RecordAuthorizationDenied(ctx, check, reason)
	r.log.Debug("access denied",
		zap.String("check", check),
		zap.String("reason", reason),
		zap.String("org_id", orgID.String()),
		zap.String("user_id", userID.String()),
	)

	if r.auditSvc == nil {
		return
	}
	var orgRef *snowflake.ID
	if orgID != 0 {
		orgRef = &orgID
	}
	actorID := userID.String()
	targetID := check
	_ = r.auditSvc.AuditLog(ctx, orgRef, string(auditdomain.ActorTypeUser), &actorID, "authorization.denied", "authorization", &targetID, map[string]any{
		"check":  check,
		"reason": reason,
	})
}
