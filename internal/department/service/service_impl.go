package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/missioncontrol/internal/access"
	auditdomain "github.com/smallbiznis/missioncontrol/internal/audit/domain"
	"github.com/smallbiznis/missioncontrol/internal/cascade"
	"github.com/smallbiznis/missioncontrol/internal/clock"
	"github.com/smallbiznis/missioncontrol/internal/department/domain"
	"github.com/smallbiznis/missioncontrol/internal/entitlement"
	"github.com/smallbiznis/missioncontrol/internal/lock"
	obsmetrics "github.com/smallbiznis/missioncontrol/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/missioncontrol/internal/organization/domain"
	"github.com/smallbiznis/missioncontrol/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
	lockTTL          = 10 * time.Second
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	OrgRepo  orgdomain.Repository
	Access   access.Resolver
	Gate     entitlement.Gate
	Cascade  *cascade.Registry
	Hooks    []domain.CreateHook `group:"department.create_hooks"`
	Locker   *lock.Locker        `optional:"true"`
	AuditSvc auditdomain.Service `optional:"true"`
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	orgRepo  orgdomain.Repository
	access   access.Resolver
	gate     entitlement.Gate
	cascade  *cascade.Registry
	hooks    []domain.CreateHook
	locker   *lock.Locker
	auditSvc auditdomain.Service
	metrics  *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	hooks := make([]domain.CreateHook, 0, len(p.Hooks))
	for _, hook := range p.Hooks {
		if hook != nil {
			hooks = append(hooks, hook)
		}
	}
	sort.SliceStable(hooks, func(i, j int) bool {
		if hooks[i].Order() == hooks[j].Order() {
			return hooks[i].Name() < hooks[j].Name()
		}
		return hooks[i].Order() < hooks[j].Order()
	})

	return &Service{
		db:       p.DB,
		log:      p.Log.Named("department.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		orgRepo:  p.OrgRepo,
		access:   p.Access,
		gate:     p.Gate,
		cascade:  p.Cascade,
		hooks:    hooks,
		locker:   p.Locker,
		auditSvc: p.AuditSvc,
		metrics:  p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (snowflake.ID, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return 0, domain.ErrInvalidName
	}
	if req.OrgID == 0 {
		return 0, domain.ErrInvalidOrganization
	}
	slugValue, err := normalizeSlug(req.Slug, name)
	if err != nil {
		return 0, err
	}
	plan := strings.ToLower(strings.TrimSpace(req.Plan))
	if plan == "" {
		plan = domain.DefaultPlan
	}

	if err := s.gate.CheckLimit(ctx, req.OrgID, entitlement.ResourceDepartments); err != nil {
		if errors.Is(err, orgdomain.ErrNotFound) {
			return 0, domain.ErrOrganizationNotFound
		}
		return 0, err
	}

	var dept domain.Department
	err = s.withLock(ctx, "department:slug:"+slugValue, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			existing, err := repo.FindBySlug(ctx, slugValue)
			if err != nil {
				return err
			}
			if existing != nil {
				return domain.ErrSlugTaken
			}

			now := s.clock.Now()
			dept = domain.Department{
				ID:        s.genID.Generate(),
				Name:      name,
				Slug:      slugValue,
				Org:       domain.LinkedTo(req.OrgID),
				Plan:      plan,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := repo.Insert(ctx, &dept); err != nil {
				if db.IsDuplicateKeyErr(err) {
					return domain.ErrSlugTaken
				}
				return err
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	s.metrics.RecordDepartmentCreated(ctx, plan)
	s.log.Info("department created",
		zap.String("department_id", dept.ID.String()),
		zap.String("org_id", req.OrgID.String()),
		zap.String("slug", dept.Slug),
	)

	if err := s.runHooks(ctx, dept); err != nil {
		return dept.ID, err
	}
	return dept.ID, nil
}

func (s *Service) EnsureDefaults(ctx context.Context, departmentID snowflake.ID) error {
	dept, err := s.repo.FindByID(ctx, departmentID)
	if err != nil {
		return err
	}
	if dept == nil {
		return domain.ErrNotFound
	}
	return s.runHooks(ctx, *dept)
}

func (s *Service) runHooks(ctx context.Context, dept domain.Department) error {
	for _, hook := range s.hooks {
		if err := hook.AfterCreate(ctx, dept); err != nil {
			s.log.Error("department create hook failed",
				zap.String("department_id", dept.ID.String()),
				zap.String("hook", hook.Name()),
				zap.Error(err),
			)
			return &domain.HookError{DepartmentID: dept.ID, Hook: hook.Name(), Err: err}
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, departmentID snowflake.ID) (*domain.Department, error) {
	if departmentID == 0 {
		return nil, nil
	}
	return s.repo.FindByID(ctx, departmentID)
}

func (s *Service) GetBySlug(ctx context.Context, slugValue string) (*domain.Department, error) {
	slugValue = strings.TrimSpace(slugValue)
	if slugValue == "" {
		return nil, nil
	}
	return s.repo.FindBySlug(ctx, slugValue)
}

func (s *Service) List(ctx context.Context, orgID snowflake.ID, limit int) ([]domain.Department, error) {
	userID, err := s.access.RequireAuthenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.RequireOrgMembership(ctx, userID, orgID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	items, err := s.repo.ListByOrg(ctx, orgID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Department{}
	}
	return items, nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.Department, error) {
	items, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Department{}
	}
	return items, nil
}

func (s *Service) AddMember(ctx context.Context, req domain.AddMemberRequest) (*domain.MembershipResult, error) {
	if req.UserID == 0 {
		return nil, domain.ErrInvalidUser
	}
	role, err := orgdomain.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	dept, err := s.repo.FindByID(ctx, req.DepartmentID)
	if err != nil {
		return nil, err
	}
	if dept == nil {
		return nil, domain.ErrNotFound
	}

	var result *domain.MembershipResult
	key := "department:member:" + req.DepartmentID.String() + ":" + req.UserID.String()
	err = s.withLock(ctx, key, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)

			existing, err := repo.FindMembership(ctx, req.DepartmentID, req.UserID)
			if err != nil {
				return err
			}
			if existing != nil {
				result = &domain.MembershipResult{MembershipID: existing.ID, Role: existing.Role, AlreadyMember: true}
				return nil
			}

			membership := domain.Membership{
				ID:           s.genID.Generate(),
				DepartmentID: req.DepartmentID,
				UserID:       req.UserID,
				Role:         role,
				JoinedAt:     s.clock.Now(),
			}
			if err := repo.InsertMembership(ctx, &membership); err != nil {
				return err
			}
			result = &domain.MembershipResult{MembershipID: membership.ID, Role: membership.Role}
			return nil
		})
	})
	if err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return nil, err
		}
		existing, findErr := s.repo.FindMembership(ctx, req.DepartmentID, req.UserID)
		if findErr != nil {
			return nil, findErr
		}
		if existing == nil {
			return nil, err
		}
		result = &domain.MembershipResult{MembershipID: existing.ID, Role: existing.Role, AlreadyMember: true}
	}
	return result, nil
}

// GetForUser lists the departments userID belongs to. Memberships whose
// department is gone, unlinked, or whose organization no longer counts the
// user as a member are skipped.
func (s *Service) GetForUser(ctx context.Context, userID snowflake.ID) ([]domain.DepartmentWithRole, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	memberships, err := s.repo.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.DepartmentWithRole, 0, len(memberships))
	for _, m := range memberships {
		scope, err := s.access.RequireDepartmentMembership(ctx, userID, m.DepartmentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) ||
				errors.Is(err, access.ErrDepartmentUnlinked) ||
				errors.Is(err, access.ErrAccessDenied) {
				s.log.Debug("skipping department membership",
					zap.String("membership_id", m.ID.String()),
					zap.String("department_id", m.DepartmentID.String()),
					zap.String("reason", err.Error()),
				)
				continue
			}
			return nil, err
		}
		out = append(out, domain.DepartmentWithRole{Department: *scope.Department, Role: m.Role, JoinedAt: m.JoinedAt})
	}
	return out, nil
}

func (s *Service) UpdateName(ctx context.Context, departmentID snowflake.ID, name string) error {
	scope, err := s.requireDepartmentAdmin(ctx, departmentID)
	if err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrInvalidName
	}

	updated, err := s.repo.UpdateName(ctx, departmentID, name, s.clock.Now())
	if err != nil {
		return err
	}
	if !updated {
		return domain.ErrNotFound
	}

	s.audit(ctx, scope.OrgID, "department.rename", departmentID, map[string]any{
		"previous_name": scope.Department.Name,
		"name":          name,
	})
	return nil
}

func (s *Service) PreviewRemoval(ctx context.Context, departmentID snowflake.ID) (*domain.CascadeReport, error) {
	if _, err := s.requireDepartmentAdmin(ctx, departmentID); err != nil {
		return nil, err
	}

	report := &domain.CascadeReport{DepartmentID: departmentID, Deleted: map[string]int64{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, c := range s.cascade.Cascaders() {
		c := c
		g.Go(func() error {
			count, err := c.CountByDepartment(gctx, s.db, departmentID)
			if err != nil {
				return &domain.CascadeError{Collection: c.Collection(), Err: err}
			}
			mu.Lock()
			report.Deleted[c.Collection()] = count
			report.Total += count
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Service) Remove(ctx context.Context, departmentID snowflake.ID) (*domain.CascadeReport, error) {
	scope, err := s.requireDepartmentAdmin(ctx, departmentID)
	if err != nil {
		return nil, err
	}

	report := &domain.CascadeReport{DepartmentID: departmentID, Deleted: map[string]int64{}}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range s.cascade.Cascaders() {
			count, err := c.DeleteByDepartment(ctx, tx, departmentID)
			if err != nil {
				return &domain.CascadeError{Collection: c.Collection(), Err: err}
			}
			report.Deleted[c.Collection()] = count
			report.Total += count
		}

		deleted, err := s.repo.WithTx(tx).Delete(ctx, departmentID)
		if err != nil {
			return &domain.CascadeError{Collection: "departments", Err: err}
		}
		if deleted == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		var cascadeErr *domain.CascadeError
		if errors.As(err, &cascadeErr) {
			s.log.Error("department removal rolled back",
				zap.String("department_id", departmentID.String()),
				zap.String("collection", cascadeErr.Collection),
				zap.Error(cascadeErr.Err),
			)
		}
		return nil, err
	}

	s.metrics.RecordDepartmentRemoved(ctx, report.Deleted)
	s.log.Info("department removed",
		zap.String("department_id", departmentID.String()),
		zap.Int64("rows_deleted", report.Total),
	)
	s.audit(ctx, scope.OrgID, "department.remove", departmentID, map[string]any{
		"slug":    scope.Department.Slug,
		"deleted": report.Deleted,
		"total":   report.Total,
	})
	return report, nil
}

func (s *Service) LinkToOrg(ctx context.Context, orgID snowflake.ID) (*domain.RepairReport, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	org, err := s.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrOrganizationNotFound
	}

	report := &domain.RepairReport{OrgID: orgID}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updated, total, err := s.repo.WithTx(tx).LinkAllToOrg(ctx, orgID, s.clock.Now())
		if err != nil {
			return err
		}
		report.Updated = int(updated)
		report.AlreadyLinked = int(total - updated)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Warn("departments relinked to organization",
		zap.String("org_id", orgID.String()),
		zap.Int("updated", report.Updated),
		zap.Int("already_linked", report.AlreadyLinked),
	)
	s.audit(ctx, orgID, "department.link_to_org", 0, map[string]any{
		"updated":        report.Updated,
		"already_linked": report.AlreadyLinked,
	})
	return report, nil
}

func (s *Service) requireDepartmentAdmin(ctx context.Context, departmentID snowflake.ID) (*access.DepartmentAccess, error) {
	userID, err := s.access.RequireAuthenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.access.RequireDepartmentOrgAdminMembership(ctx, userID, departmentID)
}

func (s *Service) withLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	err := s.locker.WithLock(ctx, key, lockTTL, fn)
	if errors.Is(err, lock.ErrNotAcquired) {
		s.metrics.RecordLockContention(ctx, strings.SplitN(key, ":", 3)[1])
		return domain.ErrBusy
	}
	return err
}

func (s *Service) audit(ctx context.Context, orgID snowflake.ID, action string, departmentID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	var targetID *string
	if departmentID != 0 {
		value := departmentID.String()
		targetID = &value
	}
	_ = s.auditSvc.AuditLog(ctx, &orgID, "", nil, action, "department", targetID, metadata)
}

// normalizeSlug accepts a caller slug only in canonical form. An empty slug
// is derived from the department name.
func normalizeSlug(raw, name string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		value = slug.Make(name)
	}
	if value == "" || !slug.IsSlug(value) {
		return "", domain.ErrInvalidSlug
	}
	return value, nil
}
