// Package entitlement decides what an organization's plan allows.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/missioncontrol/internal/config"
	orgdomain "github.com/smallbiznis/missioncontrol/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Resource string

const ResourceDepartments Resource = "departments"

var (
	ErrQuotaExceeded   = errors.New("quota_exceeded")
	ErrPlanRestricted  = errors.New("plan_restricted")
	ErrUnknownResource = errors.New("unknown_resource")
)

// Gate is consulted before writes that consume plan capacity.
type Gate interface {
	CheckLimit(ctx context.Context, orgID snowflake.ID, resource Resource) error
	AssertIntegrationAllowed(ctx context.Context, orgID snowflake.ID, integrationType string) error
}

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	OrgRepo orgdomain.Repository
	Plans   *config.PlanConfigHolder
}

type PlanGate struct {
	db      *gorm.DB
	log     *zap.Logger
	orgRepo orgdomain.Repository
	plans   *config.PlanConfigHolder
}

func NewPlanGate(p Params) Gate {
	return &PlanGate{
		db:      p.DB,
		log:     p.Log.Named("entitlement.gate"),
		orgRepo: p.OrgRepo,
		plans:   p.Plans,
	}
}

func (g *PlanGate) CheckLimit(ctx context.Context, orgID snowflake.ID, resource Resource) error {
	plan, err := g.planFor(ctx, orgID)
	if err != nil {
		return err
	}

	switch resource {
	case ResourceDepartments:
		if plan.MaxDepartments == 0 {
			return nil
		}
		var count int64
		if err := g.db.WithContext(ctx).Raw(
			`SELECT COUNT(1) FROM departments WHERE org_id = ?`,
			orgID,
		).Scan(&count).Error; err != nil {
			return err
		}
		if count >= int64(plan.MaxDepartments) {
			return fmt.Errorf("%w: %s limit %d reached", ErrQuotaExceeded, resource, plan.MaxDepartments)
		}
		return nil
	default:
		return ErrUnknownResource
	}
}

func (g *PlanGate) AssertIntegrationAllowed(ctx context.Context, orgID snowflake.ID, integrationType string) error {
	plan, err := g.planFor(ctx, orgID)
	if err != nil {
		return err
	}
	if !plan.AllowsIntegration(strings.TrimSpace(integrationType)) {
		return fmt.Errorf("%w: %s", ErrPlanRestricted, integrationType)
	}
	return nil
}

func (g *PlanGate) planFor(ctx context.Context, orgID snowflake.ID) (config.Plan, error) {
	org, err := g.orgRepo.FindByID(ctx, orgID)
	if err != nil {
		return config.Plan{}, err
	}
	if org == nil {
		return config.Plan{}, orgdomain.ErrNotFound
	}

	plans := g.plans.Get()
	plan, ok := plans.Lookup(org.Plan)
	if ok {
		return plan, nil
	}

	g.log.Warn("unknown plan, falling back to default",
		zap.String("org_id", orgID.String()),
		zap.String("plan", org.Plan),
	)
	plan, _ = plans.Lookup(config.DefaultPlan)
	return plan, nil
}

var Module = fx.Module("entitlement.gate",
	fx.Provide(NewPlanGate),
)
