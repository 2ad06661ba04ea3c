package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	agentdomain "github.com/smallbiznis/missioncontrol/internal/agent/domain"
	"github.com/smallbiznis/missioncontrol/internal/clock"
	departmentdomain "github.com/smallbiznis/missioncontrol/internal/department/domain"
	"github.com/smallbiznis/missioncontrol/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  agentdomain.Repository
}

// DefaultAgentSeeder gives every new department its operations lead agent.
type DefaultAgentSeeder struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  agentdomain.Repository
}

func NewDefaultAgentSeeder(p Params) *DefaultAgentSeeder {
	return &DefaultAgentSeeder{
		db:    p.DB,
		log:   p.Log.Named("agent.seeder"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *DefaultAgentSeeder) Name() string { return "default_agent" }

func (s *DefaultAgentSeeder) Order() int { return 100 }

func (s *DefaultAgentSeeder) AfterCreate(ctx context.Context, department departmentdomain.Department) error {
	_, err := s.SeedDefault(ctx, department)
	return err
}

// SeedDefault inserts the default agent unless it already exists. It reports
// whether a row was created.
func (s *DefaultAgentSeeder) SeedDefault(ctx context.Context, department departmentdomain.Department) (bool, error) {
	sessionKey := agentdomain.SessionKeyFor(agentdomain.DefaultAgentSlug, department.Slug)

	created := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindBySessionKey(ctx, tx, department.ID, sessionKey)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}

		agent := agentdomain.Agent{
			ID:           s.genID.Generate(),
			DepartmentID: department.ID,
			Slug:         agentdomain.DefaultAgentSlug,
			Name:         agentdomain.DefaultAgentName,
			Role:         agentdomain.DefaultAgentRole,
			Level:        agentdomain.DefaultAgentLevel,
			Status:       agentdomain.StatusIdle,
			SessionKey:   sessionKey,
			CreatedAt:    s.clock.Now(),
		}
		if err := s.repo.Insert(ctx, tx, &agent); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}

	if created {
		s.log.Info("seeded default agent",
			zap.String("department_id", department.ID.String()),
			zap.String("session_key", sessionKey),
		)
	}
	return created, nil
}

var _ departmentdomain.CreateHook = (*DefaultAgentSeeder)(nil)
