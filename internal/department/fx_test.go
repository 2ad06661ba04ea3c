package department

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/missioncontrol/internal/access"
	"github.com/smallbiznis/missioncontrol/internal/agent"
	agentdomain "github.com/smallbiznis/missioncontrol/internal/agent/domain"
	"github.com/smallbiznis/missioncontrol/internal/cascade"
	"github.com/smallbiznis/missioncontrol/internal/clock"
	"github.com/smallbiznis/missioncontrol/internal/config"
	"github.com/smallbiznis/missioncontrol/internal/department/domain"
	"github.com/smallbiznis/missioncontrol/internal/entitlement"
	"github.com/smallbiznis/missioncontrol/internal/identity"
	"github.com/smallbiznis/missioncontrol/internal/integration"
	integrationdomain "github.com/smallbiznis/missioncontrol/internal/integration/domain"
	"github.com/smallbiznis/missioncontrol/internal/migration"
	"github.com/smallbiznis/missioncontrol/internal/organization"
	orgdomain "github.com/smallbiznis/missioncontrol/internal/organization/domain"
	"github.com/smallbiznis/missioncontrol/internal/workspace"
	"github.com/smallbiznis/missioncontrol/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	wiredOrgID   snowflake.ID = 100
	wiredOwnerID snowflake.ID = 11
	wiredUserID  snowflake.ID = 12
)

var allCollections = []string{
	"activity_log",
	"agent_templates",
	"agents",
	"department_memberships",
	"documents",
	"execution_runs",
	"integrations",
	"messages",
	"notifications",
	"tasks",
	"thread_read_markers",
	"thread_subscriptions",
	"ux_events",
}

type wiredEnv struct {
	db       *gorm.DB
	svc      domain.Service
	registry *cascade.Registry
	now      time.Time
}

// newWiredEnv resolves the department service from the same modules the
// server composes, so cascaders and create hooks come from their owners.
func newWiredEnv(t *testing.T) wiredEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, migration.Migrate(context.Background(), conn, db.TypeSQLite))

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, conn.Create(&orgdomain.Organization{
		ID: wiredOrgID, Name: "Acme", Slug: "acme", Plan: "pro", CreatedAt: now, UpdatedAt: now,
	}).Error)
	require.NoError(t, conn.Create(&[]orgdomain.OrganizationMember{
		{ID: 1, OrgID: wiredOrgID, UserID: wiredOwnerID, Role: orgdomain.RoleOwner, CreatedAt: now},
		{ID: 2, OrgID: wiredOrgID, UserID: wiredUserID, Role: orgdomain.RoleMember, CreatedAt: now},
	}).Error)

	var (
		svc      domain.Service
		registry *cascade.Registry
	)
	app := fx.New(
		fx.NopLogger,
		fx.Supply(conn, config.Config{}),
		fx.Provide(func() *zap.Logger { return zaptest.NewLogger(t) }),
		fx.Provide(func() (*snowflake.Node, error) { return snowflake.NewNode(1) }),
		fx.Provide(func() clock.Clock { return clock.NewFakeClock(now) }),
		fx.Provide(func() *config.PlanConfigHolder {
			return config.NewStaticPlanConfigHolder(config.DefaultPlanConfig())
		}),
		fx.Provide(access.NewMemoryEnforcer, identity.NewContextProvider, access.NewResolver),
		organization.Module,
		entitlement.Module,
		cascade.Module,
		workspace.Module,
		agent.Module,
		Module,
		integration.Module,
		fx.Populate(&svc, &registry),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, app.Start(ctx))
	t.Cleanup(func() {
		_ = app.Stop(context.Background())
	})

	return wiredEnv{db: conn, svc: svc, registry: registry, now: now}
}

func (e wiredEnv) countRows(t *testing.T, table string, departmentID snowflake.ID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Table(table).Where("department_id = ?", departmentID).Count(&count).Error)
	return count
}

func (e wiredEnv) seedWorkspaceRows(t *testing.T, departmentID snowflake.ID, perTable int, nextID *int64) {
	t.Helper()
	for _, table := range workspace.Tables {
		for i := 0; i < perTable; i++ {
			*nextID++
			require.NoError(t, e.db.Exec(
				fmt.Sprintf(`INSERT INTO %s (id, department_id, payload, created_at) VALUES (?, ?, ?, ?)`, table),
				*nextID, departmentID, "{}", e.now,
			).Error)
		}
	}
}

func TestModulesRegisterEveryCascadedCollection(t *testing.T) {
	env := newWiredEnv(t)

	collections := env.registry.Collections()
	sort.Strings(collections)
	assert.Equal(t, allCollections, collections)
}

func TestRemoveCascadesAcrossEveryCollection(t *testing.T) {
	env := newWiredEnv(t)
	ctx := context.Background()

	deptID, err := env.svc.Create(ctx, domain.CreateRequest{Name: "Engineering", Slug: "eng", OrgID: wiredOrgID})
	require.NoError(t, err)
	keepID, err := env.svc.Create(ctx, domain.CreateRequest{Name: "Sales", Slug: "sales", OrgID: wiredOrgID})
	require.NoError(t, err)

	// retried seeding never duplicates the default agent
	for i := 0; i < 3; i++ {
		require.NoError(t, env.svc.EnsureDefaults(ctx, deptID))
	}
	require.EqualValues(t, 1, env.countRows(t, "agents", deptID))

	for _, userID := range []snowflake.ID{wiredOwnerID, wiredUserID} {
		_, err := env.svc.AddMember(ctx, domain.AddMemberRequest{DepartmentID: deptID, UserID: userID})
		require.NoError(t, err)
	}
	_, err = env.svc.AddMember(ctx, domain.AddMemberRequest{DepartmentID: keepID, UserID: wiredUserID})
	require.NoError(t, err)

	require.NoError(t, env.db.Create(&[]agentdomain.Template{
		{ID: 7001, DepartmentID: deptID, Name: "Triage", Role: "Support", CreatedAt: env.now},
		{ID: 7002, DepartmentID: deptID, Name: "Review", Role: "QA", CreatedAt: env.now},
		{ID: 7003, DepartmentID: keepID, Name: "Pipeline", Role: "Sales", CreatedAt: env.now},
	}).Error)
	require.NoError(t, env.db.Create(&integrationdomain.Integration{
		ID:           8001,
		OrgID:        wiredOrgID,
		DepartmentID: &deptID,
		Type:         integrationdomain.TypeGmail,
		Name:         integrationdomain.DefaultGmailName,
		Config:       datatypes.JSONMap{integrationdomain.KeyClientID: "client"},
		AuthType:     integrationdomain.AuthTypeOAuth2,
		Status:       integrationdomain.StatusNotConnected,
		CreatedAt:    env.now,
		UpdatedAt:    env.now,
	}).Error)

	var nextID int64 = 10000
	env.seedWorkspaceRows(t, deptID, 2, &nextID)
	env.seedWorkspaceRows(t, keepID, 1, &nextID)

	before := map[string]int64{}
	var seeded int64
	for _, collection := range allCollections {
		count := env.countRows(t, collection, deptID)
		require.NotZero(t, count, collection)
		before[collection] = count
		seeded += count
	}
	keepBefore := map[string]int64{}
	for _, collection := range allCollections {
		keepBefore[collection] = env.countRows(t, collection, keepID)
	}

	owner := identity.WithUserID(ctx, wiredOwnerID)
	preview, err := env.svc.PreviewRemoval(owner, deptID)
	require.NoError(t, err)
	assert.Equal(t, before, preview.Deleted)
	assert.Equal(t, seeded, preview.Total)

	report, err := env.svc.Remove(owner, deptID)
	require.NoError(t, err)
	assert.Len(t, report.Deleted, len(allCollections))
	assert.Equal(t, before, report.Deleted)
	assert.Equal(t, seeded, report.Total)

	for _, collection := range allCollections {
		assert.Zero(t, env.countRows(t, collection, deptID), collection)
		assert.Equal(t, keepBefore[collection], env.countRows(t, collection, keepID), collection)
	}

	dept, err := env.svc.Get(ctx, deptID)
	require.NoError(t, err)
	assert.Nil(t, dept)

	kept, err := env.svc.Get(ctx, keepID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
