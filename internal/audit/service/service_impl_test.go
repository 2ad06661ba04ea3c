package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/missioncontrol/internal/audit/domain"
	"github.com/smallbiznis/missioncontrol/internal/audit/repository"
	"github.com/smallbiznis/missioncontrol/internal/auditcontext"
	"github.com/smallbiznis/missioncontrol/internal/clock"
	"github.com/smallbiznis/missioncontrol/internal/orgcontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupAudit(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, clk
}

func TestAuditLogResolvesContextActorAndOrg(t *testing.T) {
	svc, _ := setupAudit(t)
	orgID := snowflake.ID(100)

	ctx := orgcontext.WithOrgID(context.Background(), orgID)
	ctx = auditcontext.WithActor(ctx, "user", "11")
	ctx = auditcontext.WithRequestID(ctx, "req-1")
	ctx = auditcontext.WithIPAddress(ctx, "10.0.0.1")

	target := "500"
	require.NoError(t, svc.AuditLog(ctx, nil, "", nil, "department.create", "department", &target, map[string]any{
		"slug":          "support",
		"client_secret": "super-secret-value",
	}))

	logs, err := svc.List(ctx, auditdomain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)

	entry := logs[0]
	require.NotNil(t, entry.OrgID)
	assert.Equal(t, orgID, *entry.OrgID)
	assert.Equal(t, "user", entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "11", *entry.ActorID)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.1", *entry.IPAddress)
	assert.Nil(t, entry.UserAgent)
	assert.Equal(t, "support", entry.Metadata["slug"])
	assert.Equal(t, "****alue", entry.Metadata["client_secret"])
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
}

func TestAuditLogDefaultsToSystemActor(t *testing.T) {
	svc, _ := setupAudit(t)
	orgID := snowflake.ID(100)

	require.NoError(t, svc.AuditLog(context.Background(), &orgID, "", nil, "department.link_to_org", "", nil, nil))

	logs, err := svc.List(context.Background(), auditdomain.ListFilter{OrgID: orgID})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, string(auditdomain.ActorTypeSystem), logs[0].ActorType)
	assert.Nil(t, logs[0].ActorID)
	assert.Equal(t, "unknown", logs[0].TargetType)
}

func TestAuditLogRequiresAction(t *testing.T) {
	svc, _ := setupAudit(t)

	err := svc.AuditLog(context.Background(), nil, "", nil, "  ", "department", nil, nil)
	require.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListFiltersByActionPrefixNewestFirst(t *testing.T) {
	svc, clk := setupAudit(t)
	orgID := snowflake.ID(100)
	otherOrg := snowflake.ID(200)
	ctx := context.Background()

	for _, action := range []string{"department.create", "integration.gmail.create", "department.remove"} {
		require.NoError(t, svc.AuditLog(ctx, &orgID, "user", nil, action, "department", nil, nil))
		clk.Advance(time.Minute)
	}
	require.NoError(t, svc.AuditLog(ctx, &otherOrg, "user", nil, "department.create", "department", nil, nil))

	logs, err := svc.List(ctx, auditdomain.ListFilter{OrgID: orgID, Action: "department.*"})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "department.remove", logs[0].Action)
	assert.Equal(t, "department.create", logs[1].Action)

	exact, err := svc.List(ctx, auditdomain.ListFilter{OrgID: orgID, Action: "integration.gmail.create", Limit: 1})
	require.NoError(t, err)
	require.Len(t, exact, 1)
}

func TestListRequiresOrganization(t *testing.T) {
	svc, _ := setupAudit(t)

	_, err := svc.List(context.Background(), auditdomain.ListFilter{})
	require.ErrorIs(t, err, auditdomain.ErrInvalidOrganization)

	logs, err := svc.List(context.Background(), auditdomain.ListFilter{OrgID: 300})
	require.NoError(t, err)
	assert.NotNil(t, logs)
	assert.Empty(t, logs)
}
