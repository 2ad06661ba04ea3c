package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/missioncontrol/internal/access"
	"github.com/smallbiznis/missioncontrol/internal/clock"
	"github.com/smallbiznis/missioncontrol/internal/config"
	departmentdomain "github.com/smallbiznis/missioncontrol/internal/department/domain"
	departmentrepository "github.com/smallbiznis/missioncontrol/internal/department/repository"
	"github.com/smallbiznis/missioncontrol/internal/entitlement"
	"github.com/smallbiznis/missioncontrol/internal/identity"
	"github.com/smallbiznis/missioncontrol/internal/integration/domain"
	"github.com/smallbiznis/missioncontrol/internal/integration/repository"
	orgdomain "github.com/smallbiznis/missioncontrol/internal/organization/domain"
	orgrepository "github.com/smallbiznis/missioncontrol/internal/organization/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	orgA       snowflake.ID = 100
	orgB       snowflake.ID = 200
	adminA     snowflake.ID = 11
	memberA    snowflake.ID = 12
	adminB     snowflake.ID = 21
	deptA      snowflake.ID = 301
	deptB      snowflake.ID = 302
	returnURL               = "https://app.example.com/settings/integrations"
	redirectTo              = "https://app.example.com/oauth/gmail/callback"
)

type integrationEnv struct {
	db  *gorm.DB
	svc domain.Service
}

func setupIntegration(t *testing.T, secret string, plans config.PlanConfig) integrationEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&orgdomain.OrganizationMember{},
		&departmentdomain.Department{},
		&departmentdomain.Membership{},
		&domain.Integration{},
	))

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&[]orgdomain.Organization{
		{ID: orgA, Name: "Acme", Slug: "acme", Plan: "free", CreatedAt: now, UpdatedAt: now},
		{ID: orgB, Name: "Globex", Slug: "globex", Plan: "free", CreatedAt: now, UpdatedAt: now},
	}).Error)
	require.NoError(t, db.Create(&[]orgdomain.OrganizationMember{
		{ID: 1, OrgID: orgA, UserID: adminA, Role: orgdomain.RoleAdmin, CreatedAt: now},
		{ID: 2, OrgID: orgA, UserID: memberA, Role: orgdomain.RoleMember, CreatedAt: now},
		{ID: 3, OrgID: orgB, UserID: adminB, Role: orgdomain.RoleOwner, CreatedAt: now},
	}).Error)
	require.NoError(t, db.Create(&[]departmentdomain.Department{
		{ID: deptA, Name: "Ops", Slug: "ops", Org: departmentdomain.LinkedTo(orgA), Plan: "free", CreatedAt: now, UpdatedAt: now},
		{ID: deptB, Name: "Sales", Slug: "sales", Org: departmentdomain.LinkedTo(orgB), Plan: "free", CreatedAt: now, UpdatedAt: now},
	}).Error)

	log := zaptest.NewLogger(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	enforcer, err := access.NewMemoryEnforcer()
	require.NoError(t, err)
	orgRepo := orgrepository.NewRepository(db)

	cfg := config.Config{Integrations: config.IntegrationsConfig{
		GmailAppReturnURL: returnURL,
		ConfigSecret:      secret,
	}}

	svc, err := New(Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Clock: clock.NewFakeClock(now),
		Repo:  repository.NewRepository(db),
		Access: access.NewResolver(access.Params{
			Log:      log,
			Enforcer: enforcer,
			OrgRepo:  orgRepo,
			DeptRepo: departmentrepository.NewRepository(db),
			Identity: identity.NewContextProvider(),
			Cfg:      cfg,
		}),
		Gate: entitlement.NewPlanGate(entitlement.Params{
			DB:      db,
			Log:     log,
			OrgRepo: orgRepo,
			Plans:   config.NewStaticPlanConfigHolder(plans),
		}),
		Cfg: cfg,
	})
	require.NoError(t, err)
	return integrationEnv{db: db, svc: svc}
}

func as(userID snowflake.ID) context.Context {
	return identity.WithUserID(context.Background(), userID)
}

func gmailRequest(orgID snowflake.ID) domain.UpsertGmailRequest {
	return domain.UpsertGmailRequest{
		OrgID:        orgID,
		ClientID:     "client-123",
		ClientSecret: "secret-abcdef",
		RedirectURI:  redirectTo,
	}
}

func loadIntegration(t *testing.T, db *gorm.DB, orgID snowflake.ID) domain.Integration {
	t.Helper()
	var item domain.Integration
	require.NoError(t, db.Where("org_id = ? AND type = ?", orgID, domain.TypeGmail).First(&item).Error)
	return item
}

func countIntegrations(t *testing.T, db *gorm.DB, orgID snowflake.ID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&domain.Integration{}).Where("org_id = ?", orgID).Count(&count).Error)
	return count
}

func simulateConnected(t *testing.T, db *gorm.DB, item domain.Integration) {
	t.Helper()
	bag := domain.ConfigBag(item.Config).Merge(map[string]any{
		domain.KeyAccessToken:        "access-token",
		domain.KeyRefreshToken:       "refresh-token",
		domain.KeyTokenExpiry:        "2026-03-02T09:00:00Z",
		domain.KeyGrantedScopes:      []any{"gmail.readonly"},
		domain.KeyCapabilities:       []any{"read"},
		domain.KeyConnectedAt:        "2026-03-01T09:00:00Z",
		domain.KeyPendingOAuthIntent: "intent-1",
	})
	require.NoError(t, db.Model(&domain.Integration{}).Where("id = ?", item.ID).Updates(map[string]any{
		"config":     datatypes.JSONMap(bag),
		"status":     string(domain.StatusConnected),
		"last_error": "token refresh failed",
	}).Error)
}

func TestUpsertGmailConfigCreatesThenMerges(t *testing.T) {
	env := setupIntegration(t, "", config.DefaultPlanConfig())

	first, err := env.svc.UpsertGmailConfig(as(adminA), gmailRequest(orgA))
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, domain.StatusNotConnected, first.Status)

	item := loadIntegration(t, env.db, orgA)
	assert.Equal(t, domain.DefaultGmailName, item.Name)
	assert.Equal(t, domain.AuthTypeOAuth2, item.AuthType)
	assert.Equal(t, returnURL, item.Config[domain.KeyAppReturnURL])
	assert.Nil(t, item.DepartmentID)
	require.NotNil(t, item.LastSyncAt)

	simulateConnected(t, env.db, item)

	req := gmailRequest(orgA)
	req.ClientID = "client-456"
	req.AppReturnURL = "https://custom.example.com/back"
	second, err := env.svc.UpsertGmailConfig(as(adminA), req)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.IntegrationID, second.IntegrationID)
	assert.Equal(t, domain.StatusConnected, second.Status)

	assert.Equal(t, int64(1), countIntegrations(t, env.db, orgA))

	item = loadIntegration(t, env.db, orgA)
	assert.Equal(t, "client-456", item.Config[domain.KeyClientID])
	assert.Equal(t, "https://custom.example.com/back", item.Config[domain.KeyAppReturnURL])
	assert.Equal(t, "access-token", item.Config[domain.KeyAccessToken])
	assert.Equal(t, domain.DefaultGmailName, item.Name)
	assert.Nil(t, item.LastError)
}

func TestUpsertGmailConfigRecordsDepartmentContext(t *testing.T) {
	env := setupIntegration(t, "", config.DefaultPlanConfig())

	req := gmailRequest(orgA)
	dept := deptA
	req.DepartmentID = &dept
	_, err := env.svc.UpsertGmailConfig(as(adminA), req)
	require.NoError(t, err)

	item := loadIntegration(t, env.db, orgA)
	assert.Nil(t, item.DepartmentID)
	assert.Equal(t, deptA.String(), item.Config[domain.KeyOAuthContextDepartmentID])

	_, err = env.svc.UpsertGmailConfig(as(adminA), gmailRequest(orgA))
	require.NoError(t, err)
	item = loadIntegration(t, env.db, orgA)
	assert.NotContains(t, item.Config, domain.KeyOAuthContextDepartmentID)
}

func TestUpsertGmailConfigRejectsForeignDepartment(t *testing.T) {
	env := setupIntegration(t, "", config.DefaultPlanConfig())

	req := gmailRequest(orgA)
	foreign := deptB
	req.DepartmentID = &foreign
	_, err := env.svc.UpsertGmailConfig(as(adminA), req)
	assert.ErrorIs(t, err, domain.ErrDepartmentOrgMismatch)

	missing := snowflake.ID(999)
	req.DepartmentID = &missing
	_, err = env.svc.UpsertGmailConfig(as(adminA), req)
	assert.ErrorIs(t, err, departmentdomain.ErrNotFound)

	assert.Equal(t, int64(0), countIntegrations(t, env.db, orgA))
}

func TestUpsertGmailConfigAuthorization(t *testing.T) {
	env := setupIntegration(t, "", config.DefaultPlanConfig())

	_, err := env.svc.UpsertGmailConfig(as(memberA), gmailRequest(orgA))
	assert.ErrorIs(t, err, access.ErrAccessDenied)

	_, err = env.svc.UpsertGmailConfig(as(adminB), gmailRequest(orgA))
	assert.ErrorIs(t, err, access.ErrAccessDenied)

	_, err = env.svc.UpsertGmailConfig(context.Background(), gmailRequest(orgA))
	assert.ErrorIs(t, err, access.ErrUnauthorized)

	_, err = env.svc.DisconnectGmail(as(memberA), orgA, nil)
	assert.ErrorIs(t, err, access.ErrAccessDenied)
}

func TestUpsertGmailConfigValidatesInput(t *testing.T) {
	env := setupIntegration(t, "", config.DefaultPlanConfig())

	req := gmailRequest(orgA)
	req.ClientSecret = "   "
	_, err := env.svc.UpsertGmailConfig(as(adminA), req)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestUpsertGmailConfigRespectsPlan(t *testing.T) {
	plans := config.PlanConfig{Plans: map[string]config.Plan{
		"free": {MaxDepartments: 3},
	}}
	env := setupIntegration(t, "", plans)

	_, err := env.svc.UpsertGmailConfig(as(adminA), gmailRequest(orgA))
	assert.ErrorIs(t, err, entitlement.ErrPlanRestricted)
}

func TestDisconnectGmail(t *testing.T) {
	env := setupIntegration(t, "", config.DefaultPlanConfig())

	res, err := env.svc.DisconnectGmail(as(adminA), orgA, nil)
	require.NoError(t, err)
	assert.False(t, res.Disconnected)

	_, err = env.svc.UpsertGmailConfig(as(adminA), gmailRequest(orgA))
	require.NoError(t, err)
	simulateConnected(t, env.db, loadIntegration(t, env.db, orgA))

	dept := deptA
	res, err = env.svc.DisconnectGmail(as(adminA), orgA, &dept)
	require.NoError(t, err)
	assert.True(t, res.Disconnected)

	item := loadIntegration(t, env.db, orgA)
	assert.Equal(t, domain.StatusNotConnected, item.Status)
	assert.Nil(t, item.LastError)
	for _, key := range domain.GrantKeys {
		assert.NotContains(t, item.Config, key)
	}
	assert.Equal(t, "client-123", item.Config[domain.KeyClientID])
	assert.Equal(t, "secret-abcdef", item.Config[domain.KeyClientSecret])
	assert.Equal(t, redirectTo, item.Config[domain.KeyRedirectURI])
	assert.Equal(t, returnURL, item.Config[domain.KeyAppReturnURL])
}

func TestGetGmailStatus(t *testing.T) {
	env := setupIntegration(t, "config-secret", config.DefaultPlanConfig())

	status, err := env.svc.GetGmailStatus(as(memberA), orgA)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNotConnected, status.Status)
	assert.False(t, status.Configured)

	_, err = env.svc.UpsertGmailConfig(as(adminA), gmailRequest(orgA))
	require.NoError(t, err)

	stored := loadIntegration(t, env.db, orgA)
	sealed, _ := stored.Config[domain.KeyClientSecret].(string)
	assert.True(t, strings.HasPrefix(sealed, sealedPrefix))

	status, err = env.svc.GetGmailStatus(as(memberA), orgA)
	require.NoError(t, err)
	assert.True(t, status.Configured)
	assert.Equal(t, "client-123", status.Config[domain.KeyClientID])
	assert.Equal(t, "****cdef", status.Config[domain.KeyClientSecret])

	_, err = env.svc.GetGmailStatus(as(adminB), orgA)
	assert.ErrorIs(t, err, access.ErrAccessDenied)
}
