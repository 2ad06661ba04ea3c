package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/missioncontrol/internal/access"
	auditdomain "github.com/smallbiznis/missioncontrol/internal/audit/domain"
	auditmasking "github.com/smallbiznis/missioncontrol/internal/audit/masking"
	"github.com/smallbiznis/missioncontrol/internal/clock"
	"github.com/smallbiznis/missioncontrol/internal/config"
	"github.com/smallbiznis/missioncontrol/internal/entitlement"
	"github.com/smallbiznis/missioncontrol/internal/integration/domain"
	obsmetrics "github.com/smallbiznis/missioncontrol/internal/observability/metrics"
	"github.com/smallbiznis/missioncontrol/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Access   access.Resolver
	Gate     entitlement.Gate
	Cfg      config.Config
	AuditSvc auditdomain.Service `optional:"true"`
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	access    access.Resolver
	gate      entitlement.Gate
	returnURL string
	sealer    *sealer
	auditSvc  auditdomain.Service
	metrics   *obsmetrics.Metrics
}

func New(p Params) (domain.Service, error) {
	sealing, err := newSealer(p.Cfg.Integrations.ConfigSecret)
	if err != nil {
		return nil, err
	}

	log := p.Log.Named("integration.service")
	if !sealing.enabled() {
		log.Warn("integration config secret not set; credentials are stored unsealed")
	}

	return &Service{
		db:        p.DB,
		log:       log,
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		access:    p.Access,
		gate:      p.Gate,
		returnURL: strings.TrimSpace(p.Cfg.Integrations.GmailAppReturnURL),
		sealer:    sealing,
		auditSvc:  p.AuditSvc,
		metrics:   p.Metrics,
	}, nil
}

func (s *Service) UpsertGmailConfig(ctx context.Context, req domain.UpsertGmailRequest) (*domain.UpsertResult, error) {
	if err := s.authorizeAdmin(ctx, req.OrgID, req.DepartmentID); err != nil {
		return nil, err
	}
	if err := s.gate.AssertIntegrationAllowed(ctx, req.OrgID, domain.TypeGmail); err != nil {
		return nil, err
	}

	clientID := strings.TrimSpace(req.ClientID)
	clientSecret := strings.TrimSpace(req.ClientSecret)
	redirectURI := strings.TrimSpace(req.RedirectURI)
	if clientID == "" || clientSecret == "" || redirectURI == "" {
		return nil, domain.ErrInvalidConfig
	}

	returnURL := strings.TrimSpace(req.AppReturnURL)
	if returnURL == "" {
		returnURL = s.returnURL
	}

	updates := map[string]any{
		domain.KeyClientID:                 clientID,
		domain.KeyClientSecret:             clientSecret,
		domain.KeyRedirectURI:              redirectURI,
		domain.KeyOAuthContextDepartmentID: nil,
	}
	if returnURL != "" {
		updates[domain.KeyAppReturnURL] = returnURL
	}
	if req.DepartmentID != nil {
		updates[domain.KeyOAuthContextDepartmentID] = req.DepartmentID.String()
	}

	name := strings.TrimSpace(req.Name)
	result := &domain.UpsertResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindByOrgAndType(ctx, req.OrgID, domain.TypeGmail)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if existing == nil {
			bag, err := s.sealer.sealBag(domain.ConfigBag{}.Merge(updates))
			if err != nil {
				return err
			}
			if name == "" {
				name = domain.DefaultGmailName
			}
			item := domain.Integration{
				ID:         s.genID.Generate(),
				OrgID:      req.OrgID,
				Type:       domain.TypeGmail,
				Name:       name,
				Config:     datatypes.JSONMap(bag),
				AuthType:   domain.AuthTypeOAuth2,
				Status:     domain.StatusNotConnected,
				LastSyncAt: &now,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := repo.Insert(ctx, &item); err != nil {
				if db.IsDuplicateKeyErr(err) {
					return domain.ErrConcurrentUpdate
				}
				return err
			}
			result.IntegrationID = item.ID
			result.Created = true
			result.Status = item.Status
			return nil
		}

		bag, err := s.sealer.sealBag(domain.ConfigBag(existing.Config).Merge(updates))
		if err != nil {
			return err
		}
		if name != "" {
			existing.Name = name
		}
		existing.DepartmentID = nil
		existing.Config = datatypes.JSONMap(bag)
		existing.LastError = nil
		existing.LastSyncAt = &now
		existing.UpdatedAt = now
		if err := repo.Update(ctx, existing); err != nil {
			return err
		}
		result.IntegrationID = existing.ID
		result.Status = existing.Status
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := "update"
	if result.Created {
		action = "create"
	}
	s.metrics.RecordIntegrationChange(ctx, domain.TypeGmail, action)
	s.log.Info("gmail integration configured",
		zap.String("org_id", req.OrgID.String()),
		zap.String("integration_id", result.IntegrationID.String()),
		zap.Bool("created", result.Created),
	)
	s.audit(ctx, req.OrgID, "integration.gmail."+action, result.IntegrationID, map[string]any{
		"client_id":     clientID,
		"client_secret": auditmasking.MaskSecret(clientSecret),
		"redirect_uri":  redirectURI,
		"department_id": departmentRef(req.DepartmentID),
	})
	return result, nil
}

func (s *Service) DisconnectGmail(ctx context.Context, orgID snowflake.ID, departmentID *snowflake.ID) (*domain.DisconnectResult, error) {
	if err := s.authorizeAdmin(ctx, orgID, departmentID); err != nil {
		return nil, err
	}

	result := &domain.DisconnectResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindByOrgAndType(ctx, orgID, domain.TypeGmail)
		if err != nil {
			return err
		}
		if existing == nil {
			return nil
		}

		existing.Config = datatypes.JSONMap(domain.ConfigBag(existing.Config).StripGrant())
		existing.Status = domain.StatusNotConnected
		existing.LastError = nil
		existing.DepartmentID = nil
		existing.UpdatedAt = s.clock.Now()
		if err := repo.Update(ctx, existing); err != nil {
			return err
		}
		result.IntegrationID = existing.ID
		result.Disconnected = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.Disconnected {
		return result, nil
	}

	s.metrics.RecordIntegrationChange(ctx, domain.TypeGmail, "disconnect")
	s.log.Info("gmail integration disconnected",
		zap.String("org_id", orgID.String()),
		zap.String("integration_id", result.IntegrationID.String()),
	)
	s.audit(ctx, orgID, "integration.gmail.disconnect", result.IntegrationID, map[string]any{
		"department_id": departmentRef(departmentID),
	})
	return result, nil
}

func (s *Service) GetGmailStatus(ctx context.Context, orgID snowflake.ID) (*domain.StatusResponse, error) {
	userID, err := s.access.RequireAuthenticatedUser(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.RequireOrgMembership(ctx, userID, orgID); err != nil {
		return nil, err
	}

	item, err := s.repo.FindByOrgAndType(ctx, orgID, domain.TypeGmail)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return &domain.StatusResponse{Type: domain.TypeGmail, Status: domain.StatusNotConnected}, nil
	}

	bag, err := s.sealer.openBag(domain.ConfigBag(item.Config))
	if err != nil {
		s.log.Error("failed to unseal integration config",
			zap.String("integration_id", item.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}

	updatedAt := item.UpdatedAt
	return &domain.StatusResponse{
		IntegrationID: item.ID,
		Type:          item.Type,
		Name:          item.Name,
		Status:        item.Status,
		Configured:    bag.String(domain.KeyClientID) != "",
		Config:        maskConfig(bag),
		LastSyncAt:    item.LastSyncAt,
		LastError:     item.LastError,
		UpdatedAt:     &updatedAt,
	}, nil
}

// authorizeAdmin requires org admin on orgID and, when a department is given,
// that the department belongs to the same organization.
func (s *Service) authorizeAdmin(ctx context.Context, orgID snowflake.ID, departmentID *snowflake.ID) error {
	userID, err := s.access.RequireAuthenticatedUser(ctx)
	if err != nil {
		return err
	}
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	if _, err := s.access.RequireOrgAdminMembership(ctx, userID, orgID); err != nil {
		return err
	}
	if departmentID == nil {
		return nil
	}

	_, deptOrgID, err := s.access.RequireDepartmentWithOrg(ctx, *departmentID)
	if err != nil {
		return err
	}
	if deptOrgID != orgID {
		return domain.ErrDepartmentOrgMismatch
	}
	return nil
}

func (s *Service) audit(ctx context.Context, orgID snowflake.ID, action string, integrationID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	targetID := integrationID.String()
	_ = s.auditSvc.AuditLog(ctx, &orgID, "", nil, action, "integration", &targetID, metadata)
}

func maskConfig(bag domain.ConfigBag) map[string]any {
	return auditmasking.MaskFields(bag, domain.IsSecretKey)
}

func departmentRef(id *snowflake.ID) any {
	if id == nil {
		return nil
	}
	return id.String()
}
