package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/missioncontrol/internal/audit/domain"
	"github.com/smallbiznis/missioncontrol/internal/audit/masking"
	"github.com/smallbiznis/missioncontrol/internal/auditcontext"
	"github.com/smallbiznis/missioncontrol/internal/clock"
	"github.com/smallbiznis/missioncontrol/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 250
	unknownTarget    = "unknown"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// AuditLog records one action. Organization and actor fall back to the
// values on ctx; metadata values under credential-like keys are masked.
func (s *Service) AuditLog(ctx context.Context, orgID *snowflake.ID, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	action = strings.TrimSpace(action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		OrgID:      orgFrom(ctx, orgID),
		Action:     action,
		TargetType: orDefault(targetType, unknownTarget),
		TargetID:   trimmedPtr(targetID),
		Metadata:   datatypes.JSONMap(buildMetadata(ctx, metadata)),
		IPAddress:  trimmedPtr(ptr(auditcontext.IPAddressFromContext(ctx))),
		UserAgent:  trimmedPtr(ptr(auditcontext.UserAgentFromContext(ctx))),
		CreatedAt:  s.clock.Now(),
	}
	entry.ActorType, entry.ActorID = actorFrom(ctx, actorType, actorID)

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("target_type", entry.TargetType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, filter auditdomain.ListFilter) ([]auditdomain.AuditLog, error) {
	if filter.OrgID == 0 {
		orgID, ok := orgcontext.OrgIDFromContext(ctx)
		if !ok {
			return nil, auditdomain.ErrInvalidOrganization
		}
		filter.OrgID = orgID
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}

	logs, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []auditdomain.AuditLog{}
	}
	return logs, nil
}

func buildMetadata(ctx context.Context, metadata map[string]any) map[string]any {
	payload := make(map[string]any, len(metadata)+1)
	for key, value := range metadata {
		if key = strings.TrimSpace(key); key != "" {
			payload[key] = value
		}
	}
	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		payload["request_id"] = requestID
	}
	return masking.MaskFields(payload, nil)
}

func orgFrom(ctx context.Context, orgID *snowflake.ID) *snowflake.ID {
	if orgID != nil && *orgID != 0 {
		return orgID
	}
	if resolved, ok := orgcontext.OrgIDFromContext(ctx); ok {
		return &resolved
	}
	return nil
}

// actorFrom prefers the explicit actor, then the one on ctx, then system.
func actorFrom(ctx context.Context, actorType string, actorID *string) (string, *string) {
	actorType = strings.TrimSpace(actorType)
	if actorType != "" {
		return actorType, trimmedPtr(actorID)
	}
	ctxType, ctxID := auditcontext.ActorFromContext(ctx)
	if ctxType == "" {
		return string(auditdomain.ActorTypeSystem), trimmedPtr(actorID)
	}
	if id := trimmedPtr(actorID); id != nil {
		return ctxType, id
	}
	return ctxType, trimmedPtr(&ctxID)
}

func orDefault(value, def string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return def
}

func ptr(value string) *string {
	return &value
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
