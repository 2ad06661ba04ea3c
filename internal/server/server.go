package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/missioncontrol/internal/access"
	"github.com/smallbiznis/missioncontrol/internal/agent"
	"github.com/smallbiznis/missioncontrol/internal/audit"
	auditdomain "github.com/smallbiznis/missioncontrol/internal/audit/domain"
	"github.com/smallbiznis/missioncontrol/internal/cascade"
	"github.com/smallbiznis/missioncontrol/internal/config"
	"github.com/smallbiznis/missioncontrol/internal/department"
	departmentdomain "github.com/smallbiznis/missioncontrol/internal/department/domain"
	"github.com/smallbiznis/missioncontrol/internal/entitlement"
	"github.com/smallbiznis/missioncontrol/internal/integration"
	integrationdomain "github.com/smallbiznis/missioncontrol/internal/integration/domain"
	"github.com/smallbiznis/missioncontrol/internal/lock"
	"github.com/smallbiznis/missioncontrol/internal/observability"
	obsmiddleware "github.com/smallbiznis/missioncontrol/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/missioncontrol/internal/observability/metrics"
	obstracing "github.com/smallbiznis/missioncontrol/internal/observability/tracing"
	"github.com/smallbiznis/missioncontrol/internal/organization"
	"github.com/smallbiznis/missioncontrol/internal/workspace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	audit.Module,
	organization.Module,
	access.Module,
	entitlement.Module,
	lock.Module,
	cascade.Module,
	workspace.Module,
	agent.Module,
	department.Module,
	integration.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	access         access.Resolver
	departmentSvc  departmentdomain.Service
	integrationSvc integrationdomain.Service
	auditSvc       auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	Access         access.Resolver
	DepartmentSvc  departmentdomain.Service
	IntegrationSvc integrationdomain.Service
	AuditSvc       auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("http.server"),
		access:         p.Access,
		departmentSvc:  p.DepartmentSvc,
		integrationSvc: p.IntegrationSvc,
		auditSvc:       p.AuditSvc,
	}

	svc.registerAPIRoutes()
	svc.registerInternalRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.Identity())

	orgs := api.Group("/orgs/:orgId")
	orgs.Use(OrgContext())
	orgs.POST("/departments", s.CreateDepartment)
	orgs.GET("/departments", s.ListDepartments)
	orgs.PUT("/integrations/gmail", s.UpsertGmailConfig)
	orgs.DELETE("/integrations/gmail", s.DisconnectGmail)
	orgs.GET("/integrations/gmail", s.GetGmailStatus)
	orgs.GET("/audit-logs", s.ListAuditLogs)

	departments := api.Group("/departments")
	departments.GET("/slug/:slug", s.GetDepartmentBySlug)
	departments.GET("/:id", s.GetDepartment)
	departments.PATCH("/:id", s.UpdateDepartmentName)
	departments.DELETE("/:id", s.RemoveDepartment)
	departments.GET("/:id/removal-preview", s.PreviewDepartmentRemoval)
	departments.POST("/:id/members", s.AddDepartmentMember)

	api.GET("/me/departments", s.ListMyDepartments)
}

func (s *Server) registerInternalRoutes() {
	internal := s.engine.Group("/internal")
	internal.Use(s.Identity(), s.OperatorRequired())

	internal.GET("/departments", s.ListAllDepartments)
	internal.POST("/orgs/:orgId/link-departments", OrgContext(), s.LinkDepartmentsToOrg)
	internal.POST("/departments/:id/ensure-defaults", s.EnsureDepartmentDefaults)
}
