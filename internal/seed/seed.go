package seed

import (
	"context"
	"errors"

	auditdomain "github.com/smallbiznis/missioncontrol/internal/audit/domain"
	"github.com/smallbiznis/missioncontrol/internal/auditcontext"
	"github.com/smallbiznis/missioncontrol/internal/config"
	departmentdomain "github.com/smallbiznis/missioncontrol/internal/department/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Result summarizes a defaults sweep.
type Result struct {
	Checked int
	Failed  int
}

// EnsureDepartmentDefaults reruns the post-create hooks for every department
// as the system actor. A failing department is logged and skipped.
func EnsureDepartmentDefaults(ctx context.Context, svc departmentdomain.Service, log *zap.Logger) (Result, error) {
	if svc == nil {
		return Result{}, errors.New("seed department service is required")
	}
	ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "bootstrap")

	departments, err := svc.ListAll(ctx)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, dept := range departments {
		res.Checked++
		if err := svc.EnsureDefaults(ctx, dept.ID); err != nil {
			res.Failed++
			log.Warn("ensure department defaults failed",
				zap.String("department_id", dept.ID.String()),
				zap.Error(err),
			)
		}
	}
	return res, nil
}

var Module = fx.Module("seed",
	fx.Invoke(func(lc fx.Lifecycle, cfg config.Config, svc departmentdomain.Service, log *zap.Logger) {
		if !cfg.Bootstrap.EnsureDepartmentDefaults {
			return
		}
		log = log.Named("seed")
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				res, err := EnsureDepartmentDefaults(ctx, svc, log)
				if err != nil {
					return err
				}
				log.Info("department defaults ensured",
					zap.Int("checked", res.Checked),
					zap.Int("failed", res.Failed),
				)
				return nil
			},
		})
	}),
)
