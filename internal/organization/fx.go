package organization

import (
	"github.com/smallbiznis/missioncontrol/internal/organization/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.repository",
	fx.Provide(repository.NewRepository),
)
