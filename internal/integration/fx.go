package integration

import (
	"github.com/smallbiznis/missioncontrol/internal/cascade"
	"github.com/smallbiznis/missioncontrol/internal/integration/repository"
	"github.com/smallbiznis/missioncontrol/internal/integration/service"
	"go.uber.org/fx"
)

var Module = fx.Module("integration.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.New),
	cascade.Supply(cascade.NewTable("integrations", "integrations")),
)
