package department

import (
	"github.com/smallbiznis/missioncontrol/internal/cascade"
	"github.com/smallbiznis/missioncontrol/internal/department/repository"
	"github.com/smallbiznis/missioncontrol/internal/department/service"
	"go.uber.org/fx"
)

var Module = fx.Module("department.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.New),
	cascade.Supply(cascade.NewTable("department_memberships", "department_memberships")),
)
