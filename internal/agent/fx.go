package agent

import (
	"github.com/smallbiznis/missioncontrol/internal/agent/repository"
	"github.com/smallbiznis/missioncontrol/internal/agent/service"
	"github.com/smallbiznis/missioncontrol/internal/cascade"
	departmentdomain "github.com/smallbiznis/missioncontrol/internal/department/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("agent.service",
	fx.Provide(repository.Provide),
	fx.Provide(
		fx.Annotate(service.NewDefaultAgentSeeder,
			fx.As(new(departmentdomain.CreateHook)),
			fx.ResultTags(`group:"department.create_hooks"`),
		),
	),
	cascade.Supply(
		cascade.NewTable("agents", "agents"),
		cascade.NewTable("agent_templates", "agent_templates"),
	),
)
