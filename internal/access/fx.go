package access

import (
	"github.com/smallbiznis/missioncontrol/internal/identity"
	"go.uber.org/fx"
)

var Module = fx.Module("access.resolver",
	fx.Provide(NewEnforcer),
	fx.Provide(identity.NewContextProvider),
	fx.Provide(NewResolver),
)
