package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/missioncontrol/internal/clock"
	"github.com/smallbiznis/missioncontrol/internal/config"
	"github.com/smallbiznis/missioncontrol/internal/migration"
	"github.com/smallbiznis/missioncontrol/internal/observability"
	"github.com/smallbiznis/missioncontrol/internal/seed"
	"github.com/smallbiznis/missioncontrol/internal/server"
	"github.com/smallbiznis/missioncontrol/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP surface and the domain modules behind it
		server.Module,

		seed.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
