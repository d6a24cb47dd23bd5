package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/retailcore/internal/clock"
	"github.com/smallbiznis/retailcore/internal/config"
	"github.com/smallbiznis/retailcore/internal/migration"
	"github.com/smallbiznis/retailcore/internal/observability"
	"github.com/smallbiznis/retailcore/internal/server"
	"github.com/smallbiznis/retailcore/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
