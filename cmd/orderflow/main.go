package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/knitkart/orderflow/internal/chat"
	"github.com/knitkart/orderflow/internal/clock"
	"github.com/knitkart/orderflow/internal/config"
	"github.com/knitkart/orderflow/internal/locks"
	"github.com/knitkart/orderflow/internal/migration"
	"github.com/knitkart/orderflow/internal/notification"
	"github.com/knitkart/orderflow/internal/observability"
	"github.com/knitkart/orderflow/internal/order"
	"github.com/knitkart/orderflow/internal/payment"
	"github.com/knitkart/orderflow/internal/server"
	"github.com/knitkart/orderflow/pkg/db"
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
		locks.Module,

		payment.Module,
		chat.Module,
		notification.Module,
		order.Module,

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
