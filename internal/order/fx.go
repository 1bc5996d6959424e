package order

import (
	"github.com/knitkart/orderflow/internal/order/repository"
	"github.com/knitkart/orderflow/internal/order/service"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
