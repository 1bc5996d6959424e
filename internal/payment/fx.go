package payment

import (
	"github.com/knitkart/orderflow/internal/config"
	"github.com/knitkart/orderflow/internal/payment/domain"
	"github.com/knitkart/orderflow/internal/payment/razorpay"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment",
	fx.Provide(func(cfg config.Config, log *zap.Logger) domain.Gateway {
		return razorpay.New(cfg.Gateway, log)
	}),
)
