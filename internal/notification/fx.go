package notification

import (
	"github.com/knitkart/orderflow/internal/chat"
	"github.com/knitkart/orderflow/internal/config"
	"github.com/knitkart/orderflow/internal/notification/dispatcher"
	"github.com/knitkart/orderflow/internal/notification/domain"
	"github.com/knitkart/orderflow/internal/notification/sms"
	obsmetrics "github.com/knitkart/orderflow/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification",
	fx.Provide(func(cfg config.Config, log *zap.Logger) *sms.Channel {
		return sms.New(cfg.SMS, cfg.Chat.CountryCode, log)
	}),
	// Channel order is delivery order in the per-recipient report. SMS
	// only joins the set when a gateway account is configured.
	fx.Provide(func(cfg config.Config, chatChannel *chat.Manager, smsChannel *sms.Channel) []domain.Channel {
		channels := []domain.Channel{chatChannel}
		if cfg.SMS.AccountSID != "" {
			channels = append(channels, smsChannel)
		}
		return channels
	}),
	fx.Provide(func(cfg config.Config, log *zap.Logger, metrics *obsmetrics.Metrics) *dispatcher.Dispatcher {
		return dispatcher.New(log, metrics, dispatcher.WithSendTimeout(cfg.Chat.SendTimeout))
	}),
)
