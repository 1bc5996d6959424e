package chat

import (
	"context"

	"github.com/knitkart/orderflow/internal/chat/bridge"
	"github.com/knitkart/orderflow/internal/chat/domain"
	"github.com/knitkart/orderflow/internal/config"
	"github.com/knitkart/orderflow/internal/retry"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("chat",
	fx.Provide(func(cfg config.Config, log *zap.Logger) domain.Transport {
		return bridge.New(cfg.Chat, log)
	}),
	fx.Provide(NewFromConfig),
	fx.Invoke(registerLifecycle),
)

func NewFromConfig(transport domain.Transport, cfg config.Config, log *zap.Logger) *Manager {
	return NewManager(transport, Config{
		CountryCode:        cfg.Chat.CountryCode,
		ReadyTimeout:       cfg.Chat.ReadyTimeout,
		ClearSessionOnFail: cfg.Chat.ClearSessionOnFail,
		Retry: retry.Policy{
			MaxAttempts: cfg.Chat.ConnectMaxAttempts,
			Delay:       cfg.Chat.ConnectDelay,
		},
	}, log)
}

// registerLifecycle connects the session in the background on startup,
// so a slow or unscannable session never blocks the server from
// serving orders, and tears it down on shutdown.
func registerLifecycle(lc fx.Lifecycle, m *Manager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				_ = m.Connect(context.Background())
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return m.Destroy(ctx)
		},
	})
}
