// Package dispatcher fans a notification out over every requested
// channel and gathers per-channel outcomes.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/knitkart/orderflow/internal/notification/domain"
	obsmetrics "github.com/knitkart/orderflow/internal/observability/metrics"
	"go.uber.org/zap"
)

const defaultSendTimeout = 45 * time.Second

type Dispatcher struct {
	log         *zap.Logger
	metrics     *obsmetrics.Metrics
	sendTimeout time.Duration
}

type Option func(*Dispatcher)

func WithSendTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.sendTimeout = d
		}
	}
}

func New(log *zap.Logger, metrics *obsmetrics.Metrics, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		log:         log.Named("notification.dispatcher"),
		metrics:     metrics,
		sendTimeout: defaultSendTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers the request over every channel concurrently. A
// failure on one channel never prevents the others from being
// attempted; the aggregate waits for all attempts before returning.
func (d *Dispatcher) Dispatch(ctx context.Context, req domain.Request) []domain.Outcome {
	outcomes := make([]domain.Outcome, len(req.Channels))

	var wg sync.WaitGroup
	for i, ch := range req.Channels {
		wg.Add(1)
		go func(i int, ch domain.Channel) {
			defer wg.Done()
			outcomes[i] = d.sendOne(ctx, ch, req.Recipient, req.Body)
		}(i, ch)
	}
	wg.Wait()

	return outcomes
}

func (d *Dispatcher) sendOne(ctx context.Context, ch domain.Channel, phone, body string) (outcome domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = domain.Failed(ch.Name(), fmt.Errorf("channel panic: %v", r))
			d.log.Error("notification channel panicked",
				zap.String("channel", ch.Name()),
				zap.Any("panic", r),
			)
		}
		d.metrics.RecordNotification(ctx, outcome.Channel, outcome.Delivered)
		if !outcome.Delivered {
			d.log.Warn("notification delivery failed",
				zap.String("channel", outcome.Channel),
				zap.String("detail", outcome.ErrorDetail),
			)
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	return ch.Send(sendCtx, phone, body)
}
