package dispatcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/knitkart/orderflow/internal/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubChannel struct {
	name    string
	send    func(ctx context.Context, phone, body string) domain.Outcome
	calls   atomic.Int64
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Send(ctx context.Context, phone, body string) domain.Outcome {
	s.calls.Add(1)
	return s.send(ctx, phone, body)
}

func TestDispatchPartialFailure(t *testing.T) {
	ok := &stubChannel{name: "chat", send: func(context.Context, string, string) domain.Outcome {
		return domain.Delivered("chat", "msg_1")
	}}
	bad := &stubChannel{name: "sms", send: func(context.Context, string, string) domain.Outcome {
		return domain.Failed("sms", errors.New("gateway down"))
	}}

	d := New(zap.NewNop(), nil)
	outcomes := d.Dispatch(context.Background(), domain.Request{
		Recipient: "919301680755",
		Body:      "order confirmed",
		Channels:  []domain.Channel{ok, bad},
	})

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Delivered)
	assert.Equal(t, "msg_1", outcomes[0].MessageID)
	assert.False(t, outcomes[1].Delivered)
	assert.Equal(t, "gateway down", outcomes[1].ErrorDetail)

	assert.EqualValues(t, 1, ok.calls.Load())
	assert.EqualValues(t, 1, bad.calls.Load())
}

func TestDispatchRecoversChannelPanic(t *testing.T) {
	panicking := &stubChannel{name: "chat", send: func(context.Context, string, string) domain.Outcome {
		panic("boom")
	}}
	ok := &stubChannel{name: "sms", send: func(context.Context, string, string) domain.Outcome {
		return domain.Delivered("sms", "SM123")
	}}

	d := New(zap.NewNop(), nil)
	outcomes := d.Dispatch(context.Background(), domain.Request{
		Recipient: "919301680755",
		Body:      "order confirmed",
		Channels:  []domain.Channel{panicking, ok},
	})

	require.Len(t, outcomes, 2)
	assert.False(t, outcomes[0].Delivered)
	assert.Contains(t, outcomes[0].ErrorDetail, "boom")
	assert.True(t, outcomes[1].Delivered)
}

func TestDispatchRunsChannelsConcurrently(t *testing.T) {
	release := make(chan struct{})
	slow := func(ctx context.Context, _, _ string) domain.Outcome {
		select {
		case <-release:
			return domain.Delivered("slow", "id")
		case <-ctx.Done():
			return domain.Failed("slow", ctx.Err())
		}
	}

	a := &stubChannel{name: "a", send: slow}
	b := &stubChannel{name: "b", send: slow}

	d := New(zap.NewNop(), nil, WithSendTimeout(5*time.Second))

	done := make(chan []domain.Outcome, 1)
	go func() {
		done <- d.Dispatch(context.Background(), domain.Request{
			Channels: []domain.Channel{a, b},
		})
	}()

	// Both sends must be in flight before either is released; a serial
	// dispatcher would deadlock here.
	require.Eventually(t, func() bool {
		return a.calls.Load() == 1 && b.calls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	close(release)
	outcomes := <-done
	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Delivered)
	assert.True(t, outcomes[1].Delivered)
}

func TestDispatchNoChannels(t *testing.T) {
	d := New(zap.NewNop(), nil)
	outcomes := d.Dispatch(context.Background(), domain.Request{})
	assert.Empty(t, outcomes)
}
