// Package chat manages the single long-lived chat-automation session
// and exposes it as a notification channel behind a readiness gate.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/knitkart/orderflow/internal/chat/domain"
	notifdomain "github.com/knitkart/orderflow/internal/notification/domain"
	"github.com/knitkart/orderflow/internal/phone"
	"github.com/knitkart/orderflow/internal/retry"
	"go.uber.org/zap"
)

const channelName = "chat"

// State is the session lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	AwaitingScan
	Authenticated
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case AwaitingScan:
		return "awaiting_scan"
	case Authenticated:
		return "authenticated"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrNotReady reports that the readiness gate did not open within
	// the wait timeout.
	ErrNotReady = errors.New("chat session not ready")
	// ErrDestroyed reports that the session was shut down for good.
	ErrDestroyed = errors.New("chat session destroyed")
)

// Config tunes the session manager.
type Config struct {
	CountryCode        string
	ReadyTimeout       time.Duration
	ClearSessionOnFail bool
	Retry              retry.Policy
}

// Manager owns the process-wide chat session: its state machine,
// connect retries, and the readiness gate every send passes through.
// There is exactly one Manager per process.
type Manager struct {
	transport domain.Transport
	cfg       Config
	log       *zap.Logger

	mu         sync.Mutex
	state      State
	readyCh    chan struct{}
	inflight   chan struct{}
	connectErr error
	destroyed  bool
}

func NewManager(transport domain.Transport, cfg Config, log *zap.Logger) *Manager {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 30 * time.Second
	}
	return &Manager{
		transport: transport,
		cfg:       cfg,
		log:       log.Named("chat.session"),
		state:     Disconnected,
		readyCh:   make(chan struct{}),
	}
}

func (m *Manager) Name() string { return channelName }

// State returns the current session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect drives the session toward Ready with bounded retries. A
// concurrent Connect while an attempt is in flight joins that attempt
// instead of starting a second session.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	for {
		if m.destroyed {
			m.mu.Unlock()
			return ErrDestroyed
		}
		if m.state == Ready {
			m.mu.Unlock()
			return nil
		}
		if m.inflight == nil {
			break
		}
		join := m.inflight
		m.mu.Unlock()
		select {
		case <-join:
		case <-ctx.Done():
			return ctx.Err()
		}
		m.mu.Lock()
		if m.connectErr != nil {
			err := m.connectErr
			m.mu.Unlock()
			return err
		}
		// The joined attempt reported success, but the session may have
		// dropped again before we woke. Re-check the state and, if it is
		// no longer Ready, start a fresh attempt instead of trusting the
		// stale result.
	}

	done := make(chan struct{})
	m.inflight = done
	m.setStateLocked(Connecting)
	m.mu.Unlock()

	err := m.cfg.Retry.Do(ctx, m.attempt, m.onAttemptFailure)

	m.mu.Lock()
	m.connectErr = err
	if err != nil && !m.destroyed {
		m.setStateLocked(Failed)
	}
	m.inflight = nil
	close(done)
	m.mu.Unlock()

	if err != nil {
		m.log.Error("chat session connect failed", zap.Error(err))
	}
	return err
}

// attempt runs one connect attempt: initialize the transport and walk
// the event stream until the session reports ready.
func (m *Manager) attempt(ctx context.Context) error {
	events, err := m.transport.Initialize(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return errors.New("event stream closed before session became ready")
			}
			switch ev.Type {
			case domain.EventQR:
				m.setState(AwaitingScan)
				m.log.Info("scan required to authenticate chat session")
			case domain.EventAuthenticated:
				m.setState(Authenticated)
			case domain.EventReady:
				m.setState(Ready)
				m.log.Info("chat session ready")
				go m.watch(events)
				return nil
			case domain.EventAuthFailure:
				return fmt.Errorf("authentication failed: %s", ev.Detail)
			case domain.EventDisconnected:
				return fmt.Errorf("disconnected during connect: %s", ev.Detail)
			}
		}
	}
}

// onAttemptFailure clears persisted credentials between attempts, but
// only once the first retry has also failed; a transient error on the
// first attempt must not wipe a valid session.
func (m *Manager) onAttemptFailure(attempt int, err error) {
	m.log.Warn("chat session connect attempt failed",
		zap.Int("attempt", attempt),
		zap.Error(err),
	)
	if !m.cfg.ClearSessionOnFail || attempt < 2 {
		return
	}
	if clearErr := m.transport.ClearSession(); clearErr != nil {
		m.log.Warn("failed to clear chat session credentials", zap.Error(clearErr))
	} else {
		m.log.Info("cleared chat session credentials before next attempt")
	}
}

// watch consumes the live event stream after Ready and reconnects on an
// unexpected external disconnect.
func (m *Manager) watch(events <-chan domain.Event) {
	for ev := range events {
		if ev.Type != domain.EventDisconnected {
			continue
		}

		m.mu.Lock()
		destroyed := m.destroyed
		if !destroyed {
			m.setStateLocked(Disconnected)
		}
		m.mu.Unlock()

		if destroyed {
			return
		}
		m.log.Warn("chat session disconnected, reconnecting", zap.String("detail", ev.Detail))
		go func() {
			_ = m.Connect(context.Background())
		}()
		return
	}
}

// WaitUntilReady blocks the calling task until the session is Ready or
// the timeout elapses. A session that has exhausted its connect retries
// fails fast instead of waiting.
func (m *Manager) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	m.mu.Lock()
	switch {
	case m.destroyed:
		m.mu.Unlock()
		return ErrDestroyed
	case m.state == Ready:
		m.mu.Unlock()
		return nil
	case m.state == Failed:
		m.mu.Unlock()
		return notifdomain.ErrSessionUnavailable
	}
	ready := m.readyCh
	m.mu.Unlock()

	if timeout <= 0 {
		timeout = m.cfg.ReadyTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ready:
		return nil
	case <-timer.C:
		if m.State() == Failed {
			return notifdomain.ErrSessionUnavailable
		}
		return ErrNotReady
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send normalizes the recipient, waits for the readiness gate, checks
// channel registration, and delivers the message. Every failure mode is
// reported as a failed outcome, never as an error to the caller.
func (m *Manager) Send(ctx context.Context, rawPhone, body string) notifdomain.Outcome {
	normalized := phone.Normalize(rawPhone, m.cfg.CountryCode)
	if normalized == "" {
		return notifdomain.Failed(channelName, fmt.Errorf("unusable phone number %q", rawPhone))
	}

	if err := m.WaitUntilReady(ctx, m.cfg.ReadyTimeout); err != nil {
		// Whatever ended the wait, the session was not usable; keep the
		// outcome under the session-unavailable label so callers see one
		// taxonomy for gate failures, context expiry included.
		if !errors.Is(err, notifdomain.ErrSessionUnavailable) {
			err = fmt.Errorf("%w: %v", notifdomain.ErrSessionUnavailable, err)
		}
		return notifdomain.Failed(channelName, err)
	}

	chatID := normalized + "@c.us"

	registered, err := m.transport.IsRegistered(ctx, chatID)
	if err != nil {
		return notifdomain.Failed(channelName, err)
	}
	if !registered {
		return notifdomain.Failed(channelName,
			fmt.Errorf("%w: %s is not reachable on this channel", notifdomain.ErrNotRegistered, normalized))
	}

	messageID, err := m.transport.SendMessage(ctx, chatID, body)
	if err != nil {
		return notifdomain.Failed(channelName, err)
	}
	if messageID == "" {
		// Some transports acknowledge delivery without an identifier;
		// that is still a delivery.
		messageID = "local-" + uuid.NewString()
	}
	return notifdomain.Delivered(channelName, messageID)
}

// Destroy tears the session down for process shutdown. The manager does
// not reconnect afterwards.
func (m *Manager) Destroy(ctx context.Context) error {
	m.mu.Lock()
	if m.destroyed {
		m.mu.Unlock()
		return nil
	}
	m.destroyed = true
	m.setStateLocked(Disconnected)
	m.mu.Unlock()

	m.log.Info("destroying chat session")
	return m.transport.Destroy(ctx)
}

// setStateLocked transitions the state machine and manages the
// readiness gate. Callers must hold m.mu.
func (m *Manager) setStateLocked(next State) {
	prev := m.state
	if prev == next {
		return
	}
	m.state = next

	if next == Ready {
		close(m.readyCh)
	} else if prev == Ready {
		m.readyCh = make(chan struct{})
	}

	m.log.Debug("chat session state changed",
		zap.String("from", prev.String()),
		zap.String("to", next.String()),
	)
}

func (m *Manager) setState(next State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setStateLocked(next)
}
