// Package bridge implements the chat transport against a local
// whatsapp-bridge sidecar over its REST and long-poll API.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/knitkart/orderflow/internal/chat/domain"
	"github.com/knitkart/orderflow/internal/config"
	"go.uber.org/zap"
)

const (
	// The sidecar holds an events poll open for up to a minute; the
	// poll client has to outlive that.
	pollClientTimeout = 75 * time.Second
	requestTimeout    = 15 * time.Second
)

var _ domain.Transport = (*Transport)(nil)

type Transport struct {
	baseURL    string
	sessionDir string
	httpClient *http.Client
	pollClient *http.Client
	log        *zap.Logger

	mu         sync.Mutex
	cancelPoll context.CancelFunc
}

func New(cfg config.ChatConfig, log *zap.Logger) *Transport {
	return &Transport{
		baseURL:    strings.TrimRight(cfg.BridgeURL, "/"),
		sessionDir: cfg.SessionDir,
		httpClient: &http.Client{Timeout: requestTimeout},
		pollClient: &http.Client{Timeout: pollClientTimeout},
		log:        log.Named("chat.bridge"),
	}
}

type bridgeEvent struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

type bridgeError struct {
	Error string `json:"error"`
}

// Initialize asks the sidecar to start a session and begins long-polling
// its event stream. Any poller from a previous attempt is stopped first.
func (t *Transport) Initialize(ctx context.Context) (<-chan domain.Event, error) {
	t.stopPoller()

	if err := t.do(ctx, http.MethodPost, "/session", nil, nil); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	t.mu.Lock()
	t.cancelPoll = cancel
	t.mu.Unlock()

	events := make(chan domain.Event, 16)
	go t.poll(pollCtx, events)
	return events, nil
}

// poll repeatedly drains the sidecar's event queue. Each GET blocks on
// the sidecar side until events arrive or its poll window lapses with an
// empty batch.
func (t *Transport) poll(ctx context.Context, events chan<- domain.Event) {
	defer close(events)

	for {
		if ctx.Err() != nil {
			return
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/session/events", nil)
		if err != nil {
			t.log.Error("building events request", zap.Error(err))
			return
		}

		resp, err := t.pollClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.log.Warn("event poll failed, retrying", zap.Error(err))
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		var batch []bridgeEvent
		err = json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&batch)
		resp.Body.Close()
		if err != nil {
			t.log.Warn("decoding event batch", zap.Error(err))
			continue
		}

		for _, ev := range batch {
			select {
			case events <- domain.Event{Type: domain.EventType(ev.Type), Detail: ev.Detail}:
			case <-ctx.Done():
				return
			}
			if domain.EventType(ev.Type) == domain.EventDisconnected {
				// The session is over; the manager decides whether to
				// start a new one.
				return
			}
		}
	}
}

func (t *Transport) IsRegistered(ctx context.Context, chatID string) (bool, error) {
	var parsed struct {
		Registered bool `json:"registered"`
	}
	path := "/contacts/" + url.PathEscape(chatID) + "/registered"
	if err := t.do(ctx, http.MethodGet, path, nil, &parsed); err != nil {
		return false, fmt.Errorf("registration lookup: %w", err)
	}
	return parsed.Registered, nil
}

func (t *Transport) SendMessage(ctx context.Context, chatID, body string) (string, error) {
	payload := map[string]string{"chat_id": chatID, "body": body}
	var parsed struct {
		MessageID string `json:"message_id"`
	}
	if err := t.do(ctx, http.MethodPost, "/messages", payload, &parsed); err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}
	return parsed.MessageID, nil
}

// Destroy stops the event poller and tells the sidecar to shut the
// session down.
func (t *Transport) Destroy(ctx context.Context) error {
	t.stopPoller()
	if err := t.do(ctx, http.MethodDelete, "/session", nil, nil); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

// ClearSession removes the persisted credential directory so the next
// Initialize has to authenticate from scratch.
func (t *Transport) ClearSession() error {
	if t.sessionDir == "" {
		return nil
	}
	return os.RemoveAll(t.sessionDir)
}

func (t *Transport) stopPoller() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelPoll != nil {
		t.cancelPoll()
		t.cancelPoll = nil
	}
}

func (t *Transport) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		var parsed bridgeError
		detail := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &parsed) == nil && parsed.Error != "" {
			detail = parsed.Error
		}
		return fmt.Errorf("bridge returned %d: %s", resp.StatusCode, detail)
	}

	if out != nil && len(raw) > 0 {
		return json.Unmarshal(raw, out)
	}
	return nil
}
