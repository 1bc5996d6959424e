// Package domain holds the chat transport contract shared by the
// session manager and its bridge implementation.
package domain

import "context"

// EventType identifies a session lifecycle event from the transport.
type EventType string

const (
	EventQR            EventType = "qr"
	EventAuthenticated EventType = "authenticated"
	EventReady         EventType = "ready"
	EventAuthFailure   EventType = "auth_failure"
	EventDisconnected  EventType = "disconnected"
)

// Event is one lifecycle notification from the underlying chat client.
type Event struct {
	Type   EventType
	Detail string
}

// Transport is the contract the session manager requires from the chat
// automation client. The transport supports exactly one authenticated
// identity per session.
type Transport interface {
	// Initialize starts (or restarts) the client session and returns
	// the lifecycle event stream for it. The stream is closed when the
	// session ends.
	Initialize(ctx context.Context) (<-chan Event, error)
	// IsRegistered reports whether the recipient exists on the channel.
	IsRegistered(ctx context.Context, chatID string) (bool, error)
	// SendMessage delivers a message and returns the transport's
	// delivery identifier, which may be empty.
	SendMessage(ctx context.Context, chatID, body string) (string, error)
	// Destroy tears the session down for process shutdown.
	Destroy(ctx context.Context) error
	// ClearSession discards persisted session credentials so the next
	// Initialize starts from a clean slate.
	ClearSession() error
}
