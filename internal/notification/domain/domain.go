package domain

import (
	"context"
	"errors"
)

// Channel is one independent transport able to deliver a text message
// to a phone number.
type Channel interface {
	Name() string
	Send(ctx context.Context, phone, body string) Outcome
}

// Request is one logical notification to fan out over channels.
type Request struct {
	Recipient string
	Body      string
	Channels  []Channel
}

// Outcome is the per-channel delivery result. Failures are captured
// here and never raised to the order workflow.
type Outcome struct {
	Channel     string `json:"channel"`
	Delivered   bool   `json:"delivered"`
	MessageID   string `json:"message_id,omitempty"`
	ErrorDetail string `json:"error,omitempty"`
}

var (
	// ErrSessionUnavailable marks a session-backed channel whose
	// readiness gate did not open in time.
	ErrSessionUnavailable = errors.New("session_unavailable")
	// ErrNotRegistered marks a recipient unknown to the channel.
	ErrNotRegistered = errors.New("recipient_not_registered")
)

func Delivered(channel, messageID string) Outcome {
	return Outcome{Channel: channel, Delivered: true, MessageID: messageID}
}

func Failed(channel string, err error) Outcome {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return Outcome{Channel: channel, ErrorDetail: detail}
}
