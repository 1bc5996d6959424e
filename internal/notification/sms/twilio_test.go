package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/knitkart/orderflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSendSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "+919301680755", r.PostForm.Get("To"))
		assert.Equal(t, "+15550001111", r.PostForm.Get("From"))
		assert.Equal(t, "your order is confirmed", r.PostForm.Get("Body"))

		user, _, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "AC123", user)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"sid": "SM789"})
	}))
	defer srv.Close()

	ch := New(config.SMSConfig{
		BaseURL:    srv.URL,
		AccountSID: "AC123",
		AuthToken:  "token",
		From:       "+15550001111",
	}, "91", zap.NewNop())

	outcome := ch.Send(context.Background(), "09301680755", "your order is confirmed")
	assert.True(t, outcome.Delivered)
	assert.Equal(t, "sms", outcome.Channel)
	assert.Equal(t, "SM789", outcome.MessageID)
}

func TestSendGatewayRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "The 'To' number is not a valid phone number."})
	}))
	defer srv.Close()

	ch := New(config.SMSConfig{BaseURL: srv.URL, AccountSID: "AC123"}, "91", zap.NewNop())

	outcome := ch.Send(context.Background(), "9301680755", "hi")
	assert.False(t, outcome.Delivered)
	assert.Contains(t, outcome.ErrorDetail, "not a valid phone number")
}

func TestSendTransportError(t *testing.T) {
	ch := New(config.SMSConfig{BaseURL: "http://127.0.0.1:1", AccountSID: "AC123"}, "91", zap.NewNop())

	outcome := ch.Send(context.Background(), "9301680755", "hi")
	assert.False(t, outcome.Delivered)
	assert.NotEmpty(t, outcome.ErrorDetail)
}

func TestSendUnusablePhone(t *testing.T) {
	ch := New(config.SMSConfig{BaseURL: "http://unused", AccountSID: "AC123"}, "91", zap.NewNop())

	outcome := ch.Send(context.Background(), "no digits here", "hi")
	assert.False(t, outcome.Delivered)
	assert.Contains(t, outcome.ErrorDetail, "unusable phone number")
}
