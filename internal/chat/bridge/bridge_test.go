package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/knitkart/orderflow/internal/chat/domain"
	"github.com/knitkart/orderflow/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTransport(t *testing.T, handler http.Handler) *Transport {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.ChatConfig{BridgeURL: srv.URL}, zap.NewNop())
}

func TestInitializeStreamsEvents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	served := false
	mux.HandleFunc("/session/events", func(w http.ResponseWriter, r *http.Request) {
		if served {
			w.Write([]byte(`[]`))
			return
		}
		served = true
		w.Write([]byte(`[{"type":"qr","detail":"scan me"},{"type":"authenticated"},{"type":"ready"}]`))
	})

	tr := newTestTransport(t, mux)
	events, err := tr.Initialize(context.Background())
	require.NoError(t, err)
	defer tr.stopPoller()

	var got []domain.EventType
	timeout := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case ev := <-events:
			got = append(got, ev.Type)
		case <-timeout:
			t.Fatalf("timed out, got %v", got)
		}
	}
	assert.Equal(t, []domain.EventType{domain.EventQR, domain.EventAuthenticated, domain.EventReady}, got)
}

func TestInitializeFailsWhenSidecarRefuses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"session already active"}`))
	})

	tr := newTestTransport(t, mux)
	_, err := tr.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session already active")
}

func TestDisconnectedEventClosesStream(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/session/events", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"type":"disconnected","detail":"logged out"}]`))
	})

	tr := newTestTransport(t, mux)
	events, err := tr.Initialize(context.Background())
	require.NoError(t, err)

	ev := <-events
	assert.Equal(t, domain.EventDisconnected, ev.Type)

	_, open := <-events
	assert.False(t, open, "stream must close after a disconnect")
}

func TestIsRegistered(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/contacts/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/contacts/"), "/registered")
		if id == "919301680755@c.us" {
			w.Write([]byte(`{"registered":true}`))
			return
		}
		w.Write([]byte(`{"registered":false}`))
	})

	tr := newTestTransport(t, mux)

	ok, err := tr.IsRegistered(context.Background(), "919301680755@c.us")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tr.IsRegistered(context.Background(), "15550000000@c.us")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSendMessage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/messages", func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "919301680755@c.us", payload["chat_id"])
		assert.Equal(t, "order confirmed", payload["body"])
		w.Write([]byte(`{"message_id":"true_919301680755@c.us_ABCD"}`))
	})

	tr := newTestTransport(t, mux)
	id, err := tr.SendMessage(context.Background(), "919301680755@c.us", "order confirmed")
	require.NoError(t, err)
	assert.Equal(t, "true_919301680755@c.us_ABCD", id)
}

func TestClearSessionRemovesCredentialDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".wwebjs_auth")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "session"), 0o755))

	tr := New(config.ChatConfig{BridgeURL: "http://localhost:0", SessionDir: dir}, zap.NewNop())
	require.NoError(t, tr.ClearSession())

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}
