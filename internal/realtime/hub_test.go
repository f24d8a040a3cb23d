package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil, func(*http.Request) bool { return true })
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseUint(r.URL.Query().Get("user"), 10, 64)
		_ = hub.ServeWS(w, r, uint(id))
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string, user int) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url+"?user="+strconv.Itoa(user), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHub_NotifyReachesEverySocketOfUser(t *testing.T) {
	hub, url := newServer(t)
	a := dial(t, url, 1)
	b := dial(t, url, 1)
	other := dial(t, url, 2)

	require.Eventually(t, func() bool { return hub.Connected(1) == 2 && hub.Connected(2) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Notify(1, map[string]any{"type": "message", "content": "hi"})

	for _, c := range []*websocket.Conn{a, b} {
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := c.ReadMessage()
		require.NoError(t, err)
		var got map[string]any
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, "hi", got["content"])
	}

	_ = other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err, "other users receive nothing")
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, url := newServer(t)
	c := dial(t, url, 5)
	require.Eventually(t, func() bool { return hub.Connected(5) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	require.Eventually(t, func() bool { return hub.Connected(5) == 0 }, 2*time.Second, 10*time.Millisecond)

	hub.Notify(5, map[string]any{"type": "message"})
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub, url := newServer(t)
	c := dial(t, url, 3)
	require.Eventually(t, func() bool { return hub.Connected(3) == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Zero(t, hub.Connected(3))

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := c.ReadMessage()
	assert.Error(t, err)
}

func TestHub_NotifyUnencodablePayload(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.Notify(1, map[string]any{"bad": make(chan int)})
}
