package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "pair:3:9", PairKey(9, 3))
	assert.Equal(t, PairKey(3, 9), PairKey(9, 3))
	assert.NotEqual(t, PairKey(3, 9), PairKey(3, 10))
}

func TestHubSendToUser(t *testing.T) {
	hub := NewHub()
	upgrader := websocket.Upgrader{}
	registered := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.Register(42, conn)
		close(registered)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("connection was not registered")
	}

	assert.True(t, hub.IsOnline(42))
	assert.Equal(t, 1, hub.SendToPair(42, 7, Message{Type: "booking.approved", Data: map[string]int64{"booking_id": 1}}))
	assert.False(t, hub.SendToUser(7, Message{Type: "noop"}))

	var got Message
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "booking.approved", got.Type)
	assert.Equal(t, "pair:7:42", got.Room)

	hub.Close()
	assert.Equal(t, 0, hub.OnlineCount())
}
