package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ciresnave/commy-go/pkg/wire"
)

// echoServer upgrades every request and decodes+re-encodes one
// HeartbeatReply per received client frame, simulating a minimal server.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			msg, err := wire.UnmarshalClientMessage(data)
			if err != nil {
				continue
			}
			if _, ok := msg.(wire.Heartbeat); ok {
				reply, _ := wire.MarshalServerMessage(wire.HeartbeatReply{Timestamp: "now"})
				if err := conn.WriteMessage(websocket.TextMessage, reply); err != nil {
					return
				}
			}
		}
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func TestDialSendReceive(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	conn, err := Dial(context.Background(), wsURL(srv.URL))
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Send(wire.Heartbeat{RequestID: "req-1", ClientID: "client-1"}))

	select {
	case msg := <-conn.Messages():
		reply, ok := msg.(wire.HeartbeatReply)
		require.True(t, ok)
		assert.Equal(t, "now", reply.Timestamp)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for heartbeat reply")
	}
}

func TestCloseStopsPumps(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	conn, err := Dial(context.Background(), wsURL(srv.URL))
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	assert.Error(t, conn.Send(wire.Heartbeat{RequestID: "req-2", ClientID: "client-1"}))
}

func TestReadErrorReportedOnErrorsChannel(t *testing.T) {
	srv := echoServer(t)

	conn, err := Dial(context.Background(), wsURL(srv.URL))
	require.NoError(t, err)
	defer conn.Close()

	srv.Close()

	select {
	case err := <-conn.Errors():
		require.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for transport error")
	}
}
