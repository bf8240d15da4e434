package commyclient

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

	"github.com/ciresnave/commy-go/internal/bytesize"
	"github.com/ciresnave/commy-go/pkg/commyerr"
	"github.com/ciresnave/commy-go/pkg/wire"
)

// mockServer upgrades a single connection and answers requests by type,
// echoing RequestID so the façade's waiter map resolves them.
func mockServer(t *testing.T, handle func(conn *websocket.Conn, msg wire.ClientMessage)) *httptest.Server {
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
			handle(conn, msg)
		}
	}))
}

func wsURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

func sendReply(t *testing.T, conn *websocket.Conn, msg wire.ServerMessage) {
	t.Helper()
	data, err := wire.MarshalServerMessage(msg)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func TestConnectAndAuthenticate(t *testing.T) {
	srv := mockServer(t, func(conn *websocket.Conn, msg wire.ClientMessage) {
		if auth, ok := msg.(wire.Authenticate); ok {
			sendReply(t, conn, wire.AuthenticationResult{
				RequestID:     auth.RequestID,
				Success:       true,
				Message:       "ok",
				ServerVersion: "1.2.3",
				Permissions:   []wire.Permission{wire.PermissionRead, wire.PermissionWrite},
			})
		}
	})
	defer srv.Close()

	c := New(wsURL(srv.URL))
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	authCtx, err := c.Authenticate(ctx, "tenant-a", wire.APIKeyCredentials{Key: "k"})
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", authCtx.TenantID)
	assert.True(t, c.IsAuthenticatedTo("tenant-a"))
	assert.Equal(t, "1.2.3", c.sess.ServerVersion())
}

func TestAuthenticateFailure(t *testing.T) {
	srv := mockServer(t, func(conn *websocket.Conn, msg wire.ClientMessage) {
		if auth, ok := msg.(wire.Authenticate); ok {
			sendReply(t, conn, wire.AuthenticationResult{
				RequestID: auth.RequestID,
				Success:   false,
				Message:   "bad credentials",
			})
		}
	})
	defer srv.Close()

	c := New(wsURL(srv.URL))
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	_, err := c.Authenticate(ctx, "tenant-a", wire.APIKeyCredentials{Key: "bad"})
	require.Error(t, err)
	assert.False(t, c.IsAuthenticatedTo("tenant-a"))
}

func TestCreateServiceRequiresAuth(t *testing.T) {
	srv := mockServer(t, func(conn *websocket.Conn, msg wire.ClientMessage) {})
	defer srv.Close()

	c := New(wsURL(srv.URL))
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	_, err := c.CreateService(ctx, "tenant-a", "svc")
	require.Error(t, err)
}

func TestReadVariableRoundTrip(t *testing.T) {
	srv := mockServer(t, func(conn *websocket.Conn, msg wire.ClientMessage) {
		if rv, ok := msg.(wire.ReadVariable); ok {
			sendReply(t, conn, wire.VariableData{
				RequestID:    rv.RequestID,
				ServiceID:    rv.ServiceID,
				VariableName: rv.VariableName,
				Data:         []byte("payload"),
				Version:      1,
			})
		}
	})
	defer srv.Close()

	c := New(wsURL(srv.URL))
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	data, err := c.ReadVariable(ctx, "svc-1", "var-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

func TestHeartbeatToleratesMissingReply(t *testing.T) {
	srv := mockServer(t, func(conn *websocket.Conn, msg wire.ClientMessage) {
		// never reply
	})
	defer srv.Close()

	c := New(wsURL(srv.URL), WithRequestTimeout(200*time.Millisecond))
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	require.NoError(t, c.Heartbeat(ctx))
	assert.Equal(t, uint64(0), c.IdleSeconds())
}

func TestVariableChangedRoutesToNotifications(t *testing.T) {
	srv := mockServer(t, func(conn *websocket.Conn, msg wire.ClientMessage) {
		if _, ok := msg.(wire.Subscribe); ok {
			sendReply(t, conn, wire.VariableChanged{
				ServiceID:    "svc-1",
				VariableName: "var-1",
				Data:         []byte("new"),
				Version:      2,
			})
		}
	})
	defer srv.Close()

	c := New(wsURL(srv.URL))
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))
	require.NoError(t, c.Subscribe(ctx, "svc-1", "var-1"))

	select {
	case msg := <-c.Notifications():
		vc, ok := msg.(wire.VariableChanged)
		require.True(t, ok)
		assert.Equal(t, "var-1", vc.VariableName)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestCreateGetDeleteService(t *testing.T) {
	srv := mockServer(t, func(conn *websocket.Conn, msg wire.ClientMessage) {
		switch m := msg.(type) {
		case wire.Authenticate:
			sendReply(t, conn, wire.AuthenticationResult{RequestID: m.RequestID, Success: true, ServerVersion: "1.0.0"})
		case wire.CreateService:
			sendReply(t, conn, wire.Service{RequestID: m.RequestID, ServiceID: "svc1", ServiceName: m.ServiceName, TenantID: m.TenantID})
		case wire.GetService:
			sendReply(t, conn, wire.Service{RequestID: m.RequestID, ServiceID: "svc1", ServiceName: m.ServiceName, TenantID: m.TenantID})
		case wire.DeleteService:
			sendReply(t, conn, wire.Result{RequestID: m.RequestID, Success: true})
		}
	})
	defer srv.Close()

	c := New(wsURL(srv.URL))
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))
	_, err := c.Authenticate(ctx, "tenant-a", wire.APIKeyCredentials{Key: "k"})
	require.NoError(t, err)

	serviceID, err := c.CreateService(ctx, "tenant-a", "svc")
	require.NoError(t, err)
	assert.Equal(t, "svc1", serviceID)

	svc, err := c.GetService(ctx, "tenant-a", "svc")
	require.NoError(t, err)
	assert.Equal(t, "svc1", svc.ServiceID)

	require.NoError(t, c.DeleteService(ctx, "tenant-a", "svc"))
}

func TestCreateServicePermissionDenied(t *testing.T) {
	srv := mockServer(t, func(conn *websocket.Conn, msg wire.ClientMessage) {
		switch m := msg.(type) {
		case wire.Authenticate:
			sendReply(t, conn, wire.AuthenticationResult{RequestID: m.RequestID, Success: true})
		case wire.CreateService:
			sendReply(t, conn, wire.ErrorMessage{
				RequestID: m.RequestID,
				Code:      wire.ErrorCodePermissionDenied,
				Message:   "tenant-a cannot create services",
			})
		}
	})
	defer srv.Close()

	c := New(wsURL(srv.URL))
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))
	_, err := c.Authenticate(ctx, "tenant-a", wire.APIKeyCredentials{Key: "k"})
	require.NoError(t, err)

	_, err = c.CreateService(ctx, "tenant-a", "svc")
	require.Error(t, err)
	assert.True(t, commyerr.IsUnauthorized(err))
	assert.Contains(t, err.Error(), "tenant-a cannot create services")
}

func TestReconnectAndRetry(t *testing.T) {
	srv := mockServer(t, func(conn *websocket.Conn, msg wire.ClientMessage) {
		if ct, ok := msg.(wire.CreateTenant); ok {
			sendReply(t, conn, wire.TenantResult{RequestID: ct.RequestID, Success: true, TenantID: ct.TenantID})
		}
	})
	defer srv.Close()

	c := New(wsURL(srv.URL), WithMaxReconnectAttempts(2))
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	// Simulate a dropped connection: CreateTenant's first send must fail
	// with ConnectionLost and trigger sendWithReconnect's backoff/redial/
	// resend-once policy.
	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()

	start := time.Now()
	tenantID, err := c.CreateTenant(ctx, "tenant-new", "Tenant New")
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, "tenant-new", tenantID)
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)
	assert.Equal(t, uint64(0), c.reconnectAttempts)
}

func TestWriteVariableRejectsOversizedPayload(t *testing.T) {
	srv := mockServer(t, func(conn *websocket.Conn, msg wire.ClientMessage) {
		if wv, ok := msg.(wire.WriteVariable); ok {
			t.Fatalf("server should not have received an oversized write: %d bytes", len(wv.Data))
		}
	})
	defer srv.Close()

	c := New(wsURL(srv.URL), WithMaxVariableSize(4*bytesize.B))
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	err := c.WriteVariable(ctx, "svc-1", "var-1", []byte("way too big"))
	require.Error(t, err)
	assert.True(t, commyerr.IsInvalidRequest(err))
}

func TestDisconnectResetsSession(t *testing.T) {
	srv := mockServer(t, func(conn *websocket.Conn, msg wire.ClientMessage) {})
	defer srv.Close()

	c := New(wsURL(srv.URL))
	ctx := context.Background()
	require.NoError(t, c.Connect(ctx))

	require.NoError(t, c.Disconnect(ctx))
	assert.False(t, c.IsConnected())
}
