package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ciresnave/commy-go/pkg/wire"
)

func TestNewStateIsDisconnected(t *testing.T) {
	s := New("client-1")
	assert.Equal(t, "client-1", s.ClientID())
	assert.Equal(t, PhaseDisconnected, s.Phase())
	assert.Equal(t, "", s.SessionID())
	assert.False(t, s.IsAuthenticatedTo("tenant-a"))
}

func TestTouchAndIdleSeconds(t *testing.T) {
	s := New("client-1")
	s.mu.Lock()
	s.lastActivity = time.Now().Add(-10 * time.Second)
	s.mu.Unlock()

	assert.GreaterOrEqual(t, s.IdleSeconds(), uint64(10))

	s.Touch()
	assert.Equal(t, uint64(0), s.IdleSeconds())
}

func TestAuthContextManagement(t *testing.T) {
	s := New("client-1")
	ctx := AuthContext{
		TenantID:    "tenant-a",
		Permissions: []wire.Permission{wire.PermissionRead, wire.PermissionWrite},
		IssuedAt:    time.Now(),
	}

	s.AddAuthContext("tenant-a", ctx)
	assert.True(t, s.IsAuthenticatedTo("tenant-a"))
	assert.Len(t, s.AuthenticatedTenants(), 1)

	got, ok := s.GetAuthContext("tenant-a")
	assert.True(t, ok)
	assert.Equal(t, ctx.Permissions, got.Permissions)

	s.ClearAuth("tenant-a")
	assert.False(t, s.IsAuthenticatedTo("tenant-a"))
}

func TestClearAllAuth(t *testing.T) {
	s := New("client-1")
	s.AddAuthContext("tenant-a", AuthContext{TenantID: "tenant-a"})
	s.AddAuthContext("tenant-b", AuthContext{TenantID: "tenant-b"})
	assert.Len(t, s.AuthenticatedTenants(), 2)

	s.ClearAllAuth()
	assert.Empty(t, s.AuthenticatedTenants())
}

func TestReset(t *testing.T) {
	s := New("client-1")
	s.SetPhase(PhaseConnected)
	s.SetSessionID("sess-123")
	s.SetServerVersion("1.2.3")
	s.AddAuthContext("tenant-a", AuthContext{TenantID: "tenant-a"})

	s.Reset()

	assert.Equal(t, PhaseDisconnected, s.Phase())
	assert.Equal(t, "", s.SessionID())
	assert.Equal(t, "", s.ServerVersion())
	assert.Empty(t, s.AuthenticatedTenants())
	assert.Equal(t, "client-1", s.ClientID())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "connecting", PhaseConnecting.String())
	assert.Equal(t, "authenticated", PhaseAuthenticated.String())
	assert.Equal(t, "closing", PhaseClosing.String())
	assert.Equal(t, "unknown", Phase(99).String())
}
