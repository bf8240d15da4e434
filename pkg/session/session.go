// Package session tracks a connected client's local view of its own
// session: connection phase, per-tenant authentication, and activity
// timestamps used for idle/heartbeat bookkeeping.
package session

import (
	"sync"
	"time"

	"github.com/ciresnave/commy-go/pkg/wire"
)

// Phase mirrors the transport's connection lifecycle as seen by the
// façade, independent of the underlying websocket's own state.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseAuthenticated
	PhaseClosing
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseConnected:
		return "connected"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// AuthContext records a successful authentication against one tenant. The
// server's authorization model is left opaque to the SDK: Permissions is
// whatever the server returned, not a taxonomy the client enforces.
type AuthContext struct {
	TenantID    string
	Permissions []wire.Permission
	IssuedAt    time.Time
}

// State is the mutex-guarded client session: connection phase, the
// authentication contexts held per tenant, and activity tracking used to
// decide when to send a heartbeat.
type State struct {
	mu sync.RWMutex

	phase         Phase
	sessionID     string
	clientID      string
	serverVersion string
	authContexts  map[string]AuthContext
	lastActivity  time.Time
}

// New creates a fresh, disconnected session state for clientID.
func New(clientID string) *State {
	return &State{
		phase:        PhaseDisconnected,
		clientID:     clientID,
		authContexts: make(map[string]AuthContext),
		lastActivity: time.Now(),
	}
}

func (s *State) ClientID() string { return s.clientID }

func (s *State) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

func (s *State) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

func (s *State) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

func (s *State) SetSessionID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = id
}

func (s *State) ServerVersion() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverVersion
}

func (s *State) SetServerVersion(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serverVersion = v
}

// Touch records activity now, resetting the idle clock.
func (s *State) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
}

// IdleSeconds returns how long it has been since the last Touch.
func (s *State) IdleSeconds() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idle := time.Since(s.lastActivity).Seconds()
	if idle < 0 {
		return 0
	}
	return uint64(idle)
}

// AddAuthContext records a successful authentication against tenantID.
func (s *State) AddAuthContext(tenantID string, ctx AuthContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authContexts[tenantID] = ctx
}

// GetAuthContext returns the authentication context held for tenantID, if any.
func (s *State) GetAuthContext(tenantID string) (AuthContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctx, ok := s.authContexts[tenantID]
	return ctx, ok
}

// IsAuthenticatedTo reports whether the session holds credentials for tenantID.
func (s *State) IsAuthenticatedTo(tenantID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.authContexts[tenantID]
	return ok
}

// AuthenticatedTenants lists every tenant the session currently holds
// authentication for.
func (s *State) AuthenticatedTenants() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.authContexts))
	for tenantID := range s.authContexts {
		out = append(out, tenantID)
	}
	return out
}

// ClearAuth drops the authentication context held for tenantID.
func (s *State) ClearAuth(tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.authContexts, tenantID)
}

// ClearAllAuth drops every held authentication context.
func (s *State) ClearAllAuth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authContexts = make(map[string]AuthContext)
}

// Reset returns the session to its just-created, disconnected state,
// keeping the client ID but dropping session ID, auth, and server version.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = PhaseDisconnected
	s.sessionID = ""
	s.serverVersion = ""
	s.authContexts = make(map[string]AuthContext)
	s.lastActivity = time.Now()
}
