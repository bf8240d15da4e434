package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientMessageRoundTrip(t *testing.T) {
	cases := []ClientMessage{
		Authenticate{"req-1", "tenant-1", "1.0.0", APIKeyCredentials{Key: "k"}},
		CreateTenant{"req-2", "tenant-1", "Tenant One"},
		DeleteTenant{"req-3", "tenant-1"},
		CreateService{"req-4", "tenant-1", "svc"},
		GetService{"req-5", "tenant-1", "svc"},
		DeleteService{"req-6", "tenant-1", "svc"},
		AllocateVariable{"req-7", "svc-1", "var-1", []byte("hello")},
		ReadVariable{"req-8", "svc-1", "var-1"},
		WriteVariable{"req-9", "svc-1", "var-1", []byte("world")},
		DeallocateVariable{"req-10", "svc-1", "var-1"},
		Subscribe{"req-11", "svc-1", "var-1"},
		Unsubscribe{"req-12", "svc-1", "var-1"},
		Heartbeat{"req-13", "client-1"},
		Disconnect{"req-14", "client-1"},
		GetServiceFilePath{"req-15", "tenant-1", "svc"},
		ReportVariableChanges{"req-16", "svc-1", []string{"var-1"}, map[string][]byte{"var-1": []byte("x")}},
	}

	for _, msg := range cases {
		raw, err := MarshalClientMessage(msg)
		require.NoError(t, err)

		decoded, err := UnmarshalClientMessage(raw)
		require.NoError(t, err)
		assert.Equal(t, msg, decoded)
	}
}

func TestServerMessageRoundTrip(t *testing.T) {
	cases := []ServerMessage{
		AuthenticationResult{"req-1", true, "ok", "1.2.3", []Permission{PermissionRead, PermissionWrite}},
		Service{"req-2", "svc-1", "svc", "tenant-1", "/tmp/svc.mem", []VariableMetadata{{Name: "var-1", ServiceID: "svc-1", Offset: 0, Size: 8}}},
		Tenant{"req-3", "tenant-1", "Tenant One"},
		TenantResult{"req-4", true, "tenant-1", "created"},
		VariableData{"req-5", "svc-1", "var-1", []byte("hello"), 3},
		VariableChanged{"svc-1", "var-1", []byte("world"), 4},
		Result{"req-6", true, "done"},
		ErrorMessage{"req-7", ErrorCodeNotFound, "not found"},
		Disconnected{"server shutting down"},
		ServiceFilePath{"req-8", "svc-1", "/tmp/svc.mem", 4096},
		VariableChangesAcknowledged{"req-9", "svc-1", []string{"var-1"}},
		HeartbeatReply{"2026-07-31T00:00:00Z"},
	}

	for _, msg := range cases {
		raw, err := MarshalServerMessage(msg)
		require.NoError(t, err)

		decoded, err := UnmarshalServerMessage(raw)
		require.NoError(t, err)
		assert.Equal(t, msg, decoded)
	}
}

func TestUnmarshalServerMessageMalformed(t *testing.T) {
	_, err := UnmarshalServerMessage([]byte(`not json`))
	require.Error(t, err)

	_, err = UnmarshalServerMessage([]byte(`{"data": {}}`))
	require.Error(t, err, "missing type must error")

	_, err = UnmarshalServerMessage([]byte(`{"type": "Bogus", "data": {}}`))
	require.Error(t, err, "unknown type must error")
}

func TestErrorCodeToCommyError(t *testing.T) {
	err := ErrorCodeNotFound.ToCommyError("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NotFound")
}

func TestCredentialsRoundTrip(t *testing.T) {
	creds := []Credentials{
		APIKeyCredentials{Key: "abc"},
		JWTCredentials{Token: "xyz"},
		BasicCredentials{Username: "u", Password: "p"},
		CustomCredentials{Data: []byte(`{"foo":"bar"}`)},
	}
	for _, c := range creds {
		raw, err := MarshalCredentials(c)
		require.NoError(t, err)
		decoded, err := UnmarshalCredentials(raw)
		require.NoError(t, err)
		assert.Equal(t, c, decoded)
	}
}
