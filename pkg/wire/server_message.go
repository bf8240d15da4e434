package wire

import (
	"encoding/json"
	"fmt"
)

// ServerMessage is the tagged union of every message a server may send.
// Messages answering a specific request carry that request's RequestID
// (NEW, see ClientMessage); unsolicited pushes (VariableChanged,
// Disconnected, Heartbeat) carry an empty one and are routed to the
// façade's Notifications channel instead of a waiter.
type ServerMessage interface {
	serverMessageType() string
	RequestIDOf() string
}

// AuthenticationResult reports the outcome of an Authenticate call.
type AuthenticationResult struct {
	RequestID     string
	Success       bool
	Message       string
	ServerVersion string
	Permissions   []Permission
}

// Service reports a created or retrieved service.
type Service struct {
	RequestID   string
	ServiceID   string
	ServiceName string
	TenantID    string
	FilePath    string
	Variables   []VariableMetadata
}

// Tenant reports a created or retrieved tenant.
type Tenant struct {
	RequestID  string
	TenantID   string
	TenantName string
}

// TenantResult reports the outcome of a tenant create/delete.
type TenantResult struct {
	RequestID string
	Success   bool
	TenantID  string
	Message   string
}

// VariableData carries a variable's current value in response to ReadVariable.
type VariableData struct {
	RequestID    string
	ServiceID    string
	VariableName string
	Data         []byte
	Version      uint64
}

// VariableChanged is an unsolicited push notifying a subscriber of a new value.
type VariableChanged struct {
	ServiceID    string
	VariableName string
	Data         []byte
	Version      uint64
}

// Result reports the success/failure of an operation with no payload of its own.
type Result struct {
	RequestID string
	Success   bool
	Message   string
}

// ErrorMessage reports an operation failure with an explicit ErrorCode.
type ErrorMessage struct {
	RequestID string
	Code      ErrorCode
	Message   string
}

// Disconnected is sent by the server immediately before it closes the connection.
type Disconnected struct {
	Reason string
}

// ServiceFilePath answers GetServiceFilePath with the local mmap path.
type ServiceFilePath struct {
	RequestID string
	ServiceID string
	FilePath  string
	FileSize  uint64
}

// VariableChangesAcknowledged confirms a ReportVariableChanges was merged.
type VariableChangesAcknowledged struct {
	RequestID        string
	ServiceID        string
	ChangedVariables []string
}

// HeartbeatReply answers a client Heartbeat.
type HeartbeatReply struct {
	Timestamp string
}

func (m AuthenticationResult) serverMessageType() string        { return "AuthenticationResult" }
func (m Service) serverMessageType() string                      { return "Service" }
func (m Tenant) serverMessageType() string                       { return "Tenant" }
func (m TenantResult) serverMessageType() string                  { return "TenantResult" }
func (m VariableData) serverMessageType() string                  { return "VariableData" }
func (m VariableChanged) serverMessageType() string                { return "VariableChanged" }
func (m Result) serverMessageType() string                        { return "Result" }
func (m ErrorMessage) serverMessageType() string                   { return "Error" }
func (m Disconnected) serverMessageType() string                   { return "Disconnected" }
func (m ServiceFilePath) serverMessageType() string                 { return "ServiceFilePath" }
func (m VariableChangesAcknowledged) serverMessageType() string     { return "VariableChangesAcknowledged" }
func (m HeartbeatReply) serverMessageType() string                  { return "Heartbeat" }

func (m AuthenticationResult) RequestIDOf() string        { return m.RequestID }
func (m Service) RequestIDOf() string                      { return m.RequestID }
func (m Tenant) RequestIDOf() string                       { return m.RequestID }
func (m TenantResult) RequestIDOf() string                  { return m.RequestID }
func (m VariableData) RequestIDOf() string                  { return m.RequestID }
func (m VariableChanged) RequestIDOf() string                { return "" }
func (m Result) RequestIDOf() string                        { return m.RequestID }
func (m ErrorMessage) RequestIDOf() string                         { return m.RequestID }
func (m Disconnected) RequestIDOf() string                   { return "" }
func (m ServiceFilePath) RequestIDOf() string                 { return m.RequestID }
func (m VariableChangesAcknowledged) RequestIDOf() string     { return m.RequestID }
func (m HeartbeatReply) RequestIDOf() string                  { return "" }

// MarshalServerMessage encodes a ServerMessage into its wire envelope.
func MarshalServerMessage(m ServerMessage) ([]byte, error) {
	switch v := m.(type) {
	case AuthenticationResult:
		return marshalEnvelope(v.serverMessageType(), v.RequestID, struct {
			Success       bool         `json:"success"`
			Message       string       `json:"message"`
			ServerVersion string       `json:"server_version"`
			Permissions   []Permission `json:"permissions,omitempty"`
		}{v.Success, v.Message, v.ServerVersion, v.Permissions})
	case Service:
		return marshalEnvelope(v.serverMessageType(), v.RequestID, struct {
			ServiceID   string             `json:"service_id"`
			ServiceName string             `json:"service_name"`
			TenantID    string             `json:"tenant_id"`
			FilePath    string             `json:"file_path,omitempty"`
			Variables   []VariableMetadata `json:"variables,omitempty"`
		}{v.ServiceID, v.ServiceName, v.TenantID, v.FilePath, v.Variables})
	case Tenant:
		return marshalEnvelope(v.serverMessageType(), v.RequestID, struct {
			TenantID   string `json:"tenant_id"`
			TenantName string `json:"tenant_name"`
		}{v.TenantID, v.TenantName})
	case TenantResult:
		return marshalEnvelope(v.serverMessageType(), v.RequestID, struct {
			Success  bool   `json:"success"`
			TenantID string `json:"tenant_id"`
			Message  string `json:"message"`
		}{v.Success, v.TenantID, v.Message})
	case VariableData:
		return marshalEnvelope(v.serverMessageType(), v.RequestID, struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
			Data         []byte `json:"data"`
			Version      uint64 `json:"version"`
		}{v.ServiceID, v.VariableName, v.Data, v.Version})
	case VariableChanged:
		return marshalEnvelope(v.serverMessageType(), "", struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
			Data         []byte `json:"data"`
			Version      uint64 `json:"version"`
		}{v.ServiceID, v.VariableName, v.Data, v.Version})
	case Result:
		return marshalEnvelope(v.serverMessageType(), v.RequestID, struct {
			RequestID string `json:"request_id"`
			Success   bool   `json:"success"`
			Message   string `json:"message"`
		}{v.RequestID, v.Success, v.Message})
	case ErrorMessage:
		return marshalEnvelope(v.serverMessageType(), v.RequestID, struct {
			Code    ErrorCode `json:"code"`
			Message string    `json:"message"`
		}{v.Code, v.Message})
	case Disconnected:
		return marshalEnvelope(v.serverMessageType(), "", struct {
			Reason string `json:"reason"`
		}{v.Reason})
	case ServiceFilePath:
		return marshalEnvelope(v.serverMessageType(), v.RequestID, struct {
			ServiceID string `json:"service_id"`
			FilePath  string `json:"file_path"`
			FileSize  uint64 `json:"file_size"`
		}{v.ServiceID, v.FilePath, v.FileSize})
	case VariableChangesAcknowledged:
		return marshalEnvelope(v.serverMessageType(), v.RequestID, struct {
			ServiceID        string   `json:"service_id"`
			ChangedVariables []string `json:"changed_variables"`
		}{v.ServiceID, v.ChangedVariables})
	case HeartbeatReply:
		return marshalEnvelope(v.serverMessageType(), "", struct {
			Timestamp string `json:"timestamp"`
		}{v.Timestamp})
	default:
		return nil, fmt.Errorf("wire: unknown server message type %T", m)
	}
}

// UnmarshalServerMessage decodes a ServerMessage from its wire envelope.
// Malformed envelopes are always reported as an error so the transport
// layer can log and drop the frame rather than crash the session.
func UnmarshalServerMessage(raw []byte) (ServerMessage, error) {
	env, err := unmarshalEnvelope(raw)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case "AuthenticationResult":
		var v struct {
			Success       bool         `json:"success"`
			Message       string       `json:"message"`
			ServerVersion string       `json:"server_version"`
			Permissions   []Permission `json:"permissions,omitempty"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return AuthenticationResult{env.RequestID, v.Success, v.Message, v.ServerVersion, v.Permissions}, nil
	case "Service":
		var v struct {
			ServiceID   string             `json:"service_id"`
			ServiceName string             `json:"service_name"`
			TenantID    string             `json:"tenant_id"`
			FilePath    string             `json:"file_path,omitempty"`
			Variables   []VariableMetadata `json:"variables,omitempty"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return Service{env.RequestID, v.ServiceID, v.ServiceName, v.TenantID, v.FilePath, v.Variables}, nil
	case "Tenant":
		var v struct {
			TenantID   string `json:"tenant_id"`
			TenantName string `json:"tenant_name"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return Tenant{env.RequestID, v.TenantID, v.TenantName}, nil
	case "TenantResult":
		var v struct {
			Success  bool   `json:"success"`
			TenantID string `json:"tenant_id"`
			Message  string `json:"message"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return TenantResult{env.RequestID, v.Success, v.TenantID, v.Message}, nil
	case "VariableData":
		var v struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
			Data         []byte `json:"data"`
			Version      uint64 `json:"version"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return VariableData{env.RequestID, v.ServiceID, v.VariableName, v.Data, v.Version}, nil
	case "VariableChanged":
		var v struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
			Data         []byte `json:"data"`
			Version      uint64 `json:"version"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return VariableChanged{v.ServiceID, v.VariableName, v.Data, v.Version}, nil
	case "Result":
		var v struct {
			RequestID string `json:"request_id"`
			Success   bool   `json:"success"`
			Message   string `json:"message"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		requestID := env.RequestID
		if requestID == "" {
			requestID = v.RequestID
		}
		return Result{requestID, v.Success, v.Message}, nil
	case "Error":
		var v struct {
			Code    ErrorCode `json:"code"`
			Message string    `json:"message"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return ErrorMessage{env.RequestID, v.Code, v.Message}, nil
	case "Disconnected":
		var v struct {
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return Disconnected{v.Reason}, nil
	case "ServiceFilePath":
		var v struct {
			ServiceID string `json:"service_id"`
			FilePath  string `json:"file_path"`
			FileSize  uint64 `json:"file_size"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return ServiceFilePath{env.RequestID, v.ServiceID, v.FilePath, v.FileSize}, nil
	case "VariableChangesAcknowledged":
		var v struct {
			ServiceID        string   `json:"service_id"`
			ChangedVariables []string `json:"changed_variables"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return VariableChangesAcknowledged{env.RequestID, v.ServiceID, v.ChangedVariables}, nil
	case "Heartbeat":
		var v struct {
			Timestamp string `json:"timestamp"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return HeartbeatReply{v.Timestamp}, nil
	default:
		return nil, fmt.Errorf("wire: unknown server message type %q", env.Type)
	}
}

// Error implements the error interface so a wire.ErrorMessage can be
// returned directly from façade calls.
func (e ErrorMessage) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
