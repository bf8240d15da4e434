package wire

import (
	"encoding/json"
	"fmt"
)

// ClientMessage is the tagged union of every message a client may send.
// Every variant carries a RequestID (NEW, per the request/reply
// correlation redesign): the façade generates one per call and the
// server echoes it back on the matching ServerMessage so concurrent calls
// never have to guess which reply is theirs.
type ClientMessage interface {
	clientMessageType() string
	requestID() string
}

func (m Authenticate) clientMessageType() string          { return "Authenticate" }
func (m CreateTenant) clientMessageType() string           { return "CreateTenant" }
func (m DeleteTenant) clientMessageType() string           { return "DeleteTenant" }
func (m CreateService) clientMessageType() string          { return "CreateService" }
func (m GetService) clientMessageType() string              { return "GetService" }
func (m DeleteService) clientMessageType() string           { return "DeleteService" }
func (m AllocateVariable) clientMessageType() string        { return "AllocateVariable" }
func (m ReadVariable) clientMessageType() string             { return "ReadVariable" }
func (m WriteVariable) clientMessageType() string            { return "WriteVariable" }
func (m DeallocateVariable) clientMessageType() string       { return "DeallocateVariable" }
func (m Subscribe) clientMessageType() string                { return "Subscribe" }
func (m Unsubscribe) clientMessageType() string              { return "Unsubscribe" }
func (m Heartbeat) clientMessageType() string                { return "Heartbeat" }
func (m Disconnect) clientMessageType() string                { return "Disconnect" }
func (m GetServiceFilePath) clientMessageType() string        { return "GetServiceFilePath" }
func (m ReportVariableChanges) clientMessageType() string     { return "ReportVariableChanges" }

func (m Authenticate) requestID() string            { return m.RequestID }
func (m CreateTenant) requestID() string             { return m.RequestID }
func (m DeleteTenant) requestID() string             { return m.RequestID }
func (m CreateService) requestID() string            { return m.RequestID }
func (m GetService) requestID() string               { return m.RequestID }
func (m DeleteService) requestID() string             { return m.RequestID }
func (m AllocateVariable) requestID() string          { return m.RequestID }
func (m ReadVariable) requestID() string              { return m.RequestID }
func (m WriteVariable) requestID() string             { return m.RequestID }
func (m DeallocateVariable) requestID() string        { return m.RequestID }
func (m Subscribe) requestID() string                 { return m.RequestID }
func (m Unsubscribe) requestID() string               { return m.RequestID }
func (m Heartbeat) requestID() string                 { return m.RequestID }
func (m Disconnect) requestID() string                { return m.RequestID }
func (m GetServiceFilePath) requestID() string        { return m.RequestID }
func (m ReportVariableChanges) requestID() string     { return m.RequestID }

// Authenticate authenticates a session against a tenant.
type Authenticate struct {
	RequestID     string
	TenantID      string
	ClientVersion string
	Credentials   Credentials
}

// CreateTenant creates a tenant (admin operation).
type CreateTenant struct {
	RequestID  string
	TenantID   string
	TenantName string
}

// DeleteTenant deletes a tenant (admin operation).
type DeleteTenant struct {
	RequestID string
	TenantID  string
}

// CreateService creates a new service under a tenant.
type CreateService struct {
	RequestID   string
	TenantID    string
	ServiceName string
}

// GetService fetches an existing service, erroring if not found.
type GetService struct {
	RequestID   string
	TenantID    string
	ServiceName string
}

// DeleteService deletes a service.
type DeleteService struct {
	RequestID   string
	TenantID    string
	ServiceName string
}

// AllocateVariable reserves a new variable within a service.
type AllocateVariable struct {
	RequestID    string
	ServiceID    string
	VariableName string
	InitialData  []byte
}

// ReadVariable reads a variable's current data.
type ReadVariable struct {
	RequestID    string
	ServiceID    string
	VariableName string
}

// WriteVariable overwrites a variable's data.
type WriteVariable struct {
	RequestID    string
	ServiceID    string
	VariableName string
	Data         []byte
}

// DeallocateVariable releases a variable's reservation.
type DeallocateVariable struct {
	RequestID    string
	ServiceID    string
	VariableName string
}

// Subscribe requests push notifications for a variable's changes.
type Subscribe struct {
	RequestID    string
	ServiceID    string
	VariableName string
}

// Unsubscribe cancels a prior Subscribe.
type Unsubscribe struct {
	RequestID    string
	ServiceID    string
	VariableName string
}

// Heartbeat is a keep-alive sent on an idle connection.
type Heartbeat struct {
	RequestID string
	ClientID  string
}

// Disconnect notifies the server of a graceful shutdown.
type Disconnect struct {
	RequestID string
	ClientID  string
}

// GetServiceFilePath requests the local mmap path for a service (local
// clients only).
type GetServiceFilePath struct {
	RequestID   string
	TenantID    string
	ServiceName string
}

// ReportVariableChanges notifies the server of changes detected locally via
// the virtual file diff engine, so the server can merge and rebroadcast.
type ReportVariableChanges struct {
	RequestID         string
	ServiceID         string
	ChangedVariables  []string
	NewValues         map[string][]byte
}

// MarshalClientMessage encodes a ClientMessage into its wire envelope.
func MarshalClientMessage(m ClientMessage) ([]byte, error) {
	switch v := m.(type) {
	case Authenticate:
		credData, err := MarshalCredentials(v.Credentials)
		if err != nil {
			return nil, err
		}
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			TenantID      string          `json:"tenant_id"`
			ClientVersion string          `json:"client_version"`
			Credentials   json.RawMessage `json:"credentials"`
		}{v.TenantID, v.ClientVersion, credData})
	case CreateTenant:
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			TenantID   string `json:"tenant_id"`
			TenantName string `json:"tenant_name"`
		}{v.TenantID, v.TenantName})
	case DeleteTenant:
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			TenantID string `json:"tenant_id"`
		}{v.TenantID})
	case CreateService:
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			TenantID    string `json:"tenant_id"`
			ServiceName string `json:"service_name"`
		}{v.TenantID, v.ServiceName})
	case GetService:
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			TenantID    string `json:"tenant_id"`
			ServiceName string `json:"service_name"`
		}{v.TenantID, v.ServiceName})
	case DeleteService:
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			TenantID    string `json:"tenant_id"`
			ServiceName string `json:"service_name"`
		}{v.TenantID, v.ServiceName})
	case AllocateVariable:
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
			InitialData  []byte `json:"initial_data"`
		}{v.ServiceID, v.VariableName, v.InitialData})
	case ReadVariable:
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
		}{v.ServiceID, v.VariableName})
	case WriteVariable:
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
			Data         []byte `json:"data"`
		}{v.ServiceID, v.VariableName, v.Data})
	case DeallocateVariable:
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
		}{v.ServiceID, v.VariableName})
	case Subscribe:
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
		}{v.ServiceID, v.VariableName})
	case Unsubscribe:
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
		}{v.ServiceID, v.VariableName})
	case Heartbeat:
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			ClientID string `json:"client_id"`
		}{v.ClientID})
	case Disconnect:
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			ClientID string `json:"client_id"`
		}{v.ClientID})
	case GetServiceFilePath:
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			TenantID    string `json:"tenant_id"`
			ServiceName string `json:"service_name"`
		}{v.TenantID, v.ServiceName})
	case ReportVariableChanges:
		pairs := make([][2]json.RawMessage, 0, len(v.NewValues))
		for name, data := range v.NewValues {
			nameJSON, _ := json.Marshal(name)
			dataJSON, _ := json.Marshal(data)
			pairs = append(pairs, [2]json.RawMessage{nameJSON, dataJSON})
		}
		return marshalEnvelope(v.clientMessageType(), v.RequestID, struct {
			ServiceID        string               `json:"service_id"`
			ChangedVariables []string             `json:"changed_variables"`
			NewValues        [][2]json.RawMessage `json:"new_values"`
		}{v.ServiceID, v.ChangedVariables, pairs})
	default:
		return nil, fmt.Errorf("wire: unknown client message type %T", m)
	}
}

// UnmarshalClientMessage decodes a ClientMessage from its wire envelope.
// Servers (and tests exercising round trips) use this; the façade itself
// only ever marshals ClientMessage values.
func UnmarshalClientMessage(raw []byte) (ClientMessage, error) {
	env, err := unmarshalEnvelope(raw)
	if err != nil {
		return nil, err
	}
	switch env.Type {
	case "Authenticate":
		var v struct {
			TenantID      string          `json:"tenant_id"`
			ClientVersion string          `json:"client_version"`
			Credentials   json.RawMessage `json:"credentials"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		creds, err := UnmarshalCredentials(v.Credentials)
		if err != nil {
			return nil, err
		}
		return Authenticate{env.RequestID, v.TenantID, v.ClientVersion, creds}, nil
	case "CreateTenant":
		var v struct {
			TenantID   string `json:"tenant_id"`
			TenantName string `json:"tenant_name"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return CreateTenant{env.RequestID, v.TenantID, v.TenantName}, nil
	case "DeleteTenant":
		var v struct {
			TenantID string `json:"tenant_id"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return DeleteTenant{env.RequestID, v.TenantID}, nil
	case "CreateService":
		var v struct {
			TenantID    string `json:"tenant_id"`
			ServiceName string `json:"service_name"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return CreateService{env.RequestID, v.TenantID, v.ServiceName}, nil
	case "GetService":
		var v struct {
			TenantID    string `json:"tenant_id"`
			ServiceName string `json:"service_name"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return GetService{env.RequestID, v.TenantID, v.ServiceName}, nil
	case "DeleteService":
		var v struct {
			TenantID    string `json:"tenant_id"`
			ServiceName string `json:"service_name"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return DeleteService{env.RequestID, v.TenantID, v.ServiceName}, nil
	case "AllocateVariable":
		var v struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
			InitialData  []byte `json:"initial_data"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return AllocateVariable{env.RequestID, v.ServiceID, v.VariableName, v.InitialData}, nil
	case "ReadVariable":
		var v struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return ReadVariable{env.RequestID, v.ServiceID, v.VariableName}, nil
	case "WriteVariable":
		var v struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
			Data         []byte `json:"data"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return WriteVariable{env.RequestID, v.ServiceID, v.VariableName, v.Data}, nil
	case "DeallocateVariable":
		var v struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return DeallocateVariable{env.RequestID, v.ServiceID, v.VariableName}, nil
	case "Subscribe":
		var v struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return Subscribe{env.RequestID, v.ServiceID, v.VariableName}, nil
	case "Unsubscribe":
		var v struct {
			ServiceID    string `json:"service_id"`
			VariableName string `json:"variable_name"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return Unsubscribe{env.RequestID, v.ServiceID, v.VariableName}, nil
	case "Heartbeat":
		var v struct {
			ClientID string `json:"client_id"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return Heartbeat{env.RequestID, v.ClientID}, nil
	case "Disconnect":
		var v struct {
			ClientID string `json:"client_id"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return Disconnect{env.RequestID, v.ClientID}, nil
	case "GetServiceFilePath":
		var v struct {
			TenantID    string `json:"tenant_id"`
			ServiceName string `json:"service_name"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		return GetServiceFilePath{env.RequestID, v.TenantID, v.ServiceName}, nil
	case "ReportVariableChanges":
		var v struct {
			ServiceID        string               `json:"service_id"`
			ChangedVariables []string             `json:"changed_variables"`
			NewValues        [][2]json.RawMessage `json:"new_values"`
		}
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return nil, err
		}
		newValues := make(map[string][]byte, len(v.NewValues))
		for _, pair := range v.NewValues {
			var name string
			var data []byte
			if err := json.Unmarshal(pair[0], &name); err != nil {
				return nil, err
			}
			if err := json.Unmarshal(pair[1], &data); err != nil {
				return nil, err
			}
			newValues[name] = data
		}
		return ReportVariableChanges{env.RequestID, v.ServiceID, v.ChangedVariables, newValues}, nil
	default:
		return nil, fmt.Errorf("wire: unknown client message type %q", env.Type)
	}
}
