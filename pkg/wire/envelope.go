// Package wire implements the Commy client/server wire protocol: a tagged
// union JSON envelope for client and server messages, plus the credential
// and metadata shapes carried inside them.
package wire

import (
	"encoding/json"
	"fmt"
)

// envelope is the on-the-wire shape for every ClientMessage/ServerMessage:
// {"type": "...", "request_id": "...", "data": {...}}. request_id is the
// (NEW) client-generated correlation id: every ClientMessage carries one,
// and any ServerMessage answering a specific request echoes it back.
type envelope struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data"`
}

func marshalEnvelope(msgType, requestID string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %s payload: %w", msgType, err)
	}
	return json.Marshal(envelope{Type: msgType, RequestID: requestID, Data: data})
}

func unmarshalEnvelope(raw []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, fmt.Errorf("wire: malformed envelope: %w", err)
	}
	if env.Type == "" {
		return envelope{}, fmt.Errorf("wire: envelope missing \"type\"")
	}
	return env, nil
}
