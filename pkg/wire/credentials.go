package wire

import (
	"encoding/json"
	"fmt"
)

// Credentials is the tagged union of supported authentication methods,
// serialized on the wire as {"method": "...", ...fields}.
type Credentials interface {
	Method() string
}

// APIKeyCredentials authenticates with a static API key.
type APIKeyCredentials struct {
	Key string
}

func (APIKeyCredentials) Method() string { return "api_key" }

// JWTCredentials authenticates with a bearer JWT.
type JWTCredentials struct {
	Token string
}

func (JWTCredentials) Method() string { return "jwt" }

// BasicCredentials authenticates with a username/password pair.
type BasicCredentials struct {
	Username string
	Password string
}

func (BasicCredentials) Method() string { return "basic" }

// CustomCredentials carries an opaque, deployment-specific payload.
type CustomCredentials struct {
	Data json.RawMessage
}

func (CustomCredentials) Method() string { return "custom" }

// MarshalCredentials encodes a Credentials value with its method tag.
func MarshalCredentials(c Credentials) ([]byte, error) {
	switch v := c.(type) {
	case APIKeyCredentials:
		return json.Marshal(struct {
			Method string `json:"method"`
			Key    string `json:"key"`
		}{"api_key", v.Key})
	case JWTCredentials:
		return json.Marshal(struct {
			Method string `json:"method"`
			Token  string `json:"token"`
		}{"jwt", v.Token})
	case BasicCredentials:
		return json.Marshal(struct {
			Method   string `json:"method"`
			Username string `json:"username"`
			Password string `json:"password"`
		}{"basic", v.Username, v.Password})
	case CustomCredentials:
		return json.Marshal(struct {
			Method string          `json:"method"`
			Data   json.RawMessage `json:"data"`
		}{"custom", v.Data})
	default:
		return nil, fmt.Errorf("wire: unknown credentials type %T", c)
	}
}

// UnmarshalCredentials decodes a Credentials value from its method tag.
func UnmarshalCredentials(raw json.RawMessage) (Credentials, error) {
	var tag struct {
		Method string `json:"method"`
	}
	if err := json.Unmarshal(raw, &tag); err != nil {
		return nil, fmt.Errorf("wire: malformed credentials: %w", err)
	}
	switch tag.Method {
	case "api_key":
		var v struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return APIKeyCredentials{Key: v.Key}, nil
	case "jwt":
		var v struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return JWTCredentials{Token: v.Token}, nil
	case "basic":
		var v struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return BasicCredentials{Username: v.Username, Password: v.Password}, nil
	case "custom":
		var v struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return CustomCredentials{Data: v.Data}, nil
	default:
		return nil, fmt.Errorf("wire: unknown credentials method %q", tag.Method)
	}
}
