package wire

import "github.com/ciresnave/commy-go/pkg/commyerr"

// ErrorCode is the explicit, closed set of error codes carried on the wire
// in SCREAMING_SNAKE_CASE, matching the server's error taxonomy.
type ErrorCode string

const (
	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrorCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrorCodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	ErrorCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrorCodeInternalError    ErrorCode = "INTERNAL_ERROR"
	ErrorCodeConnectionLost   ErrorCode = "CONNECTION_LOST"
	ErrorCodeTimeout          ErrorCode = "TIMEOUT"
)

// ToCommyError converts a wire ErrorCode into the SDK's closed error kind,
// preserving the server's message verbatim (spec §7) rather than routing
// through factories that would substitute their own fixed wording.
func (c ErrorCode) ToCommyError(message string) *commyerr.Error {
	if message == "" {
		message = string(c)
	}
	kind := commyerr.Other
	switch c {
	case ErrorCodeNotFound:
		kind = commyerr.NotFound
	case ErrorCodePermissionDenied:
		kind = commyerr.PermissionDenied
	case ErrorCodeUnauthorized:
		kind = commyerr.Unauthorized
	case ErrorCodeAlreadyExists:
		kind = commyerr.AlreadyExists
	case ErrorCodeInvalidRequest:
		kind = commyerr.InvalidRequest
	case ErrorCodeConnectionLost:
		kind = commyerr.ConnectionLost
	case ErrorCodeTimeout:
		kind = commyerr.Timeout
	}
	return &commyerr.Error{Kind: kind, Message: message}
}
