// Package commyerr provides the closed error taxonomy used across the SDK.
// This is a leaf package with no internal dependencies, designed to be
// imported by wire, transport, vfile, accessor, watcher, session and
// commyclient without causing import cycles.
package commyerr

import (
	"errors"
	"fmt"
)

// Kind represents the category of error that occurred.
type Kind int

const (
	// TransportError indicates a low-level websocket/network failure.
	TransportError Kind = iota + 1

	// ConnectionLost indicates the connection dropped mid-session.
	ConnectionLost

	// AuthenticationFailed indicates the supplied credentials were rejected.
	AuthenticationFailed

	// Unauthorized indicates the session is not authenticated for this call.
	Unauthorized

	// PermissionDenied indicates the tenant lacks permission for the operation.
	PermissionDenied

	// NotFound indicates the requested service or variable does not exist.
	NotFound

	// AlreadyExists indicates the resource already exists.
	AlreadyExists

	// InvalidRequest indicates the caller supplied invalid arguments.
	InvalidRequest

	// InvalidMessage indicates a wire message failed to decode or validate.
	InvalidMessage

	// Timeout indicates a request did not receive a reply in time.
	Timeout

	// InvalidState indicates an operation is not valid given current state
	// (e.g. writing through a read-only local accessor).
	InvalidState

	// MappingError indicates a memory-mapping operation failed.
	MappingError

	// VariableNotFound indicates a variable is not registered in a virtual file.
	VariableNotFound

	// InvalidOffset indicates a variable's byte range is out of bounds or
	// overlaps another registered variable.
	InvalidOffset

	// DiffError indicates the diff engine could not compare two buffers.
	DiffError

	// IOError indicates a local file I/O failure.
	IOError

	// Other is a catch-all for errors that don't fit another kind.
	Other
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case TransportError:
		return "TransportError"
	case ConnectionLost:
		return "ConnectionLost"
	case AuthenticationFailed:
		return "AuthenticationFailed"
	case Unauthorized:
		return "Unauthorized"
	case PermissionDenied:
		return "PermissionDenied"
	case NotFound:
		return "NotFound"
	case AlreadyExists:
		return "AlreadyExists"
	case InvalidRequest:
		return "InvalidRequest"
	case InvalidMessage:
		return "InvalidMessage"
	case Timeout:
		return "Timeout"
	case InvalidState:
		return "InvalidState"
	case MappingError:
		return "MappingError"
	case VariableNotFound:
		return "VariableNotFound"
	case InvalidOffset:
		return "InvalidOffset"
	case DiffError:
		return "DiffError"
	case IOError:
		return "IOError"
	case Other:
		return "Other"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// Error is the SDK's error type. It always carries a Kind so callers can
// branch on category without string matching.
type Error struct {
	Kind    Kind
	Message string
	Path    string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s (path: %s): %v", e.Kind, e.Message, e.Path, e.Cause)
	case e.Path != "":
		return fmt.Sprintf("%s: %s (path: %s)", e.Kind, e.Message, e.Path)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Unwrap allows errors.Is/errors.As to see through to Cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ============================================================================
// Factory functions
// ============================================================================

// NewTransportError wraps a low-level transport failure.
func NewTransportError(cause error) *Error {
	return &Error{Kind: TransportError, Message: "transport failure", Cause: cause}
}

// NewConnectionLost reports a dropped connection.
func NewConnectionLost(cause error) *Error {
	return &Error{Kind: ConnectionLost, Message: "connection lost", Cause: cause}
}

// NewAuthenticationFailed reports rejected credentials.
func NewAuthenticationFailed(reason string) *Error {
	return &Error{Kind: AuthenticationFailed, Message: reason}
}

// NewUnauthorized reports a call made before/without authentication.
func NewUnauthorized(reason string) *Error {
	return &Error{Kind: Unauthorized, Message: reason}
}

// NewPermissionDenied reports a tenant-scoped permission failure.
func NewPermissionDenied(reason string) *Error {
	return &Error{Kind: PermissionDenied, Message: reason}
}

// NewNotFound reports a missing service or variable.
func NewNotFound(resourceType, path string) *Error {
	return &Error{Kind: NotFound, Message: fmt.Sprintf("%s not found", resourceType), Path: path}
}

// NewAlreadyExists reports a duplicate resource.
func NewAlreadyExists(path string) *Error {
	return &Error{Kind: AlreadyExists, Message: "already exists", Path: path}
}

// NewInvalidRequest reports caller-supplied invalid arguments.
func NewInvalidRequest(message string) *Error {
	return &Error{Kind: InvalidRequest, Message: message}
}

// NewInvalidMessage reports a malformed wire message.
func NewInvalidMessage(message string) *Error {
	return &Error{Kind: InvalidMessage, Message: message}
}

// NewTimeout reports a request that never received a reply.
func NewTimeout(operation string) *Error {
	return &Error{Kind: Timeout, Message: fmt.Sprintf("timed out waiting for %s", operation)}
}

// NewInvalidState reports an operation invalid for the current state.
func NewInvalidState(message string) *Error {
	return &Error{Kind: InvalidState, Message: message}
}

// NewMappingError reports a failed memory-mapping operation.
func NewMappingError(path string, cause error) *Error {
	return &Error{Kind: MappingError, Message: "memory mapping failed", Path: path, Cause: cause}
}

// NewVariableNotFound reports an unregistered variable reference.
func NewVariableNotFound(name string) *Error {
	return &Error{Kind: VariableNotFound, Message: fmt.Sprintf("variable %q not registered", name)}
}

// NewInvalidOffset reports an out-of-bounds or overlapping variable range.
func NewInvalidOffset(message string) *Error {
	return &Error{Kind: InvalidOffset, Message: message}
}

// NewDiffError reports a diff engine failure.
func NewDiffError(message string) *Error {
	return &Error{Kind: DiffError, Message: message}
}

// NewIOError wraps a local file I/O failure.
func NewIOError(path string, cause error) *Error {
	return &Error{Kind: IOError, Message: "I/O error", Path: path, Cause: cause}
}

// NewOther wraps an error that doesn't fit another kind.
func NewOther(cause error) *Error {
	return &Error{Kind: Other, Message: "unexpected error", Cause: cause}
}

// ============================================================================
// Error type checking helpers
// ============================================================================

func kindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsNotFound returns true if err is a NotFound or VariableNotFound error.
func IsNotFound(err error) bool {
	k, ok := kindOf(err)
	return ok && (k == NotFound || k == VariableNotFound)
}

// IsConnectionLost returns true if err is a ConnectionLost error.
func IsConnectionLost(err error) bool {
	k, ok := kindOf(err)
	return ok && k == ConnectionLost
}

// IsTimeout returns true if err is a Timeout error.
func IsTimeout(err error) bool {
	k, ok := kindOf(err)
	return ok && k == Timeout
}

// IsUnauthorized returns true if err is an Unauthorized or PermissionDenied error.
func IsUnauthorized(err error) bool {
	k, ok := kindOf(err)
	return ok && (k == Unauthorized || k == PermissionDenied)
}

// IsInvalidOffset returns true if err is an InvalidOffset error.
func IsInvalidOffset(err error) bool {
	k, ok := kindOf(err)
	return ok && k == InvalidOffset
}

// IsInvalidRequest returns true if err is an InvalidRequest error.
func IsInvalidRequest(err error) bool {
	k, ok := kindOf(err)
	return ok && k == InvalidRequest
}
