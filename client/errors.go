package client

import (
	"fmt"

	pb "go.logdb.dev/core/protocol"
	"google.golang.org/grpc/status"
)

// Typed errors returned by calls of a Conn. Each wraps the status error of the
// failed call, and status.Code remains applicable to it.

// AccessDeniedError is returned when the caller lacks permission for the call.
type AccessDeniedError struct{ Err error }

func (e *AccessDeniedError) Error() string { return "access denied: " + message(e.Err) }
func (e *AccessDeniedError) Unwrap() error { return e.Err }

// NotAuthenticatedError is returned when the caller's credentials are
// missing or were rejected.
type NotAuthenticatedError struct{ Err error }

func (e *NotAuthenticatedError) Error() string { return "not authenticated: " + message(e.Err) }
func (e *NotAuthenticatedError) Unwrap() error { return e.Err }

// NotLeaderError is returned when a call requiring the leader was routed to
// another member. Leader is the current leader, if it was known to that member.
type NotLeaderError struct {
	Leader pb.Endpoint
	Err    error
}

func (e *NotLeaderError) Error() string {
	if e.Leader.IsZero() {
		return "not leader: " + message(e.Err)
	}
	return fmt.Sprintf("not leader (leader is %s): %s", e.Leader, message(e.Err))
}
func (e *NotLeaderError) Unwrap() error { return e.Err }

// UnavailableError is returned when the routed member couldn't be reached.
// Calls made after an UnavailableError are routed to a freshly discovered member.
type UnavailableError struct{ Err error }

func (e *UnavailableError) Error() string { return "unavailable: " + message(e.Err) }
func (e *UnavailableError) Unwrap() error { return e.Err }

// UserNotFoundError is returned by user management calls of an unknown user.
type UserNotFoundError struct {
	LoginName string
	Err       error
}

func (e *UserNotFoundError) Error() string {
	return fmt.Sprintf("user %q not found: %s", e.LoginName, message(e.Err))
}
func (e *UserNotFoundError) Unwrap() error { return e.Err }

// StreamDeletedError is returned by calls of a deleted stream.
type StreamDeletedError struct {
	Stream string
	Err    error
}

func (e *StreamDeletedError) Error() string {
	return fmt.Sprintf("stream %q is deleted: %s", e.Stream, message(e.Err))
}
func (e *StreamDeletedError) Unwrap() error { return e.Err }

// StreamNotFoundError is returned by calls of a stream which doesn't exist.
type StreamNotFoundError struct {
	Stream string
	Err    error
}

func (e *StreamNotFoundError) Error() string {
	return fmt.Sprintf("stream %q not found: %s", e.Stream, message(e.Err))
}
func (e *StreamNotFoundError) Unwrap() error { return e.Err }

// InvalidOperationError is returned for failures having no more specific type.
type InvalidOperationError struct{ Err error }

func (e *InvalidOperationError) Error() string { return "invalid operation: " + e.Err.Error() }
func (e *InvalidOperationError) Unwrap() error { return e.Err }

func message(err error) string {
	if st, ok := status.FromError(err); ok {
		return st.Message()
	}
	return err.Error()
}
