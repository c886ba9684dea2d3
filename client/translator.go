package client

import (
	"context"
	"errors"
	"maps"
	"strings"

	pb "go.logdb.dev/core/protocol"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ExceptionFunc builds a typed error from a Failure bearing its exception.
type ExceptionFunc func(f *Failure) error

// ExceptionMap maps values of the exception trailer to ExceptionFuncs.
type ExceptionMap map[string]ExceptionFunc

// DefaultExceptionMap returns a new ExceptionMap of the exceptions which
// may be returned by any call.
func DefaultExceptionMap() ExceptionMap {
	return ExceptionMap{
		pb.ExceptionAccessDenied: func(f *Failure) error {
			return &AccessDeniedError{Err: f.Err}
		},
		pb.ExceptionNotLeader: func(f *Failure) error {
			var ep, _ = leaderEndpoint(f)
			return &NotLeaderError{Leader: ep, Err: f.Err}
		},
	}
}

// UserManagementExceptions returns a new ExceptionMap of the exceptions of
// user management calls.
func UserManagementExceptions() ExceptionMap {
	return ExceptionMap{
		pb.ExceptionUserNotFound: func(f *Failure) error {
			return &UserNotFoundError{LoginName: f.TrailerValue(pb.LoginNameTrailer), Err: f.Err}
		},
	}
}

// StreamExceptions returns a new ExceptionMap of the exceptions of stream calls.
func StreamExceptions() ExceptionMap {
	return ExceptionMap{
		pb.ExceptionStreamDeleted: func(f *Failure) error {
			return &StreamDeletedError{Stream: f.TrailerValue(pb.StreamNameTrailer), Err: f.Err}
		},
		pb.ExceptionStreamNotFound: func(f *Failure) error {
			return &StreamNotFoundError{Stream: f.TrailerValue(pb.StreamNameTrailer), Err: f.Err}
		},
	}
}

// Translator translates Failures into typed errors.
type Translator struct {
	exceptions ExceptionMap
}

// NewTranslator returns a Translator of the DefaultExceptionMap, merged with
// |extensions| in order. The merged map is fixed upon return.
func NewTranslator(extensions ...ExceptionMap) *Translator {
	var m = DefaultExceptionMap()
	for _, ext := range extensions {
		maps.Copy(m, ext)
	}
	return &Translator{exceptions: m}
}

// Translate returns the typed error of Failure |f|, which is nil if |f| is.
// Local failures are returned unchanged. Failures bearing a mapped exception
// are built by its ExceptionFunc. Otherwise, translation is by status code:
//   - Unavailable with detail "Deadline Exceeded" is a DeadlineExceeded status.
//   - DeadlineExceeded and Canceled are returned unchanged.
//   - Unauthenticated is a *NotAuthenticatedError.
//   - Unavailable is an *UnavailableError.
//   - Anything else is an *InvalidOperationError.
func (t *Translator) Translate(f *Failure) error {
	if f == nil {
		return nil
	} else if f.IsLocal() {
		return f.Err
	}

	var exception = f.TrailerValue(pb.ExceptionTrailer)
	if fn, ok := t.exceptions[exception]; ok {
		translatedErrorsTotal.WithLabelValues(exception).Inc()
		return fn(f)
	}

	var kind string
	var err error

	switch code := f.Status.Code(); {
	case code == codes.Unavailable && isMislabeledDeadline(f.Status):
		kind, err = "deadline_exceeded", status.Error(codes.DeadlineExceeded, f.Status.Message())
	case code == codes.DeadlineExceeded:
		kind, err = "deadline_exceeded", f.Err
	case code == codes.Canceled:
		kind, err = "canceled", f.Err
	case code == codes.Unauthenticated:
		kind, err = "not_authenticated", &NotAuthenticatedError{Err: f.Err}
	case code == codes.Unavailable:
		kind, err = "unavailable", &UnavailableError{Err: f.Err}
	default:
		kind, err = "invalid_operation", &InvalidOperationError{Err: f.Err}
	}
	translatedErrorsTotal.WithLabelValues(kind).Inc()
	return err
}

// Interceptor returns an Interceptor which translates call failures.
func (t *Translator) Interceptor() Interceptor {
	return Interceptor{MapError: t.Translate}
}

// IsDeadlineExceeded returns true if |err| is a DeadlineExceeded status,
// or context.DeadlineExceeded.
func IsDeadlineExceeded(err error) bool {
	return status.Code(err) == codes.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded)
}

// isMislabeledDeadline returns true of an Unavailable status which is
// actually a timeout. Servers report some timeouts this way.
func isMislabeledDeadline(st *status.Status) bool {
	return st.Code() == codes.Unavailable && strings.EqualFold(st.Message(), "Deadline Exceeded")
}
