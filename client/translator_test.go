package client

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	pb "go.logdb.dev/core/protocol"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestTranslationOfMappedExceptions(t *testing.T) {
	var tr = NewTranslator(UserManagementExceptions(), StreamExceptions())
	var failure = func(code codes.Code, kv ...string) *Failure {
		return newFailure(status.Error(code, "desc"), metadata.Pairs(kv...))
	}

	var err = tr.Translate(failure(codes.PermissionDenied, "exception", "access-denied"))
	var ade *AccessDeniedError
	require.ErrorAs(t, err, &ade)
	require.EqualError(t, err, "access denied: desc")

	err = tr.Translate(failure(codes.FailedPrecondition, "exception", "not-leader",
		"leader-endpoint-host", "host-b", "leader-endpoint-port", "4999"))
	var nle *NotLeaderError
	require.ErrorAs(t, err, &nle)
	require.Equal(t, epB, nle.Leader)
	require.EqualError(t, err, "not leader (leader is host-b:4999): desc")

	err = tr.Translate(failure(codes.FailedPrecondition, "exception", "not-leader"))
	require.EqualError(t, err, "not leader: desc")

	err = tr.Translate(failure(codes.NotFound, "exception", "user-not-found", "login-name", "ouro"))
	var unf *UserNotFoundError
	require.ErrorAs(t, err, &unf)
	require.Equal(t, "ouro", unf.LoginName)
	require.EqualError(t, err, `user "ouro" not found: desc`)

	err = tr.Translate(failure(codes.FailedPrecondition, "exception", "stream-deleted", "stream-name", "orders"))
	var sde *StreamDeletedError
	require.ErrorAs(t, err, &sde)
	require.Equal(t, "orders", sde.Stream)

	err = tr.Translate(failure(codes.NotFound, "exception", "stream-not-found", "stream-name", "orders"))
	var snf *StreamNotFoundError
	require.ErrorAs(t, err, &snf)
	require.EqualError(t, err, `stream "orders" not found: desc`)

	// Typed errors retain the status of the call.
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestTranslationByStatusCode(t *testing.T) {
	var tr = NewTranslator()

	for _, tc := range []struct {
		err    error
		check  func(error) bool
		expect string
	}{
		{status.Error(codes.Unavailable, "Deadline Exceeded"), IsDeadlineExceeded,
			"rpc error: code = DeadlineExceeded desc = Deadline Exceeded"},
		{status.Error(codes.Unavailable, "deadline exceeded"), IsDeadlineExceeded,
			"rpc error: code = DeadlineExceeded desc = deadline exceeded"},
		{status.Error(codes.DeadlineExceeded, "too slow"), IsDeadlineExceeded,
			"rpc error: code = DeadlineExceeded desc = too slow"},
		{status.Error(codes.Canceled, "context canceled"),
			func(err error) bool { return status.Code(err) == codes.Canceled },
			"rpc error: code = Canceled desc = context canceled"},
		{status.Error(codes.Unauthenticated, "bad token"),
			errorAs[*NotAuthenticatedError],
			"not authenticated: bad token"},
		{status.Error(codes.Unavailable, "connection refused"),
			errorAs[*UnavailableError],
			"unavailable: connection refused"},
		{status.Error(codes.Internal, "boom"),
			errorAs[*InvalidOperationError],
			"invalid operation: rpc error: code = Internal desc = boom"},
	} {
		var f = newFailure(tc.err, nil)
		var err = tr.Translate(f)

		require.True(t, tc.check(err), tc.expect)
		require.EqualError(t, err, tc.expect)
		// Translation is deterministic.
		var again = tr.Translate(f)
		require.IsType(t, err, again)
		require.Equal(t, err.Error(), again.Error())
	}

	// Exceptions of maps which weren't merged fall back to status codes.
	var err = tr.Translate(newFailure(status.Error(codes.NotFound, "nope"),
		metadata.Pairs("exception", "stream-not-found")))
	require.EqualError(t, err, "invalid operation: rpc error: code = NotFound desc = nope")

	// Local failures and successes pass through.
	var local = errors.New("discovery failed")
	require.Equal(t, local, tr.Translate(newFailure(local, nil)))
	require.NoError(t, tr.Translate(nil))
}

func TestExceptionMapsAreIndependent(t *testing.T) {
	var m = DefaultExceptionMap()
	delete(m, pb.ExceptionAccessDenied)
	require.Contains(t, DefaultExceptionMap(), pb.ExceptionAccessDenied)

	// Extensions may override defaults, without affecting other Translators.
	var custom = NewTranslator(ExceptionMap{
		pb.ExceptionAccessDenied: func(f *Failure) error { return errors.New("custom") },
	})
	var f = newFailure(status.Error(codes.PermissionDenied, "x"), metadata.Pairs("exception", "access-denied"))
	require.EqualError(t, custom.Translate(f), "custom")
	require.EqualError(t, NewTranslator().Translate(f), "access denied: x")
}

func TestIsDeadlineExceeded(t *testing.T) {
	require.True(t, IsDeadlineExceeded(context.DeadlineExceeded))
	require.True(t, IsDeadlineExceeded(errors.WithMessage(context.DeadlineExceeded, "wrapped")))
	require.False(t, IsDeadlineExceeded(status.Error(codes.Unavailable, "Deadline Exceeded")))
	require.False(t, IsDeadlineExceeded(nil))
}

func errorAs[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}
