package client

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestUnaryAdapterOutcomes(t *testing.T) {
	var rec recorder
	var ic = rec.interceptor()

	// Success.
	require.NoError(t, ic.Unary()(context.Background(), "/svc/M", nil, nil, nil, invokerOf(nil, nil)))
	require.Equal(t, []*Failure{nil}, rec.take())

	// Failure, with trailers captured through the appended Trailer CallOption.
	var stErr = status.Error(codes.Unavailable, "connection refused")
	var err = ic.Unary()(context.Background(), "/svc/M", nil, nil, nil,
		invokerOf(stErr, metadata.Pairs("exception", "not-leader")))
	require.Equal(t, stErr, err)

	var failures = rec.take()
	require.Len(t, failures, 1)
	require.Equal(t, codes.Unavailable, failures[0].Code())
	require.False(t, failures[0].IsLocal())
	require.Equal(t, "not-leader", failures[0].TrailerValue("exception"))
	require.Equal(t, "", failures[0].TrailerValue("other"))

	// MapError applies to failures only.
	ic.MapError = func(f *Failure) error { return errors.WithMessage(f.Err, "mapped") }
	err = ic.Unary()(context.Background(), "/svc/M", nil, nil, nil, invokerOf(stErr, nil))
	require.EqualError(t, err, "mapped: rpc error: code = Unavailable desc = connection refused")
	require.NoError(t, ic.Unary()(context.Background(), "/svc/M", nil, nil, nil, invokerOf(nil, nil)))
}

func TestUnaryPrepareFailureIsLocal(t *testing.T) {
	var rec recorder
	var ic = rec.interceptor()
	ic.Prepare = func(context.Context, string) (context.Context, error) {
		return nil, errors.New("discovery failed")
	}
	var invoked bool
	var err = ic.Unary()(context.Background(), "/svc/M", nil, nil, nil,
		func(context.Context, string, interface{}, interface{}, *grpc.ClientConn, ...grpc.CallOption) error {
			invoked = true
			return nil
		})
	require.EqualError(t, err, "discovery failed")
	require.False(t, invoked)

	var failures = rec.take()
	require.Len(t, failures, 1)
	require.True(t, failures[0].IsLocal())
	require.Equal(t, codes.Unknown, failures[0].Code())
}

func TestFailureConstruction(t *testing.T) {
	require.Nil(t, newFailure(nil, nil))
	require.Equal(t, codes.OK, (*Failure)(nil).Code())

	var stErr = status.Error(codes.PermissionDenied, "nope")
	var f = newFailure(stErr, nil)
	require.Equal(t, codes.PermissionDenied, f.Code())
	require.Equal(t, "nope", f.Status.Message())

	// A local error which wraps a status doesn't describe the call.
	f = newFailure(errors.WithMessage(stErr, "reading gossip"), nil)
	require.True(t, f.IsLocal())

	// Nor do statuses which gRPC produces before writing to the channel.
	f = newFailure(status.Error(codes.Internal, "grpc: error while marshaling: proto: bad"), nil)
	require.True(t, f.IsLocal())
	f = newFailure(status.Error(codes.ResourceExhausted,
		"grpc: trying to send message larger than max (5000 vs. 4096)"), nil)
	require.True(t, f.IsLocal())
	f = newFailure(status.Error(codes.Internal, "server panicked"), nil)
	require.False(t, f.IsLocal())

	// Nor does a failure already found to be local by an inner Interceptor.
	f = newFailure(&localError{err: stErr}, nil)
	require.True(t, f.IsLocal())
	require.Equal(t, stErr, f.Err)
}

func TestChainPreservesLocalFailures(t *testing.T) {
	var rec recorder
	var outer = rec.interceptor()
	outer.MapError = func(f *Failure) error {
		if f.IsLocal() {
			return f.Err
		}
		return errors.WithMessage(f.Err, "translated")
	}
	// |inner| fails to prepare with a status error which didn't come from the wire.
	var stErr = status.Error(codes.Unavailable, "no members")
	var inner = Interceptor{
		Prepare: func(context.Context, string) (context.Context, error) { return nil, stErr },
	}

	var unary = ChainUnary(outer.Unary(), inner.Unary())
	var err = unary(context.Background(), "/svc/M", nil, nil, nil, invokerOf(nil, nil))
	require.Equal(t, stErr, err)

	var failures = rec.take()
	require.Len(t, failures, 1)
	require.True(t, failures[0].IsLocal())

	var stream = ChainStream(outer.Stream(), inner.Stream())
	_, err = stream(context.Background(), &grpc.StreamDesc{}, nil, "/svc/M", streamerOf(&fakeStream{}))
	require.Equal(t, stErr, err)
	require.True(t, rec.take()[0].IsLocal())

	// Wire failures of the chain are still mapped by the outer Interceptor.
	err = ChainUnary(outer.Unary(), Interceptor{}.Unary())(context.Background(), "/svc/M",
		nil, nil, nil, invokerOf(stErr, nil))
	require.EqualError(t, err, "translated: rpc error: code = Unavailable desc = no members")
	require.False(t, rec.take()[0].IsLocal())

	// As are chained stream failures, while local SendMsg errors are unwrapped.
	var marshalErr = status.Error(codes.Internal, "grpc: error while marshaling: bad message")
	var cs, _ = ChainStream(outer.Stream(), Interceptor{}.Stream())(context.Background(),
		&grpc.StreamDesc{ServerStreams: true}, nil, "/svc/M",
		streamerOf(&fakeStream{sendErr: marshalErr, err: stErr}))

	require.Equal(t, marshalErr, cs.SendMsg(nil))
	require.EqualError(t, cs.RecvMsg(nil), "translated: rpc error: code = Unavailable desc = no members")
	require.Len(t, rec.take(), 1)
}

func TestStreamFailingOnFifthItemCompletesOnce(t *testing.T) {
	var rec recorder
	var ic = rec.interceptor()
	ic.MapError = func(f *Failure) error { return errors.WithMessage(f.Err, "mapped") }

	var stErr = status.Error(codes.Unavailable, "member went away")
	var fake = &fakeStream{items: 4, err: stErr, trailer: metadata.Pairs("k", "v")}

	var cs, err = ic.Stream()(context.Background(), &grpc.StreamDesc{ServerStreams: true},
		nil, "/svc/Watch", streamerOf(fake))
	require.NoError(t, err)

	for i := 0; i != 4; i++ {
		require.NoError(t, cs.RecvMsg(nil))
	}
	require.Empty(t, rec.take()) // No outcome is known yet.

	var err1 = cs.RecvMsg(nil)
	require.EqualError(t, err1, "mapped: rpc error: code = Unavailable desc = member went away")

	// Subsequent reads return an equal error, but don't complete again.
	require.Equal(t, err1.Error(), cs.RecvMsg(nil).Error())
	require.Equal(t, err1.Error(), cs.RecvMsg(nil).Error())

	var failures = rec.take()
	require.Len(t, failures, 1)
	require.Equal(t, codes.Unavailable, failures[0].Code())
	require.Equal(t, "v", failures[0].TrailerValue("k"))
}

func TestStreamSuccessfulCompletion(t *testing.T) {
	var rec recorder
	var ic = rec.interceptor()

	// A server stream completes upon io.EOF.
	var cs, err = ic.Stream()(context.Background(), &grpc.StreamDesc{ServerStreams: true},
		nil, "/svc/Watch", streamerOf(&fakeStream{items: 2, err: io.EOF}))
	require.NoError(t, err)

	require.NoError(t, cs.RecvMsg(nil))
	require.NoError(t, cs.RecvMsg(nil))
	require.Empty(t, rec.take())
	require.Equal(t, io.EOF, cs.RecvMsg(nil))
	require.Equal(t, io.EOF, cs.RecvMsg(nil))
	require.Equal(t, []*Failure{nil}, rec.take())

	// A client stream completes upon receiving its single response.
	cs, err = ic.Stream()(context.Background(), &grpc.StreamDesc{ClientStreams: true},
		nil, "/svc/Upload", streamerOf(&fakeStream{items: 1, err: io.EOF}))
	require.NoError(t, err)

	require.NoError(t, cs.SendMsg(nil))
	require.NoError(t, cs.RecvMsg(nil))
	require.Equal(t, []*Failure{nil}, rec.take())
}

func TestStreamSendAndHeaderFailures(t *testing.T) {
	var rec recorder
	var ic = rec.interceptor()
	var desc = &grpc.StreamDesc{ServerStreams: true, ClientStreams: true}

	// An io.EOF of SendMsg is left to RecvMsg.
	var fake = &fakeStream{sendErr: io.EOF, err: status.Error(codes.Aborted, "aborted")}
	var cs, _ = ic.Stream()(context.Background(), desc, nil, "/svc/Chat", streamerOf(fake))

	require.Equal(t, io.EOF, cs.SendMsg(nil))
	require.Empty(t, rec.take())
	require.Error(t, cs.RecvMsg(nil))
	require.Equal(t, codes.Aborted, rec.take()[0].Code())

	// Other SendMsg errors are local. They don't complete the stream, and a
	// later RecvMsg failure is still observed.
	var marshalErr = status.Error(codes.Internal, "grpc: error while marshaling: bad message")
	fake = &fakeStream{sendErr: marshalErr, err: status.Error(codes.Unavailable, "gone")}
	cs, _ = ic.Stream()(context.Background(), desc, nil, "/svc/Chat", streamerOf(fake))
	require.Equal(t, marshalErr, unwrapLocal(cs.SendMsg(nil)))
	require.Empty(t, rec.take())
	require.Error(t, cs.RecvMsg(nil))
	require.Equal(t, codes.Unavailable, rec.take()[0].Code())

	// As are Header errors.
	fake = &fakeStream{headerErr: status.Error(codes.Unavailable, "gone")}
	cs, _ = ic.Stream()(context.Background(), desc, nil, "/svc/Chat", streamerOf(fake))
	var _, err = cs.Header()
	require.Error(t, err)
	require.Equal(t, codes.Unavailable, rec.take()[0].Code())

	// A failure to start the stream completes it.
	_, err = ic.Stream()(context.Background(), desc, nil, "/svc/Chat",
		func(context.Context, *grpc.StreamDesc, *grpc.ClientConn, string, ...grpc.CallOption) (grpc.ClientStream, error) {
			return nil, status.Error(codes.Unavailable, "dial")
		})
	require.Error(t, err)
	require.Equal(t, codes.Unavailable, rec.take()[0].Code())
}

func TestChainOrdering(t *testing.T) {
	var order []string
	var tracer = func(name string) Interceptor {
		return Interceptor{
			Prepare: func(ctx context.Context, _ string) (context.Context, error) {
				order = append(order, "prepare "+name)
				return ctx, nil
			},
			Complete: func(context.Context, string, *Failure) {
				order = append(order, "complete "+name)
			},
		}
	}
	var a, b = tracer("a"), tracer("b")

	var unary = ChainUnary(a.Unary(), b.Unary())
	require.NoError(t, unary(context.Background(), "/svc/M", nil, nil, nil,
		func(context.Context, string, interface{}, interface{}, *grpc.ClientConn, ...grpc.CallOption) error {
			order = append(order, "invoke")
			return nil
		}))
	require.Equal(t, []string{"prepare a", "prepare b", "invoke", "complete b", "complete a"}, order)

	order = nil
	var stream = ChainStream(a.Stream(), b.Stream())
	var cs, err = stream(context.Background(), &grpc.StreamDesc{}, nil, "/svc/M",
		func(context.Context, *grpc.StreamDesc, *grpc.ClientConn, string, ...grpc.CallOption) (grpc.ClientStream, error) {
			order = append(order, "stream")
			return &fakeStream{items: 1}, nil
		})
	require.NoError(t, err)
	require.NoError(t, cs.RecvMsg(nil))
	require.Equal(t, []string{"prepare a", "prepare b", "stream", "complete b", "complete a"}, order)
}

// recorder is an Interceptor which records completed Failures.
type recorder struct {
	mu       sync.Mutex
	failures []*Failure
}

func (r *recorder) interceptor() Interceptor {
	return Interceptor{
		Complete: func(_ context.Context, _ string, f *Failure) {
			r.mu.Lock()
			r.failures = append(r.failures, f)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) take() []*Failure {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out = r.failures
	r.failures = nil
	return out
}

// invokerOf returns a UnaryInvoker which fails with |err| and |trailer|.
func invokerOf(err error, trailer metadata.MD) grpc.UnaryInvoker {
	return func(_ context.Context, _ string, _, _ interface{}, _ *grpc.ClientConn, opts ...grpc.CallOption) error {
		for _, o := range opts {
			if to, ok := o.(grpc.TrailerCallOption); ok {
				*to.TrailerAddr = trailer
			}
		}
		return err
	}
}

func streamerOf(cs grpc.ClientStream) grpc.Streamer {
	return func(context.Context, *grpc.StreamDesc, *grpc.ClientConn, string, ...grpc.CallOption) (grpc.ClientStream, error) {
		return cs, nil
	}
}

// fakeStream receives |items| messages, and then fails with |err|.
type fakeStream struct {
	grpc.ClientStream

	items     int
	err       error
	trailer   metadata.MD
	sendErr   error
	headerErr error
	recvs     int
}

func (s *fakeStream) RecvMsg(interface{}) error {
	if s.recvs < s.items {
		s.recvs++
		return nil
	}
	return s.err
}

func (s *fakeStream) SendMsg(interface{}) error    { return s.sendErr }
func (s *fakeStream) Header() (metadata.MD, error) { return nil, s.headerErr }
func (s *fakeStream) Trailer() metadata.MD         { return s.trailer }
func (s *fakeStream) Context() context.Context     { return context.Background() }
func (s *fakeStream) CloseSend() error             { return nil }
