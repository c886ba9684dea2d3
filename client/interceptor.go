package client

import (
	"context"
	"io"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Failure describes the outcome of a failed call. It's built once, when the
// call completes, and a nil *Failure is a successful call.
type Failure struct {
	// Err is the error of the call.
	Err error
	// Status of the call, or nil if the call failed locally without
	// receiving a status from the wire (for example, because discovery failed).
	Status *status.Status
	// Trailer metadata of the call, if any was received.
	Trailer metadata.MD
}

func newFailure(err error, trailer metadata.MD) *Failure {
	if err == nil {
		return nil
	} else if le, ok := err.(*localError); ok {
		// An inner Interceptor already found the failure to be local.
		return &Failure{Err: le.err, Trailer: trailer}
	}
	var f = &Failure{Err: err, Trailer: trailer}

	// Only errors which are themselves a status are considered to be from the
	// wire. Local errors may wrap a status error (for example, a discovery
	// error wrapping a failed gossip read) but don't describe this call.
	if se, ok := err.(interface{ GRPCStatus() *status.Status }); ok && !isLocalStatus(se.GRPCStatus()) {
		f.Status = se.GRPCStatus()
	}
	return f
}

// isLocalStatus returns true of statuses which gRPC produces locally, before
// a message is written to the channel.
func isLocalStatus(st *status.Status) bool {
	switch st.Code() {
	case codes.Internal:
		return strings.HasPrefix(st.Message(), "grpc: error while marshaling")
	case codes.ResourceExhausted:
		return strings.HasPrefix(st.Message(), "grpc: trying to send message larger than max")
	}
	return false
}

// localError carries a local failure outward through the Interceptors of a
// chain, so that each observes it as local. ChainUnary and ChainStream
// unwrap it before returning to the caller.
type localError struct{ err error }

func (e *localError) Error() string { return e.err.Error() }
func (e *localError) Unwrap() error { return e.err }

func unwrapLocal(err error) error {
	if le, ok := err.(*localError); ok {
		return le.err
	}
	return err
}

// IsLocal returns true if the Failure did not originate from the wire.
func (f *Failure) IsLocal() bool { return f.Status == nil }

// Code returns the status code of the Failure. It's OK for a nil Failure,
// and Unknown for a local one.
func (f *Failure) Code() codes.Code {
	if f == nil {
		return codes.OK
	} else if f.Status == nil {
		return codes.Unknown
	}
	return f.Status.Code()
}

// TrailerValue returns the first trailer value of |key|, or "".
func (f *Failure) TrailerValue(key string) string {
	if v := f.Trailer.Get(key); len(v) != 0 {
		return v[0]
	}
	return ""
}

// Interceptor describes one concern of the call chain. The same Interceptor
// applies uniformly to unary, client-streaming, server-streaming, and
// bidirectional calls, through its Unary and Stream adapters. Any of its
// functions may be nil.
type Interceptor struct {
	// Prepare is called before the call is issued, and returns the Context
	// with which the call is made. An error fails the call before it's issued.
	Prepare func(ctx context.Context, method string) (context.Context, error)
	// Complete is called exactly once per call, when its outcome is known,
	// with the Context returned by Prepare.
	Complete func(ctx context.Context, method string, f *Failure)
	// MapError maps a non-nil Failure into the error returned to the caller.
	// It's invoked for the call failure of a unary call, and for each failed
	// operation of a stream, and must be deterministic. Errors returned by
	// MapError are opaque to Interceptors which wrap this one.
	MapError func(f *Failure) error
}

// Unary adapts the Interceptor to a grpc.UnaryClientInterceptor.
func (ic Interceptor) Unary() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{},
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {

		if ic.Prepare != nil {
			var pctx, err = ic.Prepare(ctx, method)
			if err != nil {
				return ic.finish(ctx, method, &Failure{Err: err})
			}
			ctx = pctx
		}
		var trailer metadata.MD
		var err = invoker(ctx, method, req, reply, cc,
			append(opts[:len(opts):len(opts)], grpc.Trailer(&trailer))...)

		return ic.finish(ctx, method, newFailure(err, trailer))
	}
}

// Stream adapts the Interceptor to a grpc.StreamClientInterceptor. The
// outcome of a stream is known when:
//   - RecvMsg returns io.EOF, which is a success.
//   - RecvMsg returns its single message, where the server doesn't stream.
//   - RecvMsg or Header return an error.
//
// SendMsg errors other than io.EOF are local (for example, a message which
// fails to marshal). They're mapped, but the stream remains open and its
// outcome is left for RecvMsg to observe.
func (ic Interceptor) Stream() grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn,
		method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {

		if ic.Prepare != nil {
			var pctx, err = ic.Prepare(ctx, method)
			if err != nil {
				return nil, ic.finish(ctx, method, &Failure{Err: err})
			}
			ctx = pctx
		}
		var cs, err = streamer(ctx, desc, cc, method, opts...)
		if err != nil {
			return nil, ic.finish(ctx, method, newFailure(err, nil))
		}
		return &observedStream{
			ClientStream:  cs,
			ic:            ic,
			ctx:           ctx,
			method:        method,
			serverStreams: desc.ServerStreams,
		}, nil
	}
}

func (ic Interceptor) finish(ctx context.Context, method string, f *Failure) error {
	if ic.Complete != nil {
		ic.Complete(ctx, method, f)
	}
	return ic.mapError(f)
}

func (ic Interceptor) mapError(f *Failure) error {
	var err error
	if f == nil {
		return nil
	} else if ic.MapError != nil {
		err = ic.MapError(f)
	} else {
		err = f.Err
	}
	if err != nil && f.IsLocal() {
		err = &localError{err: err}
	}
	return err
}

// observedStream completes its Interceptor upon the first observed
// outcome of the stream. Later failures are still mapped.
type observedStream struct {
	grpc.ClientStream
	ic            Interceptor
	ctx           context.Context
	method        string
	serverStreams bool
	once          sync.Once
}

func (s *observedStream) RecvMsg(m interface{}) error {
	var err = s.ClientStream.RecvMsg(m)

	if err == nil {
		if !s.serverStreams {
			s.complete(nil)
		}
		return nil
	} else if err == io.EOF {
		s.complete(nil)
		return err
	}
	// Trailer may be read only after RecvMsg returns an error.
	return s.fail(newFailure(err, s.ClientStream.Trailer()))
}

func (s *observedStream) SendMsg(m interface{}) error {
	var err = s.ClientStream.SendMsg(m)

	if err == nil || err == io.EOF {
		return err // The status of an io.EOF is left for RecvMsg to observe.
	}
	var f = newFailure(err, nil)
	f.Status = nil

	return s.ic.mapError(f)
}

func (s *observedStream) Header() (metadata.MD, error) {
	var md, err = s.ClientStream.Header()
	if err != nil {
		return md, s.fail(newFailure(err, nil))
	}
	return md, nil
}

func (s *observedStream) fail(f *Failure) error {
	s.complete(f)
	return s.ic.mapError(f)
}

func (s *observedStream) complete(f *Failure) {
	s.once.Do(func() {
		if s.ic.Complete != nil {
			s.ic.Complete(s.ctx, s.method, f)
		}
	})
}

// ChainUnary composes |interceptors| into one UnaryClientInterceptor.
// The first interceptor is outermost.
func ChainUnary(interceptors ...grpc.UnaryClientInterceptor) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{},
		cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {

		var next = invoker
		for i := len(interceptors) - 1; i >= 0; i-- {
			var ic, inner = interceptors[i], next

			next = func(ctx context.Context, method string, req, reply interface{},
				cc *grpc.ClientConn, opts ...grpc.CallOption) error {
				return ic(ctx, method, req, reply, cc, inner, opts...)
			}
		}
		return unwrapLocal(next(ctx, method, req, reply, cc, opts...))
	}
}

// ChainStream composes |interceptors| into one StreamClientInterceptor.
// The first interceptor is outermost.
func ChainStream(interceptors ...grpc.StreamClientInterceptor) grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn,
		method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {

		var next = streamer
		for i := len(interceptors) - 1; i >= 0; i-- {
			var ic, inner = interceptors[i], next

			next = func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn,
				method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
				return ic(ctx, desc, cc, method, inner, opts...)
			}
		}
		var cs, err = next(ctx, desc, cc, method, opts...)
		if err != nil {
			return nil, unwrapLocal(err)
		}
		return chainedStream{cs}, nil
	}
}

// chainedStream unwraps local failures of a chain's stream.
type chainedStream struct{ grpc.ClientStream }

func (s chainedStream) RecvMsg(m interface{}) error {
	return unwrapLocal(s.ClientStream.RecvMsg(m))
}

func (s chainedStream) SendMsg(m interface{}) error {
	return unwrapLocal(s.ClientStream.SendMsg(m))
}

func (s chainedStream) Header() (metadata.MD, error) {
	var md, err = s.ClientStream.Header()
	return md, unwrapLocal(err)
}
