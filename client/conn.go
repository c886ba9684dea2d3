package client

import (
	"context"
	"crypto/tls"

	"github.com/google/uuid"
	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.logdb.dev/core/auth"
	"go.logdb.dev/core/discovery"
	pb "go.logdb.dev/core/protocol"
	"google.golang.org/grpc"
)

// DefaultPoolSize is the channel pool size of Settings which don't specify one.
const DefaultPoolSize = 16

// Settings configure a Conn.
type Settings struct {
	// Discoverer of the Endpoints to which calls are routed. Required.
	Discoverer discovery.Discoverer
	// NodePreference of calls made over the Conn.
	NodePreference pb.NodePreference
	// ConnectionName identifies the Conn to servers. If empty, a random
	// UUID is used.
	ConnectionName string
	// Credentials authorize calls, where not overridden by auth.WithCredentials.
	// Optional.
	Credentials auth.Credentials
	// Exceptions extend the DefaultExceptionMap of the Conn's Translator.
	Exceptions []ExceptionMap
	// PoolSize bounds the number of pooled channels. If zero, DefaultPoolSize is used.
	PoolSize int
	// TLS configures channels dialed by the default DialFunc. If nil,
	// channels are insecure.
	TLS *tls.Config
	// Dial overrides the DialFunc of pooled channels.
	Dial DialFunc
}

// Validate returns an error if the Settings are invalid.
func (s Settings) Validate() error {
	if s.Discoverer == nil {
		return pb.NewValidationError("expected Discoverer")
	} else if err := s.NodePreference.Validate(); err != nil {
		return pb.ExtendContext(err, "NodePreference")
	} else if s.PoolSize < 0 {
		return pb.NewValidationError("invalid PoolSize (%d; expected >= 0)", s.PoolSize)
	}
	return nil
}

// Conn is a grpc.ClientConnInterface which routes each call to a cluster
// member selected by its HostSelector, over a pooled channel of that member.
type Conn struct {
	name       string
	cancel     context.CancelFunc
	selector   *HostSelector
	pool       *ChannelPool
	translator *Translator

	unary  grpc.UnaryClientInterceptor
	stream grpc.StreamClientInterceptor
}

var _ grpc.ClientConnInterface = (*Conn)(nil)

// NewConn returns a Conn of the Settings. Discovery runs under |ctx|, and
// no discovery or dialing happens until the first call.
func NewConn(ctx context.Context, s Settings) (*Conn, error) {
	if err := s.Validate(); err != nil {
		return nil, errors.WithMessage(err, "client settings")
	}
	if s.ConnectionName == "" {
		s.ConnectionName = uuid.NewString()
	}
	if s.PoolSize == 0 {
		s.PoolSize = DefaultPoolSize
	}
	if s.Dial == nil {
		s.Dial = NewDialFunc(s.TLS)
	}
	ctx, cancel := context.WithCancel(ctx)

	var c = &Conn{
		name:       s.ConnectionName,
		cancel:     cancel,
		selector:   NewHostSelector(ctx, s.Discoverer, s.NodePreference),
		pool:       NewChannelPool(s.PoolSize, s.Dial),
		translator: NewTranslator(s.Exceptions...),
	}

	// Ordered outermost first. Observers of the call outcome are inner to
	// the Translator, and see untranslated failures.
	var chain = []Interceptor{
		c.translator.Interceptor(),
		NewConnectionNameTagger(s.ConnectionName),
		NewCredentialsAttacher(s.Credentials),
		c.selector.Interceptor(),
		NewLeaderReporter(c.selector.OnReconnectionRequired),
		NewChannelEvictor(c.pool.Evict),
	}
	var unary []grpc.UnaryClientInterceptor
	var stream []grpc.StreamClientInterceptor

	for _, ic := range chain {
		unary = append(unary, ic.Unary())
		stream = append(stream, ic.Stream())
	}
	c.unary = ChainUnary(append(unary, grpc_prometheus.UnaryClientInterceptor)...)
	c.stream = ChainStream(append(stream, grpc_prometheus.StreamClientInterceptor)...)

	log.WithFields(log.Fields{
		"name":       s.ConnectionName,
		"preference": s.NodePreference,
	}).Debug("created client connection")

	return c, nil
}

// Name returns the connection name of the Conn.
func (c *Conn) Name() string { return c.name }

// Endpoint returns the Endpoint to which calls are currently routed,
// running discovery if required.
func (c *Conn) Endpoint(ctx context.Context) (pb.Endpoint, error) {
	return c.selector.Endpoint(ctx)
}

// Invoke implements grpc.ClientConnInterface.
func (c *Conn) Invoke(ctx context.Context, method string, args, reply interface{}, opts ...grpc.CallOption) error {
	return c.unary(ctx, method, args, reply, nil, c.invoke, opts...)
}

// NewStream implements grpc.ClientConnInterface.
func (c *Conn) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return c.stream(ctx, desc, nil, method, c.newStream, opts...)
}

// Close the Conn, aborting an ongoing discovery and retiring its channels.
// Calls in progress continue until they complete.
func (c *Conn) Close() error {
	c.cancel()
	c.pool.Close()
	return nil
}

func (c *Conn) invoke(ctx context.Context, method string, req, reply interface{}, _ *grpc.ClientConn, opts ...grpc.CallOption) error {
	var cc, release, err = c.pool.Acquire(mustEndpoint(ctx))
	if err != nil {
		return err
	}
	defer release()
	recordChannel(ctx, cc)

	return cc.Invoke(ctx, method, req, reply, opts...)
}

func (c *Conn) newStream(ctx context.Context, desc *grpc.StreamDesc, _ *grpc.ClientConn, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	var cc, release, err = c.pool.Acquire(mustEndpoint(ctx))
	if err != nil {
		return nil, err
	}
	recordChannel(ctx, cc)

	cs, err := cc.NewStream(ctx, desc, method, opts...)
	if err != nil {
		release()
		return nil, err
	}
	// The stream Context is done once the stream completes.
	context.AfterFunc(cs.Context(), release)
	return cs, nil
}

func mustEndpoint(ctx context.Context) pb.Endpoint {
	var ep, ok = EndpointFromContext(ctx)
	if !ok {
		panic("expected routed Endpoint on Context; check for missing HostSelector ?")
	}
	return ep
}
