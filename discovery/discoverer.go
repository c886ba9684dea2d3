package discovery

import (
	"context"

	pb "go.logdb.dev/core/protocol"
)

// Discoverer returns the Endpoint of a cluster member to which calls should
// be routed. Implementations own their retry and backoff policy: an error
// returned by Discover means discovery is exhausted.
type Discoverer interface {
	Discover(context.Context) (pb.Endpoint, error)
}

// DiscovererFunc adapts a function to the Discoverer interface.
type DiscovererFunc func(context.Context) (pb.Endpoint, error)

// Discover invokes the DiscovererFunc.
func (fn DiscovererFunc) Discover(ctx context.Context) (pb.Endpoint, error) { return fn(ctx) }

// SingleNode is a Discoverer of a single, fixed Endpoint. It's used where the
// client is configured with the address of one member rather than a cluster.
type SingleNode struct {
	Endpoint pb.Endpoint
}

// Discover returns the SingleNode Endpoint.
func (s SingleNode) Discover(context.Context) (pb.Endpoint, error) {
	if err := s.Endpoint.Validate(); err != nil {
		return pb.Endpoint{}, pb.ExtendContext(err, "SingleNode.Endpoint")
	}
	return s.Endpoint, nil
}

// MemberSource produces a view of cluster membership.
type MemberSource interface {
	Members(context.Context) ([]pb.MemberInfo, error)
}

// MemberSourceFunc adapts a function to the MemberSource interface.
type MemberSourceFunc func(context.Context) ([]pb.MemberInfo, error)

// Members invokes the MemberSourceFunc.
func (fn MemberSourceFunc) Members(ctx context.Context) ([]pb.MemberInfo, error) { return fn(ctx) }
