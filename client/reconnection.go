package client

import (
	"context"

	pb "go.logdb.dev/core/protocol"
)

// ReconnectionKind enumerates the reconnections a failed call may require.
type ReconnectionKind int

const (
	// ReconnectNone requires no reconnection.
	ReconnectNone ReconnectionKind = iota
	// ReconnectNewLeader requires that calls be routed to a known leader.
	ReconnectNewLeader
	// ReconnectRediscover requires that a member be discovered afresh.
	ReconnectRediscover
)

func (k ReconnectionKind) String() string {
	switch k {
	case ReconnectNone:
		return "none"
	case ReconnectNewLeader:
		return "new_leader"
	case ReconnectRediscover:
		return "rediscover"
	default:
		return "invalid"
	}
}

// ReconnectionRequired is the reconnection required by a failed call.
// Leader is set only if Kind is ReconnectNewLeader.
type ReconnectionRequired struct {
	Kind   ReconnectionKind
	Leader pb.Endpoint
}

// NewLeader returns a ReconnectionRequired of the known leader |ep|.
func NewLeader(ep pb.Endpoint) ReconnectionRequired {
	return ReconnectionRequired{Kind: ReconnectNewLeader, Leader: ep}
}

// Rediscover is a ReconnectionRequired of a fresh discovery.
var Rediscover = ReconnectionRequired{Kind: ReconnectRediscover}

// ReconnectionFunc is notified of a ReconnectionRequired by a failed call.
// The Context is that of the failed call.
type ReconnectionFunc func(context.Context, ReconnectionRequired)

// EvictFunc is notified of an Endpoint whose channel failed a call.
// The Context is that of the failed call.
type EvictFunc func(context.Context, pb.Endpoint)
