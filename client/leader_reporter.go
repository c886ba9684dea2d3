package client

import (
	"context"
	"strconv"

	log "github.com/sirupsen/logrus"
	pb "go.logdb.dev/core/protocol"
	"google.golang.org/grpc/codes"
)

// ClassifyFailure returns the ReconnectionRequired by Failure |f|:
//   - A "not-leader" exception naming a valid leader Endpoint requires
//     NewLeader of that Endpoint.
//   - A "not-leader" exception without a valid leader Endpoint requires Rediscover.
//   - An Unavailable status requires Rediscover, unless it's a timeout
//     reported as Unavailable.
//
// Successful calls, local failures, and all other failures require none.
func ClassifyFailure(f *Failure) ReconnectionRequired {
	if f == nil || f.IsLocal() {
		return ReconnectionRequired{}
	}
	if f.TrailerValue(pb.ExceptionTrailer) == pb.ExceptionNotLeader {
		if ep, ok := leaderEndpoint(f); ok {
			return NewLeader(ep)
		}
		return Rediscover
	}
	if f.Status.Code() == codes.Unavailable && !isMislabeledDeadline(f.Status) {
		return Rediscover
	}
	return ReconnectionRequired{}
}

func leaderEndpoint(f *Failure) (pb.Endpoint, bool) {
	var ep = pb.Endpoint{Host: f.TrailerValue(pb.LeaderEndpointHostTrailer)}
	var err error

	if ep.Port, err = strconv.Atoi(f.TrailerValue(pb.LeaderEndpointPortTrailer)); err != nil {
		return pb.Endpoint{}, false
	} else if ep.Validate() != nil {
		return pb.Endpoint{}, false
	}
	return ep, true
}

// NewLeaderReporter returns an Interceptor which classifies the outcome of
// each call, and notifies |fn| of each ReconnectionRequired other than none.
func NewLeaderReporter(fn ReconnectionFunc) Interceptor {
	return Interceptor{
		Complete: func(ctx context.Context, method string, f *Failure) {
			var rr = ClassifyFailure(f)
			if rr.Kind == ReconnectNone {
				return
			}
			reconnectionsTotal.WithLabelValues(rr.Kind.String()).Inc()

			var fields = log.Fields{
				"method": method,
				"kind":   rr.Kind,
				"err":    f.Err,
			}
			if ep, ok := EndpointFromContext(ctx); ok {
				fields["endpoint"] = ep
			}
			if rr.Kind == ReconnectNewLeader {
				fields["leader"] = rr.Leader
			}
			log.WithFields(fields).Info("call requires reconnection")

			fn(ctx, rr)
		},
	}
}
