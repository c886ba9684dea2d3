// Package client is the connection-resilience layer of a logdb client. Its
// Conn implements grpc.ClientConnInterface, and any generated gRPC client
// may be built over it:
//
//	var conn, err = client.NewConn(ctx, client.Settings{
//		Discoverer:     discovery.NewClusterDiscoverer(src, pb.PreferLeader, 10, 100*time.Millisecond),
//		NodePreference: pb.PreferLeader,
//	})
//	var hc = grpc_health_v1.NewHealthClient(conn)
//
// Every call made over a Conn passes through an ordered chain of
// Interceptors. The chain selects the cluster member to which the call is
// routed, and observes the outcome of the call to decide whether the next
// call should be routed elsewhere:
//
//   - The HostSelector memoizes a discovered Endpoint. Concurrent calls share
//     a single in-flight discovery, and calls are routed to its result.
//   - The leader reporter classifies failed calls. A "not-leader" failure
//     which names the current leader routes subsequent calls to that leader
//     directly, and an unavailable member causes a fresh discovery.
//   - The channel evictor retires the pooled channel of an Endpoint which
//     failed a call.
//   - The Translator maps failures into a typed error taxonomy, such as
//     *NotLeaderError or *AccessDeniedError.
//
// Failed calls are never retried by this package: callers decide whether to
// retry, and a retried call is routed using what was learned by the failure.
package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	discoveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logdb_client_discoveries_total",
		Help: "Cumulative number of endpoint discoveries run by host selectors, by status.",
	}, []string{"status"})
	reconnectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logdb_client_reconnections_total",
		Help: "Cumulative number of failed calls requiring a reconnection, by kind.",
	}, []string{"kind"})
	channelEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logdb_client_channel_evictions_total",
		Help: "Cumulative number of pooled channels evicted due to a failed call.",
	})
	channelsDialedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "logdb_client_channels_dialed_total",
		Help: "Cumulative number of channels dialed by channel pools.",
	})
	translatedErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logdb_client_translated_errors_total",
		Help: "Cumulative number of failed calls translated into typed errors, by kind.",
	}, []string{"kind"})
)
