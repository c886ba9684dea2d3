// Package discovery locates a cluster member which satisfies a
// protocol.NodePreference. Discoverers are consumed by the client HostSelector,
// which memoizes their result and re-runs discovery only when a call
// indicates the current member should no longer be used.
//
// A ClusterDiscoverer reads a ranked view of cluster membership from a
// MemberSource, and selects a member from that view. Two MemberSources are
// provided: SeedGossip, which reads gossip from seed (and previously
// gossiped) members, and EtcdMembers, which lists members announced under an
// Etcd key prefix.
package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	discoveryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logdb_discovery_attempts_total",
		Help: "Cumulative number of cluster discovery attempts, by status.",
	}, []string{"status"})
	gossipReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "logdb_discovery_gossip_reads_total",
		Help: "Cumulative number of gossip reads issued to cluster members, by status.",
	}, []string{"status"})
)

const (
	statusOK   = "ok"
	statusFail = "fail"
)
