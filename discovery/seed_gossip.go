package discovery

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	pb "go.logdb.dev/core/protocol"
	"golang.org/x/sync/errgroup"
)

// GossipClient reads the cluster membership view of a member.
type GossipClient interface {
	Read(ctx context.Context, ep pb.Endpoint) ([]pb.MemberInfo, error)
}

// GossipClientFunc adapts a function to the GossipClient interface.
type GossipClientFunc func(context.Context, pb.Endpoint) ([]pb.MemberInfo, error)

// Read invokes the GossipClientFunc.
func (fn GossipClientFunc) Read(ctx context.Context, ep pb.Endpoint) ([]pb.MemberInfo, error) {
	return fn(ctx, ep)
}

// SeedGossip is a MemberSource which reads gossip from candidate members.
// Candidates are the alive members of the last successfully read view (in
// random order), followed by the configured Seeds. Gossip of all candidates is
// read concurrently, and the view of the first responding candidate (in
// candidate order) is returned.
type SeedGossip struct {
	Seeds  []pb.Endpoint
	Client GossipClient
	// Timeout of each gossip read. Zero means no timeout beyond the caller's.
	Timeout time.Duration

	mu    sync.Mutex
	known []pb.Endpoint
}

// Members implements MemberSource.
func (s *SeedGossip) Members(ctx context.Context) ([]pb.MemberInfo, error) {
	var candidates = s.candidates()
	if len(candidates) == 0 {
		return nil, errors.New("no gossip seeds are configured")
	}

	var views = make([][]pb.MemberInfo, len(candidates))
	var errs = make([]error, len(candidates))
	var group, groupCtx = errgroup.WithContext(ctx)

	for i, ep := range candidates {
		i, ep := i, ep
		group.Go(func() error {
			var readCtx, cancel = groupCtx, context.CancelFunc(func() {})
			if s.Timeout > 0 {
				readCtx, cancel = context.WithTimeout(groupCtx, s.Timeout)
			}
			defer cancel()

			// Read failures are recorded rather than returned, so that one
			// failed candidate doesn't cancel reads of the others.
			if views[i], errs[i] = s.Client.Read(readCtx, ep); errs[i] != nil {
				gossipReadsTotal.WithLabelValues(statusFail).Inc()
				log.WithFields(log.Fields{"endpoint": ep, "err": errs[i]}).Debug("gossip read failed")
			} else {
				gossipReadsTotal.WithLabelValues(statusOK).Inc()
			}
			return nil
		})
	}
	_ = group.Wait()

	var err error
	for i := range candidates {
		if errs[i] == nil {
			s.remember(views[i])
			return views[i], nil
		}
		err = errors.WithMessagef(errs[i], "reading gossip from %s", candidates[i])
	}
	return nil, err
}

func (s *SeedGossip) candidates() []pb.Endpoint {
	s.mu.Lock()
	var known = append([]pb.Endpoint(nil), s.known...)
	s.mu.Unlock()

	rand.Shuffle(len(known), func(i, j int) { known[i], known[j] = known[j], known[i] })

	var seen = make(map[pb.Endpoint]struct{}, len(known)+len(s.Seeds))
	var out = make([]pb.Endpoint, 0, len(known)+len(s.Seeds))

	for _, ep := range append(known, s.Seeds...) {
		if _, ok := seen[ep]; !ok {
			seen[ep] = struct{}{}
			out = append(out, ep)
		}
	}
	return out
}

func (s *SeedGossip) remember(view []pb.MemberInfo) {
	var known []pb.Endpoint
	for _, m := range view {
		if m.IsAlive && m.Endpoint.Validate() == nil {
			known = append(known, m.Endpoint)
		}
	}
	s.mu.Lock()
	s.known = known
	s.mu.Unlock()
}
