package client

import (
	"context"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"go.logdb.dev/core/discovery"
	pb "go.logdb.dev/core/protocol"
	"google.golang.org/grpc/metadata"
)

// HostSelector routes calls to an Endpoint produced by a Discoverer.
//
// The current Endpoint is memoized by an endpointTask, which is started by
// the first call to require it, and is then shared by all calls until it's
// replaced. Tasks are never mutated once they complete: a
// ReconnectionRequired, or a failed discovery, swaps in a fresh task instead.
type HostSelector struct {
	ctx        context.Context
	discoverer discovery.Discoverer
	pref       pb.NodePreference
	current    atomic.Pointer[endpointTask]
}

// endpointTask is a single-flight computation of an Endpoint.
type endpointTask struct {
	cause ReconnectionRequired
	start sync.Once
	done  chan struct{}

	// Set before |done| is closed, and immutable thereafter.
	ep  pb.Endpoint
	err error
}

func newEndpointTask(cause ReconnectionRequired) *endpointTask {
	return &endpointTask{cause: cause, done: make(chan struct{})}
}

// NewHostSelector returns a HostSelector which discovers Endpoints matching
// |pref| using |d|. Discovery runs under |ctx|, and not under the Context of
// any call, as its result is shared by all calls. Discovery doesn't begin
// until the first call.
func NewHostSelector(ctx context.Context, d discovery.Discoverer, pref pb.NodePreference) *HostSelector {
	var hs = &HostSelector{
		ctx:        ctx,
		discoverer: d,
		pref:       pref,
	}
	hs.current.Store(newEndpointTask(ReconnectionRequired{Kind: ReconnectNone}))
	return hs
}

// Endpoint returns the current Endpoint, starting its discovery if required
// and waiting for it to complete. If |ctx| is done first, its error is
// returned but discovery continues.
func (hs *HostSelector) Endpoint(ctx context.Context) (pb.Endpoint, error) {
	var task, err = hs.resolve(ctx)
	if err != nil {
		return pb.Endpoint{}, err
	}
	return task.ep, nil
}

func (hs *HostSelector) resolve(ctx context.Context) (*endpointTask, error) {
	var task = hs.current.Load()
	task.start.Do(func() { hs.run(task) })

	select {
	case <-task.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if task.err != nil {
		// Replace the failed task so that the next call retries discovery.
		// If the task was already replaced, that replacement is kept.
		hs.current.CompareAndSwap(task, newEndpointTask(Rediscover))
		return nil, task.err
	}
	return task, nil
}

func (hs *HostSelector) run(task *endpointTask) {
	if task.cause.Kind == ReconnectNewLeader {
		task.ep = task.cause.Leader
		close(task.done)
		return
	}

	go func() {
		defer close(task.done)

		if task.ep, task.err = hs.discoverer.Discover(hs.ctx); task.err != nil {
			discoveriesTotal.WithLabelValues("fail").Inc()
			log.WithFields(log.Fields{
				"err":   task.err,
				"cause": task.cause.Kind,
			}).Warn("endpoint discovery failed")
		} else {
			discoveriesTotal.WithLabelValues("ok").Inc()
			log.WithFields(log.Fields{
				"endpoint":   task.ep,
				"preference": hs.pref,
				"cause":      task.cause.Kind,
			}).Debug("discovered endpoint")
		}
	}()
}

// OnReconnectionRequired replaces the task by which the failed call of |ctx|
// was routed with a task of |rr|. A NewLeader task routes to the leader
// without running discovery. If the routing task was already replaced
// (because a concurrent call reported first) then |rr| is stale, and is
// ignored. OnReconnectionRequired is a ReconnectionFunc.
func (hs *HostSelector) OnReconnectionRequired(ctx context.Context, rr ReconnectionRequired) {
	if rr.Kind == ReconnectNone {
		return
	}
	var sel, ok = ctx.Value(selectionKey{}).(selection)
	if !ok {
		return // Not a call routed by this HostSelector.
	}

	if hs.current.CompareAndSwap(sel.task, newEndpointTask(rr)) {
		log.WithFields(log.Fields{
			"kind":   rr.Kind,
			"from":   sel.ep,
			"leader": rr.Leader,
		}).Info("replaced routed endpoint")
	} else {
		log.WithFields(log.Fields{
			"kind": rr.Kind,
			"from": sel.ep,
		}).Debug("ignoring stale reconnection")
	}
}

// Interceptor returns an Interceptor which routes each call to the current
// Endpoint. The call declares whether it requires the leader, and its
// routed Endpoint is attached to its Context (see EndpointFromContext).
func (hs *HostSelector) Interceptor() Interceptor {
	var requiresLeader = pb.RequiresLeaderValue(hs.pref)

	return Interceptor{
		Prepare: func(ctx context.Context, _ string) (context.Context, error) {
			var task, err = hs.resolve(ctx)
			if err != nil {
				return nil, err
			}
			ctx = metadata.AppendToOutgoingContext(ctx, pb.RequiresLeaderHeader, requiresLeader)
			return context.WithValue(ctx, selectionKey{}, selection{task: task, ep: task.ep}), nil
		},
	}
}

// EndpointFromContext returns the Endpoint to which the call of |ctx| is routed.
func EndpointFromContext(ctx context.Context) (pb.Endpoint, bool) {
	var sel, ok = ctx.Value(selectionKey{}).(selection)
	return sel.ep, ok
}

type selection struct {
	task *endpointTask
	ep   pb.Endpoint
}

type selectionKey struct{}
