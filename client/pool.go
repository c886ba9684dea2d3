package client

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	pb "go.logdb.dev/core/protocol"
	"google.golang.org/grpc"
)

// DialFunc returns a *grpc.ClientConn of the Endpoint. It must not block
// on the network.
type DialFunc func(pb.Endpoint) (*grpc.ClientConn, error)

// ChannelPool is a bounded pool of gRPC channels, keyed on Endpoint.
//
// A channel leaves the pool when it's explicitly evicted, or when it's the
// least-recently used channel of a full pool. Either way, it's retired: calls
// using the channel continue, and it's closed once none remain.
type ChannelPool struct {
	dial  DialFunc
	cache *lru.Cache
	mu    sync.Mutex
}

// NewChannelPool returns a ChannelPool of up to |size| channels, which must be > 0.
func NewChannelPool(size int, dial DialFunc) *ChannelPool {
	var p = &ChannelPool{dial: dial}
	var err error

	// onEvicted may be called with |mu| held (by Acquire), and must not take it.
	if p.cache, err = lru.NewWithEvict(size, func(_, value interface{}) {
		value.(*channel).retire()
	}); err != nil {
		panic(err.Error()) // Only errors on size <= 0.
	}
	return p
}

// Acquire returns the channel of |ep|, dialing it if required, and a release
// function which must be called when the caller is done with the channel.
func (p *ChannelPool) Acquire(ep pb.Endpoint) (*grpc.ClientConn, func(), error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for {
		var ch *channel

		if v, ok := p.cache.Get(ep); ok {
			ch = v.(*channel)
		} else if conn, err := p.dial(ep); err != nil {
			return nil, nil, errors.WithMessagef(err, "dialing %s", ep)
		} else {
			ch = &channel{ep: ep, conn: conn}
			p.cache.Add(ep, ch)

			channelsDialedTotal.Inc()
			log.WithField("endpoint", ep).Debug("dialed channel")
		}

		ch.refs.Add(1)
		if ch.retired.Load() {
			// |ch| was evicted after we fetched it. Back out and try again.
			ch.release()
			continue
		}
		return ch.conn, sync.OnceFunc(ch.release), nil
	}
}

// Evict retires the channel of |ep|, if there is one. It's an EvictFunc.
// If |ctx| records the channel used by the failed call, and it's no longer
// the pooled channel of |ep|, then the pooled channel is left alone.
func (p *ChannelPool) Evict(ctx context.Context, ep pb.Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var v, ok = p.cache.Peek(ep)
	if !ok {
		return
	} else if conn := RoutedChannel(ctx); conn != nil && conn != v.(*channel).conn {
		log.WithField("endpoint", ep).Debug("not evicting channel which replaced the failed one")
		return
	}
	p.cache.Remove(ep)
	channelEvictionsTotal.Inc()
}

// Len returns the number of pooled channels.
func (p *ChannelPool) Len() int { return p.cache.Len() }

// Close retires all pooled channels.
func (p *ChannelPool) Close() { p.cache.Purge() }

type channel struct {
	ep        pb.Endpoint
	conn      *grpc.ClientConn
	refs      atomic.Int32
	retired   atomic.Bool
	closeOnce sync.Once
}

func (ch *channel) retire() {
	if ch.retired.CompareAndSwap(false, true) && ch.refs.Load() == 0 {
		ch.close()
	}
}

func (ch *channel) release() {
	if ch.refs.Add(-1) == 0 && ch.retired.Load() {
		ch.close()
	}
}

type channelSlotKey struct{}

// channelSlot records the channel acquired by a call.
type channelSlot struct{ conn atomic.Pointer[grpc.ClientConn] }

func withChannelSlot(ctx context.Context) context.Context {
	return context.WithValue(ctx, channelSlotKey{}, new(channelSlot))
}

// recordChannel records |conn| as the channel of the call, if its Context
// has a slot for it.
func recordChannel(ctx context.Context, conn *grpc.ClientConn) {
	if slot, ok := ctx.Value(channelSlotKey{}).(*channelSlot); ok {
		slot.conn.Store(conn)
	}
}

// RoutedChannel returns the channel acquired by the call of the Context,
// or nil if none was recorded.
func RoutedChannel(ctx context.Context) *grpc.ClientConn {
	if slot, ok := ctx.Value(channelSlotKey{}).(*channelSlot); ok {
		return slot.conn.Load()
	}
	return nil
}

func (ch *channel) close() {
	ch.closeOnce.Do(func() {
		var err = ch.conn.Close()
		log.WithFields(log.Fields{"endpoint": ch.ep, "err": err}).Debug("closed retired channel")
	})
}
