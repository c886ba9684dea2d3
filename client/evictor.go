package client

import "context"

// NewChannelEvictor returns an Interceptor which notifies |fn| of the routed
// Endpoint of each failed call. Local failures, and failures of a call whose
// Context is done, don't implicate the channel and aren't notified.
//
// Prepare readies the call Context to record the channel which the call
// acquires, so that |fn| may tell it apart from a later channel of the
// same Endpoint.
func NewChannelEvictor(fn EvictFunc) Interceptor {
	return Interceptor{
		Prepare: func(ctx context.Context, _ string) (context.Context, error) {
			return withChannelSlot(ctx), nil
		},
		Complete: func(ctx context.Context, _ string, f *Failure) {
			if f == nil || f.IsLocal() || ctx.Err() != nil {
				return
			}
			if ep, ok := EndpointFromContext(ctx); ok {
				fn(ctx, ep)
			}
		},
	}
}
