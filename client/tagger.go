package client

import (
	"context"

	"github.com/pkg/errors"
	"go.logdb.dev/core/auth"
	pb "go.logdb.dev/core/protocol"
	"google.golang.org/grpc/metadata"
)

// NewConnectionNameTagger returns an Interceptor which attaches |name| to
// every call, for server-side diagnostics.
func NewConnectionNameTagger(name string) Interceptor {
	return Interceptor{
		Prepare: func(ctx context.Context, _ string) (context.Context, error) {
			return metadata.AppendToOutgoingContext(ctx, pb.ConnectionNameHeader, name), nil
		},
	}
}

// NewCredentialsAttacher returns an Interceptor which authorizes every call.
// Credentials attached to the call Context with auth.WithCredentials are
// used if present, and |defaults| otherwise. If neither are set, the call
// is made without authorization.
func NewCredentialsAttacher(defaults auth.Credentials) Interceptor {
	return Interceptor{
		Prepare: func(ctx context.Context, _ string) (context.Context, error) {
			var creds = auth.CredentialsFromContext(ctx)
			if creds == nil {
				creds = defaults
			}
			if creds == nil {
				return ctx, nil
			}
			var actx, err = creds.Authorize(ctx)
			if err != nil {
				return nil, errors.WithMessage(err, "authorizing call")
			}
			return actx, nil
		},
	}
}
