package client

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	pb "go.logdb.dev/core/protocol"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
)

// keepaliveDialer mirrors the dialer of http.DefaultTransport.
var keepaliveDialer = &net.Dialer{
	Timeout:   30 * time.Second,
	KeepAlive: 30 * time.Second,
}

func dialTCP(ctx context.Context, addr string) (net.Conn, error) {
	return keepaliveDialer.DialContext(ctx, "tcp", addr)
}

// NewDialFunc returns a DialFunc which dials Endpoints over TCP with
// keep-alives. Channels use TLS if |tlsConfig| is non-nil, and are
// otherwise insecure. |opts| are appended to the dial options.
func NewDialFunc(tlsConfig *tls.Config, opts ...grpc.DialOption) DialFunc {
	var creds = insecure.NewCredentials()
	if tlsConfig != nil {
		creds = credentials.NewTLS(tlsConfig)
	}
	var base = []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithContextDialer(dialTCP),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: true,
		}),
	}
	opts = append(base, opts...)

	return func(ep pb.Endpoint) (*grpc.ClientConn, error) {
		return grpc.NewClient("passthrough:///"+ep.String(), opts...)
	}
}
