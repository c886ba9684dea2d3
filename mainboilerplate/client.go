package mainboilerplate

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.logdb.dev/core/auth"
	"go.logdb.dev/core/client"
	"go.logdb.dev/core/discovery"
	pb "go.logdb.dev/core/protocol"
)

// ClientConfig configures a client.Conn of a LogDB cluster.
type ClientConfig struct {
	Address        pb.Endpoint       `long:"address" env:"ADDRESS" description:"Address (host:port) of a single member. If set, cluster discovery is not used"`
	Seeds          string            `long:"seeds" env:"SEEDS" description:"Comma-separated host:port gossip seeds of the cluster"`
	NodePreference pb.NodePreference `long:"node-preference" env:"NODE_PREFERENCE" default:"leader" choice:"leader" choice:"follower" choice:"readonlyreplica" choice:"any" choice:"random" description:"Role of member to which calls are routed"`
	ConnectionName string            `long:"connection-name" env:"CONNECTION_NAME" description:"Name of the connection presented to servers. If empty, a random UUID is used"`

	Discovery struct {
		Attempts      int           `long:"discovery.attempts" env:"DISCOVERY_ATTEMPTS" default:"10" description:"Maximum number of discovery attempts. If zero, attempts are unbounded"`
		Interval      time.Duration `long:"discovery.interval" env:"DISCOVERY_INTERVAL" default:"100ms" description:"Minimum interval between discovery attempts"`
		GossipTimeout time.Duration `long:"discovery.gossip-timeout" env:"DISCOVERY_GOSSIP_TIMEOUT" default:"5s" description:"Timeout of reading gossip from a member"`
	}
	Etcd EtcdConfig

	TLS struct {
		Enabled       bool   `long:"tls" env:"TLS" description:"Use TLS for member channels and gossip"`
		CertFile      string `long:"tls.cert-file" env:"TLS_CERT_FILE" description:"Path to the client TLS certificate"`
		CertKeyFile   string `long:"tls.cert-key-file" env:"TLS_CERT_KEY_FILE" description:"Path to the client TLS private key"`
		TrustedCAFile string `long:"tls.trusted-ca-file" env:"TLS_TRUSTED_CA_FILE" description:"Path to the trusted CA for verification of member certificates"`
	}
	Pool struct {
		Size int `long:"pool.size" env:"POOL_SIZE" default:"16" description:"Maximum number of pooled member channels"`
	}
	Auth struct {
		Username string        `long:"auth.username" env:"AUTH_USERNAME" description:"Username of basic authorization"`
		Password string        `long:"auth.password" env:"AUTH_PASSWORD" description:"Password of basic authorization"`
		Keys     string        `long:"auth.keys" env:"AUTH_KEYS" description:"Whitespace or comma separated, base64-encoded keys for signing bearer tokens. The first key signs. Takes precedence over username and password"`
		Expiry   time.Duration `long:"auth.expiry" env:"AUTH_EXPIRY" default:"5m" description:"Lifetime of signed bearer tokens"`
	}
}

// BuildTLS returns the tls.Config of member channels, or nil if TLS is not enabled.
func (c *ClientConfig) BuildTLS() (*tls.Config, error) {
	if !c.TLS.Enabled {
		return nil, nil
	}
	return BuildTLSConfig(c.TLS.CertFile, c.TLS.CertKeyFile, c.TLS.TrustedCAFile)
}

// BuildCredentials returns configured Credentials, or nil if none are configured.
func (c *ClientConfig) BuildCredentials() (auth.Credentials, error) {
	switch {
	case c.Auth.Keys != "":
		var subject = c.Auth.Username
		if subject == "" {
			subject = c.ConnectionName
		}
		return auth.NewKeyedCredentials(subject, c.Auth.Keys, c.Auth.Expiry)
	case c.Auth.Username != "":
		return auth.BasicCredentials{Username: c.Auth.Username, Password: c.Auth.Password}, nil
	case c.Auth.Password != "":
		return nil, errors.New("auth.password requires auth.username")
	default:
		return nil, nil
	}
}

// BuildMemberSource returns the MemberSource of the cluster: an Etcd listing
// if Etcd endpoints are configured, or otherwise gossip of the Seeds.
// The returned closure releases resources of the MemberSource.
func (c *ClientConfig) BuildMemberSource(ctx context.Context) (discovery.MemberSource, func(), error) {
	if c.Etcd.Endpoints != "" {
		var etcd, err = c.Etcd.Dial(ctx)
		if err != nil {
			return nil, nil, err
		}
		return discovery.EtcdMembers{KV: etcd, Prefix: c.Etcd.Prefix}, func() { _ = etcd.Close() }, nil
	}

	var seeds, err = pb.ParseEndpoints(c.Seeds)
	if err != nil {
		return nil, nil, pb.ExtendContext(err, "seeds")
	} else if len(seeds) == 0 {
		return nil, nil, errors.New("one of address, seeds, or etcd.endpoints is required")
	}

	var gossip = discovery.HTTPGossip{Scheme: "http"}
	if c.TLS.Enabled {
		var tlsConfig, err = c.BuildTLS()
		if err != nil {
			return nil, nil, err
		}
		gossip = discovery.HTTPGossip{
			Client: &http.Client{Transport: &http.Transport{TLSClientConfig: tlsConfig}},
			Scheme: "https",
		}
	}
	return &discovery.SeedGossip{
		Seeds:   seeds,
		Client:  gossip,
		Timeout: c.Discovery.GossipTimeout,
	}, func() {}, nil
}

// BuildDiscoverer returns the Discoverer of the configuration, and a closure
// which releases its resources.
func (c *ClientConfig) BuildDiscoverer(ctx context.Context) (discovery.Discoverer, func(), error) {
	if !c.Address.IsZero() {
		return discovery.SingleNode{Endpoint: c.Address}, func() {}, nil
	}
	var src, release, err = c.BuildMemberSource(ctx)
	if err != nil {
		return nil, nil, err
	}
	return discovery.NewClusterDiscoverer(src, c.NodePreference,
		c.Discovery.Attempts, c.Discovery.Interval), release, nil
}

// BuildSettings returns client.Settings of the configuration, and a closure
// which releases resources of its Discoverer.
func (c *ClientConfig) BuildSettings(ctx context.Context) (client.Settings, func(), error) {
	var creds, err = c.BuildCredentials()
	if err != nil {
		return client.Settings{}, nil, errors.WithMessage(err, "auth")
	}
	tlsConfig, err := c.BuildTLS()
	if err != nil {
		return client.Settings{}, nil, errors.WithMessage(err, "tls")
	}
	d, release, err := c.BuildDiscoverer(ctx)
	if err != nil {
		return client.Settings{}, nil, errors.WithMessage(err, "discovery")
	}
	return client.Settings{
		Discoverer:     d,
		NodePreference: c.NodePreference,
		ConnectionName: c.ConnectionName,
		Credentials:    creds,
		PoolSize:       c.Pool.Size,
		TLS:            tlsConfig,
	}, release, nil
}

// MustConn builds and returns a client.Conn of the configuration, which is
// closed (along with its Discoverer resources) when |ctx| is done.
func (c *ClientConfig) MustConn(ctx context.Context) *client.Conn {
	var settings, release, err = c.BuildSettings(ctx)
	Must(err, "failed to build client settings")

	conn, err := client.NewConn(ctx, settings)
	Must(err, "failed to build client connection")

	context.AfterFunc(ctx, func() {
		if err := conn.Close(); err != nil {
			log.WithField("err", err).Warn("failed to close client connection")
		}
		release()
	})
	return conn
}
