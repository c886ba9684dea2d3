package mainboilerplate

import (
	"context"
	"crypto/tls"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// EtcdConfig configures an Etcd session from which cluster members are listed.
type EtcdConfig struct {
	Endpoints     string        `long:"etcd.endpoints" env:"ETCD_ENDPOINTS" description:"Comma-separated Etcd endpoints (eg http://localhost:2379). If set, cluster members are listed from Etcd"`
	Prefix        string        `long:"etcd.prefix" env:"ETCD_PREFIX" default:"/logdb/members/" description:"Etcd key prefix under which members are announced"`
	CertFile      string        `long:"etcd.cert-file" env:"ETCD_CERT_FILE" description:"Path to the client TLS certificate"`
	CertKeyFile   string        `long:"etcd.cert-key-file" env:"ETCD_CERT_KEY_FILE" description:"Path to the client TLS private key"`
	TrustedCAFile string        `long:"etcd.trusted-ca-file" env:"ETCD_TRUSTED_CA_FILE" description:"Path to the trusted CA for verification of Etcd certificates"`
	DialTimeout   time.Duration `long:"etcd.dial-timeout" env:"ETCD_DIAL_TIMEOUT" default:"5s" description:"Timeout of establishing the Etcd session"`
}

// endpoints returns the parsed Endpoints, or nil if none are configured.
func (c *EtcdConfig) endpoints() []string {
	var out []string
	for _, ep := range strings.Split(c.Endpoints, ",") {
		if ep = strings.TrimSpace(ep); ep != "" {
			out = append(out, ep)
		}
	}
	return out
}

// Dial builds an Etcd client, and syncs its set of Etcd servers.
func (c *EtcdConfig) Dial(ctx context.Context) (*clientv3.Client, error) {
	var endpoints = c.endpoints()
	if len(endpoints) == 0 {
		return nil, errors.New("expected etcd.endpoints")
	}

	var tlsConfig *tls.Config
	if strings.HasPrefix(endpoints[0], "https://") {
		var err error
		if tlsConfig, err = BuildTLSConfig(c.CertFile, c.CertKeyFile, c.TrustedCAFile); err != nil {
			return nil, err
		}
	}

	var timer = time.AfterFunc(time.Second, func() {
		log.WithField("endpoints", endpoints).Warn("dialing Etcd is taking a while (is network okay?)")
	})
	defer timer.Stop()

	etcd, err := clientv3.New(clientv3.Config{
		Endpoints: endpoints,
		// Periodically sync the set of Etcd servers, so that a partition
		// may be routed around.
		AutoSyncInterval: time.Minute,
		DialTimeout:      c.DialTimeout,
		RejectOldCluster: true,
		TLS:              tlsConfig,
		Context:          ctx,
	})
	if err != nil {
		return nil, errors.Wrap(err, "building Etcd client")
	}

	var syncCtx, cancel = context.WithTimeout(ctx, c.DialTimeout)
	defer cancel()

	if err = etcd.Sync(syncCtx); err != nil {
		_ = etcd.Close()
		return nil, errors.Wrap(err, "initial Etcd endpoint sync")
	}
	return etcd, nil
}
