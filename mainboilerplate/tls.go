package mainboilerplate

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
)

// BuildTLSConfig returns a client tls.Config which presents the certificate
// of |certFile| and |keyFile| (if non-empty), and verifies servers against
// the CA bundle of |caFile| (or the system pool, if empty).
func BuildTLSConfig(certFile, keyFile, caFile string) (*tls.Config, error) {
	var cfg = &tls.Config{MinVersion: tls.VersionTLS12}

	if certFile != "" {
		var cert, err = tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, errors.Wrap(err, "loading client certificate")
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	if caFile != "" {
		var pem, err = os.ReadFile(caFile)
		if err != nil {
			return nil, errors.Wrap(err, "reading trusted CA")
		}
		var pool = x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("no certificates found in %s", caFile)
		}
		cfg.RootCAs = pool
	}
	return cfg, nil
}
