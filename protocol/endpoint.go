package protocol

import (
	"net"
	"strconv"
	"strings"
)

// Endpoint is the network address of a cluster member. Endpoints are
// compared by value.
type Endpoint struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// ParseEndpoint parses a "host:port" string into an Endpoint.
func ParseEndpoint(s string) (Endpoint, error) {
	var host, port, err = net.SplitHostPort(strings.TrimSpace(s))
	if err != nil {
		return Endpoint{}, NewValidationError("invalid endpoint %q: %s", s, err)
	}
	var ep = Endpoint{Host: host}

	if ep.Port, err = strconv.Atoi(port); err != nil {
		return Endpoint{}, NewValidationError("invalid endpoint port %q", port)
	}
	return ep, ep.Validate()
}

// ParseEndpoints parses a comma-separated list of "host:port" strings.
// Empty list elements are skipped.
func ParseEndpoints(s string) ([]Endpoint, error) {
	var out []Endpoint

	for i, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		var ep, err = ParseEndpoint(part)
		if err != nil {
			return nil, ExtendContext(err, "[%d]", i)
		}
		out = append(out, ep)
	}
	return out, nil
}

// Validate returns an error if the Endpoint is not well-formed.
func (ep Endpoint) Validate() error {
	if ep.Host == "" {
		return NewValidationError("expected Host")
	} else if strings.ContainsAny(ep.Host, " \t/") {
		return NewValidationError("invalid Host (%q)", ep.Host)
	} else if ep.Port <= 0 || ep.Port > 65535 {
		return NewValidationError("invalid Port (%d; expected 0 < port <= 65535)", ep.Port)
	}
	return nil
}

// IsZero returns true if the Endpoint is zero-valued.
func (ep Endpoint) IsZero() bool { return ep == Endpoint{} }

// String returns the "host:port" dial address of the Endpoint.
func (ep Endpoint) String() string {
	return net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port))
}

// UnmarshalFlag implements flags.Unmarshaler.
func (ep *Endpoint) UnmarshalFlag(value string) (err error) {
	*ep, err = ParseEndpoint(value)
	return
}

// MarshalFlag implements flags.Marshaler.
func (ep Endpoint) MarshalFlag() (string, error) {
	if ep.IsZero() {
		return "", nil
	}
	return ep.String(), nil
}
