package discovery

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	pb "go.logdb.dev/core/protocol"
)

// GossipPath is the HTTP path at which members serve their gossip view.
const GossipPath = "/gossip"

// Gossip is the JSON document served by members at GossipPath.
type Gossip struct {
	Members []pb.MemberInfo `json:"members"`
}

// HTTPGossip is a GossipClient which fetches the Gossip document of a member.
type HTTPGossip struct {
	// Client used for requests. If nil, http.DefaultClient is used.
	Client *http.Client
	// Scheme of requests: "http" or "https". If empty, "http" is used.
	Scheme string
}

// Read implements GossipClient.
func (g HTTPGossip) Read(ctx context.Context, ep pb.Endpoint) ([]pb.MemberInfo, error) {
	var client, scheme = g.Client, g.Scheme
	if client == nil {
		client = http.DefaultClient
	}
	if scheme == "" {
		scheme = "http"
	}

	var req, err = http.NewRequestWithContext(ctx, http.MethodGet, scheme+"://"+ep.String()+GossipPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building gossip request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected gossip response status (%s)", resp.Status)
	}
	var doc Gossip
	if err = json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decoding gossip")
	}
	return doc.Members, nil
}
