package protocol

import "strings"

// NodePreference expresses which role of cluster member a client would
// prefer to be routed to. It's a preference and not a requirement: where no
// member of the preferred role is available, another alive member is used.
type NodePreference int

const (
	// PreferLeader routes to the cluster leader. Calls additionally declare
	// that they require the leader, and are rejected by other members.
	PreferLeader NodePreference = iota
	// PreferFollower routes to a follower of the leader.
	PreferFollower
	// PreferReadOnlyReplica routes to a read-only replica.
	PreferReadOnlyReplica
	// PreferAny routes to any alive member, chosen at random.
	PreferAny
)

// ParseNodePreference parses a NodePreference from its string representation.
// Parsing is case-insensitive, and "random" is accepted as an alias of "any".
func ParseNodePreference(s string) (NodePreference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "leader":
		return PreferLeader, nil
	case "follower":
		return PreferFollower, nil
	case "readonlyreplica", "read-only-replica":
		return PreferReadOnlyReplica, nil
	case "any", "random":
		return PreferAny, nil
	default:
		return 0, NewValidationError("invalid NodePreference (%q)", s)
	}
}

// RequiresLeader returns true if calls made under the NodePreference must be
// served by the cluster leader.
func (p NodePreference) RequiresLeader() bool { return p == PreferLeader }

// Validate returns an error if the NodePreference is not a known value.
func (p NodePreference) Validate() error {
	if p < PreferLeader || p > PreferAny {
		return NewValidationError("invalid NodePreference (%d)", int(p))
	}
	return nil
}

func (p NodePreference) String() string {
	switch p {
	case PreferLeader:
		return "leader"
	case PreferFollower:
		return "follower"
	case PreferReadOnlyReplica:
		return "readonlyreplica"
	case PreferAny:
		return "any"
	default:
		return "invalid"
	}
}

// UnmarshalFlag implements flags.Unmarshaler.
func (p *NodePreference) UnmarshalFlag(value string) (err error) {
	*p, err = ParseNodePreference(value)
	return
}

// MarshalFlag implements flags.Marshaler.
func (p NodePreference) MarshalFlag() (string, error) { return p.String(), nil }
