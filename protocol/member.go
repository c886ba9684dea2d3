package protocol

// VNodeState is the role of a cluster member, as reported by gossip.
type VNodeState int

const (
	VNodeState_INITIALIZING VNodeState = iota
	VNodeState_DISCOVER_LEADER
	VNodeState_UNKNOWN
	VNodeState_PRE_REPLICA
	VNodeState_CATCHING_UP
	VNodeState_CLONE
	VNodeState_FOLLOWER
	VNodeState_PRE_LEADER
	VNodeState_LEADER
	VNodeState_MANAGER
	VNodeState_SHUTTING_DOWN
	VNodeState_SHUTDOWN
	VNodeState_READ_ONLY_LEADERLESS
	VNodeState_PRE_READ_ONLY_REPLICA
	VNodeState_READ_ONLY_REPLICA
	VNodeState_RESIGNING_LEADER
)

var vnodeStateNames = [...]string{
	VNodeState_INITIALIZING:          "Initializing",
	VNodeState_DISCOVER_LEADER:       "DiscoverLeader",
	VNodeState_UNKNOWN:               "Unknown",
	VNodeState_PRE_REPLICA:           "PreReplica",
	VNodeState_CATCHING_UP:           "CatchingUp",
	VNodeState_CLONE:                 "Clone",
	VNodeState_FOLLOWER:              "Follower",
	VNodeState_PRE_LEADER:            "PreLeader",
	VNodeState_LEADER:                "Leader",
	VNodeState_MANAGER:               "Manager",
	VNodeState_SHUTTING_DOWN:         "ShuttingDown",
	VNodeState_SHUTDOWN:              "Shutdown",
	VNodeState_READ_ONLY_LEADERLESS:  "ReadOnlyLeaderless",
	VNodeState_PRE_READ_ONLY_REPLICA: "PreReadOnlyReplica",
	VNodeState_READ_ONLY_REPLICA:     "ReadOnlyReplica",
	VNodeState_RESIGNING_LEADER:      "ResigningLeader",
}

func (s VNodeState) String() string {
	if s < 0 || int(s) >= len(vnodeStateNames) {
		return "Invalid"
	}
	return vnodeStateNames[s]
}

// Validate returns an error if the VNodeState is not a known value.
func (s VNodeState) Validate() error {
	if s < 0 || int(s) >= len(vnodeStateNames) {
		return NewValidationError("invalid VNodeState (%d)", int(s))
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s VNodeState) MarshalText() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *VNodeState) UnmarshalText(text []byte) error {
	for i, name := range vnodeStateNames {
		if name == string(text) {
			*s = VNodeState(i)
			return nil
		}
	}
	return NewValidationError("invalid VNodeState (%q)", text)
}

// maxInstanceIDLength bounds the length of MemberInfo.InstanceID.
const maxInstanceIDLength = 128

// MemberInfo describes a cluster member as observed through gossip.
type MemberInfo struct {
	// InstanceID uniquely identifies the member process.
	InstanceID string `json:"instanceId" yaml:"instanceId"`
	// State is the current role of the member.
	State VNodeState `json:"state" yaml:"state"`
	// IsAlive is false if gossip believes the member has failed.
	IsAlive bool `json:"isAlive" yaml:"isAlive"`
	// Endpoint at which the member serves client gRPC calls.
	Endpoint Endpoint `json:"endpoint" yaml:"endpoint"`
}

// Validate returns an error if the MemberInfo is not well-formed.
func (m MemberInfo) Validate() error {
	if m.InstanceID == "" {
		return NewValidationError("expected InstanceID")
	} else if err := ValidateToken(m.InstanceID, 1, maxInstanceIDLength); err != nil {
		return ExtendContext(err, "InstanceID")
	} else if err = m.State.Validate(); err != nil {
		return ExtendContext(err, "State")
	} else if err = m.Endpoint.Validate(); err != nil {
		return ExtendContext(err, "Endpoint")
	}
	return nil
}
