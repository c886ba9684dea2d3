package discovery

import (
	"math/rand"
	"slices"

	pb "go.logdb.dev/core/protocol"
)

// ShuffleFunc permutes |n| elements using |swap|. It has the signature of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// SelectNode selects a member of |members| for the NodePreference. Only alive
// members in a state able to serve clients are candidates. Candidates with the
// preferred role are ranked first. Remaining ties are broken randomly, using
// |shuffle| (or rand.Shuffle, if nil). SelectNode returns false if there are
// no candidates.
func SelectNode(members []pb.MemberInfo, pref pb.NodePreference, shuffle ShuffleFunc) (pb.MemberInfo, bool) {
	if shuffle == nil {
		shuffle = rand.Shuffle
	}
	var candidates = make([]pb.MemberInfo, 0, len(members))

	for _, m := range members {
		if m.IsAlive && isServingState(m.State) {
			candidates = append(candidates, m)
		}
	}
	if len(candidates) == 0 {
		return pb.MemberInfo{}, false
	}
	shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})

	var preferred = preferredState(pref)
	slices.SortStableFunc(candidates, func(a, b pb.MemberInfo) int {
		return rank(a.State, preferred) - rank(b.State, preferred)
	})
	return candidates[0], true
}

func isServingState(s pb.VNodeState) bool {
	switch s {
	case pb.VNodeState_LEADER,
		pb.VNodeState_FOLLOWER,
		pb.VNodeState_READ_ONLY_REPLICA,
		pb.VNodeState_PRE_READ_ONLY_REPLICA,
		pb.VNodeState_READ_ONLY_LEADERLESS:
		return true
	default:
		return false
	}
}

// preferredState returns the VNodeState sought by the NodePreference, or -1
// if the preference has no ranking (PreferAny).
func preferredState(pref pb.NodePreference) pb.VNodeState {
	switch pref {
	case pb.PreferLeader:
		return pb.VNodeState_LEADER
	case pb.PreferFollower:
		return pb.VNodeState_FOLLOWER
	case pb.PreferReadOnlyReplica:
		return pb.VNodeState_READ_ONLY_REPLICA
	default:
		return -1
	}
}

func rank(s, preferred pb.VNodeState) int {
	if s == preferred {
		return 0
	}
	return 1
}
