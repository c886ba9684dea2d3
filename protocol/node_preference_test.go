package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodePreferenceParsing(t *testing.T) {
	for _, tc := range []struct {
		in     string
		expect NodePreference
	}{
		{"leader", PreferLeader},
		{"Leader", PreferLeader},
		{"follower", PreferFollower},
		{"ReadOnlyReplica", PreferReadOnlyReplica},
		{"read-only-replica", PreferReadOnlyReplica},
		{"any", PreferAny},
		{"random", PreferAny},
	} {
		var p, err = ParseNodePreference(tc.in)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.expect, p, tc.in)
	}
	var _, err = ParseNodePreference("primary")
	require.EqualError(t, err, `invalid NodePreference ("primary")`)
}

func TestNodePreferenceRequiresLeader(t *testing.T) {
	require.True(t, PreferLeader.RequiresLeader())
	require.Equal(t, "True", RequiresLeaderValue(PreferLeader))

	for _, p := range []NodePreference{PreferFollower, PreferReadOnlyReplica, PreferAny} {
		require.False(t, p.RequiresLeader())
		require.Equal(t, "False", RequiresLeaderValue(p))
	}
}

func TestNodePreferenceFlags(t *testing.T) {
	var p NodePreference
	require.NoError(t, p.UnmarshalFlag("follower"))
	require.Equal(t, PreferFollower, p)

	var s, _ = p.MarshalFlag()
	require.Equal(t, "follower", s)

	require.NoError(t, PreferAny.Validate())
	require.EqualError(t, NodePreference(7).Validate(), "invalid NodePreference (7)")
	require.Equal(t, "invalid", NodePreference(7).String())
}
