package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEndpointParsingAndValidation(t *testing.T) {
	var ep, err = ParseEndpoint("host-a:2113")
	require.NoError(t, err)
	require.Equal(t, Endpoint{Host: "host-a", Port: 2113}, ep)
	require.Equal(t, "host-a:2113", ep.String())

	ep, err = ParseEndpoint(" [::1]:80 ")
	require.NoError(t, err)
	require.Equal(t, Endpoint{Host: "::1", Port: 80}, ep)
	require.Equal(t, "[::1]:80", ep.String())

	for _, tc := range []struct {
		in, expect string
	}{
		{"host-a", `invalid endpoint "host-a": address host-a: missing port in address`},
		{"host-a:port", `invalid endpoint port "port"`},
		{":2113", "expected Host"},
		{"host-a:0", "invalid Port (0; expected 0 < port <= 65535)"},
		{"host-a:65536", "invalid Port (65536; expected 0 < port <= 65535)"},
		{"ho/st:1", `invalid Host ("ho/st")`},
	} {
		_, err = ParseEndpoint(tc.in)
		require.EqualError(t, err, tc.expect, tc.in)
	}
}

func TestEndpointListParsing(t *testing.T) {
	var eps, err = ParseEndpoints("a:1, b:2,,c:3")
	require.NoError(t, err)
	require.Equal(t, []Endpoint{{"a", 1}, {"b", 2}, {"c", 3}}, eps)

	eps, err = ParseEndpoints("")
	require.NoError(t, err)
	require.Empty(t, eps)

	_, err = ParseEndpoints("a:1,b:0")
	require.EqualError(t, err, "[1]: invalid Port (0; expected 0 < port <= 65535)")
}

func TestEndpointFlagRoundTrip(t *testing.T) {
	var ep Endpoint
	require.NoError(t, ep.UnmarshalFlag("localhost:2113"))
	require.Equal(t, Endpoint{Host: "localhost", Port: 2113}, ep)

	var s, err = ep.MarshalFlag()
	require.NoError(t, err)
	require.Equal(t, "localhost:2113", s)

	s, err = Endpoint{}.MarshalFlag()
	require.NoError(t, err)
	require.Equal(t, "", s)
	require.True(t, Endpoint{}.IsZero())
}

func TestMemberInfoJSON(t *testing.T) {
	var m = MemberInfo{
		InstanceID: "node-1",
		State:      VNodeState_READ_ONLY_REPLICA,
		IsAlive:    true,
		Endpoint:   Endpoint{Host: "host-a", Port: 2113},
	}
	var b, err = json.Marshal(m)
	require.NoError(t, err)
	require.JSONEq(t, `{"instanceId":"node-1","state":"ReadOnlyReplica","isAlive":true,
		"endpoint":{"host":"host-a","port":2113}}`, string(b))

	var out MemberInfo
	require.NoError(t, json.Unmarshal(b, &out))
	require.Equal(t, m, out)
	require.NoError(t, out.Validate())

	require.ErrorContains(t, json.Unmarshal([]byte(`{"state":"Bogus"}`), &out),
		`invalid VNodeState ("Bogus")`)
}

func TestMemberInfoValidationCases(t *testing.T) {
	var m = MemberInfo{
		InstanceID: "node-1",
		State:      VNodeState(99),
		Endpoint:   Endpoint{Host: "host-a", Port: 2113},
	}
	require.EqualError(t, m.Validate(), "State: invalid VNodeState (99)")
	m.State = VNodeState_LEADER
	m.Endpoint.Port = 0
	require.EqualError(t, m.Validate(), "Endpoint: invalid Port (0; expected 0 < port <= 65535)")
	m.InstanceID = "members/node-1"
	require.EqualError(t, m.Validate(), `InstanceID: not a valid token ("members/node-1")`)
	m.InstanceID = ""
	require.EqualError(t, m.Validate(), "expected InstanceID")

	require.Equal(t, "Leader", VNodeState_LEADER.String())
	require.Equal(t, "Invalid", VNodeState(-1).String())
}

func TestValidateToken(t *testing.T) {
	for _, tc := range []struct {
		token  string
		max    int
		expect string
	}{
		{"node-1", 8, ""},
		{"d4e1c7a2-6f3b-4b2a-9f1e-5c2d8a7b9e01", 64, ""},
		{"node_1.zone:a@b+c", 64, ""},
		{"nœud-ü", 16, ""},
		{"", 8, "invalid length (0; expected 1 <= length <= 8)"},
		{"too-long-token", 8, "invalid length (14; expected 1 <= length <= 8)"},
		{"a/b", 8, `not a valid token ("a/b")`},
		{"a b", 8, `not a valid token ("a b")`},
	} {
		if err := ValidateToken(tc.token, 1, tc.max); tc.expect == "" {
			require.NoError(t, err, tc.token)
		} else {
			require.EqualError(t, err, tc.expect)
		}
	}
}
