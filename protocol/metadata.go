package protocol

// Keys of gRPC headers attached to outgoing calls.
const (
	// RequiresLeaderHeader declares whether a call must be served by the
	// cluster leader. Its value is "True" or "False".
	RequiresLeaderHeader = "requires-leader"
	// ConnectionNameHeader identifies the client connection for server-side diagnostics.
	ConnectionNameHeader = "connection-name"
	// AuthorizationHeader carries call credentials.
	AuthorizationHeader = "authorization"
)

// Keys of gRPC trailers which describe a failed call.
const (
	// ExceptionTrailer names the kind of failure. Its values are Exception* constants.
	ExceptionTrailer = "exception"
	// LeaderEndpointHostTrailer and LeaderEndpointPortTrailer accompany a
	// ExceptionNotLeader failure, and locate the current leader.
	LeaderEndpointHostTrailer = "leader-endpoint-host"
	LeaderEndpointPortTrailer = "leader-endpoint-port"
	// LoginNameTrailer accompanies ExceptionUserNotFound.
	LoginNameTrailer = "login-name"
	// StreamNameTrailer accompanies stream failures.
	StreamNameTrailer = "stream-name"
)

// Values of the ExceptionTrailer.
const (
	ExceptionAccessDenied   = "access-denied"
	ExceptionNotLeader      = "not-leader"
	ExceptionUserNotFound   = "user-not-found"
	ExceptionStreamDeleted  = "stream-deleted"
	ExceptionStreamNotFound = "stream-not-found"
)

// RequiresLeaderValue returns the RequiresLeaderHeader value of the NodePreference.
func RequiresLeaderValue(p NodePreference) string {
	if p.RequiresLeader() {
		return "True"
	}
	return "False"
}
