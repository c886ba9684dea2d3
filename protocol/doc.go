// Package protocol defines the value types shared by the logdb client's
// resilience layer: cluster Endpoints, NodePreferences, gossiped MemberInfo,
// and the gRPC header and trailer keys which carry routing and failure
// details between client and server.
//
// Types of this package are immutable values which are safe to copy and
// share across goroutines. Most implement Validator.
package protocol
