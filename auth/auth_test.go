package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.logdb.dev/core/auth"
	"google.golang.org/grpc/metadata"
)

func TestKeyedCredentialsCases(t *testing.T) {
	kc, err := auth.NewKeyedCredentials("app-1", "c2VjcmV0,b3RoZXI=", time.Hour)
	require.NoError(t, err)
	kv1, err := auth.NewKeyedVerifier("b3RoZXI=,c2VjcmV0")
	require.NoError(t, err)
	kv2, err := auth.NewKeyedVerifier("YXNkZg==")
	require.NoError(t, err)

	// Authorize with the credentials...
	ctx, err := kc.Authorize(context.Background())
	require.NoError(t, err)

	var md, _ = metadata.FromOutgoingContext(ctx)
	ctx = metadata.NewIncomingContext(ctx, md)

	// ...and verify with a verifier sharing a key.
	claims, err := kv1.Verify(ctx)
	require.NoError(t, err)
	require.Equal(t, "app-1", claims.Subject)

	// A verifier with a different key rejects it.
	_, err = kv2.Verify(ctx)
	require.EqualError(t, err,
		"rpc error: code = Unauthenticated desc = verifying Authorization: token signature is invalid: signature is invalid")

	// As does one given no authorization at all.
	_, err = kv1.Verify(context.Background())
	require.EqualError(t, err,
		"rpc error: code = Unauthenticated desc = missing or empty Authorization token")
}

func TestBasicCredentials(t *testing.T) {
	var ctx, err = auth.BasicCredentials{Username: "admin", Password: "changeit"}.Authorize(context.Background())
	require.NoError(t, err)

	var md, _ = metadata.FromOutgoingContext(ctx)
	require.Equal(t, []string{"Basic YWRtaW46Y2hhbmdlaXQ="}, md.Get("authorization"))

	// Basic credentials are not accepted by a keyed verifier.
	kv, err := auth.NewKeyedVerifier("c2VjcmV0")
	require.NoError(t, err)
	_, err = kv.Verify(metadata.NewIncomingContext(ctx, md))
	require.EqualError(t, err, "rpc error: code = Unauthenticated desc = "+
		"invalid or unsupported Authorization header (expected 'Bearer')")

	_, err = auth.BasicCredentials{}.Authorize(context.Background())
	require.EqualError(t, err, "expected Username")
}

func TestCredentialsContextOverride(t *testing.T) {
	require.Nil(t, auth.CredentialsFromContext(context.Background()))

	var c = auth.BasicCredentials{Username: "ops"}
	var ctx = auth.WithCredentials(context.Background(), c)
	require.Equal(t, c, auth.CredentialsFromContext(ctx))
}

func TestKeyParsingErrors(t *testing.T) {
	var _, err = auth.NewKeyedVerifier("")
	require.EqualError(t, err, "at least one key must be provided")

	_, err = auth.NewKeyedCredentials("app", "c2VjcmV0,!!!", time.Minute)
	require.EqualError(t, err, "failed to decode key at index 1: illegal base64 data at input byte 0")
}
