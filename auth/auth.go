// Package auth provides call Credentials which authorize outgoing client
// calls, and a Verifier of keyed credentials for use by servers and tests.
package auth

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	pb "go.logdb.dev/core/protocol"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Credentials authorize an outgoing call by attaching an authorization
// header to its Context.
type Credentials interface {
	Authorize(context.Context) (context.Context, error)
}

// BasicCredentials authorize calls with a username and password.
type BasicCredentials struct {
	Username string
	Password string
}

// Authorize implements Credentials.
func (c BasicCredentials) Authorize(ctx context.Context) (context.Context, error) {
	if c.Username == "" {
		return nil, errors.New("expected Username")
	}
	var token = base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
	return metadata.AppendToOutgoingContext(ctx, pb.AuthorizationHeader, "Basic "+token), nil
}

// NewKeyedCredentials returns KeyedCredentials for |subject| using the given
// pre-shared secret keys, which are base64 encoded and separated by
// whitespace and/or commas. The first key is used for signing, and any key
// may verify a presented token.
func NewKeyedCredentials(subject, base64Keys string, expiry time.Duration) (*KeyedCredentials, error) {
	var keys, err = parseKeys(base64Keys)
	if err != nil {
		return nil, err
	}
	if expiry <= 0 {
		expiry = time.Minute
	}
	return &KeyedCredentials{subject: subject, keys: keys, expiry: expiry}, nil
}

// KeyedCredentials authorize calls with a bearer JWT signed by a pre-shared key.
type KeyedCredentials struct {
	subject string
	keys    jwt.VerificationKeySet
	expiry  time.Duration
}

// Authorize implements Credentials.
func (k *KeyedCredentials) Authorize(ctx context.Context) (context.Context, error) {
	var now = time.Now()
	var claims = jwt.RegisteredClaims{
		Subject:   k.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(k.expiry)),
	}
	var token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(k.keys.Keys[0])
	if err != nil {
		return nil, errors.Wrap(err, "signing authorization")
	}
	return metadata.AppendToOutgoingContext(ctx, pb.AuthorizationHeader, "Bearer "+token), nil
}

// WithCredentials returns a Context which overrides the default Credentials
// of a client for calls made with it.
func WithCredentials(ctx context.Context, c Credentials) context.Context {
	return context.WithValue(ctx, credentialsKey{}, c)
}

// CredentialsFromContext returns Credentials attached by WithCredentials, or nil.
func CredentialsFromContext(ctx context.Context) Credentials {
	var c, _ = ctx.Value(credentialsKey{}).(Credentials)
	return c
}

type credentialsKey struct{}

// Verifier verifies the authorization of an incoming call.
type Verifier interface {
	Verify(context.Context) (jwt.RegisteredClaims, error)
}

// NewKeyedVerifier returns a Verifier of bearer tokens signed by any of the
// given pre-shared keys, encoded as with NewKeyedCredentials.
func NewKeyedVerifier(base64Keys string) (Verifier, error) {
	var keys, err = parseKeys(base64Keys)
	if err != nil {
		return nil, err
	}
	return keyedVerifier{keys}, nil
}

type keyedVerifier struct{ keys jwt.VerificationKeySet }

// Verify returns the claims of a valid token, or an Unauthenticated status error.
func (v keyedVerifier) Verify(ctx context.Context) (jwt.RegisteredClaims, error) {
	if claims, err := verifyWithKeys(ctx, v.keys); err != nil {
		return jwt.RegisteredClaims{}, status.Error(codes.Unauthenticated, err.Error())
	} else {
		return claims, nil
	}
}

func verifyWithKeys(ctx context.Context, keys jwt.VerificationKeySet) (jwt.RegisteredClaims, error) {
	var md, _ = metadata.FromIncomingContext(ctx)
	var auth = md.Get(pb.AuthorizationHeader)
	var claims jwt.RegisteredClaims

	if len(auth) == 0 {
		return claims, ErrMissingAuth
	} else if !strings.HasPrefix(auth[0], "Bearer ") {
		return claims, ErrNotBearer
	}
	var bearer = strings.TrimPrefix(auth[0], "Bearer ")

	if token, err := jwt.ParseWithClaims(bearer, &claims,
		func(token *jwt.Token) (interface{}, error) { return keys, nil },
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(time.Second*5),
		jwt.WithValidMethods([]string{"HS256", "HS384"}),
	); err != nil {
		return jwt.RegisteredClaims{}, fmt.Errorf("verifying Authorization: %w", err)
	} else if !token.Valid {
		panic("token.Valid must be true")
	}
	return claims, nil
}

func parseKeys(base64Keys string) (jwt.VerificationKeySet, error) {
	var keys jwt.VerificationKeySet

	for i, key := range strings.Fields(strings.ReplaceAll(base64Keys, ",", " ")) {
		if b, err := base64.StdEncoding.DecodeString(key); err != nil {
			return keys, fmt.Errorf("failed to decode key at index %d: %w", i, err)
		} else {
			keys.Keys = append(keys.Keys, b)
		}
	}
	if len(keys.Keys) == 0 {
		return keys, fmt.Errorf("at least one key must be provided")
	}
	return keys, nil
}

var (
	ErrMissingAuth = errors.New("missing or empty Authorization token")
	ErrNotBearer   = errors.New("invalid or unsupported Authorization header (expected 'Bearer')")
)
