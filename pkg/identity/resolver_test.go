package identity

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urmzd/homai-alexa/pkg/device"
)

var secret = []byte("access_secret")

func signed(t *testing.T, key []byte, claims jwt.Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return tok
}

func newResolver() *Resolver {
	dir := device.NewMemoryDirectory()
	dir.PutUser(device.User{UserID: "uid-ada", Email: "ada@example.com"})
	return NewResolver(JWTStrategy(secret), OpaqueStrategy(dir))
}

func TestResolve_SignedToken(t *testing.T) {
	tok := signed(t, secret, LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UID:              "uid-ada",
	})

	uid, err := newResolver().Resolve(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "uid-ada", uid)
}

func TestResolve_SignedTokenSubjectFallback(t *testing.T) {
	tok := signed(t, secret, jwt.RegisteredClaims{
		Subject:   "uid-sub",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	uid, err := newResolver().Resolve(context.Background(), "Bearer "+tok)
	require.NoError(t, err)
	assert.Equal(t, "uid-sub", uid)
}

func TestResolve_SignedTokenWrongSecret(t *testing.T) {
	tok := signed(t, []byte("other"), LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		UID:              "uid-ada",
	})

	_, err := newResolver().Resolve(context.Background(), tok)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestResolve_SignedTokenExpired(t *testing.T) {
	tok := signed(t, secret, LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
		UID:              "uid-ada",
	})

	_, err := newResolver().Resolve(context.Background(), tok)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestResolve_OpaqueToken(t *testing.T) {
	tok := base64.StdEncoding.EncodeToString([]byte("ada@example.com:1717000000000"))

	uid, err := newResolver().Resolve(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "uid-ada", uid)
}

func TestResolve_OpaqueTokenUnknownUser(t *testing.T) {
	tok := base64.StdEncoding.EncodeToString([]byte("eve@example.com:alexa-client"))

	_, err := newResolver().Resolve(context.Background(), tok)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, ErrUnknownUser)
	assert.NotErrorIs(t, err, ErrInvalidSignature)
}

func TestResolve_Malformed(t *testing.T) {
	for _, tok := range []string{"%%%not-base64%%%", base64.StdEncoding.EncodeToString([]byte("no-email-here"))} {
		_, err := newResolver().Resolve(context.Background(), tok)
		assert.ErrorIs(t, err, ErrUnauthorized, tok)
		assert.ErrorIs(t, err, ErrMalformedToken, tok)
	}
}

func TestResolve_Missing(t *testing.T) {
	_, err := newResolver().Resolve(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, ErrMissingToken)
}
