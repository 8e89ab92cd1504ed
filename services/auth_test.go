package services

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testTokenConfig() *TokenConfig {
	return &TokenConfig{
		Secret: []byte("test-secret"),
		Method: jwt.SigningMethodHS256,
		TTL:    7 * 24 * time.Hour,
	}
}

func issuerAt(cfg *TokenConfig, at time.Time) *TokenIssuer {
	ti := NewTokenIssuer(cfg)
	ti.now = func() time.Time { return at }
	return ti
}

func TestCredentials_HashAndVerify(t *testing.T) {
	c := NewCredentials(bcrypt.MinCost)

	digest, err := c.Hash("pw1")
	require.NoError(t, err)
	assert.NotEqual(t, "pw1", digest)

	ok, err := c.Verify("pw1", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Verify("wrong", digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentials_HashIsSalted(t *testing.T) {
	c := NewCredentials(bcrypt.MinCost)

	a, err := c.Hash("same")
	require.NoError(t, err)
	b, err := c.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCredentials_MalformedDigest(t *testing.T) {
	c := NewCredentials(bcrypt.MinCost)

	ok, err := c.Verify("pw1", "not-a-bcrypt-digest")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestCredentials_PasswordTooLong(t *testing.T) {
	c := NewCredentials(bcrypt.MinCost)

	_, err := c.Hash(strings.Repeat("p", 80))
	assert.ErrorIs(t, err, ErrPasswordTooLong)

	_, err = c.Hash(strings.Repeat("p", 72))
	assert.NoError(t, err)
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti := NewTokenIssuer(testTokenConfig())

	token, err := ti.Issue("alice")
	require.NoError(t, err)

	username, err := ti.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestTokenIssuer_ExpiryBoundary(t *testing.T) {
	cfg := testTokenConfig()
	verifier := NewTokenIssuer(cfg)
	now := time.Now()

	// Issued six days ago: one day of validity left.
	fresh, err := issuerAt(cfg, now.Add(-6*24*time.Hour)).Issue("alice")
	require.NoError(t, err)
	username, err := verifier.Verify(fresh)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	// Issued eight days ago: expired a day ago.
	stale, err := issuerAt(cfg, now.Add(-8*24*time.Hour)).Issue("alice")
	require.NoError(t, err)
	_, err = verifier.Verify(stale)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_ExpiryClaim(t *testing.T) {
	cfg := testTokenConfig()
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	token, err := issuerAt(cfg, issued).Issue("alice")
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, _, err = new(jwt.Parser).ParseUnverified(token, claims)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, issued.Add(7*24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	token, err := NewTokenIssuer(testTokenConfig()).Issue("alice")
	require.NoError(t, err)

	other := testTokenConfig()
	other.Secret = []byte("another-secret")
	_, err = NewTokenIssuer(other).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	cfg := testTokenConfig()
	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(cfg.Secret)
	require.NoError(t, err)
	_, err = NewTokenIssuer(cfg).Verify(hs512)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = NewTokenIssuer(cfg).Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_MissingClaims(t *testing.T) {
	cfg := testTokenConfig()
	ti := NewTokenIssuer(cfg)

	noSubject, err := jwt.NewWithClaims(cfg.Method, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(cfg.Secret)
	require.NoError(t, err)
	_, err = ti.Verify(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExpiry, err := jwt.NewWithClaims(cfg.Method, jwt.RegisteredClaims{
		Subject: "alice",
	}).SignedString(cfg.Secret)
	require.NoError(t, err)
	_, err = ti.Verify(noExpiry)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Garbage(t *testing.T) {
	_, err := NewTokenIssuer(testTokenConfig()).Verify("not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
