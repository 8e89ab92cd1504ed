package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned for any token that fails verification: bad
// signature, unexpected algorithm, expired, or without a subject.
var ErrInvalidToken = errors.New("invalid token")

// ErrPasswordTooLong is returned by Hash for passwords over bcrypt's 72 byte
// input limit.
var ErrPasswordTooLong = errors.New("password too long")

// Credentials hashes and checks passwords with bcrypt at a fixed cost.
type Credentials struct {
	cost int
}

func NewCredentials(cost int) *Credentials {
	return &Credentials{cost: cost}
}

func (c *Credentials) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", ErrPasswordTooLong
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches digest. A mismatch is not an
// error; a digest bcrypt cannot parse is.
func (c *Credentials) Verify(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("verify password: %w", err)
}

// TokenConfig is the signing configuration shared by every issued token.
type TokenConfig struct {
	Secret []byte
	Method jwt.SigningMethod
	TTL    time.Duration
}

// TokenIssuer signs and verifies bearer tokens whose subject is a username.
type TokenIssuer struct {
	cfg *TokenConfig
	now func() time.Time
}

func NewTokenIssuer(cfg *TokenConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, now: time.Now}
}

func (t *TokenIssuer) Issue(username string) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.TTL)),
	}
	signed, err := jwt.NewWithClaims(t.cfg.Method, claims).SignedString(t.cfg.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the username carried by a valid token.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != t.cfg.Method.Alg() {
			return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
		}
		return t.cfg.Secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	// jwt/v4 treats a missing exp as valid; tokens without one are never issued here.
	if claims.ExpiresAt == nil || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
