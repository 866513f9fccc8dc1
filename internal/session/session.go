// Package session issues and verifies the bearer tokens handed out at
// login. Tokens are RS256 JWTs signed with a key generated at startup, so
// restarting the process logs everybody out.
package session

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// Manager signs and verifies session tokens.
type Manager struct {
	key    *rsa.PrivateKey
	kid    string
	issuer string
	ttl    time.Duration
	clock  clockwork.Clock
}

// NewManager generates a signing key. A nil clock means the wall clock.
func NewManager(cfg Config, clock clockwork.Clock) (*Manager, error) {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	return newManagerWithKey(k, cfg, clock)
}

func newManagerWithKey(k *rsa.PrivateKey, cfg Config, clock clockwork.Clock) (*Manager, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	pub, err := x509.MarshalPKIXPublicKey(&k.PublicKey)
	if err != nil {
		return nil, err
	}
	h := sha256.Sum256(pub)
	return &Manager{
		key:    k,
		kid:    base64.RawURLEncoding.EncodeToString(h[:8]),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		clock:  clock,
	}, nil
}

// TTL returns how long issued tokens stay valid.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Issue returns a signed token for userID.
func (m *Manager) Issue(userID string) (string, time.Time, error) {
	now := m.clock.Now()
	exp := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = m.kid
	signed, err := tok.SignedString(m.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature, issuer and expiry and returns the user id.
func (m *Manager) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return &m.key.PublicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// JWKS returns the public signing key as a JSON Web Key Set.
func (m *Manager) JWKS() map[string]any {
	pub := m.key.PublicKey
	jwk := map[string]any{
		"kty": "RSA",
		"use": "sig",
		"alg": "RS256",
		"kid": m.kid,
		"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
	return map[string]any{"keys": []any{jwk}}
}
