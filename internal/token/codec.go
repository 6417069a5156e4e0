// Package token implements the credential codec: signed bearer claims to and
// from their compact string form, independent of transport. Verification is
// stateless; no server-side lookup is required.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is the only verification error surfaced to callers.
// Signature mismatch, malformed input and expiry all collapse into it so the
// response never tells an attacker which check failed; the underlying cause
// is wrapped for server-side logs.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the signed payload minted for a session. Once signed the claims
// are immutable; readers must treat the slug as advisory (a stale slug in an
// old token is expected) and the org id as authoritative.
type Claims struct {
	Handle  string `json:"handle,omitempty"`
	OrgID   string `json:"org"`
	OrgSlug string `json:"slug,omitempty"`
	Role    string `json:"role,omitempty"`

	jwt.RegisteredClaims
}

// UserID returns the subject claim parsed as a UUID.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// Org returns the org claim parsed as a UUID.
func (c *Claims) Org() (uuid.UUID, error) {
	return uuid.Parse(c.OrgID)
}

// Codec signs and verifies credential claims with a shared HMAC secret.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewCodec creates a codec. The secret must be at least 32 bytes for
// HMAC-SHA256.
func NewCodec(secret []byte, issuer string, ttl time.Duration) (*Codec, error) {
	if len(secret) < 32 {
		return nil, errors.New("token signing secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		return nil, errors.New("token TTL must be greater than 0")
	}
	return &Codec{secret: secret, issuer: issuer, ttl: ttl}, nil
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue mints a signed compact token for the given identity and organization
// and returns it with its expiry. Identical inputs produce identical claims
// apart from iat/exp.
func (c *Codec) Issue(userID uuid.UUID, handle string, orgID uuid.UUID, orgSlug, role string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(c.ttl)

	claims := &Claims{
		Handle:  handle,
		OrgID:   orgID.String(),
		OrgSlug: orgSlug,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	compact, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return compact, exp, nil
}

// Verify checks the signature, expiry and issuer of a compact token and
// returns its claims. Every failure is reported as ErrInvalidToken.
func (c *Codec) Verify(compact string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	parsed, err := jwt.ParseWithClaims(compact, &Claims{}, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
