// Package token implements the signed-token codec used for access and
// refresh credentials.  The codec is stateless: validity is decided by the
// HMAC signature and the embedded expiry alone.  Whether a structurally
// valid token is still authorized is the token ledger's business, not ours.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Class selects which signing key a token belongs to.  Access and refresh
// tokens are signed with independent secrets so that compromising one key
// space does not forge the other.
type Class int

const (
	Access Class = iota
	Refresh
)

// Verification failure kinds.  Callers react differently to the two: an
// expired access token triggers the refresh flow, while an invalid one is
// rejected outright.
var (
	// ErrExpired means the signature verified but the expiry has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalid means the token is malformed, tampered with, or signed
	// with the wrong key class.
	ErrInvalid = errors.New("token invalid")
)

// Claims is the payload carried by signed tokens.  Access and refresh
// tokens carry the full identity; password-reset bearer tokens carry only
// the email.
type Claims struct {
	Email            string `json:"email"`
	Role             string `json:"role,omitempty"`
	RegisterProvider string `json:"registerProvider,omitempty"`
	Jit              string `json:"jit,omitempty"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HS256 tokens with per-class secrets.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
}

// NewCodec builds a Codec from the two signing secrets.
func NewCodec(accessSecret, refreshSecret string) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
	}
}

func (c *Codec) secret(class Class) []byte {
	if class == Refresh {
		return c.refreshSecret
	}
	return c.accessSecret
}

// Issue signs claims with the key of the given class.  IssuedAt and
// ExpiresAt are derived from the current UTC time and ttl; any values the
// caller placed there are overwritten.
func (c *Codec) Issue(claims Claims, class Class, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret(class))
}

// Verify parses and validates a token against the key of the given class.
// It returns the decoded claims on success, ErrExpired when the signature
// is good but the token has lapsed, and ErrInvalid for everything else
// (bad signature, malformed input, wrong key class).
func (c *Codec) Verify(raw string, class Class) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Pin the signing method; reject tokens using other algorithms.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return c.secret(class), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}
	if !tok.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}
