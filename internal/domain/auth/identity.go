// Package auth supplies the requester identity for the order flow. The core
// trusts the token contents as given context; issuing credentials and session
// management live outside this service.
package auth

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// RoleAdmin is the role claim value that grants cross-user order access.
const RoleAdmin = "admin"

// ErrInvalidToken is returned for tokens that fail signature or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated requester: a user ID and whether the admin
// role applies.
type Identity struct {
	UserID int64
	Admin  bool
}

// Claims is the expected JWT payload: registered claims plus a role tag.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// TokenParser verifies HMAC-signed bearer tokens and extracts an Identity.
type TokenParser struct {
	secret []byte
}

// NewTokenParser creates a TokenParser with the given HMAC secret.
func NewTokenParser(secret []byte) *TokenParser {
	return &TokenParser{secret: secret}
}

// Parse verifies the token signature and expiry and maps the subject claim to
// a user ID.
func (p *TokenParser) Parse(token string) (*Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Wrapf(ErrInvalidToken, "unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, "non-numeric subject")
	}

	return &Identity{
		UserID: userID,
		Admin:  claims.Role == RoleAdmin,
	}, nil
}

type identityKey struct{}

// WithIdentity stores the identity in the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext extracts the identity set by the authentication middleware.
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok
}
