package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenMissing means no bearer credential was presented.
	ErrTokenMissing = errors.New("token missing")
	// ErrTokenInvalid covers bad signatures, malformed tokens, wrong
	// algorithms and expired tokens alike.
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims is the payload of an access token: the username plus the
// registered exp/iat claims.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AccessToken is a signed JWT along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenIssuer mints and verifies HS256 tokens with a process-wide secret.
// Tokens are never stored server side; the signature and exp claim are the
// whole of the check.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer builds an issuer with the given secret and validity window.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock returns a copy of the issuer that reads time from now.
func (t *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	cp := *t
	cp.now = now
	return &cp
}

// Issue signs a token for username that expires after the issuer's TTL.
func (t *TokenIssuer) Issue(username string) (AccessToken, error) {
	iat := t.now().UTC()
	exp := iat.Add(t.ttl)
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(iat),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return AccessToken{}, fmt.Errorf("sign token: %w", err)
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Verify checks the signature and expiry of raw and returns the username it
// carries.  An empty raw yields ErrTokenMissing; every other failure wraps
// ErrTokenInvalid.
func (t *TokenIssuer) Verify(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", ErrTokenMissing
	}
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !tok.Valid || claims.Username == "" {
		return "", ErrTokenInvalid
	}
	return claims.Username, nil
}

// BearerToken extracts the credential from an Authorization header value:
// the second space-separated field, whatever the scheme.  It returns ""
// when the header has no second field, which callers treat as a missing
// token; any other scheme yields a token that fails verification.
func BearerToken(header string) string {
	parts := strings.Split(header, " ")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
