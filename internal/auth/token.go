package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aegis-id/aegis/internal/shared"
)

const (
	// TokenTypeAccess marks short-lived tokens carrying identity claims.
	TokenTypeAccess = "access"
	// TokenTypeRefresh marks long-lived tokens usable only to mint a new pair.
	TokenTypeRefresh = "refresh"
)

// Claims is the signed token payload.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HMAC-SHA256 signed tokens. The signing
// secret comes from deployment configuration and is never defaulted.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService constructs a TokenService. TTLs are taken verbatim so the
// caller controls expiry policy.
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (t *TokenService) WithNow(fn func() time.Time) {
	if fn != nil {
		t.now = fn
	}
}

// AccessTTL returns the configured access token lifetime.
func (t *TokenService) AccessTTL() time.Duration {
	return t.accessTTL
}

// IssueAccess signs an access token carrying identity and role claims.
func (t *TokenService) IssueAccess(user *User) (string, error) {
	now := t.now().UTC()
	claims := Claims{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      string(user.Role),
		TokenType: TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			// Timestamps have second precision, so a unique jti keeps tokens
			// issued within the same second distinct.
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// IssueRefresh signs a refresh token. It carries no email or role claims;
// role changes take effect only after re-authentication mints a fresh
// access token.
func (t *TokenService) IssueRefresh(user *User) (string, error) {
	now := t.now().UTC()
	claims := Claims{
		UserID:    user.ID,
		TokenType: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.refreshTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify checks signature integrity then expiry and returns the claims.
// Failure kinds stay distinct (ErrBadSignature, ErrTokenExpired,
// ErrTokenMalformed) for diagnostics; use cases collapse them before they
// reach a caller.
func (t *TokenService) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, shared.ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, shared.ErrTokenExpired
		default:
			return nil, shared.ErrTokenMalformed
		}
	}
	if !parsed.Valid {
		return nil, shared.ErrTokenMalformed
	}
	return claims, nil
}

// ExtractUserID returns the subject of a valid access token. Refresh tokens
// are rejected.
func (t *TokenService) ExtractUserID(token string) (string, bool) {
	claims, err := t.Verify(token)
	if err != nil || claims.TokenType != TokenTypeAccess {
		return "", false
	}
	return claims.UserID, true
}

// IsExpired reports whether the token fails verification for any reason.
// Malformed tokens count as expired.
func (t *TokenService) IsExpired(token string) bool {
	_, err := t.Verify(token)
	return err != nil
}
