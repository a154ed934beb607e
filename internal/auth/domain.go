package auth

import (
	"time"

	"github.com/google/uuid"
)

// Role classifies a user's authorization level.
type Role string

const (
	// RoleAdmin can manage other accounts.
	RoleAdmin Role = "admin"
	// RoleUser is the default role for new accounts.
	RoleUser Role = "user"
	// RoleModerator sits between admin and user.
	RoleModerator Role = "moderator"
)

// UserStatus tracks the account lifecycle.
type UserStatus string

const (
	// StatusActive marks an account allowed to sign in.
	StatusActive UserStatus = "active"
	// StatusInactive marks a deactivated account.
	StatusInactive UserStatus = "inactive"
	// StatusPending marks a freshly registered account awaiting verification.
	StatusPending UserStatus = "pending"
	// StatusSuspended marks an account blocked by an operator.
	StatusSuspended UserStatus = "suspended"
)

// User represents an identity record.
type User struct {
	ID    string
	Email string
	Name  string
	// PasswordHash stores the "digest:salt" composite, empty for
	// social-only accounts.
	PasswordHash  string
	Phone         string
	Role          Role
	Status        UserStatus
	EmailVerified bool
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewUser constructs a pending, unverified user with the default role.
func NewUser(email, name string) *User {
	now := time.Now().UTC()
	return &User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      RoleUser,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsActive reports whether the account status is active.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// CanLogin reports whether the account may authenticate: active and verified.
func (u *User) CanLogin() bool {
	return u.IsActive() && u.EmailVerified
}

// RecordLogin stamps the last-login timestamp.
func (u *User) RecordLogin(now time.Time) {
	at := now.UTC()
	u.LastLoginAt = &at
	u.UpdatedAt = at
}

// ProviderKind enumerates supported authentication methods.
type ProviderKind string

const (
	// ProviderBasic is local email/password authentication.
	ProviderBasic ProviderKind = "basic"
	// ProviderGoogle is Google social authentication.
	ProviderGoogle ProviderKind = "google"
	// ProviderMicrosoft is Microsoft social authentication.
	ProviderMicrosoft ProviderKind = "microsoft"
)

// ParseProviderKind maps a wire value onto a known provider kind.
func ParseProviderKind(value string) (ProviderKind, bool) {
	switch ProviderKind(value) {
	case ProviderBasic, ProviderGoogle, ProviderMicrosoft:
		return ProviderKind(value), true
	}
	return "", false
}

// Social reports whether the kind delegates identity to an external provider.
func (k ProviderKind) Social() bool {
	return k == ProviderGoogle || k == ProviderMicrosoft
}

// Provider links a user to an authentication method.
type Provider struct {
	ID         string
	UserID     string
	Kind       ProviderKind
	ExternalID string
	Metadata   map[string]string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewBasicProvider builds the local-password provider record. The ID is
// derived from the user ID, so a user can hold at most one basic provider.
func NewBasicProvider(userID string) *Provider {
	now := time.Now().UTC()
	return &Provider{
		ID:         string(ProviderBasic) + "_" + userID,
		UserID:     userID,
		Kind:       ProviderBasic,
		ExternalID: userID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewSocialProvider builds a provider record for an external identity.
func NewSocialProvider(kind ProviderKind, userID, externalID string, metadata map[string]string) *Provider {
	now := time.Now().UTC()
	return &Provider{
		ID:         string(kind) + "_" + userID,
		UserID:     userID,
		Kind:       kind,
		ExternalID: externalID,
		Metadata:   metadata,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// SessionStatus tracks the lifecycle of an issued session.
type SessionStatus string

const (
	// SessionActive marks a live session.
	SessionActive SessionStatus = "active"
	// SessionExpired marks a session past its expiry.
	SessionExpired SessionStatus = "expired"
	// SessionRevoked marks an explicitly revoked session.
	SessionRevoked SessionStatus = "revoked"
)

// Session pairs an issued token pair with server-side validity state.
type Session struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Status       SessionStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSession constructs an active session expiring after ttl.
func NewSession(userID, accessToken, refreshToken string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(ttl),
		Status:       SessionActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsValid reports whether the session is active and strictly before expiry.
func (s *Session) IsValid() bool {
	return s.Status == SessionActive && s.ExpiresAt.After(time.Now().UTC())
}

// IsExpired reports whether the expiry has passed. Expiry equal to now
// counts as expired.
func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.After(time.Now().UTC())
}

// Revoke marks the session revoked. Safe to call repeatedly.
func (s *Session) Revoke() {
	s.Status = SessionRevoked
	s.UpdatedAt = time.Now().UTC()
}

// Extend pushes the expiry forward from now.
func (s *Session) Extend(d time.Duration) {
	now := time.Now().UTC()
	s.ExpiresAt = now.Add(d)
	s.UpdatedAt = now
}
