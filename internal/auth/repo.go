package auth

import "context"

// UserRepository persists user identity records. Lookups return
// shared.ErrNotFound when no record matches.
type UserRepository interface {
	Create(ctx context.Context, user *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) (*User, error)
	Delete(ctx context.Context, id string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*User, error)
}

// SessionRepository persists issued sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) (*Session, error)
	GetByID(ctx context.Context, id string) (*Session, error)
	GetByAccessToken(ctx context.Context, accessToken string) (*Session, error)
	GetByUserID(ctx context.Context, userID string) ([]*Session, error)
	Update(ctx context.Context, session *Session) (*Session, error)
	Delete(ctx context.Context, id string) (bool, error)
	// RevokeUserSessions revokes every session of a user and returns how
	// many were touched.
	RevokeUserSessions(ctx context.Context, userID string) (int, error)
}

// ProviderRepository persists user-to-provider linkage records.
type ProviderRepository interface {
	Create(ctx context.Context, provider *Provider) (*Provider, error)
	GetByID(ctx context.Context, id string) (*Provider, error)
	GetByUserID(ctx context.Context, userID string) ([]*Provider, error)
	GetByProviderInfo(ctx context.Context, kind ProviderKind, externalID string) (*Provider, error)
	Update(ctx context.Context, provider *Provider) (*Provider, error)
	Delete(ctx context.Context, id string) (bool, error)
}
