package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aegis-id/aegis/internal/shared"
)

// UserSummary is the caller-facing projection of a user.
type UserSummary struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Role          string    `json:"role"`
	Status        string    `json:"status"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

func summarize(user *User) UserSummary {
	return UserSummary{
		ID:            user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          string(user.Role),
		Status:        string(user.Status),
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
}

// SessionResult is returned to callers after a successful sign in.
type SessionResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresAt    time.Time   `json:"expires_at"`
	User         UserSummary `json:"user"`
}

// SignIn orchestrates the authenticate, persist-session and shape-result
// sequence for both auth kinds.
type SignIn struct {
	logger   *slog.Logger
	service  *Service
	users    UserRepository
	sessions SessionRepository
}

// NewSignIn constructs the sign-in use case.
func NewSignIn(logger *slog.Logger, service *Service, users UserRepository, sessions SessionRepository) *SignIn {
	return &SignIn{logger: logger, service: service, users: users, sessions: sessions}
}

// ExecuteBasic signs a user in with email and password.
func (uc *SignIn) ExecuteBasic(ctx context.Context, email, secret string) (*SessionResult, error) {
	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	session, err := uc.service.AuthenticateBasic(ctx, email, secret, user)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return uc.finish(ctx, user, session)
}

// ExecuteSocial signs a user in via a pre-validated external identity. It
// never creates an account; signup must precede signin.
func (uc *SignIn) ExecuteSocial(ctx context.Context, kind ProviderKind, email, externalID string) (*SessionResult, error) {
	user, err := uc.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	session, err := uc.service.AuthenticateSocial(ctx, kind, email, externalID, user)
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return uc.finish(ctx, user, session)
}

func (uc *SignIn) finish(ctx context.Context, user *User, session *Session) (*SessionResult, error) {
	// Last-login stamp is best effort; a failed write must not fail a
	// correct login.
	if _, err := uc.users.Update(ctx, user); err != nil {
		uc.logger.Warn("persist last login", slog.Any("error", err))
	}
	if _, err := uc.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return &SessionResult{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
		User:         summarize(user),
	}, nil
}
