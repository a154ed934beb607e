package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aegis-id/aegis/internal/shared"
)

// ValidationResult describes a validated caller.
type ValidationResult struct {
	User      UserSummary `json:"user"`
	SessionID string      `json:"session_id"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// RefreshResult carries a freshly minted token pair.
type RefreshResult struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TokenValidation validates access tokens against the session store and
// mints new token pairs from refresh tokens.
type TokenValidation struct {
	logger   *slog.Logger
	tokens   *TokenService
	users    UserRepository
	sessions SessionRepository
}

// NewTokenValidation constructs the token validation use case.
func NewTokenValidation(logger *slog.Logger, tokens *TokenService, users UserRepository, sessions SessionRepository) *TokenValidation {
	return &TokenValidation{logger: logger, tokens: tokens, users: users, sessions: sessions}
}

// Execute validates an access token. Four gates must all pass: token
// signature and expiry, token type, live session, eligible user. Any miss
// yields the same uniform failure.
func (uc *TokenValidation) Execute(ctx context.Context, accessToken string) (*ValidationResult, error) {
	claims, err := uc.tokens.Verify(accessToken)
	if err != nil {
		uc.logger.Debug("token rejected", slog.Any("error", err))
		return nil, shared.ErrInvalidCredentials
	}
	if claims.TokenType != TokenTypeAccess {
		uc.logger.Debug("token rejected", slog.String("reason", "wrong type"))
		return nil, shared.ErrInvalidCredentials
	}
	session, err := uc.sessions.GetByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !session.IsValid() {
		return nil, shared.ErrInvalidCredentials
	}
	user, err := uc.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.CanLogin() {
		return nil, shared.ErrInvalidCredentials
	}
	return &ValidationResult{
		User:      summarize(user),
		SessionID: session.ID,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// Refresh mints a fresh token pair from a refresh token. Refresh tokens are
// stateless relative to the session store: the originating session is
// neither looked up nor rotated, so a revoked session does not block
// refresh until the refresh token itself expires.
func (uc *TokenValidation) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := uc.tokens.Verify(refreshToken)
	if err != nil || claims.TokenType != TokenTypeRefresh {
		return nil, shared.ErrInvalidCredentials
	}
	user, err := uc.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.CanLogin() {
		return nil, shared.ErrInvalidCredentials
	}
	access, err := uc.tokens.IssueAccess(user)
	if err != nil {
		return nil, err
	}
	refresh, err := uc.tokens.IssueRefresh(user)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().UTC().Add(uc.tokens.AccessTTL()),
	}, nil
}
