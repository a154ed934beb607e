package auth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aegis-id/aegis/internal/shared"
)

// Service wraps authentication business rules. It never touches a
// repository; looking up and persisting entities is the caller's job.
type Service struct {
	hasher        *Hasher
	tokens        *TokenService
	enforcePolicy bool
	logger        *slog.Logger
	now           func() time.Time
}

// NewService constructs a new Service. When enforcePolicy is set, signup
// secrets must pass the password strength policy.
func NewService(logger *slog.Logger, hasher *Hasher, tokens *TokenService, enforcePolicy bool) *Service {
	return &Service{
		hasher:        hasher,
		tokens:        tokens,
		enforcePolicy: enforcePolicy,
		logger:        logger,
		now:           time.Now,
	}
}

// AuthenticateBasic validates email/password credentials for an already
// resolved user and builds a new session. The session is not persisted here.
func (s *Service) AuthenticateBasic(ctx context.Context, email, secret string, user *User) (*Session, error) {
	if user == nil || !user.CanLogin() {
		s.logger.Debug("basic auth rejected", slog.String("reason", "ineligible"))
		return nil, shared.ErrInvalidCredentials
	}
	if !s.VerifyUserPassword(user, secret) {
		s.logger.Debug("basic auth rejected", slog.String("reason", "bad secret"))
		return nil, shared.ErrInvalidCredentials
	}
	return s.openSession(user)
}

// AuthenticateSocial builds a session for a user resolved via an external
// provider. The provider's assertion is assumed pre-validated by the
// boundary layer; presence of the user is the proof of identity here.
func (s *Service) AuthenticateSocial(ctx context.Context, kind ProviderKind, email, externalID string, user *User) (*Session, error) {
	if user == nil || !user.CanLogin() {
		s.logger.Debug("social auth rejected",
			slog.String("provider", string(kind)),
			slog.String("reason", "ineligible"))
		return nil, shared.ErrInvalidCredentials
	}
	return s.openSession(user)
}

func (s *Service) openSession(user *User) (*Session, error) {
	user.RecordLogin(s.now())
	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		s.logger.Error("issue access token", slog.Any("error", err))
		return nil, shared.ErrInvalidCredentials
	}
	refresh, err := s.tokens.IssueRefresh(user)
	if err != nil {
		s.logger.Error("issue refresh token", slog.Any("error", err))
		return nil, shared.ErrInvalidCredentials
	}
	return NewSession(user.ID, access, refresh, s.tokens.AccessTTL()), nil
}

// CreateUser builds a new user. With a secret the account starts pending and
// unverified and a basic provider record is returned. Without a secret the
// social path applies: the account is immediately active and verified, and
// the caller constructs the provider record for the external identity.
func (s *Service) CreateUser(email, name, secret string) (*User, *Provider, error) {
	user := NewUser(email, name)
	if secret == "" {
		user.Status = StatusActive
		user.EmailVerified = true
		return user, nil, nil
	}
	if s.enforcePolicy && !s.hasher.IsStrong(secret) {
		return nil, nil, shared.ErrWeakPassword
	}
	digest, salt, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, nil, err
	}
	user.PasswordHash = digest + ":" + salt
	return user, NewBasicProvider(user.ID), nil
}

// VerifyUserPassword checks a plaintext secret against the stored
// "digest:salt" composite. Fails closed when no hash is present or the
// composite cannot be split.
func (s *Service) VerifyUserPassword(user *User, secret string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	digest, salt, ok := strings.Cut(user.PasswordHash, ":")
	if !ok || digest == "" || salt == "" {
		return false
	}
	return s.hasher.Verify(secret, digest, salt)
}
