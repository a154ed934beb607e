package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aegis-id/aegis/internal/shared"
)

// SignUpResult is returned to callers after account creation.
type SignUpResult struct {
	User    UserSummary `json:"user"`
	Message string      `json:"message"`
}

// SignUp orchestrates account creation for both auth kinds. Both paths
// persist a provider record, so every account carries its auth linkage.
type SignUp struct {
	logger    *slog.Logger
	service   *Service
	users     UserRepository
	providers ProviderRepository
}

// NewSignUp constructs the sign-up use case.
func NewSignUp(logger *slog.Logger, service *Service, users UserRepository, providers ProviderRepository) *SignUp {
	return &SignUp{logger: logger, service: service, users: users, providers: providers}
}

func (uc *SignUp) ensureNew(ctx context.Context, email string) error {
	_, err := uc.users.GetByEmail(ctx, email)
	if err == nil {
		return shared.ErrUserExists
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	return nil
}

// ExecuteBasic registers an account with email, name and password. The
// account starts pending and unverified.
func (uc *SignUp) ExecuteBasic(ctx context.Context, email, name, secret string) (*SignUpResult, error) {
	if secret == "" {
		return nil, shared.ErrMalformedInput
	}
	if err := uc.ensureNew(ctx, email); err != nil {
		return nil, err
	}
	user, provider, err := uc.service.CreateUser(email, name, secret)
	if err != nil {
		return nil, err
	}
	created, err := uc.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	// User and provider are two independent writes; a crash in between
	// leaves an account without a provider record.
	if provider != nil {
		if _, err := uc.providers.Create(ctx, provider); err != nil {
			return nil, err
		}
	}
	return &SignUpResult{
		User:    summarize(created),
		Message: "Account created. Check your email to activate it.",
	}, nil
}

// ExecuteSocial registers an account backed by an external identity. The
// account is immediately active and verified.
func (uc *SignUp) ExecuteSocial(ctx context.Context, kind ProviderKind, email, name, externalID string) (*SignUpResult, error) {
	if !kind.Social() || externalID == "" {
		return nil, shared.ErrMalformedInput
	}
	if err := uc.ensureNew(ctx, email); err != nil {
		return nil, err
	}
	user, _, err := uc.service.CreateUser(email, name, "")
	if err != nil {
		return nil, err
	}
	created, err := uc.users.Create(ctx, user)
	if err != nil {
		return nil, err
	}
	provider := NewSocialProvider(kind, created.ID, externalID, nil)
	if _, err := uc.providers.Create(ctx, provider); err != nil {
		return nil, err
	}
	return &SignUpResult{
		User:    summarize(created),
		Message: "Account created via social sign in.",
	}, nil
}
