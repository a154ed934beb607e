package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aegis-id/aegis/internal/auth"
	"github.com/aegis-id/aegis/internal/shared"
	_ "github.com/aegis-id/aegis/testing"
)

type useCaseEnv struct {
	users      *auth.MemoryUserRepository
	sessions   *auth.MemorySessionRepository
	providers  *auth.MemoryProviderRepository
	tokens     *auth.TokenService
	signIn     *auth.SignIn
	signUp     *auth.SignUp
	validation *auth.TokenValidation
}

func newUseCaseEnv(t *testing.T) *useCaseEnv {
	t.Helper()
	logger := testLogger()
	users := auth.NewMemoryUserRepository()
	sessions := auth.NewMemorySessionRepository()
	providers := auth.NewMemoryProviderRepository()
	tokens := auth.NewTokenService("test-signing-secret", 24*time.Hour, 720*time.Hour)
	service := auth.NewService(logger, auth.NewHasher(), tokens, true)
	return &useCaseEnv{
		users:      users,
		sessions:   sessions,
		providers:  providers,
		tokens:     tokens,
		signIn:     auth.NewSignIn(logger, service, users, sessions),
		signUp:     auth.NewSignUp(logger, service, users, providers),
		validation: auth.NewTokenValidation(logger, tokens, users, sessions),
	}
}

func (e *useCaseEnv) activate(t *testing.T, email string) *auth.User {
	t.Helper()
	user, err := e.users.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	user.Status = auth.StatusActive
	user.EmailVerified = true
	_, err = e.users.Update(context.Background(), user)
	require.NoError(t, err)
	return user
}

func TestSignUpBasicCreatesPendingUser(t *testing.T) {
	env := newUseCaseEnv(t)
	ctx := context.Background()

	result, err := env.signUp.ExecuteBasic(ctx, "a@x.com", "A", "Passw0rd!")
	require.NoError(t, err)
	require.Equal(t, "pending", result.User.Status)
	require.False(t, result.User.EmailVerified)
	require.NotEmpty(t, result.Message)

	stored, err := env.users.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.Equal(t, auth.StatusPending, stored.Status)
	require.Contains(t, stored.PasswordHash, ":")

	// The basic provider record is persisted alongside.
	providers, err := env.providers.GetByUserID(ctx, stored.ID)
	require.NoError(t, err)
	require.Len(t, providers, 1)
	require.Equal(t, auth.ProviderBasic, providers[0].Kind)
}

func TestSignInBlockedUntilVerified(t *testing.T) {
	env := newUseCaseEnv(t)
	ctx := context.Background()

	_, err := env.signUp.ExecuteBasic(ctx, "a@x.com", "A", "Passw0rd!")
	require.NoError(t, err)

	// Even with the correct secret, a fresh signup cannot sign in.
	_, err = env.signIn.ExecuteBasic(ctx, "a@x.com", "Passw0rd!")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSignInAfterActivation(t *testing.T) {
	env := newUseCaseEnv(t)
	ctx := context.Background()

	_, err := env.signUp.ExecuteBasic(ctx, "a@x.com", "A", "Passw0rd!")
	require.NoError(t, err)
	env.activate(t, "a@x.com")

	first, err := env.signIn.ExecuteBasic(ctx, "a@x.com", "Passw0rd!")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(24*time.Hour), first.ExpiresAt, time.Second)
	require.Equal(t, "a@x.com", first.User.Email)

	second, err := env.signIn.ExecuteBasic(ctx, "a@x.com", "Passw0rd!")
	require.NoError(t, err)
	require.NotEqual(t, first.AccessToken, second.AccessToken)

	// Both sessions exist and are independently valid.
	user, err := env.users.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	sessions, err := env.sessions.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	for _, session := range sessions {
		require.True(t, session.IsValid())
	}
	require.NotNil(t, user.LastLoginAt)
}

func TestSignInUnknownUser(t *testing.T) {
	env := newUseCaseEnv(t)

	_, err := env.signIn.ExecuteBasic(context.Background(), "nobody@x.com", "Passw0rd!")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	env := newUseCaseEnv(t)
	ctx := context.Background()

	_, err := env.signUp.ExecuteBasic(ctx, "a@x.com", "A", "Passw0rd!")
	require.NoError(t, err)

	_, err = env.signUp.ExecuteBasic(ctx, "a@x.com", "A2", "0therPass!")
	require.ErrorIs(t, err, shared.ErrUserExists)

	_, err = env.signUp.ExecuteSocial(ctx, auth.ProviderGoogle, "a@x.com", "A3", "ext-1")
	require.ErrorIs(t, err, shared.ErrUserExists)
}

func TestSignUpSocial(t *testing.T) {
	env := newUseCaseEnv(t)
	ctx := context.Background()

	result, err := env.signUp.ExecuteSocial(ctx, auth.ProviderGoogle, "g@x.com", "G", "google-123")
	require.NoError(t, err)
	require.Equal(t, "active", result.User.Status)
	require.True(t, result.User.EmailVerified)

	provider, err := env.providers.GetByProviderInfo(ctx, auth.ProviderGoogle, "google-123")
	require.NoError(t, err)
	require.Equal(t, result.User.ID, provider.UserID)

	// Social accounts can sign in immediately.
	session, err := env.signIn.ExecuteSocial(ctx, auth.ProviderGoogle, "g@x.com", "google-123")
	require.NoError(t, err)
	require.NotEmpty(t, session.AccessToken)
}

func TestSignUpSocialRejectsBasicKind(t *testing.T) {
	env := newUseCaseEnv(t)

	_, err := env.signUp.ExecuteSocial(context.Background(), auth.ProviderBasic, "b@x.com", "B", "ext")
	require.ErrorIs(t, err, shared.ErrMalformedInput)
}

func TestSignInSocialNeverCreatesUsers(t *testing.T) {
	env := newUseCaseEnv(t)
	ctx := context.Background()

	_, err := env.signIn.ExecuteSocial(ctx, auth.ProviderMicrosoft, "new@x.com", "ms-1")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = env.users.GetByEmail(ctx, "new@x.com")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTokenValidationFlow(t *testing.T) {
	env := newUseCaseEnv(t)
	ctx := context.Background()

	_, err := env.signUp.ExecuteBasic(ctx, "v@x.com", "V", "Passw0rd!")
	require.NoError(t, err)
	user := env.activate(t, "v@x.com")

	signedIn, err := env.signIn.ExecuteBasic(ctx, "v@x.com", "Passw0rd!")
	require.NoError(t, err)

	result, err := env.validation.Execute(ctx, signedIn.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, result.User.ID)
	require.NotEmpty(t, result.SessionID)
	require.Equal(t, signedIn.ExpiresAt, result.ExpiresAt)

	// Refresh tokens are not accepted for validation.
	_, err = env.validation.Execute(ctx, signedIn.RefreshToken)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	// A token that verifies but has no session record is rejected.
	orphan, err := env.tokens.IssueAccess(user)
	require.NoError(t, err)
	_, err = env.validation.Execute(ctx, orphan)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestValidationRejectsIneligibleUser(t *testing.T) {
	env := newUseCaseEnv(t)
	ctx := context.Background()

	_, err := env.signUp.ExecuteBasic(ctx, "v@x.com", "V", "Passw0rd!")
	require.NoError(t, err)
	user := env.activate(t, "v@x.com")

	signedIn, err := env.signIn.ExecuteBasic(ctx, "v@x.com", "Passw0rd!")
	require.NoError(t, err)

	user.Status = auth.StatusSuspended
	_, err = env.users.Update(ctx, user)
	require.NoError(t, err)

	_, err = env.validation.Execute(ctx, signedIn.AccessToken)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRevokeUserSessions(t *testing.T) {
	env := newUseCaseEnv(t)
	ctx := context.Background()

	_, err := env.signUp.ExecuteBasic(ctx, "r@x.com", "R", "Passw0rd!")
	require.NoError(t, err)
	user := env.activate(t, "r@x.com")

	var lastAccess string
	for range 3 {
		result, err := env.signIn.ExecuteBasic(ctx, "r@x.com", "Passw0rd!")
		require.NoError(t, err)
		lastAccess = result.AccessToken
	}

	count, err := env.sessions.RevokeUserSessions(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	sessions, err := env.sessions.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	for _, session := range sessions {
		require.False(t, session.IsValid())
	}

	// Validation fails once the backing session is revoked.
	_, err = env.validation.Execute(ctx, lastAccess)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRefreshIssuesNewPair(t *testing.T) {
	env := newUseCaseEnv(t)
	ctx := context.Background()

	_, err := env.signUp.ExecuteBasic(ctx, "f@x.com", "F", "Passw0rd!")
	require.NoError(t, err)
	env.activate(t, "f@x.com")

	signedIn, err := env.signIn.ExecuteBasic(ctx, "f@x.com", "Passw0rd!")
	require.NoError(t, err)

	refreshed, err := env.validation.Refresh(ctx, signedIn.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
	require.NotEqual(t, signedIn.AccessToken, refreshed.AccessToken)
	require.WithinDuration(t, time.Now().Add(24*time.Hour), refreshed.ExpiresAt, time.Second)

	// Access tokens cannot be used to refresh.
	_, err = env.validation.Refresh(ctx, signedIn.AccessToken)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRefreshRejectsIneligibleUser(t *testing.T) {
	env := newUseCaseEnv(t)
	ctx := context.Background()

	_, err := env.signUp.ExecuteBasic(ctx, "f@x.com", "F", "Passw0rd!")
	require.NoError(t, err)
	user := env.activate(t, "f@x.com")

	signedIn, err := env.signIn.ExecuteBasic(ctx, "f@x.com", "Passw0rd!")
	require.NoError(t, err)

	user.Status = auth.StatusInactive
	_, err = env.users.Update(ctx, user)
	require.NoError(t, err)

	_, err = env.validation.Refresh(ctx, signedIn.RefreshToken)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRefreshIsDecoupledFromSessionStore(t *testing.T) {
	// Refresh deliberately skips the session store, so a revoked session
	// does not block refresh until the refresh token itself expires.
	env := newUseCaseEnv(t)
	ctx := context.Background()

	_, err := env.signUp.ExecuteBasic(ctx, "d@x.com", "D", "Passw0rd!")
	require.NoError(t, err)
	user := env.activate(t, "d@x.com")

	signedIn, err := env.signIn.ExecuteBasic(ctx, "d@x.com", "Passw0rd!")
	require.NoError(t, err)

	_, err = env.sessions.RevokeUserSessions(ctx, user.ID)
	require.NoError(t, err)

	refreshed, err := env.validation.Refresh(ctx, signedIn.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, refreshed.AccessToken)
}
