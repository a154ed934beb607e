package auth_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aegis-id/aegis/internal/auth"
	"github.com/aegis-id/aegis/internal/shared"
	_ "github.com/aegis-id/aegis/testing"
)

func newRedisRepo(t *testing.T) *auth.RedisSessionRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return auth.NewRedisSessionRepository(client, "test")
}

func TestRedisSessionRepositoryRoundTrip(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()

	session := auth.NewSession("u-1", "access-1", "refresh-1", time.Hour)
	_, err := repo.Create(ctx, session)
	require.NoError(t, err)

	byID, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, session.UserID, byID.UserID)
	require.Equal(t, session.AccessToken, byID.AccessToken)
	require.True(t, session.ExpiresAt.Equal(byID.ExpiresAt))
	require.Equal(t, auth.SessionActive, byID.Status)

	byToken, err := repo.GetByAccessToken(ctx, "access-1")
	require.NoError(t, err)
	require.Equal(t, session.ID, byToken.ID)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.GetByAccessToken(ctx, "missing")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRedisSessionRepositoryUpdate(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()

	session := auth.NewSession("u-1", "access-1", "refresh-1", time.Hour)
	_, err := repo.Create(ctx, session)
	require.NoError(t, err)

	session.Revoke()
	_, err = repo.Update(ctx, session)
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, auth.SessionRevoked, stored.Status)

	missing := auth.NewSession("u-2", "access-2", "refresh-2", time.Hour)
	_, err = repo.Update(ctx, missing)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRedisSessionRepositoryByUser(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()

	for i := range 3 {
		session := auth.NewSession("u-1", fmt.Sprintf("access-%d", i), "refresh", time.Hour)
		_, err := repo.Create(ctx, session)
		require.NoError(t, err)
	}
	other := auth.NewSession("u-2", "other-access", "refresh", time.Hour)
	_, err := repo.Create(ctx, other)
	require.NoError(t, err)

	sessions, err := repo.GetByUserID(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, sessions, 3)

	count, err := repo.RevokeUserSessions(ctx, "u-1")
	require.NoError(t, err)
	require.Equal(t, 3, count)

	sessions, err = repo.GetByUserID(ctx, "u-1")
	require.NoError(t, err)
	for _, session := range sessions {
		require.Equal(t, auth.SessionRevoked, session.Status)
		require.False(t, session.IsValid())
	}

	untouched, err := repo.GetByID(ctx, other.ID)
	require.NoError(t, err)
	require.Equal(t, auth.SessionActive, untouched.Status)
}

func TestRedisSessionRepositoryDelete(t *testing.T) {
	repo := newRedisRepo(t)
	ctx := context.Background()

	session := auth.NewSession("u-1", "access-1", "refresh-1", time.Hour)
	_, err := repo.Create(ctx, session)
	require.NoError(t, err)

	ok, err := repo.Delete(ctx, session.ID)
	require.NoError(t, err)
	require.True(t, ok)

	// Record and token index are both gone.
	_, err = repo.GetByID(ctx, session.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.GetByAccessToken(ctx, "access-1")
	require.ErrorIs(t, err, shared.ErrNotFound)

	sessions, err := repo.GetByUserID(ctx, "u-1")
	require.NoError(t, err)
	require.Empty(t, sessions)

	ok, err = repo.Delete(ctx, session.ID)
	require.NoError(t, err)
	require.False(t, ok)
}
