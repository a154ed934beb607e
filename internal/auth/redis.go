package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aegis-id/aegis/internal/shared"
)

const defaultSessionRetention = 31 * 24 * time.Hour

// RedisSessionRepository stores sessions in Redis. The record lives at a
// session key, with an access-token index key and a per-user set for the
// bulk operations. Expired and revoked records are kept around for the
// retention window so they stay inspectable; validity is always judged
// lazily from the payload, never from key expiry.
type RedisSessionRepository struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
}

// NewRedisSessionRepository constructs a Redis-backed session store.
func NewRedisSessionRepository(client *redis.Client, prefix string) *RedisSessionRepository {
	if prefix == "" {
		prefix = "aegis"
	}
	return &RedisSessionRepository{
		client:    client,
		prefix:    prefix,
		retention: defaultSessionRetention,
	}
}

type sessionRecord struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r *RedisSessionRepository) sessionKey(id string) string {
	return r.prefix + ":session:" + id
}

func (r *RedisSessionRepository) tokenKey(accessToken string) string {
	return r.prefix + ":session:token:" + accessToken
}

func (r *RedisSessionRepository) userKey(userID string) string {
	return r.prefix + ":session:user:" + userID
}

func (r *RedisSessionRepository) keyTTL(s *Session) time.Duration {
	ttl := time.Until(s.ExpiresAt) + r.retention
	if ttl < r.retention {
		ttl = r.retention
	}
	return ttl
}

func (r *RedisSessionRepository) save(ctx context.Context, s *Session) error {
	record := sessionRecord{
		ID:           s.ID,
		UserID:       s.UserID,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt,
		Status:       string(s.Status),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	ttl := r.keyTTL(s)
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(s.ID), payload, ttl)
	pipe.Set(ctx, r.tokenKey(s.AccessToken), s.ID, ttl)
	pipe.SAdd(ctx, r.userKey(s.UserID), s.ID)
	pipe.Expire(ctx, r.userKey(s.UserID), ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisSessionRepository) load(ctx context.Context, id string) (*Session, error) {
	payload, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	var record sessionRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, err
	}
	return &Session{
		ID:           record.ID,
		UserID:       record.UserID,
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		ExpiresAt:    record.ExpiresAt,
		Status:       SessionStatus(record.Status),
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}, nil
}

// Create persists a new session.
func (r *RedisSessionRepository) Create(ctx context.Context, session *Session) (*Session, error) {
	if err := r.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// GetByID fetches a session by ID.
func (r *RedisSessionRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	return r.load(ctx, id)
}

// GetByAccessToken resolves the token index and loads the session.
func (r *RedisSessionRepository) GetByAccessToken(ctx context.Context, accessToken string) (*Session, error) {
	id, err := r.client.Get(ctx, r.tokenKey(accessToken)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return r.load(ctx, id)
}

// GetByUserID returns every stored session of a user. Index entries whose
// record already fell out of retention are skipped.
func (r *RedisSessionRepository) GetByUserID(ctx context.Context, userID string) ([]*Session, error) {
	ids, err := r.client.SMembers(ctx, r.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var out []*Session
	for _, id := range ids {
		session, err := r.load(ctx, id)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, session)
	}
	return out, nil
}

// Update overwrites the stored record.
func (r *RedisSessionRepository) Update(ctx context.Context, session *Session) (*Session, error) {
	if _, err := r.load(ctx, session.ID); err != nil {
		return nil, err
	}
	if err := r.save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Delete removes the session record and its indexes.
func (r *RedisSessionRepository) Delete(ctx context.Context, id string) (bool, error) {
	session, err := r.load(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.sessionKey(id))
	pipe.Del(ctx, r.tokenKey(session.AccessToken))
	pipe.SRem(ctx, r.userKey(session.UserID), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// RevokeUserSessions revokes every stored session of a user.
func (r *RedisSessionRepository) RevokeUserSessions(ctx context.Context, userID string) (int, error) {
	sessions, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, session := range sessions {
		session.Revoke()
		if err := r.save(ctx, session); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

var _ SessionRepository = (*RedisSessionRepository)(nil)
