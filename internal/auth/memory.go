package auth

import (
	"context"
	"sort"
	"sync"

	"github.com/aegis-id/aegis/internal/shared"
)

// MemoryUserRepository is a mutex-guarded in-memory UserRepository.
// Updates follow last-write-wins, whole-record overwrite.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryUserRepository constructs an empty in-memory user store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]User)}
}

// Create stores a new user. Email uniqueness is enforced here since the
// map offers no constraint of its own.
func (r *MemoryUserRepository) Create(ctx context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return nil, shared.ErrUserExists
		}
	}
	r.users[user.ID] = *user
	stored := r.users[user.ID]
	return &stored, nil
}

// GetByID fetches a user by ID.
func (r *MemoryUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &user, nil
}

// GetByEmail fetches a user by exact email match.
func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

// Update overwrites the stored record.
func (r *MemoryUserRepository) Update(ctx context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return nil, shared.ErrNotFound
	}
	r.users[user.ID] = *user
	stored := r.users[user.ID]
	return &stored, nil
}

// Delete removes a user record.
func (r *MemoryUserRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}

// List returns users ordered by creation time.
func (r *MemoryUserRepository) List(ctx context.Context, limit, offset int) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]User, 0, len(r.users))
	for _, user := range r.users {
		all = append(all, user)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	out := make([]*User, len(all))
	for i := range all {
		out[i] = &all[i]
	}
	return out, nil
}

// MemorySessionRepository is a mutex-guarded in-memory SessionRepository.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemorySessionRepository constructs an empty in-memory session store.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]Session)}
}

// Create stores a new session.
func (r *MemorySessionRepository) Create(ctx context.Context, session *Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = *session
	stored := r.sessions[session.ID]
	return &stored, nil
}

// GetByID fetches a session by ID.
func (r *MemorySessionRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &session, nil
}

// GetByAccessToken fetches the session carrying the given access token.
func (r *MemorySessionRepository) GetByAccessToken(ctx context.Context, accessToken string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, session := range r.sessions {
		if session.AccessToken == accessToken {
			found := session
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

// GetByUserID returns every session belonging to a user.
func (r *MemorySessionRepository) GetByUserID(ctx context.Context, userID string) ([]*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Session
	for _, session := range r.sessions {
		if session.UserID == userID {
			found := session
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Update overwrites the stored record.
func (r *MemorySessionRepository) Update(ctx context.Context, session *Session) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return nil, shared.ErrNotFound
	}
	r.sessions[session.ID] = *session
	stored := r.sessions[session.ID]
	return &stored, nil
}

// Delete removes a session record.
func (r *MemorySessionRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false, nil
	}
	delete(r.sessions, id)
	return true, nil
}

// RevokeUserSessions revokes every session of a user.
func (r *MemorySessionRepository) RevokeUserSessions(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, session := range r.sessions {
		if session.UserID != userID {
			continue
		}
		session.Revoke()
		r.sessions[id] = session
		count++
	}
	return count, nil
}

// MemoryProviderRepository is a mutex-guarded in-memory ProviderRepository.
type MemoryProviderRepository struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewMemoryProviderRepository constructs an empty in-memory provider store.
func NewMemoryProviderRepository() *MemoryProviderRepository {
	return &MemoryProviderRepository{providers: make(map[string]Provider)}
}

// Create stores a new provider record.
func (r *MemoryProviderRepository) Create(ctx context.Context, provider *Provider) (*Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.ID] = *provider
	stored := r.providers[provider.ID]
	return &stored, nil
}

// GetByID fetches a provider record by ID.
func (r *MemoryProviderRepository) GetByID(ctx context.Context, id string) (*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	provider, ok := r.providers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &provider, nil
}

// GetByUserID returns every provider linked to a user.
func (r *MemoryProviderRepository) GetByUserID(ctx context.Context, userID string) ([]*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Provider
	for _, provider := range r.providers {
		if provider.UserID == userID {
			found := provider
			out = append(out, &found)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// GetByProviderInfo fetches a provider record by kind and external ID.
func (r *MemoryProviderRepository) GetByProviderInfo(ctx context.Context, kind ProviderKind, externalID string) (*Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, provider := range r.providers {
		if provider.Kind == kind && provider.ExternalID == externalID {
			found := provider
			return &found, nil
		}
	}
	return nil, shared.ErrNotFound
}

// Update overwrites the stored record.
func (r *MemoryProviderRepository) Update(ctx context.Context, provider *Provider) (*Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[provider.ID]; !ok {
		return nil, shared.ErrNotFound
	}
	r.providers[provider.ID] = *provider
	stored := r.providers[provider.ID]
	return &stored, nil
}

// Delete removes a provider record.
func (r *MemoryProviderRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[id]; !ok {
		return false, nil
	}
	delete(r.providers, id)
	return true, nil
}

var (
	_ UserRepository     = (*MemoryUserRepository)(nil)
	_ SessionRepository  = (*MemorySessionRepository)(nil)
	_ ProviderRepository = (*MemoryProviderRepository)(nil)
)
