package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-id/aegis/internal/shared"
)

const uniqueViolation = "23505"

// PGUserRepository implements UserRepository using PostgreSQL.
type PGUserRepository struct {
	pool *pgxpool.Pool
}

// NewPGUserRepository constructs a PostgreSQL user repository.
func NewPGUserRepository(pool *pgxpool.Pool) *PGUserRepository {
	return &PGUserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Phone,
		&user.Role, &user.Status, &user.EmailVerified, &user.LastLoginAt,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

const userColumns = `id, email, name, password_hash, phone, role, status, email_verified, last_login_at, created_at, updated_at`

// Create inserts a user record. A duplicate email maps to ErrUserExists.
func (r *PGUserRepository) Create(ctx context.Context, user *User) (*User, error) {
	_, err := r.pool.Exec(ctx, `INSERT INTO users (`+userColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		user.ID, user.Email, user.Name, user.PasswordHash, user.Phone,
		string(user.Role), string(user.Status), user.EmailVerified, user.LastLoginAt,
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, shared.ErrUserExists
		}
		return nil, err
	}
	return user, nil
}

// GetByID fetches a user by ID.
func (r *PGUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail fetches a user by exact email match.
func (r *PGUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// Update overwrites the whole record, last write wins.
func (r *PGUserRepository) Update(ctx context.Context, user *User) (*User, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET email = $2, name = $3, password_hash = $4,
phone = $5, role = $6, status = $7, email_verified = $8, last_login_at = $9, updated_at = $10
WHERE id = $1`,
		user.ID, user.Email, user.Name, user.PasswordHash, user.Phone,
		string(user.Role), string(user.Status), user.EmailVerified, user.LastLoginAt, user.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

// Delete removes a user record.
func (r *PGUserRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// List returns users ordered by creation time.
func (r *PGUserRepository) List(ctx context.Context, limit, offset int) ([]*User, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users
ORDER BY created_at ASC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.Phone,
			&user.Role, &user.Status, &user.EmailVerified, &user.LastLoginAt,
			&user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &user)
	}
	return out, rows.Err()
}

// PGSessionRepository implements SessionRepository using PostgreSQL.
type PGSessionRepository struct {
	pool *pgxpool.Pool
}

// NewPGSessionRepository constructs a PostgreSQL session repository.
func NewPGSessionRepository(pool *pgxpool.Pool) *PGSessionRepository {
	return &PGSessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, access_token, refresh_token, expires_at, status, created_at, updated_at`

func scanSession(row pgx.Row) (*Session, error) {
	var session Session
	err := row.Scan(&session.ID, &session.UserID, &session.AccessToken, &session.RefreshToken,
		&session.ExpiresAt, &session.Status, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// Create inserts a session record.
func (r *PGSessionRepository) Create(ctx context.Context, session *Session) (*Session, error) {
	_, err := r.pool.Exec(ctx, `INSERT INTO auth_sessions (`+sessionColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID, session.UserID, session.AccessToken, session.RefreshToken,
		session.ExpiresAt, string(session.Status), session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetByID fetches a session by ID.
func (r *PGSessionRepository) GetByID(ctx context.Context, id string) (*Session, error) {
	return scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM auth_sessions WHERE id = $1`, id))
}

// GetByAccessToken fetches the session carrying the given access token.
func (r *PGSessionRepository) GetByAccessToken(ctx context.Context, accessToken string) (*Session, error) {
	return scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM auth_sessions WHERE access_token = $1`, accessToken))
}

// GetByUserID returns every session belonging to a user.
func (r *PGSessionRepository) GetByUserID(ctx context.Context, userID string) ([]*Session, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM auth_sessions
WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Session
	for rows.Next() {
		var session Session
		if err := rows.Scan(&session.ID, &session.UserID, &session.AccessToken, &session.RefreshToken,
			&session.ExpiresAt, &session.Status, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &session)
	}
	return out, rows.Err()
}

// Update overwrites the whole record.
func (r *PGSessionRepository) Update(ctx context.Context, session *Session) (*Session, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE auth_sessions SET access_token = $2, refresh_token = $3,
expires_at = $4, status = $5, updated_at = $6 WHERE id = $1`,
		session.ID, session.AccessToken, session.RefreshToken,
		session.ExpiresAt, string(session.Status), session.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return session, nil
}

// Delete removes a session record.
func (r *PGSessionRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RevokeUserSessions revokes every session of a user in one statement.
func (r *PGSessionRepository) RevokeUserSessions(ctx context.Context, userID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE auth_sessions SET status = $2, updated_at = NOW()
WHERE user_id = $1`, userID, string(SessionRevoked))
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// PGProviderRepository implements ProviderRepository using PostgreSQL.
type PGProviderRepository struct {
	pool *pgxpool.Pool
}

// NewPGProviderRepository constructs a PostgreSQL provider repository.
func NewPGProviderRepository(pool *pgxpool.Pool) *PGProviderRepository {
	return &PGProviderRepository{pool: pool}
}

const providerColumns = `id, user_id, kind, external_id, metadata, created_at, updated_at`

func scanProvider(row pgx.Row) (*Provider, error) {
	var provider Provider
	err := row.Scan(&provider.ID, &provider.UserID, &provider.Kind, &provider.ExternalID,
		&provider.Metadata, &provider.CreatedAt, &provider.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &provider, nil
}

// Create inserts a provider record.
func (r *PGProviderRepository) Create(ctx context.Context, provider *Provider) (*Provider, error) {
	_, err := r.pool.Exec(ctx, `INSERT INTO auth_providers (`+providerColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		provider.ID, provider.UserID, string(provider.Kind), provider.ExternalID,
		provider.Metadata, provider.CreatedAt, provider.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return provider, nil
}

// GetByID fetches a provider record by ID.
func (r *PGProviderRepository) GetByID(ctx context.Context, id string) (*Provider, error) {
	return scanProvider(r.pool.QueryRow(ctx, `SELECT `+providerColumns+` FROM auth_providers WHERE id = $1`, id))
}

// GetByUserID returns every provider linked to a user.
func (r *PGProviderRepository) GetByUserID(ctx context.Context, userID string) ([]*Provider, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+providerColumns+` FROM auth_providers
WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Provider
	for rows.Next() {
		var provider Provider
		if err := rows.Scan(&provider.ID, &provider.UserID, &provider.Kind, &provider.ExternalID,
			&provider.Metadata, &provider.CreatedAt, &provider.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &provider)
	}
	return out, rows.Err()
}

// GetByProviderInfo fetches a provider record by kind and external ID.
func (r *PGProviderRepository) GetByProviderInfo(ctx context.Context, kind ProviderKind, externalID string) (*Provider, error) {
	return scanProvider(r.pool.QueryRow(ctx, `SELECT `+providerColumns+` FROM auth_providers
WHERE kind = $1 AND external_id = $2`, string(kind), externalID))
}

// Update overwrites the whole record.
func (r *PGProviderRepository) Update(ctx context.Context, provider *Provider) (*Provider, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE auth_providers SET external_id = $2, metadata = $3,
updated_at = $4 WHERE id = $1`,
		provider.ID, provider.ExternalID, provider.Metadata, provider.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, shared.ErrNotFound
	}
	return provider, nil
}

// Delete removes a provider record.
func (r *PGProviderRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM auth_providers WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

var (
	_ UserRepository     = (*PGUserRepository)(nil)
	_ SessionRepository  = (*PGSessionRepository)(nil)
	_ ProviderRepository = (*PGProviderRepository)(nil)
)
