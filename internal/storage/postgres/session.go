package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/identity"
)

const (
	getSessionByHashSQL = `SELECT token_hash, customer_id, expires_at
		FROM sessions WHERE token_hash = $1`

	getAPIKeyByHashSQL = `SELECT id, key_hash, name, scopes
		FROM api_keys WHERE key_hash = $1`
)

var (
	_ identity.SessionRepository = (*SessionRepository)(nil)
	_ identity.APIKeyRepository  = (*APIKeyRepository)(nil)
)

// SessionRepository provides customer session lookups backed by PostgreSQL.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository returns a SessionRepository that uses the given pool.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// FindByHash looks up a session by its token hash. Expiry is checked by the
// identity resolver, not here.
func (r *SessionRepository) FindByHash(ctx context.Context, hash string) (*identity.Session, error) {
	var s identity.Session
	err := r.pool.QueryRow(ctx, getSessionByHashSQL, hash).
		Scan(&s.TokenHash, &s.CustomerID, &s.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrap(err, "session not found")
		}
		return nil, errors.Wrap(err, "find session")
	}
	return &s, nil
}

// APIKeyRepository provides API key lookups backed by PostgreSQL.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash looks up an API key by its HMAC-SHA256 hash.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*identity.APIKeyInfo, error) {
	var info identity.APIKeyInfo
	err := r.pool.QueryRow(ctx, getAPIKeyByHashSQL, hash).
		Scan(&info.ID, &info.KeyHash, &info.Name, &info.Scopes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrap(err, "api key not found")
		}
		return nil, errors.Wrap(err, "find api key")
	}
	return &info, nil
}
