package identity

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNotFound = errors.New("not found")

type mockSessions struct {
	byHash map[string]*Session
}

func (m *mockSessions) FindByHash(_ context.Context, hash string) (*Session, error) {
	if s, ok := m.byHash[hash]; ok {
		return s, nil
	}
	return nil, errNotFound
}

type mockAPIKeys struct {
	byHash map[string]*APIKeyInfo
}

func (m *mockAPIKeys) FindByHash(_ context.Context, hash string) (*APIKeyInfo, error) {
	if k, ok := m.byHash[hash]; ok {
		return k, nil
	}
	return nil, errNotFound
}

func newResolver(t *testing.T, sessions *mockSessions, apikeys *mockAPIKeys) *Resolver {
	t.Helper()
	if sessions == nil {
		sessions = &mockSessions{}
	}
	if apikeys == nil {
		apikeys = &mockAPIKeys{}
	}
	r := NewResolver(sessions, apikeys, []byte("pepper"))
	r.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return r
}

func TestResolve_NoCredentials(t *testing.T) {
	r := newResolver(t, nil, nil)

	ident := r.Resolve(context.Background(), "", "")
	assert.Equal(t, KindGuest, ident.Kind())
}

func TestResolve_ValidSession(t *testing.T) {
	hash := HashToken([]byte("pepper"), "tok-123")
	sessions := &mockSessions{byHash: map[string]*Session{
		hash: {TokenHash: hash, CustomerID: 42, ExpiresAt: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)},
	}}
	r := newResolver(t, sessions, nil)

	ident := r.Resolve(context.Background(), "", "tok-123")
	id, ok := ident.CustomerID()
	require.True(t, ok)
	assert.Equal(t, int64(42), id)
}

func TestResolve_ExpiredSession(t *testing.T) {
	hash := HashToken([]byte("pepper"), "tok-123")
	sessions := &mockSessions{byHash: map[string]*Session{
		hash: {TokenHash: hash, CustomerID: 42, ExpiresAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)},
	}}
	r := newResolver(t, sessions, nil)

	ident := r.Resolve(context.Background(), "", "tok-123")
	assert.Equal(t, KindGuest, ident.Kind())
}

func TestResolve_UnknownToken(t *testing.T) {
	r := newResolver(t, nil, nil)

	ident := r.Resolve(context.Background(), "", "garbage")
	assert.Equal(t, KindGuest, ident.Kind())
}

func TestResolve_APIKey(t *testing.T) {
	hash := HashToken([]byte("pepper"), "admin-key")
	apikeys := &mockAPIKeys{byHash: map[string]*APIKeyInfo{
		hash: {ID: 1, KeyHash: hash, Name: "ops", Scopes: []string{ScopeViewOrders}},
	}}
	r := newResolver(t, nil, apikeys)

	ident := r.Resolve(context.Background(), "admin-key", "")
	assert.Equal(t, KindAdmin, ident.Kind())
	assert.True(t, ident.HasScope(ScopeViewOrders))
	assert.False(t, ident.HasScope("orders:write"))
}

func TestResolve_APIKeyWinsOverSession(t *testing.T) {
	keyHash := HashToken([]byte("pepper"), "admin-key")
	sessHash := HashToken([]byte("pepper"), "tok-123")
	apikeys := &mockAPIKeys{byHash: map[string]*APIKeyInfo{
		keyHash: {ID: 1, KeyHash: keyHash, Name: "ops", Scopes: nil},
	}}
	sessions := &mockSessions{byHash: map[string]*Session{
		sessHash: {TokenHash: sessHash, CustomerID: 42, ExpiresAt: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)},
	}}
	r := newResolver(t, sessions, apikeys)

	ident := r.Resolve(context.Background(), "admin-key", "tok-123")
	assert.Equal(t, KindAdmin, ident.Kind())
}
