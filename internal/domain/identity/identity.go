// Package identity resolves the caller identity for checkout and order reads.
package identity

import (
	"context"
	"slices"
	"time"
)

// Kind discriminates the identity union.
type Kind int

const (
	// KindGuest is an unauthenticated caller. Guest checkout is supported,
	// so resolving to Guest is never an error on the write path.
	KindGuest Kind = iota
	// KindCustomer is an authenticated storefront customer.
	KindCustomer
	// KindAdmin is a back-office caller authenticated by API key.
	KindAdmin
)

// ScopeViewOrders allows an admin identity to list orders across all customers.
const ScopeViewOrders = "orders:view"

// Identity is the resolved caller identity. Exactly one of the constructors
// below produces a valid value; the zero value is Guest.
type Identity struct {
	kind       Kind
	customerID int64
	scopes     []string
}

// Guest returns the unauthenticated identity.
func Guest() Identity {
	return Identity{kind: KindGuest}
}

// Customer returns an identity for the given customer id.
func Customer(id int64) Identity {
	return Identity{kind: KindCustomer, customerID: id}
}

// Admin returns a back-office identity carrying the given scopes.
func Admin(scopes []string) Identity {
	return Identity{kind: KindAdmin, scopes: scopes}
}

// Kind returns the identity discriminator.
func (i Identity) Kind() Kind { return i.kind }

// IsCustomer reports whether the identity is an authenticated customer.
func (i Identity) IsCustomer() bool { return i.kind == KindCustomer }

// CustomerID returns the customer id and whether the identity is a customer.
func (i Identity) CustomerID() (int64, bool) {
	return i.customerID, i.kind == KindCustomer
}

// HasScope reports whether an admin identity carries the given scope.
// Non-admin identities never have scopes.
func (i Identity) HasScope(scope string) bool {
	return i.kind == KindAdmin && slices.Contains(i.scopes, scope)
}

// Session is a customer session row as stored (token hash, owner, expiry).
type Session struct {
	TokenHash  string
	CustomerID int64
	ExpiresAt  time.Time
}

// APIKeyInfo holds the identity and permission data for a validated API key.
type APIKeyInfo struct {
	ID      int64
	KeyHash string
	Name    string
	Scopes  []string
}

// SessionRepository provides session lookups by token hash.
type SessionRepository interface {
	FindByHash(ctx context.Context, hash string) (*Session, error)
}

// APIKeyRepository provides API key lookups by key hash.
type APIKeyRepository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
