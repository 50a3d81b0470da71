package identity

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Resolver turns request credentials into a tagged Identity.
//
// Tokens and API keys are opaque bearer strings. They are never stored or
// compared in the clear: the resolver computes an HMAC-SHA256 hash with a
// server-side pepper and looks the hash up in storage.
type Resolver struct {
	sessions SessionRepository
	apikeys  APIKeyRepository
	pepper   []byte
	now      func() time.Time
}

// NewResolver creates a Resolver over the given repositories.
func NewResolver(sessions SessionRepository, apikeys APIKeyRepository, pepper []byte) *Resolver {
	return &Resolver{
		sessions: sessions,
		apikeys:  apikeys,
		pepper:   pepper,
		now:      time.Now,
	}
}

// Resolve determines the caller identity from an optional API key and an
// optional session token. An API key wins over a session token. Absent,
// unknown, or expired credentials resolve to Guest; Resolve never fails the
// request, so guest checkout stays possible with a stale token. Authorization
// enforcement is the caller's concern.
func (r *Resolver) Resolve(ctx context.Context, apiKey, sessionToken string) Identity {
	if apiKey != "" {
		if info, err := r.apikeys.FindByHash(ctx, r.hash(apiKey)); err == nil {
			return Admin(info.Scopes)
		}
	}

	if sessionToken != "" {
		sess, err := r.sessions.FindByHash(ctx, r.hash(sessionToken))
		switch {
		case err != nil:
			zctx.From(ctx).Debug("Session token did not resolve", zap.Error(err))
		case sess.ExpiresAt.Before(r.now()):
			zctx.From(ctx).Debug("Session token expired",
				zap.Time("expires_at", sess.ExpiresAt))
		default:
			return Customer(sess.CustomerID)
		}
	}

	return Guest()
}

func (r *Resolver) hash(token string) string {
	return HashToken(r.pepper, token)
}

// HashToken computes the storable hash for a raw token. Seeding and tests use
// it so hashing stays in one place.
func HashToken(pepper []byte, token string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}
