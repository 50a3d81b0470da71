package handler

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/identity"
	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/order"
)

// Handler exposes the checkout and order query operations over HTTP,
// delegating business logic to the injected domain services.
type Handler struct {
	identities *identity.Resolver
	checkout   *order.Service
	queries    *order.Queries
	validate   *validator.Validate
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(identities *identity.Resolver, checkout *order.Service, queries *order.Queries) *Handler {
	return &Handler{
		identities: identities,
		checkout:   checkout,
		queries:    queries,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Register mounts the order routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders", h.PlaceOrder)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
}

// identityFrom resolves the caller identity from the request credentials.
// A missing or invalid credential yields a guest, never an error.
func (h *Handler) identityFrom(r *http.Request) identity.Identity {
	return h.identities.Resolve(r.Context(), r.Header.Get("api_key"), sessionToken(r))
}

// sessionToken extracts the bearer token from the Authorization header.
func sessionToken(r *http.Request) string {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}
