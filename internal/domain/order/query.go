package order

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/identity"
)

// ErrUnauthorized is returned when neither an admin key with the view-orders
// scope nor a customer session authorizes the listing.
var ErrUnauthorized = errors.New("not authorized to list orders")

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListRequest carries the caller-supplied listing parameters.
type ListRequest struct {
	Limit  int
	Offset int
	Status Status
	Search string
}

// Page is one page of orders together with the total count of orders
// matching the filter.
type Page struct {
	Orders []Order
	Total  int64
}

// Queries is the role-gated read path over persisted orders. It shares only
// the identity model and the order storage schema with the write path.
type Queries struct {
	orders Repository
}

// NewQueries creates the order query service.
func NewQueries(orders Repository) *Queries {
	return &Queries{orders: orders}
}

// List returns orders visible to the caller, most recent first.
//
// An admin carrying the view-orders scope sees all orders with filters
// applied globally. A customer is always restricted to their own orders,
// regardless of any supplied filter. Anyone else is rejected; nothing about
// other customers' orders leaks through the error.
func (q *Queries) List(ctx context.Context, ident identity.Identity, req ListRequest) (*Page, error) {
	f := Filter{
		Status: req.Status,
		Search: req.Search,
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if f.Limit <= 0 || f.Limit > maxPageSize {
		f.Limit = defaultPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	switch {
	case ident.HasScope(identity.ScopeViewOrders):
		// Unrestricted listing.
	case ident.IsCustomer():
		id, _ := ident.CustomerID()
		f.CustomerID = &id
	default:
		return nil, ErrUnauthorized
	}

	orders, total, err := q.orders.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	return &Page{Orders: orders, Total: total}, nil
}
