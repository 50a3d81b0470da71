package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/identity"
)

type listRecorder struct {
	lastFilter Filter
	orders     []Order
	total      int64
	err        error
}

func (r *listRecorder) Create(_ context.Context, _ *Order) error { return nil }

func (r *listRecorder) List(_ context.Context, f Filter) ([]Order, int64, error) {
	r.lastFilter = f
	return r.orders, r.total, r.err
}

func TestList_GuestRejected(t *testing.T) {
	q := NewQueries(&listRecorder{})

	_, err := q.List(context.Background(), identity.Guest(), ListRequest{})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestList_AdminWithoutScopeRejected(t *testing.T) {
	q := NewQueries(&listRecorder{})

	_, err := q.List(context.Background(), identity.Admin([]string{"products:write"}), ListRequest{})
	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestList_AdminSeesAll(t *testing.T) {
	repo := &listRecorder{total: 3}
	q := NewQueries(repo)

	page, err := q.List(context.Background(),
		identity.Admin([]string{identity.ScopeViewOrders}),
		ListRequest{Status: StatusShipped, Search: "reyes"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Nil(t, repo.lastFilter.CustomerID, "admin listing is not owner-scoped")
	assert.Equal(t, StatusShipped, repo.lastFilter.Status)
	assert.Equal(t, "reyes", repo.lastFilter.Search)
}

func TestList_CustomerForcedToOwnOrders(t *testing.T) {
	repo := &listRecorder{
		orders: []Order{{ID: 1, OrderNumber: "ORD-1", CreatedAt: time.Now()}},
		total:  1,
	}
	q := NewQueries(repo)

	// Even a filter crafted to look at other data stays scoped to the caller.
	page, err := q.List(context.Background(), identity.Customer(42),
		ListRequest{Search: "someone@else.example"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.NotNil(t, repo.lastFilter.CustomerID)
	assert.Equal(t, int64(42), *repo.lastFilter.CustomerID)
}

func TestList_PaginationClamped(t *testing.T) {
	repo := &listRecorder{}
	q := NewQueries(repo)

	_, err := q.List(context.Background(), identity.Customer(1),
		ListRequest{Limit: 10_000, Offset: -5})
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize, repo.lastFilter.Limit)
	assert.Equal(t, 0, repo.lastFilter.Offset)
}
