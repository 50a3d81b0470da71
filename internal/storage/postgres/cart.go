package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/cart"
)

const getCartItemsSQL = `SELECT customer_id, product_id, quantity
	FROM cart_items WHERE customer_id = $1`

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository reads persisted carts. Clearing a cart is part of the order
// write transaction in OrderRepository.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// ItemsFor returns the persisted cart rows of the given customer.
func (r *CartRepository) ItemsFor(ctx context.Context, customerID int64) ([]cart.Item, error) {
	rows, err := r.pool.Query(ctx, getCartItemsSQL, customerID)
	if err != nil {
		return nil, errors.Wrapf(err, "load cart for customer %d", customerID)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Item, error) {
		var item cart.Item
		err := row.Scan(&item.CustomerID, &item.ProductID, &item.Quantity)
		return item, err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "load cart for customer %d", customerID)
	}
	return items, nil
}
