// Package cart exposes the persisted cart of authenticated customers.
// Cart mutation (add/remove) is owned by a separate collaborator; checkout
// only reads a customer's cart and clears it once an order is placed.
package cart

import "context"

// Item is a persisted cart row for one customer and product.
type Item struct {
	CustomerID int64
	ProductID  int64
	Quantity   int
}

// Repository provides read access to persisted carts. Clearing happens inside
// the order write transaction, not through this interface.
type Repository interface {
	ItemsFor(ctx context.Context, customerID int64) ([]Item, error)
}
