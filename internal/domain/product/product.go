// Package product defines the catalog read surface consumed by checkout.
// Catalog management itself lives outside this service.
package product

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is a catalog item. Price is the authoritative unit price; any price
// a client supplies alongside an item id is ignored by the checkout pipeline.
type Product struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	Category string
}

// Repository defines read operations over the catalog. Checkout resolves all
// line items in one batch, so a single-product lookup is not part of the
// surface.
type Repository interface {
	GetByIDs(ctx context.Context, ids []int64) ([]Product, error)
}
