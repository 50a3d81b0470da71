// Package order implements the checkout pipeline and the order query surface.
package order

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/shipping"
)

// Status is the fulfillment state of an order. Orders are created pending;
// later transitions belong to a fulfillment workflow outside this service.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Address is the validated shipping destination stored with the order.
type Address struct {
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
}

// Format renders the address as a single human-readable block.
func (a Address) Format() string {
	parts := []string{a.Name, a.Street, a.PostalCode + " " + a.City, a.Country}
	return strings.Join(parts, "\n")
}

// LineItem is one order position. UnitPrice is the authoritative catalog
// price snapshotted at order time; it never changes afterwards, regardless
// of later catalog updates.
type LineItem struct {
	ProductID int64
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Order is the durable result of a checkout. CustomerID is nil for guest
// orders. Subtotal and CouponCode exist only for the write path: the subtotal
// lets the writer re-derive the total when a coupon redemption loses the
// race, and the code names the cart rule to decrement.
type Order struct {
	ID          int64
	CustomerID  *int64
	OrderNumber string
	Status      Status

	Items           []LineItem
	Subtotal        decimal.Decimal
	DiscountTotal   decimal.Decimal
	ShippingCost    decimal.Decimal
	TotalAmount     decimal.Decimal
	CouponCode      string
	ShippingAddress Address
	PaymentMethod   string
	ShippingMethod  shipping.Method

	CreatedAt time.Time
}

// ComputeTotal derives the order total: subtotal minus discount plus shipping,
// floored at zero and rounded to 2 decimal places.
func ComputeTotal(subtotal, discount, shippingCost decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount).Add(shippingCost)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return total.Round(2)
}

// Filter narrows an order listing. A nil CustomerID means no owner filter;
// the query service forces it for customer callers.
type Filter struct {
	CustomerID *int64
	Status     Status
	Search     string
	Limit      int
	Offset     int
}

// Repository defines persistence for orders.
//
// Create persists the order header, its items, redeems the coupon, and clears
// the customer's persisted cart in one transaction. When the coupon's
// remaining budget is exhausted by a concurrent checkout, Create downgrades
// DiscountTotal to zero and re-derives TotalAmount before inserting; the
// mutated order reflects what was persisted. ID and CreatedAt are filled in.
//
// List returns a page of orders, most recent first, and the total count of
// orders matching the filter (ignoring Limit/Offset).
type Repository interface {
	Create(ctx context.Context, o *Order) error
	List(ctx context.Context, f Filter) ([]Order, int64, error)
}
