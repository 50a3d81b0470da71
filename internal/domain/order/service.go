package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/cart"
	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/coupon"
	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/identity"
	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/product"
	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/shipping"
	"github.com/Yemenione/YEMEN-KAF-sub001/internal/notify"
)

// DefaultPaymentMethod is used when the request omits a payment method.
const DefaultPaymentMethod = "cash_on_delivery"

// Sentinel errors for checkout validation.
var (
	// ErrNoItems means the request carried no items and no persisted cart
	// could supply any: guests must submit explicit items, and a customer's
	// cart may be empty.
	ErrNoItems = errors.New("order has no items")
	// ErrNoValidItems means every submitted item referenced a product that
	// no longer exists in the catalog.
	ErrNoValidItems = errors.New("no valid items in order")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID int64
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %d", e.ProductID)
}

// ItemInput is a candidate line item as submitted by the client. It carries
// no price on purpose: the wire schema has no price field, so a client-claimed
// price cannot even reach the pipeline.
type ItemInput struct {
	ProductID int64
	Quantity  int
}

// CheckoutRequest is the input to the checkout pipeline.
type CheckoutRequest struct {
	Identity        identity.Identity
	Items           []ItemInput
	CouponCode      string
	ShippingAddress Address
	PaymentMethod   string
	ShippingMethod  shipping.Method
}

// Receipt is the client-facing result of a successful checkout.
type Receipt struct {
	OrderID     int64
	OrderNumber string
	TotalAmount decimal.Decimal
}

// CouponEvaluator computes the discount for a coupon code against a subtotal.
type CouponEvaluator interface {
	Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (coupon.Result, error)
}

// Service runs the checkout pipeline: line-item resolution, price
// verification, coupon evaluation, shipping cost, durable write, and a
// contained confirmation dispatch.
type Service struct {
	products product.Repository
	carts    cart.Repository
	coupons  CouponEvaluator
	shipping shipping.Resolver
	orders   Repository
	notifier notify.Dispatcher
	store    notify.Store

	notifyTimeout time.Duration
	now           func() time.Time
}

// NewService creates a checkout Service with the required collaborators.
func NewService(
	products product.Repository,
	carts cart.Repository,
	coupons CouponEvaluator,
	shippingCosts shipping.Resolver,
	orders Repository,
	notifier notify.Dispatcher,
	store notify.Store,
) *Service {
	return &Service{
		products:      products,
		carts:         carts,
		coupons:       coupons,
		shipping:      shippingCosts,
		orders:        orders,
		notifier:      notifier,
		store:         store,
		notifyTimeout: 5 * time.Second,
		now:           time.Now,
	}
}

// Checkout converts a cart into a durable order and returns the receipt.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Receipt, error) {
	lg := zctx.From(ctx)

	candidates, err := s.resolveItems(ctx, req)
	if err != nil {
		return nil, err
	}

	for _, item := range candidates {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
	}

	lines, subtotal, err := s.verifyPrices(ctx, candidates)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrNoValidItems
	}

	discount, err := s.coupons.Evaluate(ctx, req.CouponCode, subtotal)
	if err != nil {
		return nil, errors.Wrap(err, "evaluate coupon")
	}
	if req.CouponCode != "" && !discount.Applied() {
		// Invalid coupons are silent towards the caller; the reason is kept
		// server-side so a later API version can surface it.
		lg.Info("Coupon not applied",
			zap.String("code", req.CouponCode),
			zap.String("reason", string(discount.Reason)))
	}

	shippingCost, err := s.shipping.Cost(ctx, req.ShippingMethod, req.ShippingAddress.Country)
	if err != nil {
		return nil, errors.Wrap(err, "resolve shipping cost")
	}

	paymentMethod := req.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}

	o := &Order{
		CustomerID:      customerIDOf(req.Identity),
		OrderNumber:     s.newOrderNumber(),
		Status:          StatusPending,
		Items:           lines,
		Subtotal:        subtotal,
		DiscountTotal:   discount.Amount,
		ShippingCost:    shippingCost,
		TotalAmount:     ComputeTotal(subtotal, discount.Amount, shippingCost),
		CouponCode:      discount.Code,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   paymentMethod,
		ShippingMethod:  req.ShippingMethod,
	}
	if !discount.Applied() {
		o.CouponCode = ""
	}

	// Header, items, coupon decrement, and cart clear commit together.
	// Create downgrades the discount when a concurrent checkout exhausted
	// the coupon budget first.
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	s.dispatchConfirmation(ctx, o)

	return &Receipt{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		TotalAmount: o.TotalAmount,
	}, nil
}

// resolveItems produces the candidate line items: the explicit request items,
// or the customer's persisted cart when an authenticated customer submits
// none.
func (s *Service) resolveItems(ctx context.Context, req CheckoutRequest) ([]ItemInput, error) {
	if len(req.Items) > 0 {
		return req.Items, nil
	}

	customerID, ok := req.Identity.CustomerID()
	if !ok {
		return nil, ErrNoItems
	}

	rows, err := s.carts.ItemsFor(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "load persisted cart")
	}
	if len(rows) == 0 {
		return nil, ErrNoItems
	}

	items := make([]ItemInput, len(rows))
	for i, row := range rows {
		items[i] = ItemInput{ProductID: row.ProductID, Quantity: row.Quantity}
	}
	return items, nil
}

// verifyPrices re-reads the authoritative unit price for every candidate item
// in a single batch. Items whose product id no longer resolves are dropped
// with a warning rather than failing the order.
func (s *Service) verifyPrices(ctx context.Context, items []ItemInput) ([]LineItem, decimal.Decimal, error) {
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, errors.Wrap(err, "get products")
	}

	byID := make(map[int64]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	lines := make([]LineItem, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		p, ok := byID[item.ProductID]
		if !ok {
			zctx.From(ctx).Warn("Dropping unresolvable order item",
				zap.Int64("product_id", item.ProductID))
			continue
		}
		lines = append(lines, LineItem{
			ProductID: p.ID,
			Title:     p.Name,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
		})
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return lines, subtotal, nil
}

// dispatchConfirmation hands the confirmation to the notification
// collaborator. Failures are logged and contained; the order already exists
// and the response must not change. The context is detached so a client
// disconnect does not cancel the dispatch mid-flight.
func (s *Service) dispatchConfirmation(ctx context.Context, o *Order) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	c := notify.Confirmation{
		OrderNumber:    o.OrderNumber,
		RecipientName:  o.ShippingAddress.Name,
		RecipientEmail: o.ShippingAddress.Email,
		Lines:          make([]notify.Line, len(o.Items)),
		Subtotal:       o.Subtotal,
		Discount:       o.DiscountTotal,
		ShippingCost:   o.ShippingCost,
		Total:          o.TotalAmount,
		Address:        o.ShippingAddress.Format(),
		StoreName:      s.store.Name,
		StoreAddress:   s.store.Address,
		SenderEmail:    s.store.SenderEmail,
	}
	for i, line := range o.Items {
		c.Lines[i] = notify.Line{
			Title:     line.Title,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
	}

	if err := s.notifier.DispatchOrderConfirmation(nctx, c); err != nil {
		zctx.From(ctx).Warn("Order confirmation dispatch failed",
			zap.String("order_number", o.OrderNumber),
			zap.Error(err))
	}
}

// newOrderNumber builds a human-readable unique reference: a UTC timestamp
// plus a random suffix. Unique with overwhelming probability, not sequential.
func (s *Service) newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "ORD-" + s.now().UTC().Format("20060102-150405") + "-" + suffix
}

func customerIDOf(ident identity.Identity) *int64 {
	if id, ok := ident.CustomerID(); ok {
		return &id
	}
	return nil
}
