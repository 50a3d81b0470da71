package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/order"
	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/shipping"
)

const (
	// Conditional decrement: zero rows affected means the remaining budget
	// was exhausted by a concurrent checkout.
	redeemCouponSQL = `UPDATE cart_rules SET total_available = total_available - 1
		WHERE code = $1 AND is_active = TRUE AND total_available > 0`

	insertOrderSQL = `INSERT INTO orders (customer_id, order_number, total_amount, status,
		shipping_address, payment_method, shipping_method, shipping_cost, discount_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)`

	clearCartSQL = `DELETE FROM cart_items WHERE customer_id = $1`

	getOrderItemsSQL = `SELECT order_id, product_id, quantity, price
		FROM order_items WHERE order_id = ANY($1) ORDER BY id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order in a single transaction: coupon redemption,
// header insert, line item inserts, and cart clear commit or roll back
// together. Losing the coupon decrement race downgrades the discount to zero
// and re-derives the total; it never fails the order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	if o.CouponCode != "" && o.DiscountTotal.IsPositive() {
		tag, err := tx.Exec(ctx, redeemCouponSQL, o.CouponCode)
		if err != nil {
			return errors.Wrapf(err, "redeem coupon %q", o.CouponCode)
		}
		if tag.RowsAffected() == 0 {
			o.CouponCode = ""
			o.DiscountTotal = decimal.Zero
			o.TotalAmount = order.ComputeTotal(o.Subtotal, decimal.Zero, o.ShippingCost)
		}
	}

	addr, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return errors.Wrap(err, "marshal shipping address")
	}

	err = tx.QueryRow(ctx, insertOrderSQL,
		o.CustomerID, o.OrderNumber, o.TotalAmount, string(o.Status),
		addr, o.PaymentMethod, string(o.ShippingMethod), o.ShippingCost, o.DiscountTotal,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return errors.Wrapf(err, "insert order %q", o.OrderNumber)
	}

	batch := &pgx.Batch{}
	for _, item := range o.Items {
		batch.Queue(insertOrderItemSQL, o.ID, item.ProductID, item.Quantity, item.UnitPrice)
	}
	br := tx.SendBatch(ctx, batch)
	for range o.Items {
		if _, err := br.Exec(); err != nil {
			br.Close() //nolint:errcheck
			return errors.Wrapf(err, "insert items for order %q", o.OrderNumber)
		}
	}
	if err := br.Close(); err != nil {
		return errors.Wrapf(err, "insert items for order %q", o.OrderNumber)
	}

	if o.CustomerID != nil {
		if _, err := tx.Exec(ctx, clearCartSQL, *o.CustomerID); err != nil {
			return errors.Wrapf(err, "clear cart for customer %d", *o.CustomerID)
		}
	}

	return errors.Wrap(tx.Commit(ctx), "commit")
}

// List returns a page of orders matching the filter, most recent first, and
// the total count of matching orders.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, int64, error) {
	where, args := buildOrderFilter(f)

	var total int64
	countSQL := `SELECT count(*) FROM orders` + where
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count orders")
	}

	listSQL := fmt.Sprintf(`SELECT id, customer_id, order_number, total_amount, status,
		shipping_address, payment_method, shipping_method, shipping_cost, discount_total, created_at
		FROM orders%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list orders")
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list orders")
	}

	if err := r.attachItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// buildOrderFilter renders the WHERE clause for f. Search matches the order
// reference and the recipient email/name stored in the address blob.
func buildOrderFilter(f order.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.CustomerID != nil {
		args = append(args, *f.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(order_number ILIKE $%d OR shipping_address->>'email' ILIKE $%d OR shipping_address->>'name' ILIKE $%d)",
			n, n, n))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// attachItems loads line items for the given orders in one query.
func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]int64, len(orders))
	byID := make(map[int64]*order.Order, len(orders))
	for i := range orders {
		ids[i] = orders[i].ID
		byID[orders[i].ID] = &orders[i]
	}

	rows, err := r.pool.Query(ctx, getOrderItemsSQL, ids)
	if err != nil {
		return errors.Wrap(err, "load order items")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			item    order.LineItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.UnitPrice); err != nil {
			return errors.Wrap(err, "scan order item")
		}
		if o, ok := byID[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	return errors.Wrap(rows.Err(), "load order items")
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
		method string
		addr   []byte
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.OrderNumber, &o.TotalAmount, &status,
		&addr, &o.PaymentMethod, &method, &o.ShippingCost, &o.DiscountTotal, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	o.Status = order.Status(status)
	o.ShippingMethod = shipping.ParseMethod(method)
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return o, errors.Wrap(err, "unmarshal shipping address")
	}
	return o, nil
}
