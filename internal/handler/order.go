package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/order"
	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/shipping"
)

// createOrderRequest is the wire shape of a checkout. Items carry no price
// field: unit prices always come from the catalog.
type createOrderRequest struct {
	Items          []orderItemRequest `json:"items" validate:"omitempty,dive"`
	CouponCode     string             `json:"couponCode" validate:"omitempty,max=64"`
	ShippingMethod string             `json:"shippingMethod" validate:"omitempty,oneof=standard express"`
	PaymentMethod  string             `json:"paymentMethod" validate:"omitempty,max=64"`
	Address        addressRequest     `json:"shippingAddress" validate:"required"`
}

type orderItemRequest struct {
	ProductID int64 `json:"id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity"`
}

type addressRequest struct {
	Name       string `json:"name" validate:"required,max=128"`
	Street     string `json:"street" validate:"required,max=256"`
	City       string `json:"city" validate:"required,max=128"`
	PostalCode string `json:"postalCode" validate:"omitempty,max=32"`
	Country    string `json:"country" validate:"required,len=2"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"omitempty,max=32"`
}

// PlaceOrder converts the request into a durable order: resolves the caller
// identity, verifies prices against the catalog, applies an optional coupon,
// and persists everything in one transaction.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	items := make([]order.ItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.ItemInput{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	receipt, err := h.checkout.Checkout(ctx, order.CheckoutRequest{
		Identity:   h.identityFrom(r),
		Items:      items,
		CouponCode: req.CouponCode,
		ShippingAddress: order.Address{
			Name:       req.Address.Name,
			Street:     req.Address.Street,
			City:       req.Address.City,
			PostalCode: req.Address.PostalCode,
			Country:    req.Address.Country,
			Email:      req.Address.Email,
			Phone:      req.Address.Phone,
		},
		PaymentMethod:  req.PaymentMethod,
		ShippingMethod: shipping.ParseMethod(req.ShippingMethod),
	})
	if err != nil {
		var invalidQty *order.InvalidQuantityError
		switch {
		case errors.Is(err, order.ErrNoItems):
			writeError(w, http.StatusBadRequest, "order has no items")
		case errors.Is(err, order.ErrNoValidItems):
			writeError(w, http.StatusBadRequest, "no orderable items")
		case errors.As(err, &invalidQty):
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("quantity must be greater than 0 for product %d", invalidQty.ProductID))
		default:
			zctx.From(ctx).Error("Checkout failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeReceipt(w, receipt)
}

// ListOrders returns a page of orders visible to the caller. Admins with the
// orders view scope see everything; customers see only their own orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	req := order.ListRequest{
		Status: order.Status(q.Get("status")),
		Search: q.Get("search"),
	}
	req.Limit, _ = strconv.Atoi(q.Get("limit"))
	req.Offset, _ = strconv.Atoi(q.Get("offset"))

	page, err := h.queries.List(ctx, h.identityFrom(r), req)
	if err != nil {
		if errors.Is(err, order.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		zctx.From(ctx).Error("List orders failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeOrderPage(w, page)
}

// validationMessage renders the first field error in a client-friendly form.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("invalid field %s: failed %s validation", fe.Field(), fe.Tag())
	}
	return "invalid request"
}
