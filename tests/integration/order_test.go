//go:build integration

package integration

import (
	"net/http"
	"strings"
	"testing"
)

func TestPlaceOrder_Guest(t *testing.T) {
	resp := doPost(t, "/api/orders", orderRequest{
		Items:   []orderItemRequest{{ProductID: 1, Quantity: 2}},
		Address: testAddress(),
	}, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	receipt := decodeJSON[receiptResponse](t, resp)
	if !receipt.Success {
		t.Fatal("expected success=true")
	}
	if receipt.OrderID == 0 {
		t.Fatal("expected a persisted order id")
	}
	if !strings.HasPrefix(receipt.OrderNumber, "ORD-") {
		t.Fatalf("unexpected order number %q", receipt.OrderNumber)
	}
	// 2 x 6.50, free standard shipping.
	if receipt.TotalAmount != "13.00" {
		t.Fatalf("expected total 13.00, got %s", receipt.TotalAmount)
	}
}

func TestPlaceOrder_ExpressShipping(t *testing.T) {
	resp := doPost(t, "/api/orders", orderRequest{
		Items:          []orderItemRequest{{ProductID: 2, Quantity: 1}},
		ShippingMethod: "express",
		Address:        testAddress(),
	}, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	receipt := decodeJSON[receiptResponse](t, resp)
	// 7.00 + 9.90 express.
	if receipt.TotalAmount != "16.90" {
		t.Fatalf("expected total 16.90, got %s", receipt.TotalAmount)
	}
}

func TestPlaceOrder_UnknownCouponIsSilent(t *testing.T) {
	resp := doPost(t, "/api/orders", orderRequest{
		Items:      []orderItemRequest{{ProductID: 1, Quantity: 1}},
		CouponCode: "NO-SUCH-CODE",
		Address:    testAddress(),
	}, nil)
	defer resp.Body.Close()

	// An unredeemable coupon never fails checkout, the discount is just zero.
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	receipt := decodeJSON[receiptResponse](t, resp)
	if receipt.TotalAmount != "6.50" {
		t.Fatalf("expected total 6.50, got %s", receipt.TotalAmount)
	}
}

func TestPlaceOrder_CouponRedemption(t *testing.T) {
	before := couponRemaining(t, "TENOFF")

	// 7 x 8.00 = 56.00 clears the 50.00 minimum; flat 10.00 off.
	resp := doPost(t, "/api/orders", orderRequest{
		Items:      []orderItemRequest{{ProductID: 3, Quantity: 7}},
		CouponCode: "TENOFF",
		Address:    testAddress(),
	}, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	receipt := decodeJSON[receiptResponse](t, resp)
	if receipt.TotalAmount != "46.00" {
		t.Fatalf("expected total 46.00 after discount, got %s", receipt.TotalAmount)
	}

	if after := couponRemaining(t, "TENOFF"); after != before-1 {
		t.Fatalf("expected remaining uses %d, got %d", before-1, after)
	}
}

func TestPlaceOrder_CouponBudgetExhausted(t *testing.T) {
	// LASTCALL is seeded with a single use. The first checkout consumes it;
	// the second still succeeds but at full price.
	place := func() receiptResponse {
		t.Helper()
		resp := doPost(t, "/api/orders", orderRequest{
			Items:      []orderItemRequest{{ProductID: 1, Quantity: 1}},
			CouponCode: "LASTCALL",
			Address:    testAddress(),
		}, nil)
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		return decodeJSON[receiptResponse](t, resp)
	}

	first := place()
	if first.TotalAmount != "1.50" {
		t.Fatalf("expected first order total 1.50 (6.50 - 5.00), got %s", first.TotalAmount)
	}
	if remaining := couponRemaining(t, "LASTCALL"); remaining != 0 {
		t.Fatalf("expected coupon budget 0 after redemption, got %d", remaining)
	}

	second := place()
	if second.TotalAmount != "6.50" {
		t.Fatalf("expected second order at full price 6.50, got %s", second.TotalAmount)
	}
	if remaining := couponRemaining(t, "LASTCALL"); remaining != 0 {
		t.Fatalf("coupon budget went below zero: %d", remaining)
	}
}

func TestPlaceOrder_EmptyGuestOrder(t *testing.T) {
	resp := doPost(t, "/api/orders", orderRequest{
		Address: testAddress(),
	}, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Message == "" {
		t.Fatal("expected an error message")
	}
}

func TestPlaceOrder_CustomerCartFallback(t *testing.T) {
	// The seeded customer has cart items; submitting no explicit items
	// converts the persisted cart.
	resp := doPost(t, "/api/orders", orderRequest{
		Address: testAddress(),
	}, map[string]string{"Authorization": "Bearer " + seedSessionToken})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	receipt := decodeJSON[receiptResponse](t, resp)
	// Seeded cart: 2 x 6.50 + 1 x 8.00.
	if receipt.TotalAmount != "21.00" {
		t.Fatalf("expected total 21.00, got %s", receipt.TotalAmount)
	}

	// The cart is consumed by the conversion: a second attempt has no items.
	resp2 := doPost(t, "/api/orders", orderRequest{
		Address: testAddress(),
	}, map[string]string{"Authorization": "Bearer " + seedSessionToken})
	defer resp2.Body.Close()

	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 after cart was cleared, got %d", resp2.StatusCode)
	}
}

func TestListOrders_GuestRejected(t *testing.T) {
	resp := doGet(t, "/api/orders", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestListOrders_Admin(t *testing.T) {
	resp := doGet(t, "/api/orders?limit=50", map[string]string{"api_key": seedAdminKey})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	page := decodeJSON[orderListResponse](t, resp)
	if page.Total == 0 {
		t.Fatal("expected orders from earlier tests")
	}
	for _, o := range page.Orders {
		if o.Status == "" || o.OrderNumber == "" {
			t.Fatalf("incomplete order in listing: %+v", o)
		}
	}
}

func TestListOrders_CustomerSeesOnlyOwn(t *testing.T) {
	resp := doGet(t, "/api/orders", map[string]string{"Authorization": "Bearer " + seedSessionToken})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	page := decodeJSON[orderListResponse](t, resp)
	for _, o := range page.Orders {
		if o.CustomerID != 1 {
			t.Fatalf("listing leaked order %d belonging to customer %d", o.ID, o.CustomerID)
		}
	}
}
