package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/order"
)

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, e)
}

func writeReceipt(w http.ResponseWriter, receipt *order.Receipt) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("success")
	e.Bool(true)
	e.FieldStart("orderId")
	e.Int64(receipt.OrderID)
	e.FieldStart("orderNumber")
	e.Str(receipt.OrderNumber)
	e.FieldStart("totalAmount")
	e.Str(receipt.TotalAmount.StringFixed(2))
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e)
}

func writeOrderPage(w http.ResponseWriter, page *order.Page) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("total")
	e.Int64(page.Total)
	e.FieldStart("orders")
	e.ArrStart()
	for i := range page.Orders {
		encodeOrder(e, &page.Orders[i])
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e)
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("orderNumber")
	e.Str(o.OrderNumber)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("totalAmount")
	e.Str(o.TotalAmount.StringFixed(2))
	e.FieldStart("discountTotal")
	e.Str(o.DiscountTotal.StringFixed(2))
	e.FieldStart("shippingCost")
	e.Str(o.ShippingCost.StringFixed(2))
	e.FieldStart("paymentMethod")
	e.Str(o.PaymentMethod)
	e.FieldStart("shippingMethod")
	e.Str(string(o.ShippingMethod))
	if o.CustomerID != nil {
		e.FieldStart("customerId")
		e.Int64(*o.CustomerID)
	}
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"))
	e.FieldStart("address")
	encodeAddress(e, o.ShippingAddress)
	e.FieldStart("items")
	e.ArrStart()
	for _, item := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Int64(item.ProductID)
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.FieldStart("price")
		e.Str(item.UnitPrice.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeAddress(e *jx.Encoder, a order.Address) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(a.Name)
	e.FieldStart("street")
	e.Str(a.Street)
	e.FieldStart("city")
	e.Str(a.City)
	e.FieldStart("postalCode")
	e.Str(a.PostalCode)
	e.FieldStart("country")
	e.Str(a.Country)
	e.FieldStart("email")
	e.Str(a.Email)
	e.FieldStart("phone")
	e.Str(a.Phone)
	e.ObjEnd()
}
