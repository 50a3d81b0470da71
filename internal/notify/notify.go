// Package notify dispatches best-effort order confirmation messages.
//
// Dispatch failures are contained by the caller: a lost confirmation never
// fails or rolls back an order.
package notify

import (
	"context"

	"github.com/shopspring/decimal"
)

// Store identifies the shop sending confirmations. Injected from config;
// there is no ambient store state.
type Store struct {
	Name        string
	Address     string
	SenderEmail string
}

// Line is one itemized position of a confirmation.
type Line struct {
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Confirmation is the order confirmation payload handed to the delivery
// collaborator.
type Confirmation struct {
	OrderNumber    string          `json:"orderNumber"`
	RecipientName  string          `json:"recipientName"`
	RecipientEmail string          `json:"recipientEmail"`
	Lines          []Line          `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	ShippingCost   decimal.Decimal `json:"shippingCost"`
	Total          decimal.Decimal `json:"total"`
	Address        string          `json:"address"`
	StoreName      string          `json:"storeName"`
	StoreAddress   string          `json:"storeAddress"`
	SenderEmail    string          `json:"senderEmail"`
}

// Dispatcher hands a confirmation to the delivery collaborator.
type Dispatcher interface {
	DispatchOrderConfirmation(ctx context.Context, c Confirmation) error
}

// Nop is a Dispatcher that drops every message. Used when no broker is
// configured and in tests.
type Nop struct{}

func (Nop) DispatchOrderConfirmation(context.Context, Confirmation) error { return nil }
