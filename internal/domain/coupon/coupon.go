// Package coupon evaluates discount codes against an order subtotal.
//
// Evaluation is deliberately forgiving: a code that is unknown, inactive,
// outside its window, exhausted, or below the order minimum yields a zero
// discount instead of failing checkout. The structured Reason records why,
// so the behaviour can be surfaced to callers later without re-investigation.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by repositories when no active rule matches a code.
var ErrNotFound = errors.New("coupon not found")

// Rule is a discount rule as configured. Exactly one of FlatDiscount or
// PercentDiscount is expected to be positive; storage does not enforce this,
// so Evaluate treats "neither positive" as no discount.
type Rule struct {
	Code            string
	Active          bool
	StartsAt        *time.Time
	EndsAt          *time.Time
	RemainingUses   int
	MinOrderAmount  decimal.Decimal
	FlatDiscount    decimal.Decimal
	PercentDiscount decimal.Decimal
}

// Reason explains the outcome of evaluating a coupon code.
type Reason string

const (
	ReasonApplied      Reason = "applied"
	ReasonNoCode       Reason = "no_code"
	ReasonNotFound     Reason = "not_found"
	ReasonInactive     Reason = "inactive"
	ReasonNotStarted   Reason = "not_started"
	ReasonExpired      Reason = "expired"
	ReasonExhausted    Reason = "exhausted"
	ReasonBelowMinimum Reason = "below_minimum"
	ReasonNoValue      Reason = "no_value"
)

// Result is the outcome of evaluating a code against a subtotal. Amount is
// zero unless Reason is ReasonApplied.
type Result struct {
	Code   string
	Amount decimal.Decimal
	Reason Reason
}

// Applied reports whether the coupon produced a discount.
func (r Result) Applied() bool { return r.Reason == ReasonApplied }

// Repository provides lookup of active coupon rules by code. The usage
// decrement is not part of this interface: it happens as a conditional update
// inside the order write transaction.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
}
