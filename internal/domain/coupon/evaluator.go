package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluate applies rule to subtotal at the given instant and returns the
// discount with its reason. It never mutates the rule; redeeming a use is the
// order writer's job.
//
// The discount is clamped to the subtotal so a coupon can never drive an
// order total negative.
func Evaluate(rule *Rule, subtotal decimal.Decimal, now time.Time) Result {
	res := Result{Code: rule.Code, Amount: decimal.Zero}

	if !rule.Active {
		res.Reason = ReasonInactive
		return res
	}
	if rule.StartsAt != nil && now.Before(*rule.StartsAt) {
		res.Reason = ReasonNotStarted
		return res
	}
	if rule.EndsAt != nil && now.After(*rule.EndsAt) {
		res.Reason = ReasonExpired
		return res
	}
	if rule.RemainingUses <= 0 {
		res.Reason = ReasonExhausted
		return res
	}
	if subtotal.LessThan(rule.MinOrderAmount) {
		res.Reason = ReasonBelowMinimum
		return res
	}

	var amount decimal.Decimal
	switch {
	case rule.FlatDiscount.IsPositive():
		amount = rule.FlatDiscount
	case rule.PercentDiscount.IsPositive():
		amount = subtotal.Mul(rule.PercentDiscount).Div(hundred)
	default:
		res.Reason = ReasonNoValue
		return res
	}

	res.Amount = decimal.Min(amount, subtotal).Round(2)
	res.Reason = ReasonApplied
	return res
}

// Evaluator looks up coupon rules from a Repository and evaluates them.
type Evaluator struct {
	repo Repository
	now  func() time.Time
}

// NewEvaluator creates an Evaluator backed by the given Repository.
func NewEvaluator(repo Repository) *Evaluator {
	return &Evaluator{repo: repo, now: time.Now}
}

// Evaluate resolves code and computes the discount for subtotal. An empty or
// unknown code yields a zero-amount result, not an error; only storage
// failures are returned as errors.
func (e *Evaluator) Evaluate(ctx context.Context, code string, subtotal decimal.Decimal) (Result, error) {
	if code == "" {
		return Result{Reason: ReasonNoCode, Amount: decimal.Zero}, nil
	}

	rule, err := e.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Result{Code: code, Reason: ReasonNotFound, Amount: decimal.Zero}, nil
		}
		return Result{}, errors.Wrap(err, "lookup coupon")
	}

	return Evaluate(rule, subtotal, e.now()), nil
}
