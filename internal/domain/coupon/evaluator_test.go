package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func flatRule(amount string) *Rule {
	return &Rule{
		Code:          "SAVE",
		Active:        true,
		RemainingUses: 5,
		FlatDiscount:  dec(amount),
	}
}

func TestEvaluate_FlatDiscount(t *testing.T) {
	res := Evaluate(flatRule("10.00"), dec("100.00"), testNow)

	assert.Equal(t, ReasonApplied, res.Reason)
	assert.True(t, dec("10.00").Equal(res.Amount))
}

func TestEvaluate_PercentDiscount(t *testing.T) {
	rule := &Rule{Code: "HALF", Active: true, RemainingUses: 1, PercentDiscount: dec("50")}

	res := Evaluate(rule, dec("40.00"), testNow)

	assert.Equal(t, ReasonApplied, res.Reason)
	assert.True(t, dec("20.00").Equal(res.Amount))
}

func TestEvaluate_ClampedToSubtotal(t *testing.T) {
	res := Evaluate(flatRule("50.00"), dec("30.00"), testNow)

	assert.Equal(t, ReasonApplied, res.Reason)
	assert.True(t, dec("30.00").Equal(res.Amount), "discount must never exceed subtotal")
}

func TestEvaluate_InactiveRule(t *testing.T) {
	// Repositories filter on is_active, but a rule that arrives here
	// deactivated must still be rejected.
	rule := flatRule("10.00")
	rule.Active = false

	res := Evaluate(rule, dec("100.00"), testNow)

	assert.Equal(t, ReasonInactive, res.Reason)
	assert.True(t, res.Amount.IsZero())
}

func TestEvaluate_NotStarted(t *testing.T) {
	starts := testNow.Add(24 * time.Hour)
	rule := flatRule("10.00")
	rule.StartsAt = &starts

	res := Evaluate(rule, dec("100.00"), testNow)

	assert.Equal(t, ReasonNotStarted, res.Reason)
	assert.True(t, res.Amount.IsZero())
}

func TestEvaluate_Expired(t *testing.T) {
	ends := testNow.Add(-time.Hour)
	rule := flatRule("10.00")
	rule.EndsAt = &ends

	res := Evaluate(rule, dec("100.00"), testNow)

	assert.Equal(t, ReasonExpired, res.Reason)
	assert.True(t, res.Amount.IsZero())
}

func TestEvaluate_Exhausted(t *testing.T) {
	rule := flatRule("10.00")
	rule.RemainingUses = 0

	res := Evaluate(rule, dec("100.00"), testNow)

	assert.Equal(t, ReasonExhausted, res.Reason)
	assert.True(t, res.Amount.IsZero(), "exhausted coupon must never reduce a total")
}

func TestEvaluate_BelowMinimum(t *testing.T) {
	rule := &Rule{
		Code:            "BIG",
		Active:          true,
		RemainingUses:   3,
		MinOrderAmount:  dec("50.00"),
		PercentDiscount: dec("50"),
	}

	res := Evaluate(rule, dec("40.00"), testNow)

	assert.Equal(t, ReasonBelowMinimum, res.Reason)
	assert.True(t, res.Amount.IsZero())
}

func TestEvaluate_NoDiscountValue(t *testing.T) {
	rule := &Rule{Code: "EMPTY", Active: true, RemainingUses: 1}

	res := Evaluate(rule, dec("100.00"), testNow)

	assert.Equal(t, ReasonNoValue, res.Reason)
	assert.True(t, res.Amount.IsZero())
}

func TestEvaluate_FlatWinsOverPercent(t *testing.T) {
	// Defensive behaviour for misconfigured rules carrying both values.
	rule := flatRule("10.00")
	rule.PercentDiscount = dec("50")

	res := Evaluate(rule, dec("100.00"), testNow)

	assert.True(t, dec("10.00").Equal(res.Amount))
}

// --- Evaluator ---

type mockRepo struct {
	rules map[string]*Rule
	err   error
}

func (m *mockRepo) FindByCode(_ context.Context, code string) (*Rule, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.rules[code]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

func newEvaluator(repo *mockRepo) *Evaluator {
	e := NewEvaluator(repo)
	e.now = func() time.Time { return testNow }
	return e
}

func TestEvaluator_EmptyCode(t *testing.T) {
	e := newEvaluator(&mockRepo{})

	res, err := e.Evaluate(context.Background(), "", dec("100.00"))
	require.NoError(t, err)
	assert.Equal(t, ReasonNoCode, res.Reason)
	assert.True(t, res.Amount.IsZero())
}

func TestEvaluator_UnknownCodeIsSilent(t *testing.T) {
	e := newEvaluator(&mockRepo{})

	res, err := e.Evaluate(context.Background(), "NOPE", dec("100.00"))
	require.NoError(t, err)
	assert.Equal(t, ReasonNotFound, res.Reason)
	assert.True(t, res.Amount.IsZero())
}

func TestEvaluator_StorageErrorPropagates(t *testing.T) {
	e := newEvaluator(&mockRepo{err: errors.New("connection reset")})

	_, err := e.Evaluate(context.Background(), "SAVE", dec("100.00"))
	require.Error(t, err)
}

func TestEvaluator_AppliesRule(t *testing.T) {
	e := newEvaluator(&mockRepo{rules: map[string]*Rule{"SAVE": flatRule("10.00")}})

	res, err := e.Evaluate(context.Background(), "SAVE", dec("100.00"))
	require.NoError(t, err)
	assert.True(t, res.Applied())
	assert.True(t, dec("10.00").Equal(res.Amount))
}
