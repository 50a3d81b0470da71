package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Yemenione/YEMEN-KAF-sub001/internal/domain/coupon"
)

const getCouponByCodeSQL = `SELECT code, is_active, starts_at, ends_at, total_available,
	min_amount, COALESCE(reduction_amount, 0), COALESCE(reduction_percent, 0)
	FROM cart_rules WHERE code = $1 AND is_active = TRUE`

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// The usage decrement lives in the order write transaction, not here.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up an active coupon rule by its exact code.
// Returns coupon.ErrNotFound when no matching active rule exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Rule, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanCouponRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find coupon %q", code)
	}
	return &rule, nil
}

func scanCouponRule(row pgx.CollectableRow) (coupon.Rule, error) {
	var (
		rule          coupon.Rule
		startsAt      *time.Time
		endsAt        *time.Time
		remainingUses int32
	)
	err := row.Scan(
		&rule.Code, &rule.Active, &startsAt, &endsAt, &remainingUses,
		&rule.MinOrderAmount, &rule.FlatDiscount, &rule.PercentDiscount,
	)
	rule.StartsAt = startsAt
	rule.EndsAt = endsAt
	rule.RemainingUses = int(remainingUses)
	return rule, err
}
