package coupon

import (
	"context"
	"database/sql"

	"github.com/freshbasket/checkout/internal/catalog"
	"github.com/freshbasket/checkout/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetByCode looks a coupon up by its normalized code. A missing coupon is
// (nil, nil); Evaluate turns that into CouponNotFound.
func (r *Repository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	c := &domain.Coupon{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, code, discount_type, discount_value, min_order_value, max_discount,
		       valid_from, valid_to, usage_limit, used_count, active
		FROM coupons
		WHERE code = $1
	`, Normalize(code)).Scan(
		&c.ID, &c.Code, &c.Type, &c.Value, &c.MinOrderValue, &c.MaxDiscount,
		&c.ValidFrom, &c.ValidTo, &c.UsageLimit, &c.UsedCount, &c.Active,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return c, nil
}

// IncrementUsage bumps used_count by one, guarded by the usage limit so two
// concurrent checkouts cannot both take the last redemption. Zero rows
// affected means the cap was reached in the meantime.
func (r *Repository) IncrementUsage(ctx context.Context, q catalog.Querier, code string) error {
	result, err := q.ExecContext(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1
		WHERE code = $1 AND (usage_limit IS NULL OR used_count < usage_limit)
	`, Normalize(code))
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrUsageLimitExceeded
	}

	return nil
}
