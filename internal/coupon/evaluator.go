package coupon

import (
	"strings"
	"time"

	"github.com/freshbasket/checkout/internal/domain"
)

// Normalize folds a user-supplied code to the stored form.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Evaluate computes the discount a coupon grants for the given subtotal.
// It is a pure function: usage accounting happens only inside the checkout
// transaction, so a failed checkout never consumes a redemption.
//
// The validity window is checked before the active flag: an expired coupon
// reports CouponExpired even when still marked active.
func Evaluate(c *domain.Coupon, subtotal int64, now time.Time) (int64, error) {
	if c == nil {
		return 0, domain.ErrCouponNotFound
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidTo) {
		return 0, domain.ErrCouponExpired
	}
	if !c.Active {
		return 0, domain.ErrCouponNotFound
	}
	if subtotal < c.MinOrderValue {
		return 0, domain.ErrMinimumOrderNotMet
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return 0, domain.ErrUsageLimitExceeded
	}

	var discount int64
	switch c.Type {
	case domain.DiscountPercentage:
		discount = subtotal * c.Value / 100
		if c.MaxDiscount != nil && discount > *c.MaxDiscount {
			discount = *c.MaxDiscount
		}
	default:
		discount = c.Value
	}

	// A coupon can never make the order free beyond its own value.
	if discount > subtotal {
		discount = subtotal
	}

	return discount, nil
}
