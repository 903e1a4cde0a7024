package coupon

import (
	"errors"
	"testing"
	"time"

	"github.com/freshbasket/checkout/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func validCoupon() *domain.Coupon {
	return &domain.Coupon{
		Code:          "SAVE20",
		Type:          domain.DiscountFixed,
		Value:         2000,
		MinOrderValue: 10000,
		ValidFrom:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidTo:       time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
		Active:        true,
	}
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	t.Run("missing coupon", func(t *testing.T) {
		_, err := Evaluate(nil, 15000, now)
		if !errors.Is(err, domain.ErrCouponNotFound) {
			t.Fatalf("expected ErrCouponNotFound, got %v", err)
		}
	})

	t.Run("outside window reports expired even when active", func(t *testing.T) {
		c := validCoupon()
		_, err := Evaluate(c, 15000, time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))
		if !errors.Is(err, domain.ErrCouponExpired) {
			t.Fatalf("expected ErrCouponExpired, got %v", err)
		}

		_, err = Evaluate(c, 15000, time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
		if !errors.Is(err, domain.ErrCouponExpired) {
			t.Fatalf("expected ErrCouponExpired before window, got %v", err)
		}
	})

	t.Run("inactive coupon within window", func(t *testing.T) {
		c := validCoupon()
		c.Active = false
		_, err := Evaluate(c, 15000, now)
		if !errors.Is(err, domain.ErrCouponNotFound) {
			t.Fatalf("expected ErrCouponNotFound, got %v", err)
		}
	})

	t.Run("minimum order not met", func(t *testing.T) {
		c := validCoupon()
		_, err := Evaluate(c, 9000, now)
		if !errors.Is(err, domain.ErrMinimumOrderNotMet) {
			t.Fatalf("expected ErrMinimumOrderNotMet, got %v", err)
		}
	})

	t.Run("subtotal equal to minimum qualifies", func(t *testing.T) {
		c := validCoupon()
		discount, err := Evaluate(c, 10000, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if discount != 2000 {
			t.Fatalf("expected discount 2000, got %d", discount)
		}
	})

	t.Run("usage limit reached", func(t *testing.T) {
		c := validCoupon()
		c.UsageLimit = ptr(5)
		c.UsedCount = 5
		_, err := Evaluate(c, 15000, now)
		if !errors.Is(err, domain.ErrUsageLimitExceeded) {
			t.Fatalf("expected ErrUsageLimitExceeded, got %v", err)
		}
	})

	t.Run("usage below limit passes", func(t *testing.T) {
		c := validCoupon()
		c.UsageLimit = ptr(5)
		c.UsedCount = 4
		if _, err := Evaluate(c, 15000, now); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("percentage discount", func(t *testing.T) {
		c := validCoupon()
		c.Type = domain.DiscountPercentage
		c.Value = 10
		discount, err := Evaluate(c, 20000, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if discount != 2000 {
			t.Fatalf("expected discount 2000, got %d", discount)
		}
	})

	t.Run("percentage clamped by max discount", func(t *testing.T) {
		c := validCoupon()
		c.Type = domain.DiscountPercentage
		c.Value = 50
		c.MaxDiscount = ptr(int64(3000))
		discount, err := Evaluate(c, 20000, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if discount != 3000 {
			t.Fatalf("expected discount 3000, got %d", discount)
		}
	})

	t.Run("fixed discount clamped to subtotal", func(t *testing.T) {
		c := validCoupon()
		c.Value = 50000
		c.MinOrderValue = 0
		discount, err := Evaluate(c, 12000, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if discount != 12000 {
			t.Fatalf("expected discount clamped to 12000, got %d", discount)
		}
	})
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  save20 "); got != "SAVE20" {
		t.Fatalf("expected SAVE20, got %q", got)
	}
}
