package domain

import "time"

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

// Coupon is a stateless rule record; UsedCount is incremented only inside
// the order-creation transaction.
type Coupon struct {
	ID            string       `json:"id"`
	Code          string       `json:"code"`
	Type          DiscountType `json:"type"`
	Value         int64        `json:"value"`
	MinOrderValue int64        `json:"min_order_value"`
	MaxDiscount   *int64       `json:"max_discount,omitempty"`
	ValidFrom     time.Time    `json:"valid_from"`
	ValidTo       time.Time    `json:"valid_to"`
	UsageLimit    *int         `json:"usage_limit,omitempty"`
	UsedCount     int          `json:"used_count"`
	Active        bool         `json:"active"`
}
