package checkout

// Policy carries the externally configured pricing constants. Amounts are
// integer minor units; TaxRateBps is basis points.
type Policy struct {
	FreeDeliveryThreshold int64
	DeliveryFee           int64
	TaxRateBps            int64
}

// DeliveryFee is a step function of the subtotal: free at or above the
// threshold, flat below it.
func (p Policy) deliveryFee(subtotal int64) int64 {
	if subtotal >= p.FreeDeliveryThreshold {
		return 0
	}
	return p.DeliveryFee
}

// Taxes are computed on (subtotal - discount). The upstream system applied
// two different tax bases in different code paths; this one is the policy
// here and is applied uniformly.
func (p Policy) taxes(subtotal, discount int64) int64 {
	return (subtotal - discount) * p.TaxRateBps / 10000
}
