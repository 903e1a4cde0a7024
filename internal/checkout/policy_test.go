package checkout

import "testing"

func TestPolicyDeliveryFee(t *testing.T) {
	p := testPolicy

	tests := []struct {
		name     string
		subtotal int64
		want     int64
	}{
		{"below threshold", 49999, 4000},
		{"at threshold", 50000, 0},
		{"above threshold", 120000, 0},
		{"tiny order", 100, 4000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.deliveryFee(tt.subtotal); got != tt.want {
				t.Fatalf("deliveryFee(%d) = %d, want %d", tt.subtotal, got, tt.want)
			}
		})
	}
}

func TestPolicyTaxes(t *testing.T) {
	p := testPolicy

	tests := []struct {
		name     string
		subtotal int64
		discount int64
		want     int64
	}{
		{"no discount", 10000, 0, 500},
		{"discount reduces base", 15000, 2000, 650},
		{"full discount", 10000, 10000, 0},
		{"integer truncation", 999, 0, 49},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.taxes(tt.subtotal, tt.discount); got != tt.want {
				t.Fatalf("taxes(%d, %d) = %d, want %d", tt.subtotal, tt.discount, got, tt.want)
			}
		})
	}
}
