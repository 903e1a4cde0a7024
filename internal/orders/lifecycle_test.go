package orders

import (
	"testing"

	"github.com/freshbasket/checkout/internal/domain"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from domain.OrderStatus
		to   domain.OrderStatus
		want bool
	}{
		{"received to packing", domain.OrderStatusReceived, domain.OrderStatusPacking, true},
		{"packing to on the way", domain.OrderStatusPacking, domain.OrderStatusOnTheWay, true},
		{"on the way to delivered", domain.OrderStatusOnTheWay, domain.OrderStatusDelivered, true},
		{"received to canceled", domain.OrderStatusReceived, domain.OrderStatusCanceled, true},
		{"on the way to canceled", domain.OrderStatusOnTheWay, domain.OrderStatusCanceled, true},
		{"skip is permitted", domain.OrderStatusReceived, domain.OrderStatusDelivered, true},
		{"delivered is final", domain.OrderStatusDelivered, domain.OrderStatusPacking, false},
		{"delivered cannot cancel", domain.OrderStatusDelivered, domain.OrderStatusCanceled, false},
		{"canceled is final", domain.OrderStatusCanceled, domain.OrderStatusReceived, false},
		{"no self transition", domain.OrderStatusPacking, domain.OrderStatusPacking, false},
		{"unknown target", domain.OrderStatusReceived, domain.OrderStatus("LOST"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []domain.OrderStatus{domain.OrderStatusReceived, domain.OrderStatusPacking, domain.OrderStatusOnTheWay} {
		if IsTerminal(s) {
			t.Fatalf("%s should not be terminal", s)
		}
	}
	for _, s := range []domain.OrderStatus{domain.OrderStatusDelivered, domain.OrderStatusCanceled} {
		if !IsTerminal(s) {
			t.Fatalf("%s should be terminal", s)
		}
	}
}
