package orders

import "github.com/freshbasket/checkout/internal/domain"

// Fulfillment moves RECEIVED -> PACKING -> ON_THE_WAY -> DELIVERED, with
// CANCELED reachable from any non-terminal state. Skips are a convention for
// operators, not enforced here; what is enforced is that terminal states are
// final.

var validStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusReceived:  true,
	domain.OrderStatusPacking:   true,
	domain.OrderStatusOnTheWay:  true,
	domain.OrderStatusDelivered: true,
	domain.OrderStatusCanceled:  true,
}

var terminalStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusDelivered: true,
	domain.OrderStatusCanceled:  true,
}

func ValidStatus(s domain.OrderStatus) bool {
	return validStatuses[s]
}

func IsTerminal(s domain.OrderStatus) bool {
	return terminalStatuses[s]
}

func CanTransition(from, to domain.OrderStatus) bool {
	return validStatuses[to] && !terminalStatuses[from] && from != to
}
