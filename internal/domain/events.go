package domain

import "time"

// OrderCreatedEvent is published after the checkout transaction commits.
// Dispatch is best-effort: a failed publish never fails the order.
type OrderCreatedEvent struct {
	OrderID   string      `json:"order_id"`
	UserID    string      `json:"user_id"`
	Items     []OrderItem `json:"items"`
	Total     int64       `json:"total"`
	Timestamp time.Time   `json:"timestamp"`
}

// OrderStatusEvent is published on lifecycle transitions, including
// cancellation.
type OrderStatusEvent struct {
	OrderID   string      `json:"order_id"`
	UserID    string      `json:"user_id"`
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}
