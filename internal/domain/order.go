package domain

import "time"

type OrderStatus string

const (
	OrderStatusReceived  OrderStatus = "RECEIVED"
	OrderStatusPacking   OrderStatus = "PACKING"
	OrderStatusOnTheWay  OrderStatus = "ON_THE_WAY"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
)

// OrderItem is an immutable snapshot of one line at order-creation time.
// Price and the denormalized name/image/unit are captured then and never
// re-resolved against the catalog.
type OrderItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Unit      string `json:"unit"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

// Order is a frozen financial record: total == subtotal - discount +
// delivery_fee + taxes, computed once at creation. Only Status mutates
// afterwards.
type Order struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	AddressID    string      `json:"address_id"`
	Status       OrderStatus `json:"status"`
	Items        []OrderItem `json:"items"`
	Subtotal     int64       `json:"subtotal"`
	Discount     int64       `json:"discount"`
	DeliveryFee  int64       `json:"delivery_fee"`
	Taxes        int64       `json:"taxes"`
	Total        int64       `json:"total"`
	CouponCode   string      `json:"coupon_code,omitempty"`
	DeliverySlot string      `json:"delivery_slot"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
