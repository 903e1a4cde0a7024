package domain

import (
	"errors"
	"fmt"
)

// User-correctable failures. Handlers map these to 4xx responses with enough
// detail for the caller to fix the request; they are never retried.
var (
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrInvalidAddress     = errors.New("invalid address")
	ErrCouponNotFound     = errors.New("coupon not found")
	ErrCouponExpired      = errors.New("coupon expired")
	ErrMinimumOrderNotMet = errors.New("minimum order value not met")
	ErrUsageLimitExceeded = errors.New("coupon usage limit exceeded")
	ErrOrderNotCancelable = errors.New("order is not cancelable")
	ErrOrderNotFound      = errors.New("order not found")
	ErrCartLineNotFound   = errors.New("cart line not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// StockError names the item that could not be fulfilled and how much stock
// actually remains. It unwraps to ErrInsufficientStock.
type StockError struct {
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, %d available", e.Name, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }
