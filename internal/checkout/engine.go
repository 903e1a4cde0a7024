package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/freshbasket/checkout/internal/coupon"
	"github.com/freshbasket/checkout/internal/domain"
)

// Store is the persistence boundary of the engine. PersistOrder is the single
// atomic commit: order row, item snapshots, stock decrements, coupon usage
// and cart clearing all succeed or all roll back.
type Store interface {
	GetAddress(ctx context.Context, id, userID string) (*domain.Address, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetVariant(ctx context.Context, id string) (*domain.ProductVariant, error)
	GetCoupon(ctx context.Context, code string) (*domain.Coupon, error)
	PersistOrder(ctx context.Context, order *domain.Order, fromCart bool) error
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type ItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

type CreateOrderRequest struct {
	UserID       string
	AddressID    string
	Items        []ItemRequest
	CouponCode   string
	DeliverySlot string
	FromCart     bool
}

type Engine struct {
	store    Store
	policy   Policy
	producer Publisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewEngine(store Store, policy Policy, producer Publisher, logger *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		policy:   policy,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateOrder turns a validated item list into a persisted order. Every step
// before PersistOrder is side-effect free: a failure anywhere leaves no trace.
// The stock check here is advisory; the authoritative check is the conditional
// decrement inside PersistOrder.
func (e *Engine) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	if len(req.Items) == 0 {
		return nil, errors.New("order must contain at least one item")
	}

	address, err := e.store.GetAddress(ctx, req.AddressID, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve address: %w", err)
	}
	if address == nil {
		return nil, domain.ErrInvalidAddress
	}

	items, subtotal, err := e.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	var discount int64
	var couponCode string
	if req.CouponCode != "" {
		couponCode = coupon.Normalize(req.CouponCode)
		c, err := e.store.GetCoupon(ctx, couponCode)
		if err != nil {
			return nil, fmt.Errorf("resolve coupon: %w", err)
		}
		discount, err = coupon.Evaluate(c, subtotal, e.now())
		if err != nil {
			return nil, err
		}
	}

	deliveryFee := e.policy.deliveryFee(subtotal)
	taxes := e.policy.taxes(subtotal, discount)

	createdAt := e.now().UTC()
	order := &domain.Order{
		ID:           uuid.New().String(),
		UserID:       req.UserID,
		AddressID:    address.ID,
		Status:       domain.OrderStatusReceived,
		Items:        items,
		Subtotal:     subtotal,
		Discount:     discount,
		DeliveryFee:  deliveryFee,
		Taxes:        taxes,
		Total:        subtotal - discount + deliveryFee + taxes,
		CouponCode:   couponCode,
		DeliverySlot: req.DeliverySlot,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}

	if err := e.store.PersistOrder(ctx, order, req.FromCart); err != nil {
		return nil, err
	}

	e.publishCreated(ctx, order)

	e.logger.Info("order created", "order_id", order.ID, "user_id", order.UserID, "total", order.Total)
	return order, nil
}

// resolveItems re-fetches every item from the catalog: the client-supplied
// request carries no prices, the server's current price is the only one that
// counts. Variant stock and price override the parent product's when a
// variant is referenced.
func (e *Engine) resolveItems(ctx context.Context, reqs []ItemRequest) ([]domain.OrderItem, int64, error) {
	items := make([]domain.OrderItem, 0, len(reqs))
	var subtotal int64

	for _, req := range reqs {
		if req.Quantity <= 0 {
			return nil, 0, fmt.Errorf("quantity for product %s must be positive", req.ProductID)
		}

		product, err := e.store.GetProduct(ctx, req.ProductID)
		if err != nil {
			return nil, 0, fmt.Errorf("resolve product %s: %w", req.ProductID, err)
		}
		if product == nil || !product.Active {
			return nil, 0, fmt.Errorf("product %s: %w", req.ProductID, domain.ErrProductUnavailable)
		}

		name := product.Name
		price := product.Price
		stock := product.Stock

		if req.VariantID != "" {
			variant, err := e.store.GetVariant(ctx, req.VariantID)
			if err != nil {
				return nil, 0, fmt.Errorf("resolve variant %s: %w", req.VariantID, err)
			}
			if variant == nil || !variant.Active || variant.ProductID != product.ID {
				return nil, 0, fmt.Errorf("variant %s: %w", req.VariantID, domain.ErrProductUnavailable)
			}
			name = product.Name + " (" + variant.Label + ")"
			price = variant.Price
			stock = variant.Stock
		}

		if req.Quantity > stock {
			return nil, 0, &domain.StockError{Name: name, Requested: req.Quantity, Available: stock}
		}

		items = append(items, domain.OrderItem{
			ID:        uuid.New().String(),
			ProductID: product.ID,
			VariantID: req.VariantID,
			Name:      name,
			Image:     product.Image,
			Unit:      product.Unit,
			Quantity:  req.Quantity,
			Price:     price,
		})
		subtotal += price * int64(req.Quantity)
	}

	return items, subtotal, nil
}

// publishCreated is best-effort by contract: a slow or failing broker must
// never delay or fail checkout, so errors are logged and swallowed.
func (e *Engine) publishCreated(ctx context.Context, order *domain.Order) {
	if e.producer == nil {
		return
	}

	event := domain.OrderCreatedEvent{
		OrderID:   order.ID,
		UserID:    order.UserID,
		Items:     order.Items,
		Total:     order.Total,
		Timestamp: order.CreatedAt,
	}
	if err := e.producer.Publish(ctx, order.ID, event); err != nil {
		e.logger.Error("failed to publish order created event", "error", err, "order_id", order.ID)
	}
}
