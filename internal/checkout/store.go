package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/freshbasket/checkout/internal/addresses"
	"github.com/freshbasket/checkout/internal/cart"
	"github.com/freshbasket/checkout/internal/catalog"
	"github.com/freshbasket/checkout/internal/coupon"
	"github.com/freshbasket/checkout/internal/domain"
)

const maxTxAttempts = 3

// SQLStore backs the engine with Postgres, composing the component
// repositories so stock, coupon and cart mutations share one transaction.
type SQLStore struct {
	db        *sql.DB
	catalog   *catalog.Repository
	carts     *cart.Repository
	coupons   *coupon.Repository
	addresses *addresses.Repository
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:        db,
		catalog:   catalog.NewRepository(db),
		carts:     cart.NewRepository(db),
		coupons:   coupon.NewRepository(db),
		addresses: addresses.NewRepository(db),
	}
}

func (s *SQLStore) GetAddress(ctx context.Context, id, userID string) (*domain.Address, error) {
	return s.addresses.GetForUser(ctx, id, userID)
}

func (s *SQLStore) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.catalog.GetProduct(ctx, id)
}

func (s *SQLStore) GetVariant(ctx context.Context, id string) (*domain.ProductVariant, error) {
	return s.catalog.GetVariant(ctx, id)
}

func (s *SQLStore) GetCoupon(ctx context.Context, code string) (*domain.Coupon, error) {
	return s.coupons.GetByCode(ctx, code)
}

// PersistOrder runs the atomic commit, retrying with backoff on transaction
// conflicts. User-correctable failures (insufficient stock, coupon cap) are
// never retried.
func (s *SQLStore) PersistOrder(ctx context.Context, order *domain.Order, fromCart bool) error {
	var err error
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(50<<attempt) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err = s.persistOnce(ctx, order, fromCart)
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return fmt.Errorf("persist order after %d attempts: %w", maxTxAttempts, err)
}

func (s *SQLStore) persistOnce(ctx context.Context, order *domain.Order, fromCart bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, address_id, status, subtotal, discount, delivery_fee,
		                    taxes, total, coupon_code, delivery_slot, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
	`, order.ID, order.UserID, order.AddressID, order.Status, order.Subtotal, order.Discount,
		order.DeliveryFee, order.Taxes, order.Total, nullable(order.CouponCode), order.DeliverySlot,
		order.CreatedAt)
	if err != nil {
		return err
	}

	for _, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, variant_id, name, image, unit, quantity, price)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, item.ID, order.ID, item.ProductID, nullable(item.VariantID), item.Name, item.Image,
			item.Unit, item.Quantity, item.Price)
		if err != nil {
			return err
		}

		// The authoritative stock check. Zero rows affected rolls the whole
		// order back, however far the advisory check got.
		if err := s.catalog.DecrementStock(ctx, tx, item.ProductID, item.VariantID, item.Quantity); err != nil {
			if errors.Is(err, domain.ErrInsufficientStock) {
				return s.stockError(ctx, item)
			}
			return err
		}
	}

	if order.CouponCode != "" {
		if err := s.coupons.IncrementUsage(ctx, tx, order.CouponCode); err != nil {
			return err
		}
	}

	if fromCart {
		if err := s.carts.RemoveOrdered(ctx, tx, order.UserID, order.Items); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// stockError reads the post-rollback stock level so the caller learns how
// much of the item can actually still be ordered.
func (s *SQLStore) stockError(ctx context.Context, item domain.OrderItem) error {
	available, err := s.catalog.AvailableStock(ctx, item.ProductID, item.VariantID)
	if err != nil {
		return &domain.StockError{Name: item.Name, Requested: item.Quantity}
	}
	return &domain.StockError{Name: item.Name, Requested: item.Quantity, Available: available}
}

func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		// Class 40: transaction rollback (serialization failure, deadlock).
		return pqErr.Code.Class() == "40"
	}
	return false
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
