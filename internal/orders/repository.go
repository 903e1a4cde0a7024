package orders

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/freshbasket/checkout/internal/catalog"
	"github.com/freshbasket/checkout/internal/domain"
)

type Repository struct {
	db      *sql.DB
	catalog *catalog.Repository
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:      db,
		catalog: catalog.NewRepository(db),
	}
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, address_id, status, subtotal, discount, delivery_fee,
		       taxes, total, COALESCE(coupon_code, ''), delivery_slot, created_at, updated_at
		FROM orders
		WHERE id = $1
	`, id).Scan(
		&order.ID, &order.UserID, &order.AddressID, &order.Status, &order.Subtotal,
		&order.Discount, &order.DeliveryFee, &order.Taxes, &order.Total,
		&order.CouponCode, &order.DeliverySlot, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, COALESCE(variant_id, ''), name, image, unit, quantity, price
		FROM order_items
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.VariantID, &item.Name, &item.Image, &item.Unit, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, address_id, status, subtotal, discount, delivery_fee,
		       taxes, total, COALESCE(coupon_code, ''), delivery_slot, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID, &order.UserID, &order.AddressID, &order.Status, &order.Subtotal,
			&order.Discount, &order.DeliveryFee, &order.Taxes, &order.Total,
			&order.CouponCode, &order.DeliverySlot, &order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, err
		}
		order.Items = []domain.OrderItem{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	itemRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, id, product_id, COALESCE(variant_id, ''), name, image, unit, quantity, price
		FROM order_items
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := itemRows.Scan(&orderID, &item.ID, &item.ProductID, &item.VariantID, &item.Name, &item.Image, &item.Unit, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

// UpdateStatus writes a new status, refusing to move an order out of a
// terminal state.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	var current domain.OrderStatus
	err := r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	if !CanTransition(current, status) {
		return nil, domain.ErrInvalidTransition
	}

	// The pre-read is advisory under concurrent updates; the WHERE clause
	// repeats the terminal guard authoritatively.
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status NOT IN ($3, $4)
	`, status, id, domain.OrderStatusDelivered, domain.OrderStatusCanceled)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, domain.ErrInvalidTransition
	}

	return r.GetByID(ctx, id)
}

// Cancel flips the order to CANCELED and restores stock for every item in
// one transaction, the exact inverse of checkout's decrement. Re-cancelling
// is rejected, so stock can never be restored twice.
func (r *Repository) Cancel(ctx context.Context, id, userID string) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status domain.OrderStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM orders WHERE id = $1 AND user_id = $2 FOR UPDATE
	`, id, userID).Scan(&status)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	if IsTerminal(status) {
		return nil, domain.ErrOrderNotCancelable
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2
	`, domain.OrderStatusCanceled, id); err != nil {
		return nil, err
	}

	type restoration struct {
		productID string
		variantID string
		quantity  int
	}
	var restorations []restoration

	rows, err := tx.QueryContext(ctx, `
		SELECT product_id, COALESCE(variant_id, ''), quantity
		FROM order_items
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}

	for rows.Next() {
		var re restoration
		if err := rows.Scan(&re.productID, &re.variantID, &re.quantity); err != nil {
			_ = rows.Close()
			return nil, err
		}
		restorations = append(restorations, re)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for _, re := range restorations {
		if err := r.catalog.RestoreStock(ctx, tx, re.productID, re.variantID, re.quantity); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}
