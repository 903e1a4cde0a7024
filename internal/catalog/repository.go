package catalog

import (
	"context"
	"database/sql"

	"github.com/freshbasket/checkout/internal/domain"
)

// Querier is satisfied by both *sql.DB and *sql.Tx so the stock primitives
// can run inside the checkout transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, brand, category, price, mrp, stock, image, unit, active
		FROM products
		WHERE active
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Price, &p.MRP, &p.Stock, &p.Image, &p.Unit, &p.Active); err != nil {
			return nil, err
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p := &domain.Product{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, brand, category, price, mrp, stock, image, unit, active
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Brand, &p.Category, &p.Price, &p.MRP, &p.Stock, &p.Image, &p.Unit, &p.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return p, nil
}

func (r *Repository) GetVariant(ctx context.Context, id string) (*domain.ProductVariant, error) {
	v := &domain.ProductVariant{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, product_id, label, price, mrp, stock, active
		FROM product_variants
		WHERE id = $1
	`, id).Scan(&v.ID, &v.ProductID, &v.Label, &v.Price, &v.MRP, &v.Stock, &v.Active)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return v, nil
}

func (r *Repository) ListVariants(ctx context.Context, productID string) ([]domain.ProductVariant, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, label, price, mrp, stock, active
		FROM product_variants
		WHERE product_id = $1
		ORDER BY label
	`, productID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var variants []domain.ProductVariant
	for rows.Next() {
		var v domain.ProductVariant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Label, &v.Price, &v.MRP, &v.Stock, &v.Active); err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return variants, nil
}

// DecrementStock is the authoritative stock check: a conditional decrement
// whose zero-rows-affected result means the quantity is no longer available.
// It must run on the checkout transaction's Querier so a failure rolls back
// the whole order.
func (r *Repository) DecrementStock(ctx context.Context, q Querier, productID, variantID string, qty int) error {
	var result sql.Result
	var err error

	if variantID != "" {
		result, err = q.ExecContext(ctx, `
			UPDATE product_variants
			SET stock = stock - $2
			WHERE id = $1 AND stock >= $2
		`, variantID, qty)
	} else {
		result, err = q.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $2
			WHERE id = $1 AND stock >= $2
		`, productID, qty)
	}
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrInsufficientStock
	}

	return nil
}

// RestoreStock is the exact inverse of DecrementStock, used on cancellation.
func (r *Repository) RestoreStock(ctx context.Context, q Querier, productID, variantID string, qty int) error {
	var err error

	if variantID != "" {
		_, err = q.ExecContext(ctx, `
			UPDATE product_variants
			SET stock = stock + $2
			WHERE id = $1
		`, variantID, qty)
	} else {
		_, err = q.ExecContext(ctx, `
			UPDATE products
			SET stock = stock + $2
			WHERE id = $1
		`, productID, qty)
	}

	return err
}

// AvailableStock reads the current stock for a product or variant, used to
// tell the caller how much can still be ordered.
func (r *Repository) AvailableStock(ctx context.Context, productID, variantID string) (int, error) {
	var stock int
	var err error

	if variantID != "" {
		err = r.db.QueryRowContext(ctx, `SELECT stock FROM product_variants WHERE id = $1`, variantID).Scan(&stock)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, err
	}

	return stock, nil
}
