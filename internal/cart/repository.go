package cart

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/freshbasket/checkout/internal/catalog"
	"github.com/freshbasket/checkout/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List re-resolves every line against the catalog. Deactivated products and
// quantities above the current stock come back flagged Unavailable, never
// silently dropped.
func (r *Repository) List(ctx context.Context, userID string) ([]domain.ResolvedCartLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT cl.id, cl.user_id, cl.product_id, COALESCE(cl.variant_id, ''), cl.quantity,
		       p.name, p.image, p.unit,
		       COALESCE(v.price, p.price), COALESCE(v.mrp, p.mrp), COALESCE(v.stock, p.stock),
		       (p.active AND COALESCE(v.active, TRUE))
		FROM cart_lines cl
		JOIN products p ON p.id = cl.product_id
		LEFT JOIN product_variants v ON v.id = cl.variant_id
		WHERE cl.user_id = $1
		ORDER BY cl.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var lines []domain.ResolvedCartLine
	for rows.Next() {
		var l domain.ResolvedCartLine
		if err := rows.Scan(
			&l.ID, &l.UserID, &l.ProductID, &l.VariantID, &l.Quantity,
			&l.Name, &l.Image, &l.Unit,
			&l.Price, &l.MRP, &l.Stock, &l.Active,
		); err != nil {
			return nil, err
		}
		l.Unavailable = !l.Active || l.Quantity > l.Stock
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// AddLine merges into an existing line for the same (product, variant) pair,
// rejecting the add when the merged quantity exceeds current stock.
func (r *Repository) AddLine(ctx context.Context, userID, productID, variantID string, qty int) (*domain.CartLine, error) {
	name, stock, active, err := r.availability(ctx, productID, variantID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, domain.ErrProductUnavailable
	}

	var lineID string
	var existing int
	err = r.db.QueryRowContext(ctx, `
		SELECT id, quantity FROM cart_lines
		WHERE user_id = $1 AND product_id = $2 AND variant_id IS NOT DISTINCT FROM $3
	`, userID, productID, nullable(variantID)).Scan(&lineID, &existing)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	merged := existing + qty
	if merged > stock {
		return nil, &domain.StockError{Name: name, Requested: merged, Available: stock}
	}

	line := &domain.CartLine{
		UserID:    userID,
		ProductID: productID,
		VariantID: variantID,
		Quantity:  merged,
	}

	if lineID == "" {
		line.ID = uuid.New().String()
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO cart_lines (id, user_id, product_id, variant_id, quantity, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
		`, line.ID, userID, productID, nullable(variantID), merged)
	} else {
		line.ID = lineID
		_, err = r.db.ExecContext(ctx, `
			UPDATE cart_lines SET quantity = $2 WHERE id = $1
		`, lineID, merged)
	}
	if err != nil {
		return nil, err
	}

	return line, nil
}

// UpdateLine sets the quantity of an existing line; quantity zero removes it.
func (r *Repository) UpdateLine(ctx context.Context, userID, lineID string, qty int) error {
	var productID string
	var variantID sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT product_id, variant_id FROM cart_lines
		WHERE id = $1 AND user_id = $2
	`, lineID, userID).Scan(&productID, &variantID)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.ErrCartLineNotFound
		}
		return err
	}

	if qty == 0 {
		return r.RemoveLine(ctx, userID, lineID)
	}

	name, stock, active, err := r.availability(ctx, productID, variantID.String)
	if err != nil {
		return err
	}
	if !active {
		return domain.ErrProductUnavailable
	}
	if qty > stock {
		return &domain.StockError{Name: name, Requested: qty, Available: stock}
	}

	_, err = r.db.ExecContext(ctx, `
		UPDATE cart_lines SET quantity = $3 WHERE id = $1 AND user_id = $2
	`, lineID, userID, qty)

	return err
}

func (r *Repository) RemoveLine(ctx context.Context, userID, lineID string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_lines WHERE id = $1 AND user_id = $2
	`, lineID, userID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrCartLineNotFound
	}

	return nil
}

func (r *Repository) Clear(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID)
	return err
}

// RemoveOrdered deletes the cart lines matching the ordered items. It runs on
// the checkout transaction's Querier so the cart is cleared atomically with
// order creation.
func (r *Repository) RemoveOrdered(ctx context.Context, q catalog.Querier, userID string, items []domain.OrderItem) error {
	for _, item := range items {
		_, err := q.ExecContext(ctx, `
			DELETE FROM cart_lines
			WHERE user_id = $1 AND product_id = $2 AND variant_id IS NOT DISTINCT FROM $3
		`, userID, item.ProductID, nullable(item.VariantID))
		if err != nil {
			return err
		}
	}
	return nil
}

// availability reports the display name, current stock and active flag of a
// product or, when variantID is set, its variant.
func (r *Repository) availability(ctx context.Context, productID, variantID string) (string, int, bool, error) {
	var name string
	var stock int
	var active bool
	var err error

	if variantID != "" {
		err = r.db.QueryRowContext(ctx, `
			SELECT p.name || ' (' || v.label || ')', v.stock, (p.active AND v.active)
			FROM product_variants v
			JOIN products p ON p.id = v.product_id
			WHERE v.id = $1 AND v.product_id = $2
		`, variantID, productID).Scan(&name, &stock, &active)
	} else {
		err = r.db.QueryRowContext(ctx, `
			SELECT name, stock, active FROM products WHERE id = $1
		`, productID).Scan(&name, &stock, &active)
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return "", 0, false, domain.ErrProductUnavailable
		}
		return "", 0, false, err
	}

	return name, stock, active, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
