package addresses

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/freshbasket/checkout/internal/domain"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetForUser returns nil when the address does not exist or belongs to a
// different user; ownership is part of the lookup, not a separate check.
func (r *Repository) GetForUser(ctx context.Context, id, userID string) (*domain.Address, error) {
	a := &domain.Address{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, label, line1, line2, city, pincode, phone
		FROM addresses
		WHERE id = $1 AND user_id = $2
	`, id, userID).Scan(&a.ID, &a.UserID, &a.Label, &a.Line1, &a.Line2, &a.City, &a.Pincode, &a.Phone)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	return a, nil
}

func (r *Repository) Create(ctx context.Context, a *domain.Address) error {
	a.ID = uuid.New().String()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO addresses (id, user_id, label, line1, line2, city, pincode, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.UserID, a.Label, a.Line1, a.Line2, a.City, a.Pincode, a.Phone)

	return err
}

func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Address, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, label, line1, line2, city, pincode, phone
		FROM addresses
		WHERE user_id = $1
		ORDER BY label
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var result []domain.Address
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Label, &a.Line1, &a.Line2, &a.City, &a.Pincode, &a.Phone); err != nil {
			return nil, err
		}
		result = append(result, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
