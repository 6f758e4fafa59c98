package cart

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront/internal/domain"
)

var ErrUnknownVariant = errors.New("unknown variant")

const foreignKeyViolation = "23503"

// Repository stores authenticated purchasers' carts.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Items returns the stored lines. Stored lines carry no price; callers
// price them against the live catalog.
func (r *Repository) Items(ctx context.Context, userID string) ([]domain.CartLine, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT variant_id, quantity
		FROM cart_items
		WHERE user_id = $1
		ORDER BY updated_at, variant_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	lines := []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(&line.VariantID, &line.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// Increment adds quantity to the user's row for the variant, creating the
// row when there is none.
func (r *Repository) Increment(ctx context.Context, userID, variantID string, quantity int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (user_id, variant_id, quantity, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, variant_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = NOW()
	`, userID, variantID, quantity)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
		return ErrUnknownVariant
	}
	return err
}

func (r *Repository) Remove(ctx context.Context, userID, variantID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM cart_items
		WHERE user_id = $1 AND variant_id = $2
	`, userID, variantID)
	return err
}
