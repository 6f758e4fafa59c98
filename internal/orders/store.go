package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront/internal/catalog"
	"github.com/joao-fontenele/storefront/internal/checkout"
	"github.com/joao-fontenele/storefront/internal/domain"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDiscountExhausted = errors.New("discount has no remaining uses")
)

// Store commits placements. It must be opened on the elevated handle since
// guests have no write access to orders, payments or stock.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx checkout.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&placementTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type placementTx struct {
	tx *sql.Tx
}

// LockVariants takes row locks on the variants in id order so concurrent
// checkouts over overlapping carts cannot deadlock.
func (t *placementTx) LockVariants(ctx context.Context, ids []string) ([]domain.VariantSnapshot, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT `+catalog.VariantColumns+`
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = ANY($1::uuid[])
		ORDER BY v.id
		FOR UPDATE OF v
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var variants []domain.VariantSnapshot
	for rows.Next() {
		v, err := catalog.ScanVariant(rows)
		if err != nil {
			return nil, err
		}
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return variants, nil
}

func (t *placementTx) DecrementStock(ctx context.Context, variantID string, quantity int) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE product_variants
		SET stock_quantity = stock_quantity - $2
		WHERE id = $1 AND stock_quantity >= $2
	`, variantID, quantity)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrInsufficientStock
	}

	return nil
}

func (t *placementTx) LockDiscount(ctx context.Context, id string) (*domain.Discount, error) {
	d, err := catalog.ScanDiscount(t.tx.QueryRowContext(ctx, `
		SELECT `+catalog.DiscountColumns+`
		FROM discounts
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (t *placementTx) ConsumeDiscountUse(ctx context.Context, id string) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE discounts
		SET remaining_uses = remaining_uses - 1
		WHERE id = $1 AND remaining_uses IS NOT NULL AND remaining_uses > 0
	`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrDiscountExhausted
	}

	return nil
}

func (t *placementTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	var guestName, guestEmail, guestPhone *string
	if o.Guest != nil {
		guestName, guestEmail, guestPhone = &o.Guest.Name, nullable(o.Guest.Email), nullable(o.Guest.Phone)
	}
	addr := o.ShippingAddress

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO orders (
			id, owner_user_id, guest_name, guest_email, guest_phone, access_token,
			recipient_name, recipient_phone, address_line, ward, district, city, note,
			payment_method_id, order_status_id, discount_id,
			subtotal_amount, sale_discount_amount, discount_amount, shipping_fee, total_amount,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`,
		o.ID, o.OwnerUserID, guestName, guestEmail, guestPhone, o.AccessToken,
		addr.RecipientName, addr.Phone, addr.AddressLine, addr.Ward, addr.District, addr.City, addr.Note,
		o.PaymentMethodID, o.OrderStatusID, o.DiscountID,
		o.SubtotalAmount, o.SaleDiscountAmount, o.DiscountAmount, o.ShippingFee, o.TotalAmount,
		o.CreatedAt,
	)
	return err
}

func (t *placementTx) InsertLineItems(ctx context.Context, items []domain.OrderLineItem) error {
	for _, item := range items {
		_, err := t.tx.ExecContext(ctx, `
			INSERT INTO order_line_items (id, order_id, variant_id, product_name_snapshot, volume_ml_snapshot, quantity, unit_price_at_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, item.ID, item.OrderID, item.VariantID, item.ProductNameSnapshot, item.VolumeMLSnapshot, item.Quantity, item.UnitPriceAtOrder)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *placementTx) InsertPayment(ctx context.Context, p *domain.PaymentRecord) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO payments (id, order_id, method_id, amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.OrderID, p.MethodID, p.Amount, string(p.Status), p.CreatedAt)
	return err
}

func (t *placementTx) ClearCart(ctx context.Context, userID string) error {
	_, err := t.tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
