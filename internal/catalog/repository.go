package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/joao-fontenele/storefront/internal/domain"
)

// VariantColumns selects a variant joined with its product. Queries using it
// must alias product_variants as v and products as p.
const VariantColumns = `v.id, v.product_id, p.name, v.volume_ml, v.price, v.sale_price,
	v.stock_quantity, v.deleted_at, p.deleted_at`

const DiscountColumns = `id, code, percentage, max_amount, min_order_value,
	start_date, end_date, is_active, remaining_uses`

type RowScanner interface {
	Scan(dest ...any) error
}

func ScanVariant(row RowScanner) (domain.VariantSnapshot, error) {
	var (
		v               domain.VariantSnapshot
		salePrice       sql.NullInt64
		deletedAt       sql.NullTime
		parentDeletedAt sql.NullTime
	)
	err := row.Scan(&v.ID, &v.ProductID, &v.ProductName, &v.VolumeML, &v.Price, &salePrice,
		&v.StockQuantity, &deletedAt, &parentDeletedAt)
	if err != nil {
		return domain.VariantSnapshot{}, err
	}
	if salePrice.Valid {
		v.SalePrice = &salePrice.Int64
	}
	if deletedAt.Valid {
		v.DeletedAt = &deletedAt.Time
	}
	if parentDeletedAt.Valid {
		v.ParentDeletedAt = &parentDeletedAt.Time
	}
	return v, nil
}

func ScanDiscount(row RowScanner) (domain.Discount, error) {
	var (
		d             domain.Discount
		pct           decimal.Decimal
		maxAmount     sql.NullInt64
		minOrderValue sql.NullInt64
		startDate     sql.NullTime
		endDate       sql.NullTime
		remainingUses sql.NullInt32
	)
	err := row.Scan(&d.ID, &d.Code, &pct, &maxAmount, &minOrderValue,
		&startDate, &endDate, &d.IsActive, &remainingUses)
	if err != nil {
		return domain.Discount{}, err
	}
	d.Percentage = pct
	if maxAmount.Valid {
		d.MaxAmount = &maxAmount.Int64
	}
	if minOrderValue.Valid {
		d.MinOrderValue = &minOrderValue.Int64
	}
	if startDate.Valid {
		d.StartDate = &startDate.Time
	}
	if endDate.Valid {
		d.EndDate = &endDate.Time
	}
	if remainingUses.Valid {
		n := int(remainingUses.Int32)
		d.RemainingUses = &n
	}
	return d, nil
}

// Repository reads live catalog state over the non-elevated handle.
type Repository struct {
	db       *sql.DB
	statuses singleflight.Group
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetVariants returns the variants with the given ids, soft-deleted ones
// included. Unknown ids are simply absent from the result.
func (r *Repository) GetVariants(ctx context.Context, ids []string) ([]domain.VariantSnapshot, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+VariantColumns+`
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = ANY($1::uuid[])
		ORDER BY v.id
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	variants := make([]domain.VariantSnapshot, 0, len(ids))
	for rows.Next() {
		v, err := ScanVariant(rows)
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

func (r *Repository) GetVariant(ctx context.Context, id string) (*domain.VariantSnapshot, error) {
	v, err := ScanVariant(r.db.QueryRowContext(ctx, `
		SELECT `+VariantColumns+`
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// GetShopSettings returns zero settings when the row is missing, which
// means free shipping for everyone.
func (r *Repository) GetShopSettings(ctx context.Context) (domain.ShopSettings, error) {
	var s domain.ShopSettings
	err := r.db.QueryRowContext(ctx, `
		SELECT shipping_fee, free_shipping_threshold
		FROM shop_settings
		LIMIT 1
	`).Scan(&s.ShippingFee, &s.FreeShippingThreshold)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return domain.ShopSettings{}, err
	}
	return s, nil
}

func (r *Repository) GetDiscount(ctx context.Context, id string) (*domain.Discount, error) {
	d, err := ScanDiscount(r.db.QueryRowContext(ctx, `
		SELECT `+DiscountColumns+`
		FROM discounts
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "22P02" {
			// not a uuid, so no such discount
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

// ListOrderStatuses is hit by every checkout; concurrent callers share one query.
func (r *Repository) ListOrderStatuses(ctx context.Context) ([]domain.OrderStatus, error) {
	v, err := shared(ctx, &r.statuses, "order_statuses", func(ctx context.Context) (any, error) {
		return r.listOrderStatuses(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list order statuses: %w", err)
	}
	return v.([]domain.OrderStatus), nil
}

// shared runs fn once for all concurrent callers of key. fn does not inherit
// the first caller's cancellation; each caller stops waiting when its own
// ctx is done.
func shared(ctx context.Context, g *singleflight.Group, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := g.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

func (r *Repository) listOrderStatuses(ctx context.Context) ([]domain.OrderStatus, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, sort_order
		FROM order_statuses
		ORDER BY sort_order, id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var statuses []domain.OrderStatus
	for rows.Next() {
		var s domain.OrderStatus
		if err := rows.Scan(&s.ID, &s.Name, &s.SortOrder); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return statuses, nil
}

func (r *Repository) GetPaymentMethod(ctx context.Context, id string) (*domain.PaymentMethod, error) {
	m := &domain.PaymentMethod{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, is_active
		FROM payment_methods
		WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return m, nil
}
