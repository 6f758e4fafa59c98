package orders

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/joao-fontenele/storefront/internal/domain"
)

var ErrOrderNotFound = errors.New("order not found")

const orderColumns = `id, owner_user_id, guest_name, guest_email, guest_phone, access_token,
	recipient_name, recipient_phone, address_line, ward, district, city, note,
	payment_method_id, order_status_id, discount_id,
	subtotal_amount, sale_discount_amount, discount_amount, shipping_fee, total_amount,
	created_at`

// OrderRepository reads placed orders.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func scanOrder(row interface{ Scan(...any) error }) (domain.Order, error) {
	var (
		o                                 domain.Order
		owner, accessToken, discountID    sql.NullString
		guestName, guestEmail, guestPhone sql.NullString
	)
	addr := &o.ShippingAddress
	err := row.Scan(&o.ID, &owner, &guestName, &guestEmail, &guestPhone, &accessToken,
		&addr.RecipientName, &addr.Phone, &addr.AddressLine, &addr.Ward, &addr.District, &addr.City, &addr.Note,
		&o.PaymentMethodID, &o.OrderStatusID, &discountID,
		&o.SubtotalAmount, &o.SaleDiscountAmount, &o.DiscountAmount, &o.ShippingFee, &o.TotalAmount,
		&o.CreatedAt)
	if err != nil {
		return domain.Order{}, err
	}

	if owner.Valid {
		o.OwnerUserID = &owner.String
	}
	if accessToken.Valid {
		o.AccessToken = &accessToken.String
	}
	if discountID.Valid {
		o.DiscountID = &discountID.String
	}
	if guestName.Valid {
		o.Guest = &domain.GuestContact{Name: guestName.String, Email: guestEmail.String, Phone: guestPhone.String}
	}
	o.Items = []domain.OrderLineItem{}
	return o, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, variant_id, product_name_snapshot, volume_ml_snapshot, quantity, unit_price_at_order
		FROM order_line_items
		WHERE order_id = $1
		ORDER BY product_name_snapshot, id
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &order, nil
}

// ListByOwner returns the purchaser's orders newest first. Line items are
// fetched in one query for the whole page.
func (r *OrderRepository) ListByOwner(ctx context.Context, userID string) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE owner_user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
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
		SELECT id, order_id, variant_id, product_name_snapshot, volume_ml_snapshot, quantity, unit_price_at_order
		FROM order_line_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY product_name_snapshot, id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = itemRows.Close() }()

	for itemRows.Next() {
		item, err := scanLineItem(itemRows)
		if err != nil {
			return nil, err
		}
		order := orderMap[item.OrderID]
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

func scanLineItem(rows *sql.Rows) (domain.OrderLineItem, error) {
	var item domain.OrderLineItem
	err := rows.Scan(&item.ID, &item.OrderID, &item.VariantID, &item.ProductNameSnapshot,
		&item.VolumeMLSnapshot, &item.Quantity, &item.UnitPriceAtOrder)
	return item, err
}
