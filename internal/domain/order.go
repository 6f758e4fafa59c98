package domain

import "time"

// OrderStatus is a row of the admin-managed order workflow table.
type OrderStatus struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "Pending"
	PaymentStatusPaid     PaymentStatus = "Paid"
	PaymentStatusFailed   PaymentStatus = "Failed"
	PaymentStatusRefunded PaymentStatus = "Refunded"
)

type PaymentMethod struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
}

type GuestContact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ShippingAddress struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	AddressLine   string `json:"address_line"`
	Ward          string `json:"ward,omitempty"`
	District      string `json:"district,omitempty"`
	City          string `json:"city"`
	Note          string `json:"note,omitempty"`
}

// Order amounts are in the shop currency's minor unit.
type Order struct {
	ID                 string          `json:"id"`
	OwnerUserID        *string         `json:"owner_user_id,omitempty"`
	Guest              *GuestContact   `json:"guest,omitempty"`
	ShippingAddress    ShippingAddress `json:"shipping_address"`
	PaymentMethodID    string          `json:"payment_method_id"`
	OrderStatusID      int             `json:"order_status_id"`
	DiscountID         *string         `json:"discount_id,omitempty"`
	SubtotalAmount     int64           `json:"subtotal_amount"`
	SaleDiscountAmount int64           `json:"sale_discount_amount"`
	DiscountAmount     int64           `json:"discount_amount"`
	ShippingFee        int64           `json:"shipping_fee"`
	TotalAmount        int64           `json:"total_amount"`
	AccessToken        *string         `json:"-"`
	Items              []OrderLineItem `json:"items"`
	CreatedAt          time.Time       `json:"created_at"`
}

func (o *Order) IsGuest() bool {
	return o.OwnerUserID == nil
}

// OrderLineItem is a snapshot of the variant taken at commit time.
type OrderLineItem struct {
	ID                  string `json:"id"`
	OrderID             string `json:"order_id"`
	VariantID           string `json:"variant_id"`
	ProductNameSnapshot string `json:"product_name"`
	VolumeMLSnapshot    int    `json:"volume_ml"`
	Quantity            int    `json:"quantity"`
	UnitPriceAtOrder    int64  `json:"unit_price"`
}

func (i OrderLineItem) LineTotal() int64 {
	return int64(i.Quantity) * i.UnitPriceAtOrder
}

type PaymentRecord struct {
	ID        string        `json:"id"`
	OrderID   string        `json:"order_id"`
	MethodID  string        `json:"method_id"`
	Amount    int64         `json:"amount"`
	Status    PaymentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}
