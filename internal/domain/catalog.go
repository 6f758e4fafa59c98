package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CartLine is the canonical form of one line of a purchaser's cart.
type CartLine struct {
	VariantID           string `json:"variant_id"`
	Quantity            int    `json:"quantity"`
	ClientObservedPrice int64  `json:"price"`
}

// VariantSnapshot is the latest catalog state of a purchasable variant.
type VariantSnapshot struct {
	ID              string     `json:"id"`
	ProductID       string     `json:"product_id"`
	ProductName     string     `json:"product_name"`
	VolumeML        int        `json:"volume_ml"`
	Price           int64      `json:"price"`
	SalePrice       *int64     `json:"sale_price,omitempty"`
	StockQuantity   int        `json:"stock_quantity"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	ParentDeletedAt *time.Time `json:"parent_deleted_at,omitempty"`
}

func (v VariantSnapshot) EffectivePrice() int64 {
	if v.SalePrice != nil {
		return *v.SalePrice
	}
	return v.Price
}

func (v VariantSnapshot) Deleted() bool {
	return v.DeletedAt != nil || v.ParentDeletedAt != nil
}

func (v VariantSnapshot) DisplayName() string {
	if v.VolumeML > 0 {
		return fmt.Sprintf("%s %dml", v.ProductName, v.VolumeML)
	}
	return v.ProductName
}

type Discount struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	Percentage    decimal.Decimal `json:"percentage"`
	MaxAmount     *int64          `json:"max_amount,omitempty"`
	MinOrderValue *int64          `json:"min_order_value,omitempty"`
	StartDate     *time.Time      `json:"start_date,omitempty"`
	EndDate       *time.Time      `json:"end_date,omitempty"`
	IsActive      bool            `json:"is_active"`
	RemainingUses *int            `json:"remaining_uses,omitempty"`
}

type ShopSettings struct {
	ShippingFee           int64 `json:"shipping_fee"`
	FreeShippingThreshold int64 `json:"free_shipping_threshold"`
}
