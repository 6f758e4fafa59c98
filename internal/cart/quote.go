package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/joao-fontenele/storefront/internal/discount"
	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/pricing"
)

type Catalog interface {
	GetVariants(ctx context.Context, ids []string) ([]domain.VariantSnapshot, error)
	GetShopSettings(ctx context.Context) (domain.ShopSettings, error)
}

type Discounts interface {
	GetDiscount(ctx context.Context, id string) (*domain.Discount, error)
}

// Quoter prices cart lines against the live catalog for display. It never
// rejects a cart; unavailable lines are flagged and left out of the totals.
type Quoter struct {
	catalog   Catalog
	discounts Discounts
	now       func() time.Time
}

func NewQuoter(catalog Catalog, discounts Discounts) *Quoter {
	return &Quoter{catalog: catalog, discounts: discounts, now: time.Now}
}

type QuoteLine struct {
	VariantID   string `json:"variant_id"`
	DisplayName string `json:"display_name,omitempty"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	LineTotal   int64  `json:"line_total"`
	Stock       int    `json:"stock"`
	Available   bool   `json:"available"`
}

type DiscountStatus struct {
	ID      string          `json:"id"`
	Code    string          `json:"code,omitempty"`
	Valid   bool            `json:"valid"`
	Reason  discount.Reason `json:"reason,omitempty"`
	Message string          `json:"message,omitempty"`
}

type Summary struct {
	Lines    []QuoteLine     `json:"lines"`
	Totals   pricing.Totals  `json:"totals"`
	Discount *DiscountStatus `json:"discount,omitempty"`
}

func (q *Quoter) Quote(ctx context.Context, lines []domain.CartLine, discountID string) (*Summary, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.VariantID)
	}

	variants, err := q.catalog.GetVariants(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get variants: %w", err)
	}
	byID := make(map[string]domain.VariantSnapshot, len(variants))
	for _, v := range variants {
		byID[v.ID] = v
	}

	// Stock is checked against the total requested per variant, the same way
	// checkout does, so duplicate lines cannot each pass on their own.
	requested := make(map[string]int, len(lines))
	for _, l := range lines {
		requested[l.VariantID] += l.Quantity
	}

	summary := &Summary{Lines: make([]QuoteLine, 0, len(lines))}
	var priced []pricing.PricedLine
	for _, l := range lines {
		ql := QuoteLine{VariantID: l.VariantID, Quantity: l.Quantity}
		v, ok := byID[l.VariantID]
		if ok {
			ql.DisplayName = v.DisplayName()
			ql.UnitPrice = v.EffectivePrice()
			ql.LineTotal = int64(l.Quantity) * ql.UnitPrice
			ql.Stock = v.StockQuantity
			ql.Available = !v.Deleted() && v.StockQuantity >= requested[l.VariantID]
		}
		if ql.Available {
			priced = append(priced, pricing.PricedLine{Line: l, Variant: v})
		}
		summary.Lines = append(summary.Lines, ql)
	}

	subtotal, saleDiscount := pricing.Subtotal(priced)

	var discountAmount int64
	if discountID != "" {
		d, err := q.discounts.GetDiscount(ctx, discountID)
		if err != nil {
			return nil, fmt.Errorf("get discount: %w", err)
		}
		status := &DiscountStatus{ID: discountID}
		if d == nil {
			status.Message = "This discount code does not exist."
		} else {
			eval := discount.Evaluate(*d, q.now(), subtotal)
			status.Code = d.Code
			status.Valid = eval.Valid
			status.Reason = eval.Reason
			if eval.Valid {
				discountAmount = eval.Amount
			} else {
				status.Message = eval.Reason.Message()
			}
		}
		summary.Discount = status
	}

	settings, err := q.catalog.GetShopSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get shop settings: %w", err)
	}

	summary.Totals = pricing.Compute(subtotal, saleDiscount, discountAmount, pricing.ShippingFee(settings, subtotal))
	return summary, nil
}
