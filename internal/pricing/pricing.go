package pricing

import "github.com/joao-fontenele/storefront/internal/domain"

type Totals struct {
	Subtotal       int64 `json:"subtotal"`
	SaleDiscount   int64 `json:"sale_discount"`
	DiscountAmount int64 `json:"discount_amount"`
	ShippingFee    int64 `json:"shipping_fee"`
	Total          int64 `json:"total"`
}

// PricedLine pairs a cart line with the variant it was priced against.
type PricedLine struct {
	Line    domain.CartLine
	Variant domain.VariantSnapshot
}

func (p PricedLine) LineTotal() int64 {
	return int64(p.Line.Quantity) * p.Variant.EffectivePrice()
}

// Subtotal sums lines at their effective price and reports how much the
// sale prices already took off the base prices.
func Subtotal(lines []PricedLine) (subtotal, saleDiscount int64) {
	for _, l := range lines {
		subtotal += l.LineTotal()
		saleDiscount += int64(l.Line.Quantity) * (l.Variant.Price - l.Variant.EffectivePrice())
	}
	return subtotal, saleDiscount
}

// ShippingFee is waived once the pre-discount subtotal reaches the free
// shipping threshold. A zero threshold never waives the fee.
func ShippingFee(settings domain.ShopSettings, subtotal int64) int64 {
	if settings.FreeShippingThreshold > 0 && subtotal >= settings.FreeShippingThreshold {
		return 0
	}
	return settings.ShippingFee
}

// Compute returns max(0, subtotal - discount) + shipping.
func Compute(subtotal, saleDiscount, discountAmount, shippingFee int64) Totals {
	net := subtotal - discountAmount
	if net < 0 {
		net = 0
	}
	return Totals{
		Subtotal:       subtotal,
		SaleDiscount:   saleDiscount,
		DiscountAmount: discountAmount,
		ShippingFee:    shippingFee,
		Total:          net + shippingFee,
	}
}
