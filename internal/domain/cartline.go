package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrInvalidCartLine = errors.New("invalid cart line")

// RawCartLine is a cart line as sent by clients. Older clients send
// camelCase keys, newer ones snake_case; both are accepted.
type RawCartLine struct {
	VariantID           string `json:"variant_id"`
	VariantIDCamel      string `json:"variantId"`
	Quantity            int    `json:"quantity"`
	Price               *int64 `json:"price"`
	ClientObservedPrice *int64 `json:"client_observed_price"`
}

func (r RawCartLine) Normalize(requirePrice bool) (CartLine, error) {
	id := r.VariantID
	switch {
	case id == "" && r.VariantIDCamel == "":
		return CartLine{}, fmt.Errorf("%w: missing variant id", ErrInvalidCartLine)
	case id == "":
		id = r.VariantIDCamel
	case r.VariantIDCamel != "" && r.VariantIDCamel != id:
		return CartLine{}, fmt.Errorf("%w: conflicting variant ids %q and %q", ErrInvalidCartLine, id, r.VariantIDCamel)
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return CartLine{}, fmt.Errorf("%w: variant id %q: %v", ErrInvalidCartLine, id, err)
	}

	if r.Quantity <= 0 {
		return CartLine{}, fmt.Errorf("%w: quantity must be positive for variant %s", ErrInvalidCartLine, id)
	}

	price := r.Price
	if price == nil {
		price = r.ClientObservedPrice
	}
	if price == nil && requirePrice {
		return CartLine{}, fmt.Errorf("%w: missing price for variant %s", ErrInvalidCartLine, id)
	}

	line := CartLine{VariantID: parsed.String(), Quantity: r.Quantity}
	if price != nil {
		if *price < 0 {
			return CartLine{}, fmt.Errorf("%w: negative price for variant %s", ErrInvalidCartLine, id)
		}
		line.ClientObservedPrice = *price
	}
	return line, nil
}

// NormalizeCartLines converts every raw line or rejects the whole batch.
func NormalizeCartLines(raw []RawCartLine, requirePrice bool) ([]CartLine, error) {
	lines := make([]CartLine, 0, len(raw))
	for i, r := range raw {
		line, err := r.Normalize(requirePrice)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}
