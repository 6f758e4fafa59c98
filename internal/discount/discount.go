// Package discount evaluates percentage discount codes against an order subtotal.
package discount

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront/internal/domain"
)

type Reason string

const (
	ReasonInactive     Reason = "inactive"
	ReasonNotStarted   Reason = "not_started"
	ReasonExpired      Reason = "expired"
	ReasonExhausted    Reason = "exhausted"
	ReasonBelowMinimum Reason = "below_minimum"
)

var hundred = decimal.NewFromInt(100)

type Evaluation struct {
	Valid  bool   `json:"valid"`
	Reason Reason `json:"reason,omitempty"`
	Amount int64  `json:"amount"`
}

// Evaluate reports whether d applies to an order with the given subtotal at now,
// and how much it takes off. It has no side effects; usage counting is left to the caller.
func Evaluate(d domain.Discount, now time.Time, subtotal int64) Evaluation {
	if reason, ok := check(d, now, subtotal); !ok {
		return Evaluation{Valid: false, Reason: reason}
	}
	return Evaluation{Valid: true, Amount: Amount(d, subtotal)}
}

func check(d domain.Discount, now time.Time, subtotal int64) (Reason, bool) {
	switch {
	case !d.IsActive:
		return ReasonInactive, false
	case d.StartDate != nil && now.Before(*d.StartDate):
		return ReasonNotStarted, false
	case d.EndDate != nil && now.After(*d.EndDate):
		return ReasonExpired, false
	case d.RemainingUses != nil && *d.RemainingUses <= 0:
		return ReasonExhausted, false
	case d.MinOrderValue != nil && subtotal < *d.MinOrderValue:
		return ReasonBelowMinimum, false
	}
	return "", true
}

// Amount is min(percentage/100 * subtotal, maxAmount), rounded down to the
// minor unit and never negative or above the subtotal.
func Amount(d domain.Discount, subtotal int64) int64 {
	if subtotal <= 0 || !d.Percentage.IsPositive() {
		return 0
	}

	amount := d.Percentage.Mul(decimal.NewFromInt(subtotal)).Div(hundred).Floor().IntPart()
	if d.MaxAmount != nil && amount > *d.MaxAmount {
		amount = *d.MaxAmount
	}
	if amount > subtotal {
		amount = subtotal
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}

// Message is the purchaser-facing explanation of a rejected discount.
func (r Reason) Message() string {
	switch r {
	case ReasonInactive:
		return "This discount code is no longer active."
	case ReasonNotStarted:
		return "This discount code is not valid yet."
	case ReasonExpired:
		return "This discount code has expired."
	case ReasonExhausted:
		return "This discount code has been fully redeemed."
	case ReasonBelowMinimum:
		return "Your order does not reach the minimum value for this discount code."
	default:
		return "This discount code cannot be applied."
	}
}
