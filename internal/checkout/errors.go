package checkout

import (
	"errors"
	"fmt"
	"strings"
)

type Category string

const (
	CategoryUnavailableItems        Category = "unavailable_items"
	CategoryPriceChanged            Category = "price_changed"
	CategoryInvalidDiscount         Category = "invalid_discount"
	CategoryInvalidPaymentMethod    Category = "invalid_payment_method"
	CategoryInvalidRequest          Category = "invalid_request"
	CategoryStatusResolutionFailure Category = "status_resolution_failure"
	CategoryCommitFailure           Category = "commit_failure"
	CategoryInternal                Category = "internal_error"
)

// LineProblem describes why a single cart line blocked the order.
type LineProblem struct {
	VariantID   string `json:"variant_id"`
	ProductName string `json:"product_name,omitempty"`
	Reason      string `json:"reason"`
	Requested   int    `json:"requested,omitempty"`
	Available   int    `json:"available,omitempty"`
	ClientPrice int64  `json:"client_price,omitempty"`
	ServerPrice int64  `json:"server_price,omitempty"`
}

const (
	reasonNotFound     = "not_found"
	reasonDiscontinued = "discontinued"
	reasonOutOfStock   = "out_of_stock"
	reasonInsufficient = "insufficient_stock"
	reasonPriceChanged = "price_changed"
)

func (p LineProblem) describe() string {
	name := p.ProductName
	if name == "" {
		name = "an item"
	}
	switch p.Reason {
	case reasonOutOfStock:
		return name + " (out of stock)"
	case reasonInsufficient:
		return fmt.Sprintf("%s (only %d left)", name, p.Available)
	default:
		return name + " (no longer sold)"
	}
}

// PlaceOrderError is the only error type PlaceOrder returns. Message is safe
// to show to the purchaser; Err carries the technical cause, if any.
type PlaceOrderError struct {
	Category Category
	Message  string
	Lines    []LineProblem
	Err      error
}

func (e *PlaceOrderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *PlaceOrderError) Unwrap() error {
	return e.Err
}

// CategoryOf returns the category of a placement error, or "" for anything else.
func CategoryOf(err error) Category {
	var perr *PlaceOrderError
	if errors.As(err, &perr) {
		return perr.Category
	}
	return ""
}

func unavailableError(problems []LineProblem) *PlaceOrderError {
	parts := make([]string, 0, len(problems))
	for _, p := range problems {
		parts = append(parts, p.describe())
	}
	return &PlaceOrderError{
		Category: CategoryUnavailableItems,
		Message:  "Some items in your cart are no longer available: " + strings.Join(parts, "; ") + ".",
		Lines:    problems,
	}
}

func priceChangedError(problems []LineProblem) *PlaceOrderError {
	return &PlaceOrderError{
		Category: CategoryPriceChanged,
		Message:  "Prices in your cart have changed. Please refresh your cart and confirm the new total.",
		Lines:    problems,
	}
}

func invalidRequest(message string) *PlaceOrderError {
	return &PlaceOrderError{Category: CategoryInvalidRequest, Message: message}
}

func internalError(err error) *PlaceOrderError {
	return &PlaceOrderError{
		Category: CategoryInternal,
		Message:  "We could not check your order right now. Please try again in a moment.",
		Err:      err,
	}
}

func commitFailure(err error) *PlaceOrderError {
	return &PlaceOrderError{
		Category: CategoryCommitFailure,
		Message:  "We could not save your order. Nothing was charged; please contact support if this keeps happening.",
		Err:      err,
	}
}
