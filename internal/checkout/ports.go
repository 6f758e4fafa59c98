package checkout

import (
	"context"

	"github.com/joao-fontenele/storefront/internal/domain"
)

// Catalog reads the live state of variants and shop-wide pricing settings.
type Catalog interface {
	GetVariants(ctx context.Context, ids []string) ([]domain.VariantSnapshot, error)
	GetShopSettings(ctx context.Context) (domain.ShopSettings, error)
}

type Discounts interface {
	// GetDiscount returns nil, nil when no discount has the id.
	GetDiscount(ctx context.Context, id string) (*domain.Discount, error)
}

type Statuses interface {
	ListOrderStatuses(ctx context.Context) ([]domain.OrderStatus, error)
}

type PaymentMethods interface {
	// GetPaymentMethod returns nil, nil when no method has the id.
	GetPaymentMethod(ctx context.Context, id string) (*domain.PaymentMethod, error)
}

// Store runs fn inside a single database transaction. The transaction is
// committed only when fn returns nil.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write side of a placement. Lock* methods hold row locks until
// the surrounding transaction ends.
type Tx interface {
	LockVariants(ctx context.Context, ids []string) ([]domain.VariantSnapshot, error)
	DecrementStock(ctx context.Context, variantID string, quantity int) error
	LockDiscount(ctx context.Context, id string) (*domain.Discount, error)
	ConsumeDiscountUse(ctx context.Context, id string) error
	InsertOrder(ctx context.Context, order *domain.Order) error
	InsertLineItems(ctx context.Context, items []domain.OrderLineItem) error
	InsertPayment(ctx context.Context, payment *domain.PaymentRecord) error
	ClearCart(ctx context.Context, userID string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}
