package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/joao-fontenele/storefront/internal/domain"
)

type shopState struct {
	variants  map[string]domain.VariantSnapshot
	discounts map[string]domain.Discount
	orders    map[string]domain.Order
	lineItems []domain.OrderLineItem
	payments  []domain.PaymentRecord
	carts     map[string][]domain.CartLine
}

func (s shopState) clone() shopState {
	c := shopState{
		variants:  make(map[string]domain.VariantSnapshot, len(s.variants)),
		discounts: make(map[string]domain.Discount, len(s.discounts)),
		orders:    make(map[string]domain.Order, len(s.orders)),
		lineItems: append([]domain.OrderLineItem(nil), s.lineItems...),
		payments:  append([]domain.PaymentRecord(nil), s.payments...),
		carts:     make(map[string][]domain.CartLine, len(s.carts)),
	}
	for k, v := range s.variants {
		c.variants[k] = v
	}
	for k, v := range s.discounts {
		if v.RemainingUses != nil {
			n := *v.RemainingUses
			v.RemainingUses = &n
		}
		c.discounts[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = append([]domain.CartLine(nil), v...)
	}
	return c
}

// fakeShop implements every port of the engine over in-memory state. WithTx
// works on a copy and swaps it in only when fn succeeds.
type fakeShop struct {
	mu       sync.Mutex
	state    shopState
	statuses []domain.OrderStatus
	methods  map[string]domain.PaymentMethod
	settings domain.ShopSettings

	failOn     string
	beforeLock func(s *shopState)
	published  []domain.OrderPlacedEvent
}

func newFakeShop() *fakeShop {
	return &fakeShop{
		state: shopState{
			variants:  map[string]domain.VariantSnapshot{},
			discounts: map[string]domain.Discount{},
			orders:    map[string]domain.Order{},
			carts:     map[string][]domain.CartLine{},
		},
		statuses: []domain.OrderStatus{
			{ID: 1, Name: "Pending", SortOrder: 1},
			{ID: 2, Name: "Confirmed", SortOrder: 2},
		},
		methods: map[string]domain.PaymentMethod{
			"cod": {ID: "cod", Name: "Cash on delivery", IsActive: true},
		},
		settings: domain.ShopSettings{ShippingFee: 30000, FreeShippingThreshold: 2_000_000},
	}
}

func (f *fakeShop) GetVariants(_ context.Context, ids []string) ([]domain.VariantSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.VariantSnapshot
	for _, id := range ids {
		if v, ok := f.state.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeShop) GetShopSettings(context.Context) (domain.ShopSettings, error) {
	return f.settings, nil
}

func (f *fakeShop) GetDiscount(_ context.Context, id string) (*domain.Discount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.state.clone().discounts[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (f *fakeShop) ListOrderStatuses(context.Context) ([]domain.OrderStatus, error) {
	return f.statuses, nil
}

func (f *fakeShop) GetPaymentMethod(_ context.Context, id string) (*domain.PaymentMethod, error) {
	m, ok := f.methods[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (f *fakeShop) Publish(_ context.Context, _ string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event.(domain.OrderPlacedEvent))
	return nil
}

func (f *fakeShop) WithTx(_ context.Context, fn func(tx Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.beforeLock != nil {
		f.beforeLock(&f.state)
		f.beforeLock = nil
	}

	work := f.state.clone()
	if err := fn(&fakeTx{state: &work, failOn: f.failOn}); err != nil {
		return err
	}
	f.state = work
	return nil
}

func (f *fakeShop) snapshot() shopState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.clone()
}

var errInjected = errors.New("injected failure")

type fakeTx struct {
	state  *shopState
	failOn string
}

func (t *fakeTx) fail(op string) error {
	if t.failOn == op {
		return fmt.Errorf("%s: %w", op, errInjected)
	}
	return nil
}

func (t *fakeTx) LockVariants(_ context.Context, ids []string) ([]domain.VariantSnapshot, error) {
	if err := t.fail("LockVariants"); err != nil {
		return nil, err
	}
	var out []domain.VariantSnapshot
	for _, id := range ids {
		if v, ok := t.state.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (t *fakeTx) DecrementStock(_ context.Context, variantID string, quantity int) error {
	if err := t.fail("DecrementStock"); err != nil {
		return err
	}
	v := t.state.variants[variantID]
	if v.StockQuantity < quantity {
		return errors.New("insufficient stock")
	}
	v.StockQuantity -= quantity
	t.state.variants[variantID] = v
	return nil
}

func (t *fakeTx) LockDiscount(_ context.Context, id string) (*domain.Discount, error) {
	d, ok := t.state.discounts[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}

func (t *fakeTx) ConsumeDiscountUse(_ context.Context, id string) error {
	if err := t.fail("ConsumeDiscountUse"); err != nil {
		return err
	}
	d := t.state.discounts[id]
	n := *d.RemainingUses - 1
	d.RemainingUses = &n
	t.state.discounts[id] = d
	return nil
}

func (t *fakeTx) InsertOrder(_ context.Context, order *domain.Order) error {
	if err := t.fail("InsertOrder"); err != nil {
		return err
	}
	t.state.orders[order.ID] = *order
	return nil
}

func (t *fakeTx) InsertLineItems(_ context.Context, items []domain.OrderLineItem) error {
	if err := t.fail("InsertLineItems"); err != nil {
		return err
	}
	t.state.lineItems = append(t.state.lineItems, items...)
	return nil
}

func (t *fakeTx) InsertPayment(_ context.Context, payment *domain.PaymentRecord) error {
	if err := t.fail("InsertPayment"); err != nil {
		return err
	}
	t.state.payments = append(t.state.payments, *payment)
	return nil
}

func (t *fakeTx) ClearCart(_ context.Context, userID string) error {
	if err := t.fail("ClearCart"); err != nil {
		return err
	}
	delete(t.state.carts, userID)
	return nil
}
