package cart

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/joao-fontenele/storefront/internal/domain"
)

type memStore struct {
	mu      sync.Mutex
	rows    map[string]map[string]int
	failFor map[string]bool
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]map[string]int{}, failFor: map[string]bool{}}
}

func (m *memStore) Items(_ context.Context, userID string) ([]domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := []domain.CartLine{}
	for id, qty := range m.rows[userID] {
		lines = append(lines, domain.CartLine{VariantID: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].VariantID < lines[j].VariantID })
	return lines, nil
}

func (m *memStore) Increment(_ context.Context, userID, variantID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[variantID] {
		return errors.New("write failed")
	}
	if m.rows[userID] == nil {
		m.rows[userID] = map[string]int{}
	}
	m.rows[userID][variantID] += quantity
	return nil
}

func (m *memStore) Remove(_ context.Context, userID, variantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows[userID], variantID)
	return nil
}

type memCatalog struct {
	variants  map[string]domain.VariantSnapshot
	discounts map[string]domain.Discount
	settings  domain.ShopSettings
}

func (c *memCatalog) GetVariants(_ context.Context, ids []string) ([]domain.VariantSnapshot, error) {
	var out []domain.VariantSnapshot
	for _, id := range ids {
		if v, ok := c.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (c *memCatalog) GetShopSettings(context.Context) (domain.ShopSettings, error) {
	return c.settings, nil
}

func (c *memCatalog) GetDiscount(_ context.Context, id string) (*domain.Discount, error) {
	d, ok := c.discounts[id]
	if !ok {
		return nil, nil
	}
	return &d, nil
}
