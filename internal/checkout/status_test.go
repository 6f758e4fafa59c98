package checkout

import (
	"errors"
	"testing"

	"github.com/joao-fontenele/storefront/internal/domain"
)

func TestResolveInitialStatus(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []domain.OrderStatus
		wantID       int
		wantFallback bool
	}{
		{
			name: "matches pending ignoring case and spaces",
			statuses: []domain.OrderStatus{
				{ID: 1, Name: "Confirmed", SortOrder: 1},
				{ID: 2, Name: "  PENDING ", SortOrder: 2},
			},
			wantID: 2,
		},
		{
			name: "prefers earlier name in the list",
			statuses: []domain.OrderStatus{
				{ID: 5, Name: "New", SortOrder: 1},
				{ID: 6, Name: "Chờ xác nhận", SortOrder: 2},
			},
			wantID: 6,
		},
		{
			name: "falls back to lowest sort order",
			statuses: []domain.OrderStatus{
				{ID: 9, Name: "Delivered", SortOrder: 4},
				{ID: 3, Name: "Shipping", SortOrder: 2},
				{ID: 2, Name: "Packed", SortOrder: 2},
			},
			wantID:       2,
			wantFallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fallback, err := ResolveInitialStatus(tt.statuses)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ID != tt.wantID {
				t.Errorf("expected status %d, got %d", tt.wantID, got.ID)
			}
			if fallback != tt.wantFallback {
				t.Errorf("expected fallback=%v, got %v", tt.wantFallback, fallback)
			}
		})
	}

	t.Run("empty list", func(t *testing.T) {
		_, _, err := ResolveInitialStatus(nil)
		if !errors.Is(err, ErrNoOrderStatuses) {
			t.Errorf("expected ErrNoOrderStatuses, got %v", err)
		}
	})
}
