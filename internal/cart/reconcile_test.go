package cart

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront/internal/domain"
)

func TestReconciler_Merge(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("sums existing rows and inserts new ones", func(t *testing.T) {
		store := newMemStore()
		require.NoError(t, store.Increment(context.Background(), "user-1", "a", 2))

		res, err := NewReconciler(store, logger).Merge(context.Background(), "user-1", []domain.CartLine{
			{VariantID: "a", Quantity: 1},
			{VariantID: "b", Quantity: 3},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, res.Merged)
		assert.Empty(t, res.Failed)

		lines, _ := store.Items(context.Background(), "user-1")
		assert.Equal(t, []domain.CartLine{
			{VariantID: "a", Quantity: 3},
			{VariantID: "b", Quantity: 3},
		}, lines)
	})

	t.Run("partial failure keeps merged lines and reports sync failure", func(t *testing.T) {
		store := newMemStore()
		store.failFor["b"] = true

		res, err := NewReconciler(store, logger).Merge(context.Background(), "user-1", []domain.CartLine{
			{VariantID: "a", Quantity: 1},
			{VariantID: "b", Quantity: 1},
			{VariantID: "c", Quantity: 1},
		})
		require.ErrorIs(t, err, ErrSyncFailed)
		assert.Equal(t, 2, res.Merged)
		assert.Equal(t, []string{"b"}, res.Failed)

		lines, _ := store.Items(context.Background(), "user-1")
		assert.Len(t, lines, 2)
	})

	t.Run("empty local cart is a no-op", func(t *testing.T) {
		res, err := NewReconciler(newMemStore(), logger).Merge(context.Background(), "user-1", nil)
		require.NoError(t, err)
		assert.Zero(t, res.Merged)
	})
}
