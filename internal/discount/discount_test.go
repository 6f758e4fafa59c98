package discount

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/joao-fontenele/storefront/internal/domain"
)

func ptr[T any](v T) *T { return &v }

func TestEvaluate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	base := domain.Discount{
		ID:            "d-1",
		Code:          "SPRING10",
		Percentage:    decimal.NewFromInt(10),
		MaxAmount:     ptr(int64(50000)),
		MinOrderValue: ptr(int64(100000)),
		IsActive:      true,
	}

	t.Run("caps the amount at max amount", func(t *testing.T) {
		got := Evaluate(base, now, 1_000_000)
		assert.True(t, got.Valid)
		assert.Equal(t, int64(50000), got.Amount)
	})

	t.Run("uses the percentage below the cap", func(t *testing.T) {
		got := Evaluate(base, now, 200_000)
		assert.True(t, got.Valid)
		assert.Equal(t, int64(20000), got.Amount)
	})

	t.Run("rejects subtotal below minimum", func(t *testing.T) {
		got := Evaluate(base, now, 50_000)
		assert.False(t, got.Valid)
		assert.Equal(t, ReasonBelowMinimum, got.Reason)
		assert.Zero(t, got.Amount)
	})

	t.Run("accepts subtotal equal to minimum", func(t *testing.T) {
		got := Evaluate(base, now, 100_000)
		assert.True(t, got.Valid)
		assert.Equal(t, int64(10000), got.Amount)
	})

	t.Run("rejects inactive", func(t *testing.T) {
		d := base
		d.IsActive = false
		assert.Equal(t, ReasonInactive, Evaluate(d, now, 1_000_000).Reason)
	})

	t.Run("rejects before start date", func(t *testing.T) {
		d := base
		d.StartDate = ptr(now.Add(time.Hour))
		assert.Equal(t, ReasonNotStarted, Evaluate(d, now, 1_000_000).Reason)
	})

	t.Run("rejects after end date", func(t *testing.T) {
		d := base
		d.EndDate = ptr(now.Add(-time.Second))
		assert.Equal(t, ReasonExpired, Evaluate(d, now, 1_000_000).Reason)
	})

	t.Run("window bounds are inclusive", func(t *testing.T) {
		d := base
		d.StartDate = ptr(now)
		d.EndDate = ptr(now)
		assert.True(t, Evaluate(d, now, 1_000_000).Valid)
	})

	t.Run("rejects exhausted uses", func(t *testing.T) {
		d := base
		d.RemainingUses = ptr(0)
		assert.Equal(t, ReasonExhausted, Evaluate(d, now, 1_000_000).Reason)
	})

	t.Run("uncapped uses and amount", func(t *testing.T) {
		d := base
		d.MaxAmount = nil
		d.MinOrderValue = nil
		d.RemainingUses = ptr(3)
		got := Evaluate(d, now, 1_000_000)
		assert.True(t, got.Valid)
		assert.Equal(t, int64(100000), got.Amount)
	})
}

func TestAmount(t *testing.T) {
	t.Run("rounds fractional percentages down", func(t *testing.T) {
		d := domain.Discount{Percentage: decimal.RequireFromString("12.5")}
		assert.Equal(t, int64(1249), Amount(d, 9999))
	})

	t.Run("never exceeds the subtotal", func(t *testing.T) {
		d := domain.Discount{Percentage: decimal.NewFromInt(150)}
		assert.Equal(t, int64(1000), Amount(d, 1000))
	})

	t.Run("zero subtotal", func(t *testing.T) {
		d := domain.Discount{Percentage: decimal.NewFromInt(10)}
		assert.Zero(t, Amount(d, 0))
	})
}
