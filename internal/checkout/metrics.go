package checkout

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/joao-fontenele/storefront/internal/checkout"

type checkoutMetrics struct {
	placed     metric.Int64Counter
	rejected   metric.Int64Counter
	orderTotal metric.Int64Histogram
}

func newCheckoutMetrics() (*checkoutMetrics, error) {
	meter := otel.Meter(instrumentationName)

	placed, err := meter.Int64Counter("storefront.checkout.placed",
		metric.WithDescription("Orders committed by the placement engine"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	rejected, err := meter.Int64Counter("storefront.checkout.rejected",
		metric.WithDescription("Placement attempts rejected, by category"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	orderTotal, err := meter.Int64Histogram("storefront.checkout.order_total",
		metric.WithDescription("Grand total of committed orders in minor currency units"),
	)
	if err != nil {
		return nil, err
	}

	return &checkoutMetrics{placed: placed, rejected: rejected, orderTotal: orderTotal}, nil
}

func (m *checkoutMetrics) recordPlaced(ctx context.Context, guest bool, total int64) {
	attrs := metric.WithAttributes(attribute.Bool("guest", guest))
	m.placed.Add(ctx, 1, attrs)
	m.orderTotal.Record(ctx, total, attrs)
}

func (m *checkoutMetrics) recordRejected(ctx context.Context, category Category) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("category", string(category))))
}
