package telemetry

import (
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type Metrics struct {
	ProductsCreated metric.Int64Counter
	OrdersCreated   metric.Int64Counter
	OrderTotal      metric.Float64Histogram
	Uploads         metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	productsCreated, err := meter.Int64Counter("products_created_total",
		metric.WithDescription("Total products created"),
		metric.WithUnit("{product}"),
	)
	if err != nil {
		return nil, err
	}

	ordersCreated, err := meter.Int64Counter("orders_created_total",
		metric.WithDescription("Total orders created"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	orderTotal, err := meter.Float64Histogram("order_total_amount",
		metric.WithDescription("Order total amount"),
		metric.WithExplicitBucketBoundaries(10, 50, 100, 500, 1000, 5000),
	)
	if err != nil {
		return nil, err
	}

	uploads, err := meter.Int64Counter("uploads_total",
		metric.WithDescription("Total files uploaded"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ProductsCreated: productsCreated,
		OrdersCreated:   ordersCreated,
		OrderTotal:      orderTotal,
		Uploads:         uploads,
	}, nil
}

// NoopMetrics records nothing.
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}
