package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"shopfront/internal/docstore"
	"shopfront/internal/domain"
	"shopfront/internal/events"
	"shopfront/internal/repository"
)

// UnitPrice is the fixed per-unit price used for order totals. Product
// prices are not looked up.
const UnitPrice = 10

// OrderService holds the order use cases: create, read, list, delete
type OrderService struct {
	orders    repository.OrderRepository
	publisher events.Publisher
	producer  string
	now       func() time.Time
	deps
}

func NewOrderService(orders repository.OrderRepository, publisher events.Publisher, producer string, opts ...Option) *OrderService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &OrderService{
		orders:    orders,
		publisher: publisher,
		producer:  producer,
		now:       time.Now,
		deps:      newDeps(opts),
	}
}

// OrderTotal sums quantity × UnitPrice over items.
func OrderTotal(items []domain.OrderItem) float64 {
	var units int64
	for _, it := range items {
		units += it.Quantity
	}
	return float64(units * UnitPrice)
}

// CreateOrder stores a Pending order with a computed total. Product ids are
// not checked for existence.
func (s *OrderService) CreateOrder(ctx context.Context, customer string, items []domain.OrderItem) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(
		attribute.String("order.customer", customer),
		attribute.Int("order.items_count", len(items)),
	))
	defer span.End()

	if customer == "" || len(items) == 0 {
		return domain.Order{}, fail(span, ErrInvalidInput)
	}
	for _, it := range items {
		if it.ProductID == "" || it.Quantity <= 0 {
			return domain.Order{}, fail(span, ErrInvalidInput)
		}
	}

	o := domain.Order{
		Customer:    customer,
		Items:       items,
		TotalAmount: OrderTotal(items),
		Status:      domain.OrderStatusPending,
		CreatedAt:   s.now().UTC().Truncate(time.Millisecond),
	}
	created, err := s.orders.Create(ctx, o)
	if err != nil {
		return domain.Order{}, fail(span, fmt.Errorf("create order: %w", err))
	}
	span.SetAttributes(attribute.String("order.id", created.ID), attribute.Float64("order.total_amount", created.TotalAmount))
	s.metrics.OrdersCreated.Add(ctx, 1)
	s.metrics.OrderTotal.Record(ctx, created.TotalAmount)
	s.log.Info("order created",
		zap.String("order_id", created.ID),
		zap.String("customer", created.Customer),
		zap.Float64("total_amount", created.TotalAmount),
	)
	s.publishCreated(ctx, created)
	return created, nil
}

// publishCreated is best effort: the order is already stored.
func (s *OrderService) publishCreated(ctx context.Context, o domain.Order) {
	items := make([]events.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, events.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	ev, err := events.NewEnvelope(events.EventOrderCreated, s.producer, o.ID, events.OrderCreatedPayload{
		OrderID:     o.ID,
		Customer:    o.Customer,
		Items:       items,
		TotalAmount: o.TotalAmount,
	})
	if err == nil {
		ev.RequestID = RequestIDFrom(ctx)
		err = s.publisher.Publish(ctx, s.topic, ev)
	}
	if err != nil {
		s.log.Error("publish order created", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.GetOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if id == "" {
		return domain.Order{}, fail(span, ErrInvalidInput)
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return domain.Order{}, fail(span, err)
	}
	return o, nil
}

// ListOrders returns one page of orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, page, size int) (domain.OrderPage, error) {
	if page < 1 {
		page = DefaultPage
	}
	if size < 1 {
		size = DefaultSize
	}
	ctx, span := s.tracer.Start(ctx, "OrderService.ListOrders", trace.WithAttributes(
		attribute.Int("query.page", page),
		attribute.Int("query.size", size),
	))
	defer span.End()

	total, orders, err := s.orders.List(ctx, repository.Query{
		Filter: docstore.All{},
		// _id breaks ties within one millisecond: ids grow with insertion
		Sort:   []docstore.SortKey{{Field: "createdAt", Desc: true}, {Field: docstore.IDField, Desc: true}},
		Skip:   pageSkip(page, size),
		Limit:  size,
	})
	if err != nil {
		return domain.OrderPage{}, fail(span, fmt.Errorf("list orders: %w", err))
	}
	return domain.OrderPage{Total: total, Orders: orders}, nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.DeleteOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if id == "" {
		return fail(span, ErrInvalidInput)
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return fail(span, err)
	}
	s.log.Info("order deleted", zap.String("order_id", id))
	return nil
}
