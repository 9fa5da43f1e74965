package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"shopfront/internal/cache"
	"shopfront/internal/domain"
	"shopfront/internal/events"
	"shopfront/internal/repository"
	"shopfront/internal/telemetry"
)

var ErrInvalidInput = errors.New("invalid input")

// Option configures a service.
type Option func(*deps)

type deps struct {
	log      *zap.Logger
	tracer   trace.Tracer
	metrics  *telemetry.Metrics
	products cache.Products
	topic    string
}

func WithLogger(l *zap.Logger) Option           { return func(d *deps) { d.log = l } }
func WithTracer(t trace.Tracer) Option          { return func(d *deps) { d.tracer = t } }
func WithMetrics(m *telemetry.Metrics) Option   { return func(d *deps) { d.metrics = m } }
func WithProductCache(c cache.Products) Option { return func(d *deps) { d.products = c } }
func WithEventTopic(t string) Option            { return func(d *deps) { d.topic = t } }

func newDeps(opts []Option) deps {
	d := deps{
		log:      zap.NewNop(),
		tracer:   otel.Tracer("shopfront/service"),
		metrics:  telemetry.NoopMetrics(),
		products: cache.Noop{},
		topic:    events.TopicOrderCreated,
	}
	for _, o := range opts {
		o(&d)
	}
	return d
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// ProductService holds the product use cases
type ProductService struct {
	repo repository.ProductRepository
	deps

	// fillMu orders cache fills against invalidations; writes counts
	// completed updates and deletes.
	fillMu sync.Mutex
	writes uint64
}

func NewProductService(repo repository.ProductRepository, opts ...Option) *ProductService {
	return &ProductService{repo: repo, deps: newDeps(opts)}
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Create")
	defer span.End()

	if p.Name == "" || p.Category == "" || p.Price < 0 {
		return domain.Product{}, fail(span, ErrInvalidInput)
	}
	p.ID = ""
	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return domain.Product{}, fail(span, fmt.Errorf("create product: %w", err))
	}
	s.metrics.ProductsCreated.Add(ctx, 1)
	span.SetAttributes(attribute.String("product.id", created.ID))
	s.log.Info("product created", zap.String("product_id", created.ID), zap.String("category", created.Category))
	return created, nil
}

// GetByID reads through the product cache. Cache failures are logged and
// never fail the request. A read that overlaps an update or delete made
// through this service does not fill the cache.
func (s *ProductService) GetByID(ctx context.Context, id string) (domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.GetByID", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	if id == "" {
		return domain.Product{}, fail(span, ErrInvalidInput)
	}
	gen := s.generation()
	if p, ok, err := s.products.Get(ctx, id); err != nil {
		s.log.Warn("product cache get", zap.String("product_id", id), zap.Error(err))
	} else if ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return p, nil
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Product{}, fail(span, err)
	}
	s.fill(ctx, gen, p)
	return p, nil
}

// Update applies only the fields present in patch.
func (s *ProductService) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ProductService.Update", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	if id == "" || (patch.Name != nil && *patch.Name == "") || (patch.Category != nil && *patch.Category == "") ||
		(patch.Price != nil && *patch.Price < 0) {
		return domain.Product{}, fail(span, ErrInvalidInput)
	}
	p, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return domain.Product{}, fail(span, err)
	}
	s.invalidate(ctx, id)
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "ProductService.Delete", trace.WithAttributes(attribute.String("product.id", id)))
	defer span.End()

	if id == "" {
		return fail(span, ErrInvalidInput)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fail(span, err)
	}
	s.invalidate(ctx, id)
	s.log.Info("product deleted", zap.String("product_id", id))
	return nil
}

// List returns one page of products matching category and price range.
// Search text in params is ignored; use Search for that.
func (s *ProductService) List(ctx context.Context, params ProductListParams) (domain.ProductPage, error) {
	params.Search = ""
	return s.list(ctx, "ProductService.List", params)
}

// Search is List plus a case-insensitive match of params.Search against
// name or description.
func (s *ProductService) Search(ctx context.Context, params ProductListParams) (domain.ProductPage, error) {
	return s.list(ctx, "ProductService.Search", params)
}

func (s *ProductService) list(ctx context.Context, op string, params ProductListParams) (domain.ProductPage, error) {
	q := buildProductQuery(params)
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("query.filter", q.Filter.String()),
		attribute.Int("query.skip", q.Skip),
		attribute.Int("query.limit", q.Limit),
	))
	defer span.End()

	total, products, err := s.repo.List(ctx, q)
	if err != nil {
		return domain.ProductPage{}, fail(span, fmt.Errorf("list products: %w", err))
	}
	span.SetAttributes(attribute.Int("query.total", total))
	return domain.ProductPage{Total: total, Products: products}, nil
}

func (s *ProductService) generation() uint64 {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	return s.writes
}

// fill caches p unless a write completed since gen was taken; such a read
// may predate the write.
func (s *ProductService) fill(ctx context.Context, gen uint64, p domain.Product) {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	if s.writes != gen {
		span := trace.SpanFromContext(ctx)
		span.SetAttributes(attribute.Bool("cache.fill_skipped", true))
		return
	}
	if err := s.products.Set(ctx, p); err != nil {
		s.log.Warn("product cache set", zap.String("product_id", p.ID), zap.Error(err))
	}
}

func (s *ProductService) invalidate(ctx context.Context, id string) {
	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	s.writes++
	if err := s.products.Delete(ctx, id); err != nil {
		s.log.Warn("product cache delete", zap.String("product_id", id), zap.Error(err))
	}
}
