package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"shopfront/internal/docstore"
	"shopfront/internal/domain"
	"shopfront/internal/repository"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, id string) (domain.Product, bool, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Bool(1), args.Error(2)
}

func (m *mockCache) Set(ctx context.Context, p domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockCache) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func setupPS(t *testing.T, opts ...Option) *ProductService {
	t.Helper()
	col, err := docstore.Open(context.Background(), "")
	require.NoError(t, err)
	return NewProductService(repository.NewDocProducts(col), opts...)
}

func seedProducts(t *testing.T, ps *ProductService) []domain.Product {
	t.Helper()
	ctx := context.Background()
	var out []domain.Product
	for i, p := range []domain.Product{
		{Name: "Desk", Price: 120, Category: "furniture", Description: "Oak writing desk"},
		{Name: "Chair", Price: 40, Category: "furniture"},
		{Name: "Pen", Price: 2, Category: "office", Description: "blue ink"},
		{Name: "Sofa", Price: 300, Category: "furniture", Description: "three seats"},
		{Name: "Notebook", Price: 5, Category: "office"},
		{Name: "Lamp", Price: 25, Category: "furniture", Description: "desk lamp"},
		{Name: "Stapler", Price: 9, Category: "office"},
	} {
		created, err := ps.Create(ctx, p)
		require.NoError(t, err, "seed %d", i)
		out = append(out, created)
	}
	return out
}

func TestProduct_Create_Valid(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	p, err := ps.Create(ctx, domain.Product{Name: "Lamp", Price: 0, Category: "home"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)

	got, err := ps.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestProduct_Create_Invalid(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	for _, p := range []domain.Product{
		{Name: "", Price: 1, Category: "c"},
		{Name: "n", Price: 1, Category: ""},
		{Name: "n", Price: -1, Category: "c"},
	} {
		_, err := ps.Create(ctx, p)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", p)
	}
}

func TestProduct_Update_Partial(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	p, err := ps.Create(ctx, domain.Product{Name: "Lamp", Price: 30, Category: "home", Description: "warm light"})
	require.NoError(t, err)

	up, err := ps.Update(ctx, p.ID, domain.ProductPatch{Price: ptr(42.0)})
	require.NoError(t, err)
	assert.Equal(t, domain.Product{ID: p.ID, Name: "Lamp", Price: 42, Category: "home", Description: "warm light"}, up)

	_, err = ps.Update(ctx, "nope", domain.ProductPatch{Price: ptr(1.0)})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = ps.Update(ctx, p.ID, domain.ProductPatch{Price: ptr(-1.0)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProduct_Delete(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	seeded := seedProducts(t, ps)

	before, err := ps.List(ctx, ProductListParams{})
	require.NoError(t, err)

	assert.ErrorIs(t, ps.Delete(ctx, "does-not-exist"), repository.ErrNotFound)
	after, err := ps.List(ctx, ProductListParams{})
	require.NoError(t, err)
	assert.Equal(t, before.Total, after.Total, "failed delete leaves the collection unchanged")

	require.NoError(t, ps.Delete(ctx, seeded[0].ID))
	_, err = ps.GetByID(ctx, seeded[0].ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProduct_List_Filtering(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	seedProducts(t, ps)

	page, err := ps.List(ctx, ProductListParams{Category: "furniture", Size: 100})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	for _, p := range page.Products {
		assert.Equal(t, "furniture", p.Category)
	}

	page, err = ps.List(ctx, ProductListParams{MinPrice: ptr(5.0), MaxPrice: ptr(40.0), Size: 100})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	for _, p := range page.Products {
		assert.GreaterOrEqual(t, p.Price, 5.0)
		assert.LessOrEqual(t, p.Price, 40.0)
	}

	page, err = ps.List(ctx, ProductListParams{Category: "office", MaxPrice: ptr(5.0)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Pen", "Notebook"}, productNames(page.Products))
}

func TestProduct_List_PaginationIsSliceOfSortedSet(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	seeded := seedProducts(t, ps)

	sorted := append([]domain.Product(nil), seeded...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Price < sorted[j].Price })

	const size = 3
	for page := 1; page <= 4; page++ {
		got, err := ps.List(ctx, ProductListParams{Page: page, Size: size})
		require.NoError(t, err)
		assert.Equal(t, len(seeded), got.Total)

		lo := min((page-1)*size, len(sorted))
		hi := min(page*size, len(sorted))
		assert.Equal(t, sorted[lo:hi], got.Products, "page %d", page)
	}
}

func TestProduct_List_SortDescAndUnknownField(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	seedProducts(t, ps)

	page, err := ps.List(ctx, ProductListParams{SortBy: "price", Order: "desc", Size: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Sofa", "Desk"}, productNames(page.Products))

	page, err = ps.List(ctx, ProductListParams{SortBy: "nosuchfield", Size: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"Desk", "Chair", "Pen"}, productNames(page.Products), "unknown sort field keeps insertion order")
}

func TestProduct_Search(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	seedProducts(t, ps)

	page, err := ps.Search(ctx, ProductListParams{Search: "DESK", Size: 100})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lamp", "Desk"}, productNames(page.Products))

	page, err = ps.Search(ctx, ProductListParams{Search: "desk", Category: "furniture", MaxPrice: ptr(100.0)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lamp"}, productNames(page.Products))

	page, err = ps.List(ctx, ProductListParams{Search: "desk", Size: 100})
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total, "List ignores search text")

	page, err = ps.Search(ctx, ProductListParams{Search: ".*"})
	require.NoError(t, err)
	assert.Zero(t, page.Total, "search text is not a pattern")
}

func TestProduct_GetByID_ReadsThroughCache(t *testing.T) {
	ctx := context.Background()
	c := &mockCache{}
	ps := setupPS(t, WithProductCache(c))

	c.On("Get", mock.Anything, mock.Anything).Return(domain.Product{}, false, nil).Once()
	c.On("Set", mock.Anything, mock.AnythingOfType("domain.Product")).Return(nil).Once()

	p, err := ps.Create(ctx, domain.Product{Name: "Lamp", Price: 30, Category: "home"})
	require.NoError(t, err)
	got, err := ps.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	cached := domain.Product{ID: p.ID, Name: "Cached", Price: 1, Category: "home"}
	c.On("Get", mock.Anything, p.ID).Return(cached, true, nil).Once()
	got, err = ps.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cached", got.Name)

	c.On("Delete", mock.Anything, p.ID).Return(nil).Twice()
	_, err = ps.Update(ctx, p.ID, domain.ProductPatch{Name: ptr("Lamp 2")})
	require.NoError(t, err)
	require.NoError(t, ps.Delete(ctx, p.ID))

	c.AssertExpectations(t)
}

func TestProduct_GetByID_CacheErrorFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	c := &mockCache{}
	ps := setupPS(t, WithProductCache(c))
	p, err := ps.Create(ctx, domain.Product{Name: "Lamp", Price: 30, Category: "home"})
	require.NoError(t, err)

	c.On("Get", mock.Anything, p.ID).Return(domain.Product{}, false, errors.New("redis down"))
	c.On("Set", mock.Anything, p).Return(errors.New("redis down"))

	got, err := ps.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func productNames(ps []domain.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}

func ExampleBuildProductFilter() {
	f := BuildProductFilter(ProductListParams{Category: "books", MinPrice: ptr(5.0), MaxPrice: ptr(20.0)})
	fmt.Println(f)
	// Output: {$and: [{category: books}, {price: {$gte: 5, $lte: 20}}]}
}

// memCache is a map-backed cache.Products.
type memCache struct {
	mu    sync.Mutex
	items map[string]domain.Product
}

func (m *memCache) Get(_ context.Context, id string) (domain.Product, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	return p, ok, nil
}

func (m *memCache) Set(_ context.Context, p domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = map[string]domain.Product{}
	}
	m.items[p.ID] = p
	return nil
}

func (m *memCache) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// interleavedRepo runs afterRead once, right after a store read returns.
type interleavedRepo struct {
	repository.ProductRepository
	afterRead func()
}

func (r *interleavedRepo) GetByID(ctx context.Context, id string) (domain.Product, error) {
	p, err := r.ProductRepository.GetByID(ctx, id)
	if f := r.afterRead; f != nil {
		r.afterRead = nil
		f()
	}
	return p, err
}

func TestProduct_GetByID_ReadOverlappingWriteDoesNotFillCache(t *testing.T) {
	ctx := context.Background()
	col, err := docstore.Open(ctx, "")
	require.NoError(t, err)
	repo := &interleavedRepo{ProductRepository: repository.NewDocProducts(col)}
	c := &memCache{}
	ps := NewProductService(repo, WithProductCache(c))

	p, err := ps.Create(ctx, domain.Product{Name: "Lamp", Price: 30, Category: "home"})
	require.NoError(t, err)

	repo.afterRead = func() {
		_, err := ps.Update(ctx, p.ID, domain.ProductPatch{Price: ptr(42.0)})
		require.NoError(t, err)
	}
	stale, err := ps.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, stale.Price, "the overlapping read itself saw the old row")

	got, err := ps.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.Price)

	require.NoError(t, c.Delete(ctx, p.ID))
	repo.afterRead = func() { require.NoError(t, ps.Delete(ctx, p.ID)) }
	_, err = ps.GetByID(ctx, p.ID)
	require.NoError(t, err)
	_, err = ps.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound, "deleted product is not served from cache")
}

func TestProduct_List_PageFarPastEndIsEmpty(t *testing.T) {
	ctx := context.Background()
	ps := setupPS(t)
	seedProducts(t, ps)

	page, err := ps.List(ctx, ProductListParams{Page: math.MaxInt/2 + 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 7, page.Total)
	assert.Empty(t, page.Products)
}
