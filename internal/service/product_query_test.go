package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopfront/internal/docstore"
)

func ptr[T any](v T) *T { return &v }

func TestBuildProductFilter(t *testing.T) {
	tests := []struct {
		name   string
		params ProductListParams
		want   docstore.Filter
	}{
		{
			name: "no conditions",
			want: docstore.All{},
		},
		{
			name:   "category only",
			params: ProductListParams{Category: "books"},
			want:   docstore.Eq{Field: "category", Value: "books"},
		},
		{
			name:   "min price only",
			params: ProductListParams{MinPrice: ptr(5.0)},
			want:   docstore.Range{Field: "price", Gte: 5.0},
		},
		{
			name:   "both bounds merge into one range",
			params: ProductListParams{MinPrice: ptr(5.0), MaxPrice: ptr(20.0)},
			want:   docstore.Range{Field: "price", Gte: 5.0, Lte: 20.0},
		},
		{
			name:   "category and max price",
			params: ProductListParams{Category: "books", MaxPrice: ptr(20.0)},
			want: docstore.And{
				docstore.Eq{Field: "category", Value: "books"},
				docstore.Range{Field: "price", Lte: 20.0},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildProductFilter(tt.params))
		})
	}
}

func TestBuildProductFilter_SearchIsLiteral(t *testing.T) {
	f := BuildProductFilter(ProductListParams{Search: "c++ (2nd"})
	or, ok := f.(docstore.Or)
	require.True(t, ok, "search alone builds an Or, got %T", f)
	require.Len(t, or, 2)

	assert.True(t, f.Match(docstore.Document{"name": "Learning C++ (2nd ed.)"}))
	assert.True(t, f.Match(docstore.Document{"name": "x", "description": "about c++ (2ND edition"}))
	assert.False(t, f.Match(docstore.Document{"name": "c (2nd"}))

	dot := BuildProductFilter(ProductListParams{Search: "a.c"})
	assert.False(t, dot.Match(docstore.Document{"name": "abc"}))
	assert.True(t, dot.Match(docstore.Document{"name": "A.C adapter"}))
}

func TestBuildProductQuery_Defaults(t *testing.T) {
	q := buildProductQuery(ProductListParams{})
	assert.Equal(t, []docstore.SortKey{{Field: "price"}}, q.Sort)
	assert.Equal(t, 0, q.Skip)
	assert.Equal(t, 10, q.Limit)

	q = buildProductQuery(ProductListParams{Page: 3, Size: 4, SortBy: "name", Order: "desc"})
	assert.Equal(t, []docstore.SortKey{{Field: "name", Desc: true}}, q.Sort)
	assert.Equal(t, 8, q.Skip)
	assert.Equal(t, 4, q.Limit)
}

func TestPageSkip_Saturates(t *testing.T) {
	assert.Equal(t, 0, pageSkip(1, 10))
	assert.Equal(t, 0, pageSkip(0, 10))
	assert.Equal(t, 20, pageSkip(3, 10))
	assert.Equal(t, math.MaxInt, pageSkip(math.MaxInt/2+2, 2))
	assert.Equal(t, math.MaxInt, pageSkip(math.MaxInt, math.MaxInt))
}
