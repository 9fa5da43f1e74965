package service

import (
	"math"
	"regexp"

	"shopfront/internal/docstore"
	"shopfront/internal/repository"
)

const (
	DefaultPage   = 1
	DefaultSize   = 10
	DefaultSortBy = "price"
	SortAsc       = "asc"
	SortDesc      = "desc"
)

// ProductListParams are the listing options of the product endpoints.
// Zero values take the defaults.
type ProductListParams struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	Search   string
	Page     int
	Size     int
	SortBy   string
	Order    string
}

func (p ProductListParams) withDefaults() ProductListParams {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Size < 1 {
		p.Size = DefaultSize
	}
	if p.SortBy == "" {
		p.SortBy = DefaultSortBy
	}
	if p.Order != SortDesc {
		p.Order = SortAsc
	}
	return p
}

// BuildProductFilter turns listing params into a store filter. Conditions are
// ANDed; both price bounds share one Range on price; the search text is
// matched literally and case-insensitively against name or description.
func BuildProductFilter(p ProductListParams) docstore.Filter {
	var clauses docstore.And
	if p.Category != "" {
		clauses = append(clauses, docstore.Eq{Field: "category", Value: p.Category})
	}
	if p.MinPrice != nil || p.MaxPrice != nil {
		r := docstore.Range{Field: "price"}
		if p.MinPrice != nil {
			r.Gte = *p.MinPrice
		}
		if p.MaxPrice != nil {
			r.Lte = *p.MaxPrice
		}
		clauses = append(clauses, r)
	}
	if p.Search != "" {
		re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(p.Search))
		clauses = append(clauses, docstore.Or{
			docstore.Regex{Field: "name", Pattern: re},
			docstore.Regex{Field: "description", Pattern: re},
		})
	}
	switch len(clauses) {
	case 0:
		return docstore.All{}
	case 1:
		return clauses[0]
	}
	return clauses
}

func buildProductQuery(p ProductListParams) repository.Query {
	p = p.withDefaults()
	return repository.Query{
		Filter: BuildProductFilter(p),
		Sort:   []docstore.SortKey{{Field: p.SortBy, Desc: p.Order == SortDesc}},
		Skip:   pageSkip(p.Page, p.Size),
		Limit:  p.Size,
	}
}

// pageSkip is (page-1)*size, saturating at math.MaxInt so a page far past the
// end stays past the end.
func pageSkip(page, size int) int {
	if page <= 1 || size <= 0 {
		return 0
	}
	if page-1 > math.MaxInt/size {
		return math.MaxInt
	}
	return (page - 1) * size
}
