package repository

import (
	"context"
	"errors"

	"shopfront/internal/docstore"
	"shopfront/internal/domain"
)

// ErrNotFound is returned when the requested document does not exist
var ErrNotFound = errors.New("not found")

// Query selects, orders and windows documents of a collection.
type Query struct {
	Filter docstore.Filter
	Sort   []docstore.SortKey
	Skip   int
	Limit  int
}

// ProductRepository stores products
type ProductRepository interface {
	Create(ctx context.Context, p domain.Product) (domain.Product, error)
	GetByID(ctx context.Context, id string) (domain.Product, error)
	Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error)
	Delete(ctx context.Context, id string) error
	// List returns the matching window and the number of matches ignoring Skip/Limit.
	List(ctx context.Context, q Query) (int, []domain.Product, error)
}

// OrderRepository stores orders
type OrderRepository interface {
	Create(ctx context.Context, o domain.Order) (domain.Order, error)
	GetByID(ctx context.Context, id string) (domain.Order, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q Query) (int, []domain.Order, error)
}

func translate(err error) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
