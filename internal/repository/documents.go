package repository

import (
	"context"

	"shopfront/internal/docstore"
	"shopfront/internal/domain"
)

// DocProducts is a ProductRepository over a docstore collection
type DocProducts struct{ col *docstore.Collection }

func NewDocProducts(col *docstore.Collection) *DocProducts { return &DocProducts{col: col} }

var _ ProductRepository = (*DocProducts)(nil)

func (r *DocProducts) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	doc, err := productToDocument(p)
	if err != nil {
		return domain.Product{}, err
	}
	stored, err := r.col.Insert(ctx, doc)
	if err != nil {
		return domain.Product{}, err
	}
	return productFromDocument(stored)
}

func (r *DocProducts) GetByID(ctx context.Context, id string) (domain.Product, error) {
	doc, err := r.col.FindOne(ctx, docstore.ByID(id))
	if err != nil {
		return domain.Product{}, translate(err)
	}
	return productFromDocument(doc)
}

// Update is a read-modify-write without isolation: concurrent updates of the
// same id are last-write-wins.
func (r *DocProducts) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	if patch.Empty() {
		return r.GetByID(ctx, id)
	}
	n, err := r.col.Update(ctx, docstore.ByID(id), patchToDocument(patch), docstore.UpdateOptions{})
	if err != nil {
		return domain.Product{}, err
	}
	if n == 0 {
		return domain.Product{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *DocProducts) Delete(ctx context.Context, id string) error {
	n, err := r.col.Remove(ctx, docstore.ByID(id), docstore.RemoveOptions{})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DocProducts) List(ctx context.Context, q Query) (int, []domain.Product, error) {
	total, docs, err := find(ctx, r.col, q)
	if err != nil {
		return 0, nil, err
	}
	products, err := productsFromDocuments(docs)
	if err != nil {
		return 0, nil, err
	}
	return total, products, nil
}

// DocOrders is an OrderRepository over a docstore collection
type DocOrders struct{ col *docstore.Collection }

func NewDocOrders(col *docstore.Collection) *DocOrders { return &DocOrders{col: col} }

var _ OrderRepository = (*DocOrders)(nil)

func (r *DocOrders) Create(ctx context.Context, o domain.Order) (domain.Order, error) {
	doc, err := orderToDocument(o)
	if err != nil {
		return domain.Order{}, err
	}
	stored, err := r.col.Insert(ctx, doc)
	if err != nil {
		return domain.Order{}, err
	}
	return orderFromDocument(stored)
}

func (r *DocOrders) GetByID(ctx context.Context, id string) (domain.Order, error) {
	doc, err := r.col.FindOne(ctx, docstore.ByID(id))
	if err != nil {
		return domain.Order{}, translate(err)
	}
	return orderFromDocument(doc)
}

func (r *DocOrders) Delete(ctx context.Context, id string) error {
	n, err := r.col.Remove(ctx, docstore.ByID(id), docstore.RemoveOptions{})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *DocOrders) List(ctx context.Context, q Query) (int, []domain.Order, error) {
	total, docs, err := find(ctx, r.col, q)
	if err != nil {
		return 0, nil, err
	}
	orders, err := ordersFromDocuments(docs)
	if err != nil {
		return 0, nil, err
	}
	return total, orders, nil
}

func find(ctx context.Context, col *docstore.Collection, q Query) (int, []docstore.Document, error) {
	total, err := col.Count(ctx, q.Filter)
	if err != nil {
		return 0, nil, err
	}
	docs, err := col.Find(ctx, q.Filter, docstore.FindOptions{Sort: q.Sort, Skip: q.Skip, Limit: q.Limit})
	if err != nil {
		return 0, nil, err
	}
	return total, docs, nil
}
