package repository

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"shopfront/internal/docstore"
	"shopfront/internal/domain"
)

// productRecord and orderRecord are the stored shapes of the domain types.
type productRecord struct {
	InternalID  string  `bson:"_id,omitempty"`
	Name        string  `bson:"name"`
	Price       float64 `bson:"price"`
	Category    string  `bson:"category"`
	Description string  `bson:"description,omitempty"`
}

type orderItemRecord struct {
	ProductID string `bson:"productId"`
	Quantity  int64  `bson:"quantity"`
}

type orderRecord struct {
	InternalID  string            `bson:"_id,omitempty"`
	Customer    string            `bson:"customer"`
	Items       []orderItemRecord `bson:"items"`
	TotalAmount float64           `bson:"totalAmount"`
	Status      string            `bson:"status"`
	CreatedAt   time.Time         `bson:"createdAt"`
}

func decode(doc docstore.Document, out any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

func encode(v any) (docstore.Document, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var doc docstore.Document
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return doc, nil
}

// productFromDocument builds the external view of a stored product: its id
// is the store-assigned _id. The document itself is left untouched.
func productFromDocument(doc docstore.Document) (domain.Product, error) {
	var r productRecord
	if err := decode(doc, &r); err != nil {
		return domain.Product{}, err
	}
	return domain.Product{
		ID:          r.InternalID,
		Name:        r.Name,
		Price:       r.Price,
		Category:    r.Category,
		Description: r.Description,
	}, nil
}

func productsFromDocuments(docs []docstore.Document) ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(docs))
	for _, d := range docs {
		p, err := productFromDocument(d)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func productToDocument(p domain.Product) (docstore.Document, error) {
	return encode(productRecord{
		Name:        p.Name,
		Price:       p.Price,
		Category:    p.Category,
		Description: p.Description,
	})
}

// patchToDocument lists only the fields the patch sets.
func patchToDocument(p domain.ProductPatch) docstore.Document {
	set := docstore.Document{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	return set
}

func orderFromDocument(doc docstore.Document) (domain.Order, error) {
	var r orderRecord
	if err := decode(doc, &r); err != nil {
		return domain.Order{}, err
	}
	items := make([]domain.OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, domain.OrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return domain.Order{
		ID:          r.InternalID,
		Customer:    r.Customer,
		Items:       items,
		TotalAmount: r.TotalAmount,
		Status:      domain.OrderStatus(r.Status),
		CreatedAt:   r.CreatedAt.UTC(),
	}, nil
}

func ordersFromDocuments(docs []docstore.Document) ([]domain.Order, error) {
	out := make([]domain.Order, 0, len(docs))
	for _, d := range docs {
		o, err := orderFromDocument(d)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func orderToDocument(o domain.Order) (docstore.Document, error) {
	items := make([]orderItemRecord, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemRecord{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return encode(orderRecord{
		Customer:    o.Customer,
		Items:       items,
		TotalAmount: o.TotalAmount,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
	})
}
