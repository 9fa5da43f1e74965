package domain

import "time"

// Product is a catalogue entry as seen by API consumers.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
}

// ProductPatch carries the fields of a partial update; nil means "leave as is".
type ProductPatch struct {
	Name        *string
	Price       *float64
	Category    *string
	Description *string
}

// Empty reports whether the patch changes nothing.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Price == nil && p.Category == nil && p.Description == nil
}

// OrderStatus is the order lifecycle status
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "Pending"
)

// OrderItem is one line of an order. ProductID is not checked against the
// product collection.
type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

// Order is a customer order
type Order struct {
	ID          string      `json:"id"`
	Customer    string      `json:"customer"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// ProductPage is one window of a product listing.
type ProductPage struct {
	Total    int       `json:"total"`
	Products []Product `json:"products"`
}

// OrderPage is one window of the order listing.
type OrderPage struct {
	Total  int     `json:"total"`
	Orders []Order `json:"orders"`
}
