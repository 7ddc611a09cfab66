package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Catalog, cart and derived orders
// ============================================================

// Product is a catalog entry from GET /products.
type Product struct {
	ID          ID              `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"imageUrl,omitempty"`
	Category    string          `json:"category,omitempty"`
}

// CartStatus is the server-side lifecycle state of a cart.
type CartStatus string

const (
	CartActive    CartStatus = "ACTIVE"
	CartCompleted CartStatus = "COMPLETED"
	CartAbandoned CartStatus = "ABANDONED"
)

// ProductSummary is the product data the backend joins into each cart line.
type ProductSummary struct {
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// CartItem is one line of a cart. Price is the unit price.
type CartItem struct {
	ID        ID              `json:"id,omitempty"`
	ProductID ID              `json:"productId"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Product   ProductSummary  `json:"product"`
}

// LineTotal is price * quantity, unrounded.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the authoritative server-held cart.
type Cart struct {
	ID        ID         `json:"id,omitempty"`
	Status    CartStatus `json:"status,omitempty"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updatedAt,omitempty"`
}

// Empty reports whether the cart has no lines.
func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

// Order is a read-only row derived from one item of a COMPLETED cart.
// It is recomputed on every fetch and never stored.
type Order struct {
	ID          ID              `json:"id"`
	ProductName string          `json:"productName"`
	UnitCount   int             `json:"unitCount"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
	CompletedOn time.Time       `json:"completedOn"`
	Status      CartStatus      `json:"status"`
}

// CompletedDate is the completion date as shown to Brazilian users (DD/MM/YYYY).
func (o Order) CompletedDate() string {
	if o.CompletedOn.IsZero() {
		return ""
	}
	return o.CompletedOn.Format("02/01/2006")
}
