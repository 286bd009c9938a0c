package domain

import "time"

// Product is an inventory item owned by a single user.
// Quantity is kept non-negative by the ledger, not by storage.
type Product struct {
	ID            string    `json:"id" db:"id"`
	OwnerID       string    `json:"owner_id" db:"owner_id"`
	Name          string    `json:"name" db:"name"`
	Description   string    `json:"description" db:"description"`
	SKU           string    `json:"sku" db:"sku"`
	Category      string    `json:"category" db:"category"`
	UnitPrice     float64   `json:"unit_price" db:"unit_price"`
	Quantity      int       `json:"quantity" db:"quantity"`
	MinStockLevel int       `json:"min_stock_level" db:"min_stock_level"`
	Supplier      string    `json:"supplier" db:"supplier"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// LowStock reports whether the product is at or below its reorder level.
func (p *Product) LowStock() bool {
	return p.Quantity <= p.MinStockLevel
}

// ProductUpdate carries a partial product edit. Nil fields are left untouched.
type ProductUpdate struct {
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	SKU           *string  `json:"sku,omitempty"`
	Category      *string  `json:"category,omitempty"`
	UnitPrice     *float64 `json:"unit_price,omitempty"`
	Quantity      *int     `json:"quantity,omitempty"`
	MinStockLevel *int     `json:"min_stock_level,omitempty"`
	Supplier      *string  `json:"supplier,omitempty"`
}

// Apply copies the set fields of u onto p.
func (u ProductUpdate) Apply(p *Product) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.SKU != nil {
		p.SKU = *u.SKU
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.UnitPrice != nil {
		p.UnitPrice = *u.UnitPrice
	}
	if u.Quantity != nil {
		p.Quantity = *u.Quantity
	}
	if u.MinStockLevel != nil {
		p.MinStockLevel = *u.MinStockLevel
	}
	if u.Supplier != nil {
		p.Supplier = *u.Supplier
	}
}
