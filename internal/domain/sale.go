package domain

import "time"

// Sale records the product side of a sale transaction.
// ProductID is empty once the referenced product has been deleted.
type Sale struct {
	ID            string    `json:"id" db:"id"`
	OwnerID       string    `json:"owner_id" db:"owner_id"`
	TransactionID string    `json:"transaction_id" db:"transaction_id"`
	ProductID     string    `json:"product_id,omitempty" db:"product_id"`
	ProductName   string    `json:"product_name,omitempty" db:"product_name"`
	Category      string    `json:"category,omitempty" db:"category"`
	Quantity      int       `json:"quantity" db:"quantity"`
	UnitPrice     float64   `json:"unit_price" db:"unit_price"`
	TotalAmount   float64   `json:"total_amount" db:"total_amount"`
	CustomerName  string    `json:"customer_name" db:"customer_name"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
