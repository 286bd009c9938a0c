package domain

import (
	"time"
)

// TransactionType is the ledger classification of a Transaction.
type TransactionType string

const (
	TransactionTypeSale     TransactionType = "sale"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypePurchase TransactionType = "purchase"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeSale, TransactionTypeExpense, TransactionTypePurchase:
		return true
	}
	return false
}

// Transaction is one immutable ledger entry. Sales, expenses and purchases
// all land here; a sale additionally gets a Sale row pointing back at it.
type Transaction struct {
	ID          string          `json:"id" db:"id"`
	OwnerID     string          `json:"owner_id" db:"owner_id"`
	Type        TransactionType `json:"transaction_type" db:"transaction_type"`
	Amount      float64         `json:"amount" db:"amount"`
	Description string          `json:"description" db:"description"`
	Category    string          `json:"category" db:"category"`
	Date        time.Time       `json:"date" db:"date"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
