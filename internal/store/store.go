// Package store defines the persistence contract for inventory, ledger and
// command-log records. Every read and write is scoped by owner id.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/voice-inventory/internal/domain"
)

var (
	// ErrNotFound is returned when a record does not exist for the owner.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientStock is returned by DecrementStock when the product
	// holds fewer units than requested. Nothing is written in that case.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductFilter selects products for ListProducts.
type ProductFilter struct {
	OwnerID string

	// NameContains is a case-insensitive substring match on the name.
	NameContains string

	// LowStockOnly keeps products with quantity <= min_stock_level.
	LowStockOnly bool

	// NewestFirst orders by creation time descending; default is ascending.
	NewestFirst bool

	Limit int
}

// TransactionFilter selects ledger transactions. Zero times are unbounded;
// bounds are inclusive. Results are newest first.
type TransactionFilter struct {
	OwnerID string
	Type    domain.TransactionType
	Since   time.Time
	Until   time.Time
	Limit   int
}

// SaleFilter selects sales by creation time. Results are newest first.
type SaleFilter struct {
	OwnerID string
	Since   time.Time
	Until   time.Time
	Limit   int
}

// ProductStore holds inventory items.
type ProductStore interface {
	GetProduct(ctx context.Context, ownerID, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]*domain.Product, error)
	InsertProduct(ctx context.Context, p *domain.Product) error
	UpdateProduct(ctx context.Context, p *domain.Product) error

	// SetProductQuantity overwrites the quantity unconditionally.
	SetProductQuantity(ctx context.Context, ownerID, productID string, quantity int) error

	// DecrementStock removes qty units only if at least qty are available,
	// returning the remaining quantity. On ErrInsufficientStock the returned
	// value is the quantity currently available.
	DecrementStock(ctx context.Context, ownerID, productID string, qty int) (int, error)

	// IncrementStock adds qty units back.
	IncrementStock(ctx context.Context, ownerID, productID string, qty int) error
}

// LedgerStore holds transactions and sales.
type LedgerStore interface {
	InsertTransaction(ctx context.Context, tx *domain.Transaction) error
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*domain.Transaction, error)
	InsertSale(ctx context.Context, s *domain.Sale) error

	// ListSales fills ProductName and Category from the referenced product
	// when it still exists.
	ListSales(ctx context.Context, filter SaleFilter) ([]*domain.Sale, error)
}

// CommandLogStore holds the voice command audit log.
type CommandLogStore interface {
	InsertCommandLog(ctx context.Context, e *domain.CommandLogEntry) error
	GetCommandLog(ctx context.Context, ownerID, id string) (*domain.CommandLogEntry, error)
	UpdateCommandLog(ctx context.Context, e *domain.CommandLogEntry) error
	ListCommandLogs(ctx context.Context, ownerID string, limit int) ([]*domain.CommandLogEntry, error)
}

// Store is the full persistence contract.
type Store interface {
	ProductStore
	LedgerStore
	CommandLogStore
	Close() error
}
