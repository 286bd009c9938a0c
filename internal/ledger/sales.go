package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/logger"
	"github.com/dvloznov/voice-inventory/internal/store"
)

const (
	SalesCategory       = "Sales"
	DefaultCustomerName = "Walk-in Customer"
	DefaultExpenseCat   = "General Expense"
)

type SaleRequest struct {
	OwnerID   string
	ProductID string
	Quantity  int

	// UnitPrice falls back to the product's price when nil.
	UnitPrice    *float64
	CustomerName string
}

type SaleReceipt struct {
	Product     *domain.Product
	Transaction *domain.Transaction
	Sale        *domain.Sale
}

// RecordSale sells from stock. The transaction is written first, then the
// stock is taken with a conditional decrement, then the sale is written. A
// failure after the transaction leaves it orphaned and logged; units are
// never removed without a transaction recording them.
func (s *Service) RecordSale(ctx context.Context, req SaleRequest) (*SaleReceipt, error) {
	if req.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.store.GetProduct(ctx, req.OwnerID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if p.Quantity < req.Quantity {
		return nil, &InsufficientStockError{Available: p.Quantity}
	}

	unitPrice := p.UnitPrice
	if req.UnitPrice != nil {
		unitPrice = *req.UnitPrice
	}
	total := float64(req.Quantity) * unitPrice
	customer := strings.TrimSpace(req.CustomerName)
	if customer == "" {
		customer = DefaultCustomerName
	}

	now := s.now()
	tx := &domain.Transaction{
		ID:          s.newID(),
		OwnerID:     req.OwnerID,
		Type:        domain.TransactionTypeSale,
		Amount:      total,
		Description: fmt.Sprintf("Sale of %d %s", req.Quantity, p.Name),
		Category:    SalesCategory,
		Date:        now,
		CreatedAt:   now,
	}
	if err := s.store.InsertTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("RecordSale: recording transaction: %w", err)
	}

	log := logger.FromContext(ctx).With().
		Str("transaction_id", tx.ID).
		Str("product_id", p.ID).
		Int("quantity", req.Quantity).
		Logger()

	remaining, err := s.store.DecrementStock(ctx, req.OwnerID, p.ID, req.Quantity)
	if errors.Is(err, store.ErrInsufficientStock) {
		log.Warn().Int("available", remaining).Msg("Stock taken by a concurrent sale; transaction left without a sale")
		return nil, &InsufficientStockError{Available: remaining}
	}
	if err != nil {
		log.Error().Err(err).Msg("Transaction left without a sale")
		return nil, fmt.Errorf("RecordSale: taking stock: %w", err)
	}

	sale := &domain.Sale{
		ID:            s.newID(),
		OwnerID:       req.OwnerID,
		TransactionID: tx.ID,
		ProductID:     p.ID,
		ProductName:   p.Name,
		Category:      p.Category,
		Quantity:      req.Quantity,
		UnitPrice:     unitPrice,
		TotalAmount:   total,
		CustomerName:  customer,
		CreatedAt:     now,
	}
	if err := s.store.InsertSale(ctx, sale); err != nil {
		// Put the units back so the transaction is the only trace left.
		if rerr := s.store.IncrementStock(ctx, req.OwnerID, p.ID, req.Quantity); rerr != nil {
			log.Error().Err(rerr).Msg("Failed to return stock after a failed sale; the transaction records the units")
		} else {
			log.Error().Err(err).Msg("Transaction left without a sale")
		}
		return nil, fmt.Errorf("RecordSale: recording sale: %w", err)
	}

	p.Quantity = remaining
	p.UpdatedAt = now
	return &SaleReceipt{Product: p, Transaction: tx, Sale: sale}, nil
}

type ExpenseRequest struct {
	OwnerID     string
	Amount      float64
	Description string
	Category    string

	// Date defaults to now.
	Date time.Time
}

// RecordExpense writes an expense transaction.
func (s *Service) RecordExpense(ctx context.Context, req ExpenseRequest) (*domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	category := req.Category
	if category == "" {
		category = DefaultExpenseCat
	}
	now := s.now()
	date := req.Date
	if date.IsZero() {
		date = now
	}

	tx := &domain.Transaction{
		ID:          s.newID(),
		OwnerID:     req.OwnerID,
		Type:        domain.TransactionTypeExpense,
		Amount:      req.Amount,
		Description: req.Description,
		Category:    category,
		Date:        date,
		CreatedAt:   now,
	}
	if err := s.store.InsertTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("RecordExpense: %w", err)
	}
	return tx, nil
}
