package actions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/intent"
	"github.com/dvloznov/voice-inventory/internal/ledger"
	"github.com/dvloznov/voice-inventory/internal/store"
)

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// spokenName returns the trimmed product name, or "" when none was given.
func spokenName(e intent.Entities) string {
	return strings.TrimSpace(e.ProductNameOr(""))
}

// lookup resolves a spoken product name. A nil product with a nil error
// means the owner has no matching product.
func lookup(ctx context.Context, svc *ledger.Service, ownerID, name string) (*domain.Product, error) {
	p, err := svc.FindProduct(ctx, ownerID, name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

func notFound(name string) Result {
	return failure(fmt.Sprintf("Product %q not found", name))
}

// AddProductHandler inserts a product, filling in defaults for missing entities.
type AddProductHandler struct {
	Ledger *ledger.Service
}

func (h *AddProductHandler) Handle(ctx context.Context, ownerID string, e intent.Entities) (Result, error) {
	name := spokenName(e)
	if name == "" {
		name = intent.DefaultProductName
	}

	p, err := h.Ledger.AddProduct(ctx, &domain.Product{
		OwnerID:     ownerID,
		Name:        name,
		Description: e.DescriptionOr(""),
		UnitPrice:   e.PriceOr(0),
		Quantity:    e.QuantityOr(0),
		Category:    e.CategoryOr(intent.DefaultProductCategory),
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: fmt.Sprintf("Added %s to inventory", p.Name), Product: p}, nil
}

// RecordSaleHandler sells a looked-up product through the ledger.
type RecordSaleHandler struct {
	Ledger *ledger.Service
}

func (h *RecordSaleHandler) Handle(ctx context.Context, ownerID string, e intent.Entities) (Result, error) {
	name := spokenName(e)
	if name == "" {
		return failure("Product name not specified"), nil
	}

	p, err := lookup(ctx, h.Ledger, ownerID, name)
	if err != nil {
		return Result{}, err
	}
	if p == nil {
		return notFound(name), nil
	}

	receipt, err := h.Ledger.RecordSale(ctx, ledger.SaleRequest{
		OwnerID:      ownerID,
		ProductID:    p.ID,
		Quantity:     e.QuantityOr(1),
		UnitPrice:    e.Price,
		CustomerName: e.CustomerNameOr(intent.DefaultCustomerName),
	})
	var short *ledger.InsufficientStockError
	switch {
	case errors.As(err, &short), errors.Is(err, ledger.ErrInvalidQuantity):
		return failure(err.Error()), nil
	case errors.Is(err, store.ErrNotFound):
		return notFound(name), nil
	case err != nil:
		return Result{}, err
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf("Recorded sale of %d %s for $%s",
			receipt.Sale.Quantity, receipt.Product.Name, money(receipt.Sale.TotalAmount)),
		Sale:        receipt.Sale,
		Transaction: receipt.Transaction,
		Product:     receipt.Product,
	}, nil
}

// RecordExpenseHandler writes an expense transaction. The amount is required.
type RecordExpenseHandler struct {
	Ledger *ledger.Service
}

func (h *RecordExpenseHandler) Handle(ctx context.Context, ownerID string, e intent.Entities) (Result, error) {
	amount := e.AmountOr(0)
	if amount == 0 {
		return failure("Amount not specified"), nil
	}

	tx, err := h.Ledger.RecordExpense(ctx, ledger.ExpenseRequest{
		OwnerID:     ownerID,
		Amount:      amount,
		Description: e.DescriptionOr(intent.DefaultExpenseNote),
		Category:    e.CategoryOr(intent.DefaultExpenseCategory),
	})
	if errors.Is(err, ledger.ErrInvalidAmount) {
		return failure(err.Error()), nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: "Recorded expense of $" + money(amount), Transaction: tx}, nil
}

// CheckStockHandler only reads.
type CheckStockHandler struct {
	Ledger *ledger.Service
}

func (h *CheckStockHandler) Handle(ctx context.Context, ownerID string, e intent.Entities) (Result, error) {
	name := spokenName(e)
	if name == "" {
		return failure("Product name not specified"), nil
	}

	p, err := lookup(ctx, h.Ledger, ownerID, name)
	if err != nil {
		return Result{}, err
	}
	if p == nil {
		return notFound(name), nil
	}
	return Result{Success: true, Message: fmt.Sprintf("%s: %d units in stock", p.Name, p.Quantity), Product: p}, nil
}

// UpdateStockHandler sets an absolute quantity. Zero is a valid target.
type UpdateStockHandler struct {
	Ledger *ledger.Service
}

func (h *UpdateStockHandler) Handle(ctx context.Context, ownerID string, e intent.Entities) (Result, error) {
	name := spokenName(e)
	if name == "" || e.Quantity == nil {
		return failure("Product name and quantity required"), nil
	}

	p, err := lookup(ctx, h.Ledger, ownerID, name)
	if err != nil {
		return Result{}, err
	}
	if p == nil {
		return notFound(name), nil
	}

	qty := *e.Quantity
	if err := h.Ledger.SetStock(ctx, ownerID, p.ID, qty); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(name), nil
		}
		return Result{}, err
	}
	p.Quantity = qty
	return Result{Success: true, Message: fmt.Sprintf("Updated %s stock to %d units", p.Name, qty), Product: p}, nil
}
