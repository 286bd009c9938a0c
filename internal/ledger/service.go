// Package ledger holds the inventory and bookkeeping rules shared by the
// voice handlers and the REST endpoints.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/store"
	"github.com/google/uuid"
)

var (
	ErrNameRequired    = errors.New("Product name is required")
	ErrInvalidQuantity = errors.New("Quantity must be greater than zero")
	ErrInvalidAmount   = errors.New("Amount must be greater than zero")
)

// InsufficientStockError reports how many units were available when a sale
// was refused.
type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock. Available: %d", e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == store.ErrInsufficientStock
}

// Service applies business rules on top of a store.Store.
type Service struct {
	store store.Store
	now   func() time.Time
	newID func() string
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for timestamps and reporting windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(s store.Store, opts ...Option) *Service {
	svc := &Service{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Store exposes the underlying store for read paths that need no rules.
func (s *Service) Store() store.Store {
	return s.store
}

// AddProduct assigns an id and timestamps and applies the category default.
func (s *Service) AddProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, ErrNameRequired
	}
	if p.Category == "" {
		p.Category = "General"
	}
	if p.ID == "" {
		p.ID = s.newID()
	}
	now := s.now()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := s.store.InsertProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("AddProduct: %w", err)
	}
	return p, nil
}

// UpdateProduct applies a partial edit to one of the owner's products.
func (s *Service) UpdateProduct(ctx context.Context, ownerID, productID string, u domain.ProductUpdate) (*domain.Product, error) {
	p, err := s.store.GetProduct(ctx, ownerID, productID)
	if err != nil {
		return nil, err
	}
	u.Apply(p)
	if strings.TrimSpace(p.Name) == "" {
		return nil, ErrNameRequired
	}
	p.UpdatedAt = s.now()
	if err := s.store.UpdateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("UpdateProduct: %w", err)
	}
	return p, nil
}

// FindProduct resolves a spoken product name. An exact case-insensitive name
// match wins; otherwise the oldest product whose name contains the query.
func (s *Service) FindProduct(ctx context.Context, ownerID, name string) (*domain.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty product name: %w", store.ErrNotFound)
	}

	matches, err := s.store.ListProducts(ctx, store.ProductFilter{OwnerID: ownerID, NameContains: name})
	if err != nil {
		return nil, fmt.Errorf("FindProduct: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("product %q: %w", name, store.ErrNotFound)
	}
	for _, p := range matches {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return matches[0], nil
}

// SetStock overwrites a product's quantity.
func (s *Service) SetStock(ctx context.Context, ownerID, productID string, quantity int) error {
	return s.store.SetProductQuantity(ctx, ownerID, productID, quantity)
}

// ListProducts returns the owner's products, newest first.
func (s *Service) ListProducts(ctx context.Context, ownerID string) ([]*domain.Product, error) {
	return s.store.ListProducts(ctx, store.ProductFilter{OwnerID: ownerID, NewestFirst: true})
}

// LowStock returns products at or below their reorder level.
func (s *Service) LowStock(ctx context.Context, ownerID string) ([]*domain.Product, error) {
	return s.store.ListProducts(ctx, store.ProductFilter{OwnerID: ownerID, LowStockOnly: true})
}

// Categories returns the distinct, non-empty product categories, sorted.
func (s *Service) Categories(ctx context.Context, ownerID string) ([]string, error) {
	products, err := s.store.ListProducts(ctx, store.ProductFilter{OwnerID: ownerID})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	out := []string{}
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

type StockUpdate struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

type StockUpdateResult struct {
	ProductID   string `json:"product_id"`
	Success     bool   `json:"success"`
	NewQuantity int    `json:"new_quantity"`
}

// BulkUpdateStock sets quantities for several products. Entries without a
// product id or quantity are skipped; unknown products report Success=false.
func (s *Service) BulkUpdateStock(ctx context.Context, ownerID string, updates []StockUpdate) ([]StockUpdateResult, int, error) {
	results := []StockUpdateResult{}
	updated := 0

	for _, u := range updates {
		if u.ProductID == "" || u.Quantity == nil {
			continue
		}
		err := s.store.SetProductQuantity(ctx, ownerID, u.ProductID, *u.Quantity)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, 0, fmt.Errorf("BulkUpdateStock: %w", err)
		}
		ok := err == nil
		if ok {
			updated++
		}
		results = append(results, StockUpdateResult{ProductID: u.ProductID, Success: ok, NewQuantity: *u.Quantity})
	}
	return results, updated, nil
}
