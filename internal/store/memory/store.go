package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/store"
)

// Store is an in-memory implementation of store.Store.
// It is safe for concurrent use; data is lost on restart.
type Store struct {
	mu           sync.RWMutex
	products     map[string]*domain.Product
	transactions map[string]*domain.Transaction
	sales        map[string]*domain.Sale
	commandLogs  map[string]*domain.CommandLogEntry

	// seq breaks ties between records created within the same clock tick.
	seq   int64
	order map[string]int64

	now func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		products:     make(map[string]*domain.Product),
		transactions: make(map[string]*domain.Transaction),
		sales:        make(map[string]*domain.Sale),
		commandLogs:  make(map[string]*domain.CommandLogEntry),
		order:        make(map[string]int64),
		now:          time.Now,
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

func (s *Store) stamp(id string) {
	s.seq++
	s.order[id] = s.seq
}

func (s *Store) GetProduct(ctx context.Context, ownerID, productID string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok || p.OwnerID != ownerID {
		return nil, fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ListProducts(ctx context.Context, filter store.ProductFilter) ([]*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(filter.NameContains)

	var result []*domain.Product
	for _, p := range s.products {
		if p.OwnerID != filter.OwnerID {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		if filter.LowStockOnly && !p.LowStock() {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		less := s.earlier(result[i].CreatedAt, result[i].ID, result[j].CreatedAt, result[j].ID)
		if filter.NewestFirst {
			return !less
		}
		return less
	})

	return limit(result, filter.Limit), nil
}

func (s *Store) InsertProduct(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		return fmt.Errorf("InsertProduct: product ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Inserts are idempotent on ID.
	if _, exists := s.products[p.ID]; exists {
		return nil
	}
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	cp := *p
	s.products[p.ID] = &cp
	s.stamp(p.ID)
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[p.ID]
	if !ok || existing.OwnerID != p.OwnerID {
		return fmt.Errorf("product %s: %w", p.ID, store.ErrNotFound)
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.now()
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *Store) SetProductQuantity(ctx context.Context, ownerID, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok || p.OwnerID != ownerID {
		return fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
	}
	p.Quantity = quantity
	p.UpdatedAt = s.now()
	return nil
}

func (s *Store) DecrementStock(ctx context.Context, ownerID, productID string, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok || p.OwnerID != ownerID {
		return 0, fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
	}
	if p.Quantity < qty {
		return p.Quantity, store.ErrInsufficientStock
	}
	p.Quantity -= qty
	p.UpdatedAt = s.now()
	return p.Quantity, nil
}

func (s *Store) IncrementStock(ctx context.Context, ownerID, productID string, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok || p.OwnerID != ownerID {
		return fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
	}
	p.Quantity += qty
	p.UpdatedAt = s.now()
	return nil
}

func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("InsertTransaction: transaction ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.ID]; exists {
		return nil
	}
	now := s.now()
	if tx.Date.IsZero() {
		tx.Date = now
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	cp := *tx
	s.transactions[tx.ID] = &cp
	s.stamp(tx.ID)
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Transaction
	for _, tx := range s.transactions {
		if tx.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if !inRange(tx.Date, filter.Since, filter.Until) {
			continue
		}
		cp := *tx
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return s.earlier(result[j].CreatedAt, result[j].ID, result[i].CreatedAt, result[i].ID)
	})

	return limit(result, filter.Limit), nil
}

func (s *Store) InsertSale(ctx context.Context, sale *domain.Sale) error {
	if sale.ID == "" {
		return fmt.Errorf("InsertSale: sale ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[sale.ID]; exists {
		return nil
	}
	if _, ok := s.transactions[sale.TransactionID]; !ok {
		return fmt.Errorf("InsertSale: transaction %s: %w", sale.TransactionID, store.ErrNotFound)
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = s.now()
	}
	cp := *sale
	cp.ProductName = ""
	cp.Category = ""
	s.sales[sale.ID] = &cp
	s.stamp(sale.ID)
	return nil
}

func (s *Store) ListSales(ctx context.Context, filter store.SaleFilter) ([]*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Sale
	for _, sale := range s.sales {
		if sale.OwnerID != filter.OwnerID {
			continue
		}
		if !inRange(sale.CreatedAt, filter.Since, filter.Until) {
			continue
		}
		cp := *sale
		if p, ok := s.products[sale.ProductID]; ok {
			cp.ProductName = p.Name
			cp.Category = p.Category
		}
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return s.earlier(result[j].CreatedAt, result[j].ID, result[i].CreatedAt, result[i].ID)
	})

	return limit(result, filter.Limit), nil
}

func (s *Store) InsertCommandLog(ctx context.Context, e *domain.CommandLogEntry) error {
	if e.ID == "" {
		return fmt.Errorf("InsertCommandLog: command log ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.commandLogs[e.ID]; exists {
		return nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	cp := *e
	cp.ProcessedCommand = append([]byte(nil), e.ProcessedCommand...)
	s.commandLogs[e.ID] = &cp
	s.stamp(e.ID)
	return nil
}

func (s *Store) GetCommandLog(ctx context.Context, ownerID, id string) (*domain.CommandLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.commandLogs[id]
	if !ok || e.OwnerID != ownerID {
		return nil, fmt.Errorf("command log %s: %w", id, store.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (s *Store) UpdateCommandLog(ctx context.Context, e *domain.CommandLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.commandLogs[e.ID]
	if !ok || existing.OwnerID != e.OwnerID {
		return fmt.Errorf("command log %s: %w", e.ID, store.ErrNotFound)
	}
	existing.OriginalText = e.OriginalText
	existing.ProcessedCommand = append([]byte(nil), e.ProcessedCommand...)
	existing.ConfidenceScore = e.ConfidenceScore
	existing.ActionTaken = e.ActionTaken
	return nil
}

func (s *Store) ListCommandLogs(ctx context.Context, ownerID string, n int) ([]*domain.CommandLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CommandLogEntry
	for _, e := range s.commandLogs {
		if e.OwnerID != ownerID {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return s.earlier(result[j].CreatedAt, result[j].ID, result[i].CreatedAt, result[i].ID)
	})

	return limit(result, n), nil
}

// earlier orders records by creation time, then by insertion order.
func (s *Store) earlier(at time.Time, aID string, bt time.Time, bID string) bool {
	if !at.Equal(bt) {
		return at.Before(bt)
	}
	return s.order[aID] < s.order[bID]
}

func inRange(t, since, until time.Time) bool {
	if !since.IsZero() && t.Before(since) {
		return false
	}
	if !until.IsZero() && t.After(until) {
		return false
	}
	return true
}

func limit[T any](items []T, n int) []T {
	if n > 0 && n < len(items) {
		return items[:n]
	}
	return items
}

// Ensure Store implements store.Store.
var _ store.Store = (*Store)(nil)
