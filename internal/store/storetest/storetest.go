// Package storetest holds a behavioural test suite shared by every
// store.Store implementation.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/store"
	"github.com/google/uuid"
)

// Factory returns a fresh, empty store for a single subtest.
type Factory func(t *testing.T) store.Store

// Run exercises s against the store.Store contract.
func Run(t *testing.T, newStore Factory) {
	t.Run("ProductOwnerIsolation", func(t *testing.T) { testProductOwnerIsolation(t, newStore(t)) })
	t.Run("ListProductsByName", func(t *testing.T) { testListProductsByName(t, newStore(t)) })
	t.Run("LowStock", func(t *testing.T) { testLowStock(t, newStore(t)) })
	t.Run("UpdateProduct", func(t *testing.T) { testUpdateProduct(t, newStore(t)) })
	t.Run("StockMutations", func(t *testing.T) { testStockMutations(t, newStore(t)) })
	t.Run("ConcurrentDecrement", func(t *testing.T) { testConcurrentDecrement(t, newStore(t)) })
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("Sales", func(t *testing.T) { testSales(t, newStore(t)) })
	t.Run("IdempotentInserts", func(t *testing.T) { testIdempotentInserts(t, newStore(t)) })
	t.Run("CommandLogs", func(t *testing.T) { testCommandLogs(t, newStore(t)) })
}

var base = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// NewProduct builds a product with a fresh ID.
func NewProduct(owner, name string, qty int, price float64, createdAt time.Time) *domain.Product {
	return &domain.Product{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Name:      name,
		Category:  "General",
		UnitPrice: price,
		Quantity:  qty,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func mustInsertProduct(t *testing.T, s store.Store, p *domain.Product) {
	t.Helper()
	if err := s.InsertProduct(context.Background(), p); err != nil {
		t.Fatalf("InsertProduct(%s) error = %v", p.Name, err)
	}
}

func testProductOwnerIsolation(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewProduct("alice", "iPhone 15", 10, 800, base)
	mustInsertProduct(t, s, p)

	got, err := s.GetProduct(ctx, "alice", p.ID)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if got.Name != "iPhone 15" || got.Quantity != 10 || got.UnitPrice != 800 {
		t.Errorf("GetProduct() = %+v", got)
	}

	if _, err := s.GetProduct(ctx, "bob", p.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetProduct(other owner) error = %v, want ErrNotFound", err)
	}

	list, err := s.ListProducts(ctx, store.ProductFilter{OwnerID: "bob", NameContains: "iphone"})
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListProducts(other owner) returned %d products", len(list))
	}

	if err := s.SetProductQuantity(ctx, "bob", p.ID, 0); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("SetProductQuantity(other owner) error = %v, want ErrNotFound", err)
	}
}

func testListProductsByName(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustInsertProduct(t, s, NewProduct("alice", "Blue Widget", 1, 5, base.Add(2*time.Second)))
	mustInsertProduct(t, s, NewProduct("alice", "Widget", 1, 5, base.Add(1*time.Second)))
	mustInsertProduct(t, s, NewProduct("alice", "Gadget", 1, 5, base))

	list, err := s.ListProducts(ctx, store.ProductFilter{OwnerID: "alice", NameContains: "WIDGET"})
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListProducts() returned %d products, want 2", len(list))
	}
	if list[0].Name != "Widget" || list[1].Name != "Blue Widget" {
		t.Errorf("ListProducts() order = [%s, %s], want creation order", list[0].Name, list[1].Name)
	}

	all, err := s.ListProducts(ctx, store.ProductFilter{OwnerID: "alice", NewestFirst: true, Limit: 2})
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if len(all) != 2 || all[0].Name != "Blue Widget" {
		t.Errorf("ListProducts(newest first, limit 2) = %v", names(all))
	}
}

func testLowStock(t *testing.T, s store.Store) {
	ctx := context.Background()
	low := NewProduct("alice", "Low", 2, 1, base)
	low.MinStockLevel = 5
	edge := NewProduct("alice", "Edge", 5, 1, base.Add(time.Second))
	edge.MinStockLevel = 5
	ok := NewProduct("alice", "Plenty", 50, 1, base.Add(2*time.Second))
	ok.MinStockLevel = 5
	for _, p := range []*domain.Product{low, edge, ok} {
		mustInsertProduct(t, s, p)
	}

	list, err := s.ListProducts(ctx, store.ProductFilter{OwnerID: "alice", LowStockOnly: true})
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}
	if got := names(list); len(got) != 2 || got[0] != "Low" || got[1] != "Edge" {
		t.Errorf("low stock = %v, want [Low Edge]", got)
	}
}

func testUpdateProduct(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewProduct("alice", "Mug", 3, 4.5, base)
	mustInsertProduct(t, s, p)

	p.Name = "Large Mug"
	p.UnitPrice = 6
	p.Supplier = "Acme"
	if err := s.UpdateProduct(ctx, p); err != nil {
		t.Fatalf("UpdateProduct() error = %v", err)
	}

	got, err := s.GetProduct(ctx, "alice", p.ID)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if got.Name != "Large Mug" || got.UnitPrice != 6 || got.Supplier != "Acme" {
		t.Errorf("GetProduct() after update = %+v", got)
	}

	stranger := *p
	stranger.OwnerID = "bob"
	if err := s.UpdateProduct(ctx, &stranger); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpdateProduct(other owner) error = %v, want ErrNotFound", err)
	}
}

func testStockMutations(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewProduct("alice", "Widget", 10, 2, base)
	mustInsertProduct(t, s, p)

	remaining, err := s.DecrementStock(ctx, "alice", p.ID, 4)
	if err != nil {
		t.Fatalf("DecrementStock() error = %v", err)
	}
	if remaining != 6 {
		t.Errorf("DecrementStock() remaining = %d, want 6", remaining)
	}

	available, err := s.DecrementStock(ctx, "alice", p.ID, 7)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("DecrementStock(too many) error = %v, want ErrInsufficientStock", err)
	}
	if available != 6 {
		t.Errorf("DecrementStock(too many) available = %d, want 6", available)
	}

	if _, err := s.DecrementStock(ctx, "alice", "missing", 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("DecrementStock(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.IncrementStock(ctx, "alice", p.ID, 4); err != nil {
		t.Fatalf("IncrementStock() error = %v", err)
	}
	if err := s.SetProductQuantity(ctx, "alice", p.ID, 0); err != nil {
		t.Fatalf("SetProductQuantity() error = %v", err)
	}

	got, err := s.GetProduct(ctx, "alice", p.ID)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if got.Quantity != 0 {
		t.Errorf("Quantity = %d, want 0", got.Quantity)
	}
}

func testConcurrentDecrement(t *testing.T, s store.Store) {
	ctx := context.Background()
	const stock, buyers = 5, 20
	p := NewProduct("alice", "Widget", stock, 2, base)
	mustInsertProduct(t, s, p)

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		refusals  atomic.Int32
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.DecrementStock(ctx, "alice", p.ID, 1)
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, store.ErrInsufficientStock):
				refusals.Add(1)
			default:
				t.Errorf("DecrementStock() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := successes.Load(); got != stock {
		t.Errorf("successful decrements = %d, want %d", got, stock)
	}
	if got := refusals.Load(); got != buyers-stock {
		t.Errorf("refused decrements = %d, want %d", got, buyers-stock)
	}
	got, err := s.GetProduct(ctx, "alice", p.ID)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if got.Quantity != 0 {
		t.Errorf("Quantity = %d, want 0", got.Quantity)
	}
}

func testTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	txs := []*domain.Transaction{
		{ID: uuid.NewString(), OwnerID: "alice", Type: domain.TransactionTypeSale, Amount: 100, Category: "Sales", Date: base},
		{ID: uuid.NewString(), OwnerID: "alice", Type: domain.TransactionTypeExpense, Amount: 40, Category: "Rent", Date: base.Add(24 * time.Hour)},
		{ID: uuid.NewString(), OwnerID: "alice", Type: domain.TransactionTypeSale, Amount: 60, Category: "Sales", Date: base.Add(48 * time.Hour)},
		{ID: uuid.NewString(), OwnerID: "bob", Type: domain.TransactionTypeSale, Amount: 999, Category: "Sales", Date: base},
	}
	for _, tx := range txs {
		if err := s.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("InsertTransaction() error = %v", err)
		}
	}

	all, err := s.ListTransactions(ctx, store.TransactionFilter{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListTransactions() returned %d, want 3", len(all))
	}
	if all[0].Amount != 60 {
		t.Errorf("ListTransactions() first amount = %v, want newest (60)", all[0].Amount)
	}

	sales, err := s.ListTransactions(ctx, store.TransactionFilter{OwnerID: "alice", Type: domain.TransactionTypeSale})
	if err != nil {
		t.Fatalf("ListTransactions(sale) error = %v", err)
	}
	if len(sales) != 2 {
		t.Errorf("ListTransactions(sale) returned %d, want 2", len(sales))
	}

	ranged, err := s.ListTransactions(ctx, store.TransactionFilter{
		OwnerID: "alice",
		Since:   base.Add(time.Hour),
		Until:   base.Add(24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("ListTransactions(range) error = %v", err)
	}
	if len(ranged) != 1 || ranged[0].Amount != 40 {
		t.Errorf("ListTransactions(range) = %d rows", len(ranged))
	}
}

func testSales(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewProduct("alice", "iPhone", 10, 800, base)
	p.Category = "Phones"
	mustInsertProduct(t, s, p)

	tx := &domain.Transaction{ID: uuid.NewString(), OwnerID: "alice", Type: domain.TransactionTypeSale, Amount: 1600, Date: base}
	if err := s.InsertTransaction(ctx, tx); err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}
	sale := &domain.Sale{
		ID:            uuid.NewString(),
		OwnerID:       "alice",
		TransactionID: tx.ID,
		ProductID:     p.ID,
		Quantity:      2,
		UnitPrice:     800,
		TotalAmount:   1600,
		CustomerName:  "Walk-in Customer",
		CreatedAt:     base,
	}
	if err := s.InsertSale(ctx, sale); err != nil {
		t.Fatalf("InsertSale() error = %v", err)
	}

	orphan := &domain.Sale{ID: uuid.NewString(), OwnerID: "alice", TransactionID: uuid.NewString(), Quantity: 1}
	if err := s.InsertSale(ctx, orphan); err == nil {
		t.Error("InsertSale(unknown transaction) error = nil, want error")
	}

	list, err := s.ListSales(ctx, store.SaleFilter{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("ListSales() error = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListSales() returned %d, want 1", len(list))
	}
	got := list[0]
	if got.TotalAmount != 1600 || got.Quantity != 2 || got.TransactionID != tx.ID {
		t.Errorf("ListSales()[0] = %+v", got)
	}
	if got.ProductName != "iPhone" || got.Category != "Phones" {
		t.Errorf("ListSales()[0] product = %q/%q, want iPhone/Phones", got.ProductName, got.Category)
	}

	none, err := s.ListSales(ctx, store.SaleFilter{OwnerID: "alice", Since: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("ListSales(since) error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListSales(since) returned %d, want 0", len(none))
	}
}

func testIdempotentInserts(t *testing.T, s store.Store) {
	ctx := context.Background()
	tx := &domain.Transaction{ID: uuid.NewString(), OwnerID: "alice", Type: domain.TransactionTypeExpense, Amount: 20, Date: base}

	for i := 0; i < 2; i++ {
		if err := s.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("InsertTransaction() attempt %d error = %v", i+1, err)
		}
	}

	list, err := s.ListTransactions(ctx, store.TransactionFilter{OwnerID: "alice"})
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("ListTransactions() returned %d after retried insert, want 1", len(list))
	}
}

func testCommandLogs(t *testing.T, s store.Store) {
	ctx := context.Background()
	first := &domain.CommandLogEntry{
		ID:               uuid.NewString(),
		OwnerID:          "alice",
		OriginalText:     "sell two iphones",
		ProcessedCommand: json.RawMessage(`{"intent":"record_sale"}`),
		ActionTaken:      "record_sale",
		ConfidenceScore:  0.9,
		CreatedAt:        base,
	}
	second := &domain.CommandLogEntry{
		ID:               uuid.NewString(),
		OwnerID:          "alice",
		OriginalText:     "check stock",
		ProcessedCommand: json.RawMessage(`{"intent":"check_stock"}`),
		ActionTaken:      "check_stock",
		ConfidenceScore:  0.8,
		CreatedAt:        base.Add(time.Minute),
	}
	for _, e := range []*domain.CommandLogEntry{first, second} {
		if err := s.InsertCommandLog(ctx, e); err != nil {
			t.Fatalf("InsertCommandLog() error = %v", err)
		}
	}

	if _, err := s.GetCommandLog(ctx, "bob", first.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetCommandLog(other owner) error = %v, want ErrNotFound", err)
	}

	first.OriginalText = "sell two ipads"
	first.ProcessedCommand = json.RawMessage(`{"intent":"record_sale","confidence":0.95}`)
	first.ConfidenceScore = 0.95
	first.ActionTaken = domain.ActionCorrected
	if err := s.UpdateCommandLog(ctx, first); err != nil {
		t.Fatalf("UpdateCommandLog() error = %v", err)
	}

	got, err := s.GetCommandLog(ctx, "alice", first.ID)
	if err != nil {
		t.Fatalf("GetCommandLog() error = %v", err)
	}
	if got.OriginalText != "sell two ipads" || got.ActionTaken != domain.ActionCorrected || got.ConfidenceScore != 0.95 {
		t.Errorf("GetCommandLog() after update = %+v", got)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(got.ProcessedCommand, &decoded); err != nil {
		t.Fatalf("ProcessedCommand is not JSON: %v", err)
	}
	if decoded["confidence"] != 0.95 {
		t.Errorf("ProcessedCommand = %s", got.ProcessedCommand)
	}

	list, err := s.ListCommandLogs(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("ListCommandLogs() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != second.ID {
		t.Errorf("ListCommandLogs(limit 1) should return newest entry")
	}
}

func names(ps []*domain.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}
