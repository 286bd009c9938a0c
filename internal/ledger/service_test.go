package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/store"
	"github.com/dvloznov/voice-inventory/internal/store/memory"
	"github.com/dvloznov/voice-inventory/internal/store/storetest"
)

const owner = "user-1"

var testNow = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	st := memory.NewStore()
	return NewService(st, WithClock(func() time.Time { return testNow })), st
}

func seedProduct(t *testing.T, st store.Store, name string, qty int, price float64, createdAt time.Time) *domain.Product {
	t.Helper()
	p := storetest.NewProduct(owner, name, qty, price, createdAt)
	if err := st.InsertProduct(context.Background(), p); err != nil {
		t.Fatalf("InsertProduct() error = %v", err)
	}
	return p
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestAddProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.AddProduct(ctx, &domain.Product{OwnerID: owner, Name: "  Widget "})
	if err != nil {
		t.Fatalf("AddProduct() error = %v", err)
	}
	if p.ID == "" {
		t.Error("expected an ID to be assigned")
	}
	if p.Name != "Widget" {
		t.Errorf("Name = %q, want Widget", p.Name)
	}
	if p.Category != "General" {
		t.Errorf("Category = %q, want General", p.Category)
	}
	if !p.CreatedAt.Equal(testNow) {
		t.Errorf("CreatedAt = %v, want %v", p.CreatedAt, testNow)
	}

	if _, err := svc.AddProduct(ctx, &domain.Product{OwnerID: owner, Name: "   "}); !errors.Is(err, ErrNameRequired) {
		t.Errorf("AddProduct(blank) error = %v, want ErrNameRequired", err)
	}
}

func TestFindProduct(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	base := testNow.Add(-time.Hour)

	seedProduct(t, st, "Blue Widget Pro", 1, 1, base)
	seedProduct(t, st, "Blue Widget", 1, 1, base.Add(time.Minute))
	seedProduct(t, st, "Red Gadget", 1, 1, base.Add(2*time.Minute))

	tests := []struct {
		query   string
		want    string
		wantErr error
	}{
		{query: "blue widget", want: "Blue Widget"},
		{query: "widget", want: "Blue Widget Pro"},
		{query: "GADGET", want: "Red Gadget"},
		{query: "sprocket", wantErr: store.ErrNotFound},
		{query: "  ", wantErr: store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p, err := svc.FindProduct(ctx, owner, tt.query)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("FindProduct() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindProduct() error = %v", err)
			}
			if p.Name != tt.want {
				t.Errorf("FindProduct() = %q, want %q", p.Name, tt.want)
			}
		})
	}
}

func TestRecordSale(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	widget := seedProduct(t, st, "Widget", 10, 100, testNow.Add(-time.Hour))

	receipt, err := svc.RecordSale(ctx, SaleRequest{
		OwnerID:   owner,
		ProductID: widget.ID,
		Quantity:  2,
		UnitPrice: floatPtr(800),
	})
	if err != nil {
		t.Fatalf("RecordSale() error = %v", err)
	}

	if receipt.Sale.TotalAmount != 1600 {
		t.Errorf("TotalAmount = %v, want 1600", receipt.Sale.TotalAmount)
	}
	if receipt.Sale.CustomerName != DefaultCustomerName {
		t.Errorf("CustomerName = %q, want %q", receipt.Sale.CustomerName, DefaultCustomerName)
	}
	if receipt.Sale.TransactionID != receipt.Transaction.ID {
		t.Error("sale does not reference its transaction")
	}
	if receipt.Transaction.Description != "Sale of 2 Widget" || receipt.Transaction.Category != SalesCategory {
		t.Errorf("transaction = %+v", receipt.Transaction)
	}
	if receipt.Product.Quantity != 8 {
		t.Errorf("receipt quantity = %d, want 8", receipt.Product.Quantity)
	}

	got, _ := st.GetProduct(ctx, owner, widget.ID)
	if got.Quantity != 8 {
		t.Errorf("stored quantity = %d, want 8", got.Quantity)
	}
}

func TestRecordSale_DefaultsToProductPrice(t *testing.T) {
	svc, st := newTestService(t)
	widget := seedProduct(t, st, "Widget", 5, 12.5, testNow)

	receipt, err := svc.RecordSale(context.Background(), SaleRequest{OwnerID: owner, ProductID: widget.ID, Quantity: 2})
	if err != nil {
		t.Fatalf("RecordSale() error = %v", err)
	}
	if receipt.Sale.UnitPrice != 12.5 || receipt.Sale.TotalAmount != 25 {
		t.Errorf("sale = %+v", receipt.Sale)
	}
}

func TestRecordSale_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		product  string
		wantErr  error
		wantMsg  string
	}{
		{name: "insufficient stock", quantity: 4, wantErr: store.ErrInsufficientStock, wantMsg: "Insufficient stock. Available: 3"},
		{name: "zero quantity", quantity: 0, wantErr: ErrInvalidQuantity},
		{name: "negative quantity", quantity: -1, wantErr: ErrInvalidQuantity},
		{name: "unknown product", quantity: 1, product: "missing", wantErr: store.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, st := newTestService(t)
			ctx := context.Background()
			widget := seedProduct(t, st, "Widget", 3, 10, testNow)

			id := widget.ID
			if tt.product != "" {
				id = tt.product
			}
			_, err := svc.RecordSale(ctx, SaleRequest{OwnerID: owner, ProductID: id, Quantity: tt.quantity})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RecordSale() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && err.Error() != tt.wantMsg {
				t.Errorf("error message = %q, want %q", err.Error(), tt.wantMsg)
			}

			got, _ := st.GetProduct(ctx, owner, widget.ID)
			if got.Quantity != 3 {
				t.Errorf("quantity = %d, want unchanged 3", got.Quantity)
			}
			txs, _ := st.ListTransactions(ctx, store.TransactionFilter{OwnerID: owner})
			sales, _ := st.ListSales(ctx, store.SaleFilter{OwnerID: owner})
			if len(txs) != 0 || len(sales) != 0 {
				t.Errorf("wrote %d transactions and %d sales, want none", len(txs), len(sales))
			}
		})
	}
}

// faultyStore fails the writes named by its fields.
type faultyStore struct {
	store.Store
	failTransaction bool
	failSale        bool
	failIncrement   bool

	// soldOut makes DecrementStock report the stock as gone, as if a
	// concurrent sale took it after the pre-check.
	soldOut bool
}

func (f *faultyStore) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	if f.failTransaction {
		return errors.New("crash")
	}
	return f.Store.InsertTransaction(ctx, tx)
}

func (f *faultyStore) InsertSale(ctx context.Context, sale *domain.Sale) error {
	if f.failSale {
		return errors.New("disk full")
	}
	return f.Store.InsertSale(ctx, sale)
}

func (f *faultyStore) DecrementStock(ctx context.Context, ownerID, productID string, qty int) (int, error) {
	if f.soldOut {
		return 0, store.ErrInsufficientStock
	}
	return f.Store.DecrementStock(ctx, ownerID, productID, qty)
}

func (f *faultyStore) IncrementStock(ctx context.Context, ownerID, productID string, qty int) error {
	if f.failIncrement {
		return errors.New("crash")
	}
	return f.Store.IncrementStock(ctx, ownerID, productID, qty)
}

func TestRecordSale_PartialFailures(t *testing.T) {
	tests := []struct {
		name             string
		faults           faultyStore
		wantErr          error
		wantQuantity     int
		wantTransactions int
	}{
		{
			name:             "transaction write fails",
			faults:           faultyStore{failTransaction: true, failIncrement: true},
			wantQuantity:     10,
			wantTransactions: 0,
		},
		{
			name:             "stock taken after pre-check",
			faults:           faultyStore{soldOut: true},
			wantErr:          store.ErrInsufficientStock,
			wantQuantity:     10,
			wantTransactions: 1,
		},
		{
			name:             "sale write fails",
			faults:           faultyStore{failSale: true},
			wantQuantity:     10,
			wantTransactions: 1,
		},
		{
			name:             "sale write and stock return fail",
			faults:           faultyStore{failSale: true, failIncrement: true},
			wantQuantity:     8,
			wantTransactions: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := memory.NewStore()
			faulty := tt.faults
			faulty.Store = st
			svc := NewService(&faulty, WithClock(func() time.Time { return testNow }))
			ctx := context.Background()
			widget := seedProduct(t, st, "Widget", 10, 5, testNow)

			_, err := svc.RecordSale(ctx, SaleRequest{OwnerID: owner, ProductID: widget.ID, Quantity: 2})
			if err == nil {
				t.Fatal("RecordSale() expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("RecordSale() error = %v, want %v", err, tt.wantErr)
			}

			got, _ := st.GetProduct(ctx, owner, widget.ID)
			if got.Quantity != tt.wantQuantity {
				t.Errorf("quantity = %d, want %d", got.Quantity, tt.wantQuantity)
			}
			txs, _ := st.ListTransactions(ctx, store.TransactionFilter{OwnerID: owner})
			if len(txs) != tt.wantTransactions {
				t.Errorf("transactions = %d, want %d", len(txs), tt.wantTransactions)
			}
			sales, _ := st.ListSales(ctx, store.SaleFilter{OwnerID: owner})
			if len(sales) != 0 {
				t.Errorf("sales = %d, want 0", len(sales))
			}

			// Units missing from stock are always explained by a transaction.
			if lost := 10 - got.Quantity; lost > 0 && len(txs) == 0 {
				t.Errorf("%d units left stock with no transaction", lost)
			}
		})
	}
}

func TestRecordSale_ConcurrentSalesDoNotOversell(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	widget := seedProduct(t, st, "Widget", 5, 10, testNow)

	const buyers = 50
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordSale(ctx, SaleRequest{OwnerID: owner, ProductID: widget.ID, Quantity: 1})
			if err != nil && !errors.Is(err, store.ErrInsufficientStock) {
				t.Errorf("RecordSale() unexpected error = %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 5 {
		t.Errorf("successful sales = %d, want 5", successes)
	}
	got, _ := st.GetProduct(ctx, owner, widget.ID)
	if got.Quantity != 0 {
		t.Errorf("quantity = %d, want 0", got.Quantity)
	}
	sales, _ := st.ListSales(ctx, store.SaleFilter{OwnerID: owner})
	if len(sales) != 5 {
		t.Errorf("sales = %d, want 5", len(sales))
	}
}

func TestRecordExpense(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tx, err := svc.RecordExpense(ctx, ExpenseRequest{OwnerID: owner, Amount: 50})
	if err != nil {
		t.Fatalf("RecordExpense() error = %v", err)
	}
	if tx.Type != domain.TransactionTypeExpense || tx.Category != DefaultExpenseCat || !tx.Date.Equal(testNow) {
		t.Errorf("transaction = %+v", tx)
	}

	if _, err := svc.RecordExpense(ctx, ExpenseRequest{OwnerID: owner, Amount: 0}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("RecordExpense(0) error = %v, want ErrInvalidAmount", err)
	}
}

func TestCategories(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	for i, c := range []string{"Tools", "", "Food", "Tools"} {
		p := storetest.NewProduct(owner, "p", 1, 1, testNow.Add(time.Duration(i)*time.Minute))
		p.Category = c
		if err := st.InsertProduct(ctx, p); err != nil {
			t.Fatal(err)
		}
	}

	got, err := svc.Categories(ctx, owner)
	if err != nil {
		t.Fatalf("Categories() error = %v", err)
	}
	if len(got) != 2 || got[0] != "Food" || got[1] != "Tools" {
		t.Errorf("Categories() = %v, want [Food Tools]", got)
	}
}

func TestBulkUpdateStock(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	a := seedProduct(t, st, "A", 1, 1, testNow)
	b := seedProduct(t, st, "B", 1, 1, testNow)

	results, updated, err := svc.BulkUpdateStock(ctx, owner, []StockUpdate{
		{ProductID: a.ID, Quantity: intPtr(7)},
		{ProductID: b.ID},
		{Quantity: intPtr(3)},
		{ProductID: "missing", Quantity: intPtr(2)},
		{ProductID: b.ID, Quantity: intPtr(0)},
	})
	if err != nil {
		t.Fatalf("BulkUpdateStock() error = %v", err)
	}
	if updated != 2 {
		t.Errorf("updated = %d, want 2", updated)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	if results[1].Success {
		t.Error("unknown product reported success")
	}

	got, _ := st.GetProduct(ctx, owner, b.ID)
	if got.Quantity != 0 {
		t.Errorf("B quantity = %d, want 0", got.Quantity)
	}
}
