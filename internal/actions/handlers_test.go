package actions

import (
	"context"
	"testing"

	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/intent"
	"github.com/dvloznov/voice-inventory/internal/store"
)

func TestAddProductHandler(t *testing.T) {
	tests := []struct {
		name     string
		entities intent.Entities
		want     domain.Product
		wantMsg  string
	}{
		{
			name:     "defaults",
			entities: intent.Entities{},
			want:     domain.Product{Name: intent.DefaultProductName, Category: intent.DefaultProductCategory},
			wantMsg:  "Added Unknown Product to inventory",
		},
		{
			name: "all fields",
			entities: intent.Entities{
				ProductName: strPtr("Desk Lamp"),
				Quantity:    intPtr(12),
				Price:       floatPtr(24.99),
				Category:    strPtr("Lighting"),
				Description: strPtr("LED"),
			},
			want:    domain.Product{Name: "Desk Lamp", Category: "Lighting", Quantity: 12, UnitPrice: 24.99, Description: "LED"},
			wantMsg: "Added Desk Lamp to inventory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, st := newTestDispatcher(t)
			ctx := context.Background()

			res := d.Dispatch(ctx, owner, intent.Command{Intent: intent.AddProduct, Entities: tt.entities})
			if !res.Success || res.Message != tt.wantMsg {
				t.Fatalf("Dispatch() = %+v", res)
			}

			products, _ := st.ListProducts(ctx, store.ProductFilter{OwnerID: owner})
			if len(products) != 1 {
				t.Fatalf("len(products) = %d, want 1", len(products))
			}
			got := products[0]
			if got.Name != tt.want.Name || got.Category != tt.want.Category ||
				got.Quantity != tt.want.Quantity || got.UnitPrice != tt.want.UnitPrice ||
				got.Description != tt.want.Description {
				t.Errorf("product = %+v, want %+v", got, tt.want)
			}
			if got.OwnerID != owner {
				t.Errorf("OwnerID = %q, want %q", got.OwnerID, owner)
			}
		})
	}
}

func TestRecordExpenseHandler(t *testing.T) {
	d, st := newTestDispatcher(t)
	ctx := context.Background()

	res := d.Dispatch(ctx, owner, intent.Command{
		Intent:   intent.RecordExpense,
		Entities: intent.Entities{Amount: floatPtr(42.5)},
	})
	if !res.Success || res.Message != "Recorded expense of $42.5" {
		t.Fatalf("Dispatch() = %+v", res)
	}

	txs, _ := st.ListTransactions(ctx, store.TransactionFilter{OwnerID: owner, Type: domain.TransactionTypeExpense})
	if len(txs) != 1 {
		t.Fatalf("len(transactions) = %d, want 1", len(txs))
	}
	if txs[0].Description != intent.DefaultExpenseNote || txs[0].Category != intent.DefaultExpenseCategory {
		t.Errorf("transaction = %+v", txs[0])
	}
}

func TestCheckStockHandler_DoesNotMutate(t *testing.T) {
	d, st := newTestDispatcher(t)
	ctx := context.Background()
	p := seed(t, st, owner, "Widget", 7, 3)

	cmd := intent.Command{Intent: intent.CheckStock, Entities: intent.Entities{ProductName: strPtr("widget")}}
	for i := 0; i < 3; i++ {
		res := d.Dispatch(ctx, owner, cmd)
		if !res.Success || res.Message != "Widget: 7 units in stock" {
			t.Fatalf("Dispatch() = %+v", res)
		}
	}

	got, _ := st.GetProduct(ctx, owner, p.ID)
	if got.Quantity != 7 || !got.UpdatedAt.Equal(p.UpdatedAt) {
		t.Errorf("product changed: %+v", got)
	}
	txs, _ := st.ListTransactions(ctx, store.TransactionFilter{OwnerID: owner})
	if len(txs) != 0 {
		t.Errorf("len(transactions) = %d, want 0", len(txs))
	}
}

func TestUpdateStockHandler(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
	}{
		{name: "to zero", quantity: 0},
		{name: "upwards", quantity: 50},
		{name: "negative is not validated", quantity: -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, st := newTestDispatcher(t)
			ctx := context.Background()
			p := seed(t, st, owner, "Widget", 9, 1)

			res := d.Dispatch(ctx, owner, intent.Command{
				Intent:   intent.UpdateStock,
				Entities: intent.Entities{ProductName: strPtr("Widget"), Quantity: intPtr(tt.quantity)},
			})
			if !res.Success {
				t.Fatalf("Dispatch() = %+v", res)
			}

			got, _ := st.GetProduct(ctx, owner, p.ID)
			if got.Quantity != tt.quantity {
				t.Errorf("quantity = %d, want %d", got.Quantity, tt.quantity)
			}
		})
	}
}
