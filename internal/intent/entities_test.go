package intent

import (
	"encoding/json"
	"testing"
)

func TestEntities_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name         string
		in           string
		wantQuantity *int
		wantAmount   *float64
	}{
		{
			name:         "integral float quantity",
			in:           `{"quantity": 3.0}`,
			wantQuantity: intPtr(3),
		},
		{
			name:         "fractional quantity is dropped",
			in:           `{"quantity": 2.5}`,
			wantQuantity: nil,
		},
		{
			name:         "zero quantity is kept",
			in:           `{"quantity": 0}`,
			wantQuantity: intPtr(0),
		},
		{
			name:         "non numeric quantity is dropped",
			in:           `{"quantity": "a few"}`,
			wantQuantity: nil,
		},
		{
			name:       "amount with thousands separator",
			in:         `{"amount": "1,200.50"}`,
			wantAmount: floatPtr(1200.50),
		},
		{
			name:       "amount as bool is dropped",
			in:         `{"amount": true}`,
			wantAmount: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e Entities
			if err := json.Unmarshal([]byte(tt.in), &e); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if !equalIntPtr(e.Quantity, tt.wantQuantity) {
				t.Errorf("Quantity = %v, want %v", deref(e.Quantity), deref(tt.wantQuantity))
			}
			if !equalFloatPtr(e.Amount, tt.wantAmount) {
				t.Errorf("Amount = %v, want %v", e.Amount, tt.wantAmount)
			}
		})
	}
}

func TestEntities_Defaults(t *testing.T) {
	var e Entities

	if got := e.ProductNameOr(DefaultProductName); got != "Unknown Product" {
		t.Errorf("ProductNameOr = %q", got)
	}
	if got := e.CategoryOr(DefaultProductCategory); got != "General" {
		t.Errorf("CategoryOr = %q", got)
	}
	if got := e.CustomerNameOr(DefaultCustomerName); got != "Walk-in Customer" {
		t.Errorf("CustomerNameOr = %q", got)
	}
	if got := e.DescriptionOr(DefaultExpenseNote); got != "Voice recorded expense" {
		t.Errorf("DescriptionOr = %q", got)
	}
	if got := e.CategoryOr(DefaultExpenseCategory); got != "General Expense" {
		t.Errorf("CategoryOr = %q", got)
	}
	if got := e.QuantityOr(1); got != 1 {
		t.Errorf("QuantityOr = %d", got)
	}
	if got := e.PriceOr(12.5); got != 12.5 {
		t.Errorf("PriceOr = %v", got)
	}
}

func TestEntities_MarshalRoundTripKeepsSnakeCase(t *testing.T) {
	e := Entities{ProductName: strPtr("Widget"), Quantity: intPtr(0)}

	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(b) != `{"product_name":"Widget","quantity":0}` {
		t.Errorf("Marshal() = %s", b)
	}
}

func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }
func strPtr(s string) *string     { return &s }

func deref(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalFloatPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
