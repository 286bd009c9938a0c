package bigquery

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/voice-inventory/internal/domain"
)

func TestRatFromFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{19.99, "1999/100"},
		{800, "800/1"},
		{0, "0/1"},
		{0.1, "1/10"},
	}
	for _, tt := range tests {
		if got := ratFromFloat(tt.in).String(); got != tt.want {
			t.Errorf("ratFromFloat(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestFloatFromRat_Nil(t *testing.T) {
	if got := floatFromRat(nil); got != 0 {
		t.Errorf("floatFromRat(nil) = %v, want 0", got)
	}
	if got := floatFromRat(big.NewRat(5, 2)); got != 2.5 {
		t.Errorf("floatFromRat(5/2) = %v, want 2.5", got)
	}
}

func TestTransactionRow_PartitionDateIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	tx := &domain.Transaction{
		ID:     "tx-1",
		Type:   domain.TransactionTypeSale,
		Amount: 1600,
		Date:   time.Date(2025, 3, 1, 22, 0, 0, 0, loc),
	}

	row := newTransactionRow(tx)
	want := civil.Date{Year: 2025, Month: time.March, Day: 2}
	if row.TransactionDate != want {
		t.Errorf("TransactionDate = %v, want %v", row.TransactionDate, want)
	}

	back := row.toDomain()
	if back.Amount != 1600 || back.Type != domain.TransactionTypeSale {
		t.Errorf("toDomain() = %+v", back)
	}
}

func TestSaleRow_NullableProduct(t *testing.T) {
	row := newSaleRow(&domain.Sale{ID: "s-1", TransactionID: "tx-1", Quantity: 1, UnitPrice: 2, TotalAmount: 2})
	if row.ProductID.Valid {
		t.Error("ProductID should be NULL for an empty product id")
	}

	row = newSaleRow(&domain.Sale{ID: "s-2", ProductID: "p-1"})
	if !row.ProductID.Valid || row.ProductID.StringVal != "p-1" {
		t.Errorf("ProductID = %+v", row.ProductID)
	}
}

func TestVoiceCommandRow_EmptyCommandBecomesObject(t *testing.T) {
	row := newVoiceCommandRow(&domain.CommandLogEntry{ID: "c-1"})
	if row.ProcessedCommand != "{}" {
		t.Errorf("ProcessedCommand = %q, want {}", row.ProcessedCommand)
	}

	e := (&VoiceCommandRow{ProcessedCommand: `{"intent":"check_stock"}`}).toDomain()
	var m map[string]string
	if err := json.Unmarshal(e.ProcessedCommand, &m); err != nil || m["intent"] != "check_stock" {
		t.Errorf("ProcessedCommand = %s (err %v)", e.ProcessedCommand, err)
	}
}

func TestStore_TableIsFullyQualified(t *testing.T) {
	s := &Store{projectID: "proj", datasetID: "inventory"}
	if got := s.table(productsTable); got != "`proj.inventory.products`" {
		t.Errorf("table() = %s", got)
	}
}
