package bigquery

import (
	"encoding/json"
	"math/big"
	"strconv"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/voice-inventory/internal/domain"
)

type ProductRow struct {
	ID            string   `bigquery:"id"`       // REQUIRED
	OwnerID       string   `bigquery:"owner_id"` // REQUIRED
	Name          string   `bigquery:"name"`     // REQUIRED
	Description   string   `bigquery:"description"`
	SKU           string   `bigquery:"sku"`
	Category      string   `bigquery:"category"`
	UnitPrice     *big.Rat `bigquery:"unit_price"` // REQUIRED NUMERIC
	Quantity      int64    `bigquery:"quantity"`
	MinStockLevel int64    `bigquery:"min_stock_level"`
	Supplier      string   `bigquery:"supplier"`

	CreatedAt time.Time `bigquery:"created_at"`
	UpdatedAt time.Time `bigquery:"updated_at"`
}

type TransactionRow struct {
	ID              string   `bigquery:"id"`
	OwnerID         string   `bigquery:"owner_id"`
	TransactionType string   `bigquery:"transaction_type"`
	Amount          *big.Rat `bigquery:"amount"` // REQUIRED NUMERIC
	Description     string   `bigquery:"description"`
	Category        string   `bigquery:"category"`

	Date time.Time `bigquery:"date"`
	// TransactionDate is the partitioning column, derived from Date in UTC.
	TransactionDate civil.Date `bigquery:"transaction_date"`
	CreatedAt       time.Time  `bigquery:"created_at"`
}

type SaleRow struct {
	ID            string              `bigquery:"id"`
	OwnerID       string              `bigquery:"owner_id"`
	TransactionID string              `bigquery:"transaction_id"`
	ProductID     bigquery.NullString `bigquery:"product_id"` // NULLABLE

	// Filled by the products join on read; not stored.
	ProductName bigquery.NullString `bigquery:"product_name"`
	Category    bigquery.NullString `bigquery:"category"`

	Quantity     int64     `bigquery:"quantity"`
	UnitPrice    *big.Rat  `bigquery:"unit_price"`
	TotalAmount  *big.Rat  `bigquery:"total_amount"`
	CustomerName string    `bigquery:"customer_name"`
	CreatedAt    time.Time `bigquery:"created_at"`
}

type VoiceCommandRow struct {
	ID           string `bigquery:"id"`
	OwnerID      string `bigquery:"owner_id"`
	OriginalText string `bigquery:"original_text"`
	// ProcessedCommand is read back through TO_JSON_STRING.
	ProcessedCommand string    `bigquery:"processed_command"`
	ActionTaken      string    `bigquery:"action_taken"`
	ConfidenceScore  float64   `bigquery:"confidence_score"`
	CreatedAt        time.Time `bigquery:"created_at"`
}

// ratFromFloat converts through the shortest decimal form so 19.99 stays 19.99
// instead of its binary expansion.
func ratFromFloat(f float64) *big.Rat {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'f', -1, 64))
	if !ok {
		return new(big.Rat)
	}
	return r
}

func floatFromRat(r *big.Rat) float64 {
	if r == nil {
		return 0
	}
	f, _ := r.Float64()
	return f
}

func nullString(s string) bigquery.NullString {
	return bigquery.NullString{StringVal: s, Valid: s != ""}
}

func newProductRow(p *domain.Product) *ProductRow {
	return &ProductRow{
		ID:            p.ID,
		OwnerID:       p.OwnerID,
		Name:          p.Name,
		Description:   p.Description,
		SKU:           p.SKU,
		Category:      p.Category,
		UnitPrice:     ratFromFloat(p.UnitPrice),
		Quantity:      int64(p.Quantity),
		MinStockLevel: int64(p.MinStockLevel),
		Supplier:      p.Supplier,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func (r *ProductRow) toDomain() *domain.Product {
	return &domain.Product{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		Name:          r.Name,
		Description:   r.Description,
		SKU:           r.SKU,
		Category:      r.Category,
		UnitPrice:     floatFromRat(r.UnitPrice),
		Quantity:      int(r.Quantity),
		MinStockLevel: int(r.MinStockLevel),
		Supplier:      r.Supplier,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func newTransactionRow(tx *domain.Transaction) *TransactionRow {
	return &TransactionRow{
		ID:              tx.ID,
		OwnerID:         tx.OwnerID,
		TransactionType: string(tx.Type),
		Amount:          ratFromFloat(tx.Amount),
		Description:     tx.Description,
		Category:        tx.Category,
		Date:            tx.Date,
		TransactionDate: civil.DateOf(tx.Date.UTC()),
		CreatedAt:       tx.CreatedAt,
	}
}

func (r *TransactionRow) toDomain() *domain.Transaction {
	return &domain.Transaction{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Type:        domain.TransactionType(r.TransactionType),
		Amount:      floatFromRat(r.Amount),
		Description: r.Description,
		Category:    r.Category,
		Date:        r.Date,
		CreatedAt:   r.CreatedAt,
	}
}

func newSaleRow(s *domain.Sale) *SaleRow {
	return &SaleRow{
		ID:            s.ID,
		OwnerID:       s.OwnerID,
		TransactionID: s.TransactionID,
		ProductID:     nullString(s.ProductID),
		Quantity:      int64(s.Quantity),
		UnitPrice:     ratFromFloat(s.UnitPrice),
		TotalAmount:   ratFromFloat(s.TotalAmount),
		CustomerName:  s.CustomerName,
		CreatedAt:     s.CreatedAt,
	}
}

func (r *SaleRow) toDomain() *domain.Sale {
	return &domain.Sale{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		TransactionID: r.TransactionID,
		ProductID:     r.ProductID.StringVal,
		ProductName:   r.ProductName.StringVal,
		Category:      r.Category.StringVal,
		Quantity:      int(r.Quantity),
		UnitPrice:     floatFromRat(r.UnitPrice),
		TotalAmount:   floatFromRat(r.TotalAmount),
		CustomerName:  r.CustomerName,
		CreatedAt:     r.CreatedAt,
	}
}

func newVoiceCommandRow(e *domain.CommandLogEntry) *VoiceCommandRow {
	cmd := string(e.ProcessedCommand)
	if cmd == "" {
		cmd = "{}"
	}
	return &VoiceCommandRow{
		ID:               e.ID,
		OwnerID:          e.OwnerID,
		OriginalText:     e.OriginalText,
		ProcessedCommand: cmd,
		ActionTaken:      e.ActionTaken,
		ConfidenceScore:  e.ConfidenceScore,
		CreatedAt:        e.CreatedAt,
	}
}

func (r *VoiceCommandRow) toDomain() *domain.CommandLogEntry {
	return &domain.CommandLogEntry{
		ID:               r.ID,
		OwnerID:          r.OwnerID,
		OriginalText:     r.OriginalText,
		ProcessedCommand: json.RawMessage(r.ProcessedCommand),
		ActionTaken:      r.ActionTaken,
		ConfidenceScore:  r.ConfidenceScore,
		CreatedAt:        r.CreatedAt,
	}
}
