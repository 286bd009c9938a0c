package intent

import (
	"strings"
)

// Intent is the recognized category of a voice command.
type Intent string

const (
	AddProduct    Intent = "add_product"
	RecordSale    Intent = "record_sale"
	RecordExpense Intent = "record_expense"
	CheckStock    Intent = "check_stock"
	UpdateStock   Intent = "update_stock"
	Unknown       Intent = "unknown"
)

// knownIntents is keyed by the intent tag with separators removed, so that
// "record_sale", "record-sale", "RecordSale" and "record sale" all resolve.
var knownIntents = map[string]Intent{
	"addproduct":    AddProduct,
	"recordsale":    RecordSale,
	"recordexpense": RecordExpense,
	"checkstock":    CheckStock,
	"updatestock":   UpdateStock,
}

// Known reports whether i is one of the five actionable intents.
func (i Intent) Known() bool {
	switch i {
	case AddProduct, RecordSale, RecordExpense, CheckStock, UpdateStock:
		return true
	}
	return false
}

// NormalizeIntent maps a free-form tag onto the closed intent set.
// Anything unrecognised becomes Unknown.
func NormalizeIntent(tag string) Intent {
	compact := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(tag)))
	if in, ok := knownIntents[compact]; ok {
		return in
	}
	return Unknown
}

// Command is the structured interpretation of one transcript.
// It is built once per parse and never mutated afterwards.
type Command struct {
	Intent     Intent   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Entities   Entities `json:"entities"`
	Action     string   `json:"action"`
}

// FailedCommand is the Unknown command returned whenever interpretation fails.
func FailedCommand(reason string) Command {
	return Command{
		Intent:     Unknown,
		Confidence: 0,
		Entities:   Entities{},
		Action:     "Failed to process command: " + reason,
	}
}
