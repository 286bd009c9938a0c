package intent

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Entity defaults applied by the action handlers.
const (
	DefaultProductName     = "Unknown Product"
	DefaultProductCategory = "General"
	DefaultCustomerName    = "Walk-in Customer"
	DefaultExpenseNote     = "Voice recorded expense"
	DefaultExpenseCategory = "General Expense"
)

// Entities is the typed entity bag extracted from a transcript.
// A nil field means the model did not supply a usable value.
type Entities struct {
	ProductName  *string  `json:"product_name,omitempty"`
	Quantity     *int     `json:"quantity,omitempty"`
	Price        *float64 `json:"price,omitempty"`
	Category     *string  `json:"category,omitempty"`
	CustomerName *string  `json:"customer_name,omitempty"`
	Description  *string  `json:"description,omitempty"`
	Amount       *float64 `json:"amount,omitempty"`
}

// ProductNameOr returns the product name, or def when absent.
func (e Entities) ProductNameOr(def string) string {
	if e.ProductName != nil {
		return *e.ProductName
	}
	return def
}

// QuantityOr returns the quantity, or def when absent.
func (e Entities) QuantityOr(def int) int {
	if e.Quantity != nil {
		return *e.Quantity
	}
	return def
}

// PriceOr returns the unit price, or def when absent.
func (e Entities) PriceOr(def float64) float64 {
	if e.Price != nil {
		return *e.Price
	}
	return def
}

// AmountOr returns the expense amount, or def when absent.
func (e Entities) AmountOr(def float64) float64 {
	if e.Amount != nil {
		return *e.Amount
	}
	return def
}

// CategoryOr returns the category, or def when absent.
func (e Entities) CategoryOr(def string) string {
	if e.Category != nil {
		return *e.Category
	}
	return def
}

// CustomerNameOr returns the customer name, or def when absent.
func (e Entities) CustomerNameOr(def string) string {
	if e.CustomerName != nil {
		return *e.CustomerName
	}
	return def
}

// DescriptionOr returns the description, or def when absent.
func (e Entities) DescriptionOr(def string) string {
	if e.Description != nil {
		return *e.Description
	}
	return def
}

// UnmarshalJSON accepts snake_case and camelCase keys, numbers encoded as
// strings, and nulls. Malformed values are dropped rather than rejected.
func (e *Entities) UnmarshalJSON(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*e = entitiesFromMap(m)
	return nil
}

func entitiesFromMap(m map[string]interface{}) Entities {
	return Entities{
		ProductName:  optionalString(m, "product_name", "productName", "product", "name"),
		Quantity:     optionalInt(m, "quantity", "qty"),
		Price:        optionalFloat(m, "price", "unit_price", "unitPrice"),
		Category:     optionalString(m, "category"),
		CustomerName: optionalString(m, "customer_name", "customerName", "customer"),
		Description:  optionalString(m, "description"),
		Amount:       optionalFloat(m, "amount"),
	}
}

// lookup returns the first non-null value among the given keys.
func lookup(m map[string]interface{}, keys ...string) (interface{}, bool) {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func optionalString(m map[string]interface{}, keys ...string) *string {
	v, ok := lookup(m, keys...)
	if !ok {
		return nil
	}
	var s string
	switch val := v.(type) {
	case string:
		s = strings.TrimSpace(val)
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}

func optionalFloat(m map[string]interface{}, keys ...string) *float64 {
	v, ok := lookup(m, keys...)
	if !ok {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}

// optionalInt only accepts integral values; 2.5 units is treated as absent.
func optionalInt(m map[string]interface{}, keys ...string) *int {
	v, ok := lookup(m, keys...)
	if !ok {
		return nil
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	n := int(f)
	return &n
}

func toFloat(v interface{}) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case int:
		f = float64(val)
	case string:
		s := strings.TrimSpace(val)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
