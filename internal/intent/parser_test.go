package intent

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// mockModel is a mock LanguageModel for testing.
type mockModel struct {
	GenerateFunc func(ctx context.Context, prompt string) (string, error)
	lastPrompt   string
}

func (m *mockModel) Generate(ctx context.Context, prompt string) (string, error) {
	m.lastPrompt = prompt
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "", nil
}

func respond(text string) *mockModel {
	return &mockModel{
		GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
			return text, nil
		},
	}
}

func TestParse_WellFormedCommands(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantIntent Intent
		wantConf   float64
	}{
		{
			name:       "plain record sale",
			response:   `{"intent":"record_sale","confidence":0.92,"entities":{"product_name":"iPhone","quantity":2},"action":"Record sale"}`,
			wantIntent: RecordSale,
			wantConf:   0.92,
		},
		{
			name:       "fenced json",
			response:   "```json\n{\"intent\":\"check_stock\",\"confidence\":0.8,\"entities\":{\"product_name\":\"MacBook Pro\"}}\n```",
			wantIntent: CheckStock,
			wantConf:   0.8,
		},
		{
			name:       "chatter around object",
			response:   "Sure! Here you go:\n{\"intent\":\"add_product\",\"confidence\":1}\nHope that helps.",
			wantIntent: AddProduct,
			wantConf:   1,
		},
		{
			name:       "confidence above range is clamped",
			response:   `{"intent":"record_expense","confidence":7,"entities":{"amount":200}}`,
			wantIntent: RecordExpense,
			wantConf:   1,
		},
		{
			name:       "negative confidence is clamped",
			response:   `{"intent":"update_stock","confidence":-0.5}`,
			wantIntent: UpdateStock,
			wantConf:   0,
		},
		{
			name:       "confidence as string",
			response:   `{"intent":"update_stock","confidence":"0.75"}`,
			wantIntent: UpdateStock,
			wantConf:   0.75,
		},
		{
			name:       "camel case intent tag",
			response:   `{"intent":"RecordSale","confidence":0.5}`,
			wantIntent: RecordSale,
			wantConf:   0.5,
		},
		{
			name:       "unrecognised intent becomes unknown",
			response:   `{"intent":"delete_everything","confidence":0.9}`,
			wantIntent: Unknown,
			wantConf:   0.9,
		},
		{
			name:       "missing intent becomes unknown",
			response:   `{"confidence":0.3}`,
			wantIntent: Unknown,
			wantConf:   0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(respond(tt.response))
			cmd := p.Parse(context.Background(), "some transcript")

			if cmd.Intent != tt.wantIntent {
				t.Errorf("Intent = %q, want %q", cmd.Intent, tt.wantIntent)
			}
			if cmd.Confidence != tt.wantConf {
				t.Errorf("Confidence = %v, want %v", cmd.Confidence, tt.wantConf)
			}
			if cmd.Confidence < 0 || cmd.Confidence > 1 {
				t.Errorf("Confidence %v outside [0,1]", cmd.Confidence)
			}
		})
	}
}

func TestParse_FailuresDegradeToUnknown(t *testing.T) {
	tests := []struct {
		name       string
		model      LanguageModel
		wantReason string
	}{
		{
			name: "model error",
			model: &mockModel{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
				return "", errors.New("quota exceeded")
			}},
			wantReason: "quota exceeded",
		},
		{
			name:       "empty body",
			model:      respond("   "),
			wantReason: "empty response",
		},
		{
			name:       "not json",
			model:      respond("I could not understand that, sorry."),
			wantReason: "invalid JSON",
		},
		{
			name:       "truncated json",
			model:      respond(`{"intent":"record_sale","confidence":0.9`),
			wantReason: "invalid JSON",
		},
		{
			name:       "json array",
			model:      respond(`["record_sale"]`),
			wantReason: "invalid JSON",
		},
		{
			name:       "json null",
			model:      respond(`null`),
			wantReason: "null",
		},
		{
			name: "model panics",
			model: &mockModel{GenerateFunc: func(ctx context.Context, prompt string) (string, error) {
				panic("boom")
			}},
			wantReason: "boom",
		},
		{
			name:       "no model",
			model:      nil,
			wantReason: "no language model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser(tt.model)
			cmd := p.Parse(context.Background(), "sell two widgets")

			if cmd.Intent != Unknown {
				t.Errorf("Intent = %q, want %q", cmd.Intent, Unknown)
			}
			if cmd.Confidence != 0 {
				t.Errorf("Confidence = %v, want 0", cmd.Confidence)
			}
			if cmd.Entities != (Entities{}) {
				t.Errorf("Entities = %+v, want empty", cmd.Entities)
			}
			if !strings.HasPrefix(cmd.Action, "Failed to process command: ") {
				t.Errorf("Action = %q, want failure prefix", cmd.Action)
			}
			if !strings.Contains(cmd.Action, tt.wantReason) {
				t.Errorf("Action = %q, want it to contain %q", cmd.Action, tt.wantReason)
			}
		})
	}
}

func TestParse_PromptEmbedsTranscript(t *testing.T) {
	m := respond(`{"intent":"check_stock","confidence":0.9}`)
	p := NewParser(m)

	p.Parse(context.Background(), "check stock for blue mugs")

	if !strings.Contains(m.lastPrompt, "check stock for blue mugs") {
		t.Errorf("prompt does not contain transcript: %s", m.lastPrompt)
	}
	for _, tag := range []string{"add_product", "record_sale", "record_expense", "check_stock", "update_stock"} {
		if !strings.Contains(m.lastPrompt, tag) {
			t.Errorf("prompt does not list intent %q", tag)
		}
	}
}

func TestParse_Entities(t *testing.T) {
	resp := `{
		"intent": "record_sale",
		"confidence": 0.9,
		"entities": {
			"productName": "iPhone",
			"quantity": "2",
			"price": "$800",
			"customer_name": "  John Smith ",
			"category": null,
			"description": ""
		}
	}`
	cmd := NewParser(respond(resp)).Parse(context.Background(), "sell 2 iphones to john")

	e := cmd.Entities
	if got := e.ProductNameOr(""); got != "iPhone" {
		t.Errorf("ProductName = %q, want iPhone", got)
	}
	if got := e.QuantityOr(0); got != 2 {
		t.Errorf("Quantity = %d, want 2", got)
	}
	if got := e.PriceOr(0); got != 800 {
		t.Errorf("Price = %v, want 800", got)
	}
	if got := e.CustomerNameOr(DefaultCustomerName); got != "John Smith" {
		t.Errorf("CustomerName = %q, want John Smith", got)
	}
	if e.Category != nil {
		t.Errorf("Category = %q, want nil for null", *e.Category)
	}
	if e.Description != nil {
		t.Errorf("Description = %q, want nil for empty string", *e.Description)
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"single line fence", "```json{\"a\":1}```", `{"a":1}`},
		{"leading text", "Result: {\"a\":1}", `{"a":1}`},
		{"no object", "nothing here", "nothing here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.in); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIntent(t *testing.T) {
	tests := []struct {
		in   string
		want Intent
	}{
		{"add_product", AddProduct},
		{"ADD_PRODUCT", AddProduct},
		{"record-sale", RecordSale},
		{"record expense", RecordExpense},
		{"CheckStock", CheckStock},
		{" update_stock ", UpdateStock},
		{"unknown", Unknown},
		{"", Unknown},
		{"bogus", Unknown},
	}

	for _, tt := range tests {
		if got := NormalizeIntent(tt.in); got != tt.want {
			t.Errorf("NormalizeIntent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
