package notionsync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/jobs"
	"github.com/dvloznov/voice-inventory/internal/store"
	"github.com/dvloznov/voice-inventory/internal/store/memory"
	"github.com/jomei/notionapi"
)

// MockNotionService keeps pages in memory and paginates queries two at a time.
type MockNotionService struct {
	pages    []notionapi.Page
	archived []string
	updated  []string
	nextID   int

	CreatePageFunc func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error)
}

func (m *MockNotionService) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if m.CreatePageFunc != nil {
		return m.CreatePageFunc(ctx, databaseID, properties)
	}
	m.nextID++
	page := notionapi.Page{ID: notionapi.ObjectID(fmt.Sprintf("page-%d", m.nextID)), Properties: asRead(properties)}
	m.pages = append(m.pages, page)
	return &page, nil
}

func (m *MockNotionService) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	m.updated = append(m.updated, pageID)
	for i := range m.pages {
		if string(m.pages[i].ID) == pageID {
			m.pages[i].Properties = asRead(properties)
			return &m.pages[i], nil
		}
	}
	return nil, errors.New("page not found")
}

func (m *MockNotionService) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	start := 0
	if req.StartCursor != "" {
		fmt.Sscanf(string(req.StartCursor), "%d", &start)
	}
	end := start + 2
	if end > len(m.pages) {
		end = len(m.pages)
	}
	resp := &notionapi.DatabaseQueryResponse{Results: append([]notionapi.Page(nil), m.pages[start:end]...)}
	if end < len(m.pages) {
		resp.HasMore = true
		resp.NextCursor = notionapi.Cursor(fmt.Sprint(end))
	}
	return resp, nil
}

func (m *MockNotionService) DeletePage(ctx context.Context, pageID string) error {
	m.archived = append(m.archived, pageID)
	kept := m.pages[:0]
	for _, p := range m.pages {
		if string(p.ID) != pageID {
			kept = append(kept, p)
		}
	}
	m.pages = kept
	return nil
}

// asRead converts properties as written into the pointer form the API
// returns when pages are read back, filling PlainText.
func asRead(props notionapi.Properties) notionapi.Properties {
	out := notionapi.Properties{}
	for name, prop := range props {
		switch p := prop.(type) {
		case notionapi.TitleProperty:
			out[name] = &notionapi.TitleProperty{Title: withPlain(p.Title)}
		case notionapi.RichTextProperty:
			out[name] = &notionapi.RichTextProperty{RichText: withPlain(p.RichText)}
		case notionapi.DateProperty:
			out[name] = &p
		case notionapi.NumberProperty:
			out[name] = &p
		case notionapi.SelectProperty:
			out[name] = &p
		}
	}
	return out
}

func withPlain(rt []notionapi.RichText) []notionapi.RichText {
	out := make([]notionapi.RichText, len(rt))
	for i, r := range rt {
		out[i] = r
		if r.Text != nil {
			out[i].PlainText = r.Text.Content
		}
	}
	return out
}

var day = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func seedLedger(t *testing.T) *memory.Store {
	t.Helper()
	st := memory.NewStore()
	for i, amount := range []float64{10, 20, 30} {
		err := st.InsertTransaction(context.Background(), &domain.Transaction{
			ID:          fmt.Sprintf("tx-%d", i+1),
			OwnerID:     "owner-1",
			Type:        domain.TransactionTypeSale,
			Amount:      amount,
			Description: fmt.Sprintf("Sale %d", i+1),
			Category:    "Sales",
			Date:        day.AddDate(0, 0, i),
			CreatedAt:   day.AddDate(0, 0, i),
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	return st
}

func pageFor(id string, tx *domain.Transaction) notionapi.Page {
	return notionapi.Page{ID: notionapi.ObjectID(id), Properties: asRead(TransactionToNotionProperties(tx))}
}

func TestSyncLedger(t *testing.T) {
	st := seedLedger(t)
	ctx := context.Background()

	tx1, _ := st.ListTransactions(ctx, store.TransactionFilter{OwnerID: "owner-1"})
	var first, second *domain.Transaction
	for _, tx := range tx1 {
		switch tx.ID {
		case "tx-1":
			first = tx
		case "tx-2":
			second = tx
		}
	}

	drifted := *second
	drifted.Amount = 999
	stale := &domain.Transaction{ID: "tx-deleted", OwnerID: "owner-1", Type: domain.TransactionTypeExpense, Date: day}
	foreign := &domain.Transaction{ID: "tx-other", OwnerID: "owner-2", Type: domain.TransactionTypeSale, Date: day}
	outside := &domain.Transaction{ID: "tx-old", OwnerID: "owner-1", Type: domain.TransactionTypeSale, Date: day.AddDate(-1, 0, 0)}

	notion := &MockNotionService{pages: []notionapi.Page{
		pageFor("p-first", first),
		pageFor("p-drifted", &drifted),
		pageFor("p-stale", stale),
		pageFor("p-foreign", foreign),
		pageFor("p-outside", outside),
	}}

	stats, err := SyncLedger(ctx, st, notion, SyncRequest{
		OwnerID:    "owner-1",
		DatabaseID: "db",
		StartDate:  day.AddDate(0, 0, -1),
		EndDate:    day.AddDate(0, 0, 7),
	})
	if err != nil {
		t.Fatalf("SyncLedger() error = %v", err)
	}

	want := jobs.SyncStats{Created: 1, Updated: 1, Archived: 1, Skipped: 1}
	if *stats != want {
		t.Errorf("stats = %+v, want %+v", *stats, want)
	}
	if len(notion.archived) != 1 || notion.archived[0] != "p-stale" {
		t.Errorf("archived = %v, want [p-stale]", notion.archived)
	}
	if len(notion.updated) != 1 || notion.updated[0] != "p-drifted" {
		t.Errorf("updated = %v, want [p-drifted]", notion.updated)
	}

	// A second run has nothing to do.
	again, err := SyncLedger(ctx, st, notion, SyncRequest{
		OwnerID:    "owner-1",
		DatabaseID: "db",
		StartDate:  day.AddDate(0, 0, -1),
		EndDate:    day.AddDate(0, 0, 7),
	})
	if err != nil {
		t.Fatalf("SyncLedger() second run error = %v", err)
	}
	if *again != (jobs.SyncStats{Skipped: 3}) {
		t.Errorf("second run stats = %+v, want 3 skipped", *again)
	}
}

func TestSyncLedger_DryRunWritesNothing(t *testing.T) {
	st := seedLedger(t)
	notion := &MockNotionService{
		pages: []notionapi.Page{pageFor("p-stale", &domain.Transaction{ID: "gone", OwnerID: "owner-1", Date: day})},
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			t.Error("CreatePage called during dry run")
			return nil, nil
		},
	}

	stats, err := SyncLedger(context.Background(), st, notion, SyncRequest{OwnerID: "owner-1", DatabaseID: "db", DryRun: true})
	if err != nil {
		t.Fatalf("SyncLedger() error = %v", err)
	}
	if stats.Created != 3 || stats.Archived != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if len(notion.archived) != 0 {
		t.Errorf("archived during dry run: %v", notion.archived)
	}
}

func TestSyncLedger_CreateFailureContinues(t *testing.T) {
	st := seedLedger(t)
	calls := 0
	notion := &MockNotionService{
		CreatePageFunc: func(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("rate limited")
			}
			return &notionapi.Page{ID: notionapi.ObjectID(fmt.Sprint(calls))}, nil
		},
	}

	stats, err := SyncLedger(context.Background(), st, notion, SyncRequest{OwnerID: "owner-1", DatabaseID: "db"})
	if err != nil {
		t.Fatalf("SyncLedger() error = %v", err)
	}
	if calls != 3 || stats.Created != 2 {
		t.Errorf("calls = %d, created = %d", calls, stats.Created)
	}
}

func TestNewJobHandler(t *testing.T) {
	st := seedLedger(t)
	handler := NewJobHandler(st, &MockNotionService{}, "db")

	job := &jobs.SyncLedgerJob{JobID: "j1", OwnerID: "owner-1"}
	if err := handler(context.Background(), job); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if job.Stats == nil || job.Stats.Created != 3 {
		t.Errorf("Stats = %+v, want 3 created", job.Stats)
	}
}

func TestTransactionToNotionProperties(t *testing.T) {
	tx := &domain.Transaction{
		ID:       "tx-9",
		OwnerID:  "owner-1",
		Type:     domain.TransactionTypeExpense,
		Amount:   12.5,
		Category: "Rent",
		Date:     day,
	}
	props := TransactionToNotionProperties(tx)

	title, ok := props[PropDescription].(notionapi.TitleProperty)
	if !ok || title.Title[0].Text.Content != "expense" {
		t.Errorf("title = %+v, want type as fallback", props[PropDescription])
	}
	if _, ok := props[PropRecordedAt]; ok {
		t.Error("Recorded At set for zero CreatedAt")
	}
	if sel := props[PropCategory].(notionapi.SelectProperty); sel.Select.Name != "Rent" {
		t.Errorf("category = %q", sel.Select.Name)
	}
	if n := props[PropAmount].(notionapi.NumberProperty); n.Number != 12.5 {
		t.Errorf("amount = %v", n.Number)
	}
}
