package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/dvloznov/voice-inventory/internal/domain"
)

func insertTx(t *testing.T, svc *Service, typ domain.TransactionType, amount float64, date time.Time) {
	t.Helper()
	err := svc.store.InsertTransaction(context.Background(), &domain.Transaction{
		ID:        svc.newID(),
		OwnerID:   owner,
		Type:      typ,
		Amount:    amount,
		Date:      date,
		CreatedAt: date,
	})
	if err != nil {
		t.Fatalf("InsertTransaction() error = %v", err)
	}
}

func TestProfit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	insertTx(t, svc, domain.TransactionTypeSale, 100, testNow.AddDate(0, 0, -1))
	insertTx(t, svc, domain.TransactionTypeSale, 50, testNow.AddDate(0, -2, 0))
	insertTx(t, svc, domain.TransactionTypeExpense, 30, testNow.AddDate(0, 0, -2))
	insertTx(t, svc, domain.TransactionTypePurchase, 999, testNow.AddDate(0, 0, -1))

	all, err := svc.Profit(ctx, owner, time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Profit() error = %v", err)
	}
	if all.TotalSales != 150 || all.TotalExpenses != 30 || all.Profit != 120 {
		t.Errorf("Profit(all) = %+v", all)
	}

	recent, err := svc.Profit(ctx, owner, testNow.AddDate(0, 0, -7), testNow)
	if err != nil {
		t.Fatalf("Profit() error = %v", err)
	}
	if recent.TotalSales != 100 || recent.Profit != 70 {
		t.Errorf("Profit(week) = %+v", recent)
	}
}

func TestDashboard(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	low := seedProduct(t, st, "Low", 1, 1, testNow)
	low.MinStockLevel = 5
	if err := st.UpdateProduct(ctx, low); err != nil {
		t.Fatal(err)
	}
	ok := seedProduct(t, st, "Ok", 20, 1, testNow)
	ok.MinStockLevel = 5
	if err := st.UpdateProduct(ctx, ok); err != nil {
		t.Fatal(err)
	}

	insertTx(t, svc, domain.TransactionTypeSale, 40, testNow.Add(-time.Hour))
	insertTx(t, svc, domain.TransactionTypeSale, 60, time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC))
	insertTx(t, svc, domain.TransactionTypeSale, 500, time.Date(2025, 2, 27, 9, 0, 0, 0, time.UTC))
	insertTx(t, svc, domain.TransactionTypeExpense, 25, time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC))

	d, err := svc.Dashboard(ctx, owner)
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if d.TotalProducts != 2 || d.LowStockItems != 1 {
		t.Errorf("products = %d, low = %d", d.TotalProducts, d.LowStockItems)
	}
	if d.TodaySales != 40 {
		t.Errorf("TodaySales = %v, want 40", d.TodaySales)
	}
	if d.MonthSales != 100 || d.MonthExpenses != 25 || d.MonthProfit != 75 {
		t.Errorf("month = %v/%v/%v", d.MonthSales, d.MonthExpenses, d.MonthProfit)
	}
	if len(d.RecentTransactions) != 4 {
		t.Errorf("len(RecentTransactions) = %d, want 4", len(d.RecentTransactions))
	}
}

func TestSalesSummary(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()

	names := []string{"A", "B", "C", "D", "E", "F"}
	for i, name := range names {
		p := seedProduct(t, st, name, 100, 10, testNow.Add(-48*time.Hour))
		for n := 0; n <= i; n++ {
			if _, err := svc.RecordSale(ctx, SaleRequest{OwnerID: owner, ProductID: p.ID, Quantity: 1}); err != nil {
				t.Fatalf("RecordSale() error = %v", err)
			}
		}
	}

	sum, err := svc.SalesSummary(ctx, owner, "")
	if err != nil {
		t.Fatalf("SalesSummary() error = %v", err)
	}
	if sum.Period != "week" {
		t.Errorf("Period = %q, want week", sum.Period)
	}
	if sum.TotalTransactions != 21 || sum.TotalItemsSold != 21 || sum.TotalRevenue != 210 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.AverageTransactionValue != 10 {
		t.Errorf("AverageTransactionValue = %v, want 10", sum.AverageTransactionValue)
	}
	if len(sum.TopProducts) != 5 {
		t.Fatalf("len(TopProducts) = %d, want 5", len(sum.TopProducts))
	}
	if sum.TopProducts[0].Name != "F" || sum.TopProducts[0].Quantity != 6 || sum.TopProducts[0].Revenue != 60 {
		t.Errorf("TopProducts[0] = %+v", sum.TopProducts[0])
	}
	if sum.TopProducts[4].Name != "B" {
		t.Errorf("TopProducts[4] = %+v, want B", sum.TopProducts[4])
	}
}

func TestSalesSummary_Empty(t *testing.T) {
	svc, _ := newTestService(t)

	sum, err := svc.SalesSummary(context.Background(), owner, "year")
	if err != nil {
		t.Fatalf("SalesSummary() error = %v", err)
	}
	if sum.AverageTransactionValue != 0 || len(sum.TopProducts) != 0 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestPeriodWindow(t *testing.T) {
	tests := map[string]time.Duration{
		"week":   7 * 24 * time.Hour,
		"month":  30 * 24 * time.Hour,
		"year":   365 * 24 * time.Hour,
		"decade": 7 * 24 * time.Hour,
	}
	for period, want := range tests {
		if got := PeriodWindow(period); got != want {
			t.Errorf("PeriodWindow(%q) = %v, want %v", period, got, want)
		}
	}
}
