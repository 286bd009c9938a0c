package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/store"
)

type ProfitReport struct {
	TotalSales    float64 `json:"total_sales"`
	TotalExpenses float64 `json:"total_expenses"`
	Profit        float64 `json:"profit"`
}

// Profit sums sales and expenses dated within [since, until]. Zero bounds are
// open.
func (s *Service) Profit(ctx context.Context, ownerID string, since, until time.Time) (*ProfitReport, error) {
	sales, err := s.sumTransactions(ctx, ownerID, domain.TransactionTypeSale, since, until)
	if err != nil {
		return nil, err
	}
	expenses, err := s.sumTransactions(ctx, ownerID, domain.TransactionTypeExpense, since, until)
	if err != nil {
		return nil, err
	}
	return &ProfitReport{TotalSales: sales, TotalExpenses: expenses, Profit: sales - expenses}, nil
}

func (s *Service) sumTransactions(ctx context.Context, ownerID string, t domain.TransactionType, since, until time.Time) (float64, error) {
	txs, err := s.store.ListTransactions(ctx, store.TransactionFilter{OwnerID: ownerID, Type: t, Since: since, Until: until})
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, tx := range txs {
		total += tx.Amount
	}
	return total, nil
}

type Dashboard struct {
	TotalProducts      int                   `json:"total_products"`
	LowStockItems      int                   `json:"low_stock_items"`
	TodaySales         float64               `json:"today_sales"`
	MonthSales         float64               `json:"month_sales"`
	MonthExpenses      float64               `json:"month_expenses"`
	MonthProfit        float64               `json:"month_profit"`
	RecentTransactions []*domain.Transaction `json:"recent_transactions"`
}

// Dashboard summarises the owner's books for the UTC day and month of now.
func (s *Service) Dashboard(ctx context.Context, ownerID string) (*Dashboard, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	products, err := s.store.ListProducts(ctx, store.ProductFilter{OwnerID: ownerID})
	if err != nil {
		return nil, err
	}
	low := 0
	for _, p := range products {
		if p.LowStock() {
			low++
		}
	}

	todaySales, err := s.sumTransactions(ctx, ownerID, domain.TransactionTypeSale, today, time.Time{})
	if err != nil {
		return nil, err
	}
	month, err := s.Profit(ctx, ownerID, monthStart, time.Time{})
	if err != nil {
		return nil, err
	}
	recent, err := s.store.ListTransactions(ctx, store.TransactionFilter{OwnerID: ownerID, Limit: 10})
	if err != nil {
		return nil, err
	}
	if recent == nil {
		recent = []*domain.Transaction{}
	}

	return &Dashboard{
		TotalProducts:      len(products),
		LowStockItems:      low,
		TodaySales:         todaySales,
		MonthSales:         month.TotalSales,
		MonthExpenses:      month.TotalExpenses,
		MonthProfit:        month.Profit,
		RecentTransactions: recent,
	}, nil
}

type SalesSummary struct {
	Period                  string       `json:"-"`
	TotalRevenue            float64      `json:"total_revenue"`
	TotalItemsSold          int          `json:"total_items_sold"`
	TotalTransactions       int          `json:"total_transactions"`
	AverageTransactionValue float64      `json:"average_transaction_value"`
	TopProducts             []TopProduct `json:"-"`
}

type TopProduct struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
	Category string  `json:"category"`
}

// PeriodWindow maps a summary period to its look-back window. Unknown
// periods fall back to a week.
func PeriodWindow(period string) time.Duration {
	switch period {
	case "month":
		return 30 * 24 * time.Hour
	case "year":
		return 365 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

const topProductsLimit = 5

// SalesSummary aggregates sales created within the period window ending now.
// Top products are ranked by units sold; sales whose product was deleted
// count toward the totals only.
func (s *Service) SalesSummary(ctx context.Context, ownerID, period string) (*SalesSummary, error) {
	if period == "" {
		period = "week"
	}
	since := s.now().Add(-PeriodWindow(period))

	sales, err := s.store.ListSales(ctx, store.SaleFilter{OwnerID: ownerID, Since: since})
	if err != nil {
		return nil, err
	}

	sum := &SalesSummary{Period: period, TopProducts: []TopProduct{}}
	byName := make(map[string]*TopProduct)
	var order []string

	for _, sale := range sales {
		sum.TotalRevenue += sale.TotalAmount
		sum.TotalItemsSold += sale.Quantity
		sum.TotalTransactions++

		if sale.ProductName == "" {
			continue
		}
		tp, ok := byName[sale.ProductName]
		if !ok {
			tp = &TopProduct{Name: sale.ProductName, Category: sale.Category}
			byName[sale.ProductName] = tp
			order = append(order, sale.ProductName)
		}
		tp.Quantity += sale.Quantity
		tp.Revenue += sale.TotalAmount
	}
	if sum.TotalTransactions > 0 {
		sum.AverageTransactionValue = sum.TotalRevenue / float64(sum.TotalTransactions)
	}

	for _, name := range order {
		sum.TopProducts = append(sum.TopProducts, *byName[name])
	}
	sort.SliceStable(sum.TopProducts, func(i, j int) bool {
		return sum.TopProducts[i].Quantity > sum.TopProducts[j].Quantity
	})
	if len(sum.TopProducts) > topProductsLimit {
		sum.TopProducts = sum.TopProducts[:topProductsLimit]
	}
	return sum, nil
}
