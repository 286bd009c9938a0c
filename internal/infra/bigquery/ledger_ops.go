package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/store"
)

// InsertTransaction is idempotent on id.
func (s *Store) InsertTransaction(ctx context.Context, tx *domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("InsertTransaction: transaction ID is required")
	}
	now := time.Now().UTC()
	if tx.Date.IsZero() {
		tx.Date = now
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	row := newTransactionRow(tx)

	_, err := s.exec(ctx, "InsertTransaction", `
		MERGE `+s.table(transactionsTable)+` t
		USING (SELECT @id AS id) src
		ON t.id = src.id
		WHEN NOT MATCHED THEN
		  INSERT (id, owner_id, transaction_type, amount, description, category, date, transaction_date, created_at)
		  VALUES (@id, @owner_id, @transaction_type, @amount, @description, @category, @date, @transaction_date, @created_at)
	`, []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "owner_id", Value: row.OwnerID},
		{Name: "transaction_type", Value: row.TransactionType},
		{Name: "amount", Value: row.Amount},
		{Name: "description", Value: row.Description},
		{Name: "category", Value: row.Category},
		{Name: "date", Value: row.Date},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "created_at", Value: row.CreatedAt},
	})
	return err
}

func (s *Store) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]*domain.Transaction, error) {
	conditions := []string{"owner_id = @owner_id"}
	params := []bigquery.QueryParameter{{Name: "owner_id", Value: f.OwnerID}}

	if f.Type != "" {
		conditions = append(conditions, "transaction_type = @transaction_type")
		params = append(params, bigquery.QueryParameter{Name: "transaction_type", Value: string(f.Type)})
	}
	if !f.Since.IsZero() {
		conditions = append(conditions, "date >= @since")
		params = append(params, bigquery.QueryParameter{Name: "since", Value: f.Since})
	}
	if !f.Until.IsZero() {
		conditions = append(conditions, "date <= @until")
		params = append(params, bigquery.QueryParameter{Name: "until", Value: f.Until})
	}

	rows, err := readAll[TransactionRow](ctx, s, "ListTransactions", `
		SELECT id, owner_id, transaction_type, amount, description, category, date, transaction_date, created_at
		FROM `+s.table(transactionsTable)+`
		WHERE `+strings.Join(conditions, " AND ")+`
		ORDER BY date DESC, created_at DESC`+limitClause(f.Limit), params)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// InsertSale requires the referenced transaction to exist; BigQuery has no
// foreign keys so the check is part of the MERGE source.
func (s *Store) InsertSale(ctx context.Context, sale *domain.Sale) error {
	if sale.ID == "" {
		return fmt.Errorf("InsertSale: sale ID is required")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	row := newSaleRow(sale)

	params := []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "owner_id", Value: row.OwnerID},
		{Name: "transaction_id", Value: row.TransactionID},
		{Name: "product_id", Value: row.ProductID},
		{Name: "quantity", Value: row.Quantity},
		{Name: "unit_price", Value: row.UnitPrice},
		{Name: "total_amount", Value: row.TotalAmount},
		{Name: "customer_name", Value: row.CustomerName},
		{Name: "created_at", Value: row.CreatedAt},
	}

	n, err := s.exec(ctx, "InsertSale", `
		MERGE `+s.table(salesTable)+` t
		USING (
		  SELECT @id AS id
		  FROM `+s.table(transactionsTable)+`
		  WHERE id = @transaction_id AND owner_id = @owner_id
		) src
		ON t.id = src.id
		WHEN NOT MATCHED THEN
		  INSERT (id, owner_id, transaction_id, product_id, quantity, unit_price, total_amount, customer_name, created_at)
		  VALUES (@id, @owner_id, @transaction_id, @product_id, @quantity, @unit_price, @total_amount, @customer_name, @created_at)
	`, params)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Nothing inserted: either a retry of an existing sale or a dangling transaction.
	existing, err := readAll[SaleRow](ctx, s, "InsertSale", `
		SELECT id FROM `+s.table(salesTable)+` WHERE id = @id LIMIT 1
	`, []bigquery.QueryParameter{{Name: "id", Value: row.ID}})
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		return fmt.Errorf("InsertSale: transaction %s: %w", sale.TransactionID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) ListSales(ctx context.Context, f store.SaleFilter) ([]*domain.Sale, error) {
	conditions := []string{"s.owner_id = @owner_id"}
	params := []bigquery.QueryParameter{{Name: "owner_id", Value: f.OwnerID}}

	if !f.Since.IsZero() {
		conditions = append(conditions, "s.created_at >= @since")
		params = append(params, bigquery.QueryParameter{Name: "since", Value: f.Since})
	}
	if !f.Until.IsZero() {
		conditions = append(conditions, "s.created_at <= @until")
		params = append(params, bigquery.QueryParameter{Name: "until", Value: f.Until})
	}

	rows, err := readAll[SaleRow](ctx, s, "ListSales", `
		SELECT
		  s.id, s.owner_id, s.transaction_id, s.product_id,
		  p.name AS product_name,
		  p.category AS category,
		  s.quantity, s.unit_price, s.total_amount, s.customer_name, s.created_at
		FROM `+s.table(salesTable)+` s
		LEFT JOIN `+s.table(productsTable)+` p
		  ON p.id = s.product_id
		WHERE `+strings.Join(conditions, " AND ")+`
		ORDER BY s.created_at DESC, s.id DESC`+limitClause(f.Limit), params)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Sale, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
