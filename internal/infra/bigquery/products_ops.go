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

const productColumns = `id, owner_id, name, description, sku, category, unit_price,
			quantity, min_stock_level, supplier, created_at, updated_at`

func (s *Store) GetProduct(ctx context.Context, ownerID, productID string) (*domain.Product, error) {
	rows, err := readAll[ProductRow](ctx, s, "GetProduct", `
		SELECT `+productColumns+`
		FROM `+s.table(productsTable)+`
		WHERE owner_id = @owner_id AND id = @id
		LIMIT 1
	`, []bigquery.QueryParameter{
		{Name: "owner_id", Value: ownerID},
		{Name: "id", Value: productID},
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
	}
	return rows[0].toDomain(), nil
}

func (s *Store) ListProducts(ctx context.Context, f store.ProductFilter) ([]*domain.Product, error) {
	conditions := []string{"owner_id = @owner_id"}
	params := []bigquery.QueryParameter{{Name: "owner_id", Value: f.OwnerID}}

	if f.NameContains != "" {
		conditions = append(conditions, "STRPOS(LOWER(name), LOWER(@needle)) > 0")
		params = append(params, bigquery.QueryParameter{Name: "needle", Value: f.NameContains})
	}
	if f.LowStockOnly {
		conditions = append(conditions, "quantity <= min_stock_level")
	}

	order := "ASC"
	if f.NewestFirst {
		order = "DESC"
	}

	rows, err := readAll[ProductRow](ctx, s, "ListProducts", `
		SELECT `+productColumns+`
		FROM `+s.table(productsTable)+`
		WHERE `+strings.Join(conditions, " AND ")+`
		ORDER BY created_at `+order+`, id `+order+limitClause(f.Limit), params)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// InsertProduct is idempotent on id.
func (s *Store) InsertProduct(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		return fmt.Errorf("InsertProduct: product ID is required")
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	row := newProductRow(p)

	_, err := s.exec(ctx, "InsertProduct", `
		MERGE `+s.table(productsTable)+` t
		USING (SELECT @id AS id) src
		ON t.id = src.id
		WHEN NOT MATCHED THEN
		  INSERT (`+productColumns+`)
		  VALUES (@id, @owner_id, @name, @description, @sku, @category, @unit_price,
		          @quantity, @min_stock_level, @supplier, @created_at, @updated_at)
	`, []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "owner_id", Value: row.OwnerID},
		{Name: "name", Value: row.Name},
		{Name: "description", Value: row.Description},
		{Name: "sku", Value: row.SKU},
		{Name: "category", Value: row.Category},
		{Name: "unit_price", Value: row.UnitPrice},
		{Name: "quantity", Value: row.Quantity},
		{Name: "min_stock_level", Value: row.MinStockLevel},
		{Name: "supplier", Value: row.Supplier},
		{Name: "created_at", Value: row.CreatedAt},
		{Name: "updated_at", Value: row.UpdatedAt},
	})
	return err
}

func (s *Store) UpdateProduct(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()
	row := newProductRow(p)

	n, err := s.exec(ctx, "UpdateProduct", `
		UPDATE `+s.table(productsTable)+`
		SET name = @name,
		    description = @description,
		    sku = @sku,
		    category = @category,
		    unit_price = @unit_price,
		    quantity = @quantity,
		    min_stock_level = @min_stock_level,
		    supplier = @supplier,
		    updated_at = @updated_at
		WHERE owner_id = @owner_id AND id = @id
	`, []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "owner_id", Value: row.OwnerID},
		{Name: "name", Value: row.Name},
		{Name: "description", Value: row.Description},
		{Name: "sku", Value: row.SKU},
		{Name: "category", Value: row.Category},
		{Name: "unit_price", Value: row.UnitPrice},
		{Name: "quantity", Value: row.Quantity},
		{Name: "min_stock_level", Value: row.MinStockLevel},
		{Name: "supplier", Value: row.Supplier},
		{Name: "updated_at", Value: row.UpdatedAt},
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("product %s: %w", p.ID, store.ErrNotFound)
	}
	return nil
}

func (s *Store) SetProductQuantity(ctx context.Context, ownerID, productID string, quantity int) error {
	return s.adjustQuantity(ctx, "SetProductQuantity", "@qty", ownerID, productID, quantity)
}

func (s *Store) IncrementStock(ctx context.Context, ownerID, productID string, qty int) error {
	return s.adjustQuantity(ctx, "IncrementStock", "quantity + @qty", ownerID, productID, qty)
}

func (s *Store) adjustQuantity(ctx context.Context, op, expr, ownerID, productID string, qty int) error {
	n, err := s.exec(ctx, op, `
		UPDATE `+s.table(productsTable)+`
		SET quantity = `+expr+`, updated_at = CURRENT_TIMESTAMP()
		WHERE owner_id = @owner_id AND id = @id
	`, []bigquery.QueryParameter{
		{Name: "owner_id", Value: ownerID},
		{Name: "id", Value: productID},
		{Name: "qty", Value: int64(qty)},
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
	}
	return nil
}

// DecrementStock relies on the conditional UPDATE; zero affected rows means the
// product is missing or short, and a follow-up read tells which.
func (s *Store) DecrementStock(ctx context.Context, ownerID, productID string, qty int) (int, error) {
	n, err := s.exec(ctx, "DecrementStock", `
		UPDATE `+s.table(productsTable)+`
		SET quantity = quantity - @qty, updated_at = CURRENT_TIMESTAMP()
		WHERE owner_id = @owner_id AND id = @id AND quantity >= @qty
	`, []bigquery.QueryParameter{
		{Name: "owner_id", Value: ownerID},
		{Name: "id", Value: productID},
		{Name: "qty", Value: int64(qty)},
	})
	if err != nil {
		return 0, err
	}

	p, err := s.GetProduct(ctx, ownerID, productID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return p.Quantity, store.ErrInsufficientStock
	}
	return p.Quantity, nil
}
