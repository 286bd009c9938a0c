// Package postgres implements store.Store on PostgreSQL using sqlx.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/store"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// foreignKeyViolation is the SQLSTATE raised when a referenced row is missing.
const foreignKeyViolation = "23503"

type Store struct {
	DB *sqlx.DB
}

// Options tunes the connection pool.
type Options struct {
	MaxOpenConns int
	MaxIdleConns int
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	return NewStore(db), nil
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{DB: db}
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

const productColumns = `id, owner_id, name, description, sku, category, unit_price, quantity, min_stock_level, supplier, created_at, updated_at`

func (s *Store) GetProduct(ctx context.Context, ownerID, productID string) (*domain.Product, error) {
	var p domain.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE owner_id = $1 AND id = $2`
	if err := s.DB.GetContext(ctx, &p, query, ownerID, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context, f store.ProductFilter) ([]*domain.Product, error) {
	conditions := []string{"owner_id = ?"}
	args := []interface{}{f.OwnerID}

	if f.NameContains != "" {
		conditions = append(conditions, "strpos(lower(name), lower(?)) > 0")
		args = append(args, f.NameContains)
	}
	if f.LowStockOnly {
		conditions = append(conditions, "quantity <= min_stock_level")
	}

	order := "ASC"
	if f.NewestFirst {
		order = "DESC"
	}
	query := `SELECT ` + productColumns + ` FROM products WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY created_at ` + order + `, id ` + order
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	var items []*domain.Product
	if err := s.DB.SelectContext(ctx, &items, s.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return items, nil
}

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

	query := `
        INSERT INTO products (` + productColumns + `)
        VALUES (
            :id, :owner_id, :name, :description, :sku, :category, :unit_price,
            :quantity, :min_stock_level, :supplier, :created_at, :updated_at
        )
        ON CONFLICT (id) DO NOTHING
    `
	if _, err := s.DB.NamedExecContext(ctx, query, p); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = time.Now().UTC()
	query := `
        UPDATE products SET
            name = :name,
            description = :description,
            sku = :sku,
            category = :category,
            unit_price = :unit_price,
            quantity = :quantity,
            min_stock_level = :min_stock_level,
            supplier = :supplier,
            updated_at = :updated_at
        WHERE owner_id = :owner_id AND id = :id
    `
	res, err := s.DB.NamedExecContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	return requireRow(res, "product", p.ID)
}

func (s *Store) SetProductQuantity(ctx context.Context, ownerID, productID string, quantity int) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE products SET quantity = $3, updated_at = now() WHERE owner_id = $1 AND id = $2`,
		ownerID, productID, quantity)
	if err != nil {
		return fmt.Errorf("failed to set quantity: %w", err)
	}
	return requireRow(res, "product", productID)
}

func (s *Store) DecrementStock(ctx context.Context, ownerID, productID string, qty int) (int, error) {
	var remaining int
	err := s.DB.GetContext(ctx, &remaining, `
        UPDATE products SET quantity = quantity - $3, updated_at = now()
        WHERE owner_id = $1 AND id = $2 AND quantity >= $3
        RETURNING quantity
    `, ownerID, productID, qty)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to decrement stock: %w", err)
	}

	// Either the product is missing or it holds too few units.
	var available int
	err = s.DB.GetContext(ctx, &available,
		`SELECT quantity FROM products WHERE owner_id = $1 AND id = $2`, ownerID, productID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read stock: %w", err)
	}
	return available, store.ErrInsufficientStock
}

func (s *Store) IncrementStock(ctx context.Context, ownerID, productID string, qty int) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE products SET quantity = quantity + $3, updated_at = now() WHERE owner_id = $1 AND id = $2`,
		ownerID, productID, qty)
	if err != nil {
		return fmt.Errorf("failed to increment stock: %w", err)
	}
	return requireRow(res, "product", productID)
}

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

	query := `
        INSERT INTO transactions (id, owner_id, transaction_type, amount, description, category, date, created_at)
        VALUES (:id, :owner_id, :transaction_type, :amount, :description, :category, :date, :created_at)
        ON CONFLICT (id) DO NOTHING
    `
	if _, err := s.DB.NamedExecContext(ctx, query, tx); err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]*domain.Transaction, error) {
	conditions := []string{"owner_id = ?"}
	args := []interface{}{f.OwnerID}

	if f.Type != "" {
		conditions = append(conditions, "transaction_type = ?")
		args = append(args, string(f.Type))
	}
	if !f.Since.IsZero() {
		conditions = append(conditions, "date >= ?")
		args = append(args, f.Since)
	}
	if !f.Until.IsZero() {
		conditions = append(conditions, "date <= ?")
		args = append(args, f.Until)
	}

	query := `SELECT id, owner_id, transaction_type, amount, description, category, date, created_at
        FROM transactions WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY date DESC, created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	var items []*domain.Transaction
	if err := s.DB.SelectContext(ctx, &items, s.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return items, nil
}

// saleRow mirrors the sales table; product_id is nullable.
type saleRow struct {
	ID            string         `db:"id"`
	OwnerID       string         `db:"owner_id"`
	TransactionID string         `db:"transaction_id"`
	ProductID     sql.NullString `db:"product_id"`
	ProductName   string         `db:"product_name"`
	Category      string         `db:"category"`
	Quantity      int            `db:"quantity"`
	UnitPrice     float64        `db:"unit_price"`
	TotalAmount   float64        `db:"total_amount"`
	CustomerName  string         `db:"customer_name"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (r saleRow) toDomain() *domain.Sale {
	return &domain.Sale{
		ID:            r.ID,
		OwnerID:       r.OwnerID,
		TransactionID: r.TransactionID,
		ProductID:     r.ProductID.String,
		ProductName:   r.ProductName,
		Category:      r.Category,
		Quantity:      r.Quantity,
		UnitPrice:     r.UnitPrice,
		TotalAmount:   r.TotalAmount,
		CustomerName:  r.CustomerName,
		CreatedAt:     r.CreatedAt,
	}
}

func (s *Store) InsertSale(ctx context.Context, sale *domain.Sale) error {
	if sale.ID == "" {
		return fmt.Errorf("InsertSale: sale ID is required")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	row := saleRow{
		ID:            sale.ID,
		OwnerID:       sale.OwnerID,
		TransactionID: sale.TransactionID,
		ProductID:     sql.NullString{String: sale.ProductID, Valid: sale.ProductID != ""},
		Quantity:      sale.Quantity,
		UnitPrice:     sale.UnitPrice,
		TotalAmount:   sale.TotalAmount,
		CustomerName:  sale.CustomerName,
		CreatedAt:     sale.CreatedAt,
	}
	query := `
        INSERT INTO sales (id, owner_id, transaction_id, product_id, quantity, unit_price, total_amount, customer_name, created_at)
        VALUES (:id, :owner_id, :transaction_id, :product_id, :quantity, :unit_price, :total_amount, :customer_name, :created_at)
        ON CONFLICT (id) DO NOTHING
    `
	if _, err := s.DB.NamedExecContext(ctx, query, row); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			return fmt.Errorf("InsertSale: %s: %w", pqErr.Constraint, store.ErrNotFound)
		}
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	return nil
}

func (s *Store) ListSales(ctx context.Context, f store.SaleFilter) ([]*domain.Sale, error) {
	conditions := []string{"s.owner_id = ?"}
	args := []interface{}{f.OwnerID}

	if !f.Since.IsZero() {
		conditions = append(conditions, "s.created_at >= ?")
		args = append(args, f.Since)
	}
	if !f.Until.IsZero() {
		conditions = append(conditions, "s.created_at <= ?")
		args = append(args, f.Until)
	}

	query := `
        SELECT s.id, s.owner_id, s.transaction_id, s.product_id,
               COALESCE(p.name, '') AS product_name,
               COALESCE(p.category, '') AS category,
               s.quantity, s.unit_price, s.total_amount, s.customer_name, s.created_at
        FROM sales s
        LEFT JOIN products p ON p.id = s.product_id
        WHERE ` + strings.Join(conditions, " AND ") + `
        ORDER BY s.created_at DESC, s.id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	var rows []saleRow
	if err := s.DB.SelectContext(ctx, &rows, s.DB.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}

	items := make([]*domain.Sale, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toDomain())
	}
	return items, nil
}

// commandLogRow scans processed_command as text; json.RawMessage has no
// sql.Scanner.
type commandLogRow struct {
	ID               string    `db:"id"`
	OwnerID          string    `db:"owner_id"`
	OriginalText     string    `db:"original_text"`
	ProcessedCommand string    `db:"processed_command"`
	ActionTaken      string    `db:"action_taken"`
	ConfidenceScore  float64   `db:"confidence_score"`
	CreatedAt        time.Time `db:"created_at"`
}

func newCommandLogRow(e *domain.CommandLogEntry) commandLogRow {
	cmd := string(e.ProcessedCommand)
	if cmd == "" {
		cmd = "{}"
	}
	return commandLogRow{
		ID:               e.ID,
		OwnerID:          e.OwnerID,
		OriginalText:     e.OriginalText,
		ProcessedCommand: cmd,
		ActionTaken:      e.ActionTaken,
		ConfidenceScore:  e.ConfidenceScore,
		CreatedAt:        e.CreatedAt,
	}
}

func (r commandLogRow) toDomain() *domain.CommandLogEntry {
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

const commandLogColumns = `id, owner_id, original_text, processed_command::text AS processed_command, action_taken, confidence_score, created_at`

func (s *Store) InsertCommandLog(ctx context.Context, e *domain.CommandLogEntry) error {
	if e.ID == "" {
		return fmt.Errorf("InsertCommandLog: command log ID is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO voice_commands (id, owner_id, original_text, processed_command, action_taken, confidence_score, created_at)
        VALUES (:id, :owner_id, :original_text, CAST(:processed_command AS JSONB), :action_taken, :confidence_score, :created_at)
        ON CONFLICT (id) DO NOTHING
    `
	if _, err := s.DB.NamedExecContext(ctx, query, newCommandLogRow(e)); err != nil {
		return fmt.Errorf("failed to insert command log: %w", err)
	}
	return nil
}

func (s *Store) GetCommandLog(ctx context.Context, ownerID, id string) (*domain.CommandLogEntry, error) {
	var row commandLogRow
	query := `SELECT ` + commandLogColumns + ` FROM voice_commands WHERE owner_id = $1 AND id = $2`
	if err := s.DB.GetContext(ctx, &row, query, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("command log %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get command log: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateCommandLog(ctx context.Context, e *domain.CommandLogEntry) error {
	query := `
        UPDATE voice_commands SET
            original_text = :original_text,
            processed_command = CAST(:processed_command AS JSONB),
            confidence_score = :confidence_score,
            action_taken = :action_taken
        WHERE owner_id = :owner_id AND id = :id
    `
	res, err := s.DB.NamedExecContext(ctx, query, newCommandLogRow(e))
	if err != nil {
		return fmt.Errorf("failed to update command log: %w", err)
	}
	return requireRow(res, "command log", e.ID)
}

func (s *Store) ListCommandLogs(ctx context.Context, ownerID string, limit int) ([]*domain.CommandLogEntry, error) {
	query := `SELECT ` + commandLogColumns + ` FROM voice_commands WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var rows []commandLogRow
	if err := s.DB.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list command logs: %w", err)
	}

	items := make([]*domain.CommandLogEntry, 0, len(rows))
	for _, r := range rows {
		items = append(items, r.toDomain())
	}
	return items, nil
}

func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return nil
}

var _ store.Store = (*Store)(nil)
