package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
)

const (
	productsTable      = "products"
	transactionsTable  = "transactions"
	salesTable         = "sales"
	voiceCommandsTable = "voice_commands"
)

func productsSchema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "id", Type: bigquery.StringFieldType, Required: true},
		{Name: "owner_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "name", Type: bigquery.StringFieldType, Required: true},
		{Name: "description", Type: bigquery.StringFieldType},
		{Name: "sku", Type: bigquery.StringFieldType},
		{Name: "category", Type: bigquery.StringFieldType},
		{Name: "unit_price", Type: bigquery.NumericFieldType, Required: true},
		{Name: "quantity", Type: bigquery.IntegerFieldType, Required: true},
		{Name: "min_stock_level", Type: bigquery.IntegerFieldType},
		{Name: "supplier", Type: bigquery.StringFieldType},
		{Name: "created_at", Type: bigquery.TimestampFieldType, Required: true},
		{Name: "updated_at", Type: bigquery.TimestampFieldType, Required: true},
	}
}

func transactionsSchema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "id", Type: bigquery.StringFieldType, Required: true},
		{Name: "owner_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "transaction_type", Type: bigquery.StringFieldType, Required: true},
		{Name: "amount", Type: bigquery.NumericFieldType, Required: true},
		{Name: "description", Type: bigquery.StringFieldType},
		{Name: "category", Type: bigquery.StringFieldType},
		{Name: "date", Type: bigquery.TimestampFieldType, Required: true},
		{Name: "transaction_date", Type: bigquery.DateFieldType, Required: true},
		{Name: "created_at", Type: bigquery.TimestampFieldType, Required: true},
	}
}

func salesSchema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "id", Type: bigquery.StringFieldType, Required: true},
		{Name: "owner_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "transaction_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "product_id", Type: bigquery.StringFieldType},
		{Name: "quantity", Type: bigquery.IntegerFieldType, Required: true},
		{Name: "unit_price", Type: bigquery.NumericFieldType, Required: true},
		{Name: "total_amount", Type: bigquery.NumericFieldType, Required: true},
		{Name: "customer_name", Type: bigquery.StringFieldType},
		{Name: "created_at", Type: bigquery.TimestampFieldType, Required: true},
	}
}

func voiceCommandsSchema() bigquery.Schema {
	return bigquery.Schema{
		{Name: "id", Type: bigquery.StringFieldType, Required: true},
		{Name: "owner_id", Type: bigquery.StringFieldType, Required: true},
		{Name: "original_text", Type: bigquery.StringFieldType, Required: true},
		{Name: "processed_command", Type: bigquery.JSONFieldType},
		{Name: "action_taken", Type: bigquery.StringFieldType},
		{Name: "confidence_score", Type: bigquery.FloatFieldType},
		{Name: "created_at", Type: bigquery.TimestampFieldType, Required: true},
	}
}

// EnsureTables creates the dataset tables that do not exist yet.
// Existing tables are left as they are.
func (s *Store) EnsureTables(ctx context.Context) error {
	tables := []struct {
		name string
		meta *bigquery.TableMetadata
	}{
		{productsTable, &bigquery.TableMetadata{Schema: productsSchema()}},
		{transactionsTable, &bigquery.TableMetadata{
			Schema:           transactionsSchema(),
			TimePartitioning: &bigquery.TimePartitioning{Field: "transaction_date"},
			Clustering:       &bigquery.Clustering{Fields: []string{"owner_id"}},
		}},
		{salesTable, &bigquery.TableMetadata{Schema: salesSchema()}},
		{voiceCommandsTable, &bigquery.TableMetadata{Schema: voiceCommandsSchema()}},
	}

	ds := s.client.DatasetInProject(s.projectID, s.datasetID)
	for _, t := range tables {
		err := ds.Table(t.name).Create(ctx, t.meta)
		if err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("EnsureTables: creating %s: %w", t.name, err)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict
}
