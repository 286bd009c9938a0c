package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/voice-inventory/internal/api/middleware"
	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/jobs"
	"github.com/dvloznov/voice-inventory/internal/ledger"
	"github.com/dvloznov/voice-inventory/internal/store"
	"github.com/rs/zerolog"
)

const dateLayout = "2006-01-02"

// parseDateRange reads start_date and end_date query parameters. The end
// date is inclusive through the end of that day. Absent bounds are zero.
func parseDateRange(r *http.Request) (start, end time.Time, err error) {
	query := r.URL.Query()
	if s := query.Get("start_date"); s != "" {
		start, err = time.Parse(dateLayout, s)
		if err != nil {
			return start, end, errors.New("Invalid start_date format")
		}
	}
	if s := query.Get("end_date"); s != "" {
		end, err = time.Parse(dateLayout, s)
		if err != nil {
			return start, end, errors.New("Invalid end_date format")
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	return start, end, nil
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// InventoryHandler handles product endpoints.
type InventoryHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(svc *ledger.Service, log zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{
		ledger: svc,
		log:    log,
	}
}

// ListProducts handles GET /api/inventory/products
func (h *InventoryHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.ledger.ListProducts(ctx, middleware.OwnerIDFromContext(ctx))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list products")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
	})
}

// CreateProduct handles POST /api/inventory/products
func (h *InventoryHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req domain.Product
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.ID = ""
	req.OwnerID = middleware.OwnerIDFromContext(ctx)

	product, err := h.ledger.AddProduct(ctx, &req)
	if errors.Is(err, ledger.ErrNameRequired) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to add product")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to add product")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Product added successfully",
		"product": product,
	})
}

// UpdateProduct handles PUT /api/inventory/products/{id}
func (h *InventoryHandler) UpdateProduct(w http.ResponseWriter, r *http.Request, productID string) {
	ctx := r.Context()

	var req domain.ProductUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	product, err := h.ledger.UpdateProduct(ctx, middleware.OwnerIDFromContext(ctx), productID, req)
	switch {
	case errors.Is(err, store.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Product not found")
		return
	case errors.Is(err, ledger.ErrNameRequired):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.log.Error().Err(err).Str("product_id", productID).Msg("Failed to update product")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Product updated successfully",
		"product": product,
	})
}

// LowStock handles GET /api/inventory/low-stock
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	products, err := h.ledger.LowStock(ctx, middleware.OwnerIDFromContext(ctx))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list low-stock products")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list low-stock products")
		return
	}
	if products == nil {
		products = []*domain.Product{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"low_stock_products": products,
	})
}

// BulkUpdate handles POST /api/inventory/bulk-update
func (h *InventoryHandler) BulkUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Updates []ledger.StockUpdate `json:"updates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	results, updated, err := h.ledger.BulkUpdateStock(ctx, middleware.OwnerIDFromContext(ctx), req.Updates)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to bulk update stock")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to update stock")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Bulk update completed. %d products updated.", updated),
		"results": results,
	})
}

// TransactionsHandler handles ledger endpoints.
type TransactionsHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(svc *ledger.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		ledger: svc,
		log:    log,
	}
}

func (h *TransactionsHandler) list(w http.ResponseWriter, r *http.Request) ([]*domain.Transaction, bool) {
	ctx := r.Context()

	start, end, err := parseDateRange(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	transactions, err := h.ledger.Store().ListTransactions(ctx, store.TransactionFilter{
		OwnerID: middleware.OwnerIDFromContext(ctx),
		Type:    domain.TransactionType(r.URL.Query().Get("type")),
		Since:   start,
		Until:   end,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return nil, false
	}
	if transactions == nil {
		transactions = []*domain.Transaction{}
	}
	return transactions, true
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, ok := h.list(w, r)
	if !ok {
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
	})
}

// RecordSale handles POST /api/transactions/sale
func (h *TransactionsHandler) RecordSale(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		ProductID    string   `json:"product_id"`
		Quantity     *int     `json:"quantity"`
		UnitPrice    *float64 `json:"unit_price"`
		CustomerName string   `json:"customer_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ProductID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "product_id is required")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	// A zero price means "use the catalogue price".
	if req.UnitPrice != nil && *req.UnitPrice == 0 {
		req.UnitPrice = nil
	}

	receipt, err := h.ledger.RecordSale(ctx, ledger.SaleRequest{
		OwnerID:      middleware.OwnerIDFromContext(ctx),
		ProductID:    req.ProductID,
		Quantity:     quantity,
		UnitPrice:    req.UnitPrice,
		CustomerName: req.CustomerName,
	})
	var insufficient *ledger.InsufficientStockError
	switch {
	case errors.Is(err, store.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Product not found")
		return
	case errors.As(err, &insufficient), errors.Is(err, ledger.ErrInvalidQuantity):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.log.Error().Err(err).Str("product_id", req.ProductID).Msg("Failed to record sale")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to record sale")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Sale recorded successfully",
		"sale":        receipt.Sale,
		"transaction": receipt.Transaction,
	})
}

// RecordExpense handles POST /api/transactions/expense
func (h *TransactionsHandler) RecordExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Amount      float64 `json:"amount"`
		Description string  `json:"description"`
		Category    string  `json:"category"`
		Date        string  `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var date time.Time
	if req.Date != "" {
		d, err := time.Parse(dateLayout, req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date format")
			return
		}
		date = d
	}

	tx, err := h.ledger.RecordExpense(ctx, ledger.ExpenseRequest{
		OwnerID:     middleware.OwnerIDFromContext(ctx),
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
		Date:        date,
	})
	if errors.Is(err, ledger.ErrInvalidAmount) {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to record expense")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to record expense")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":     "Expense recorded successfully",
		"transaction": tx,
	})
}

// SalesHandler handles sales reporting endpoints.
type SalesHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(svc *ledger.Service, log zerolog.Logger) *SalesHandler {
	return &SalesHandler{
		ledger: svc,
		log:    log,
	}
}

// ListSales handles GET /api/sales
func (h *SalesHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	start, end, err := parseDateRange(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	sales, err := h.ledger.Store().ListSales(ctx, store.SaleFilter{
		OwnerID: middleware.OwnerIDFromContext(ctx),
		Since:   start,
		Until:   end,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list sales")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list sales")
		return
	}
	if sales == nil {
		sales = []*domain.Sale{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sales": sales,
	})
}

// Summary handles GET /api/sales/summary?period=week|month|year
func (h *SalesHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "week"
	}

	summary, err := h.ledger.SalesSummary(ctx, middleware.OwnerIDFromContext(ctx), period)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to summarise sales")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to summarise sales")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"period":       period,
		"summary":      summary,
		"top_products": summary.TopProducts,
	})
}

// AnalyticsHandler handles profit and dashboard endpoints.
type AnalyticsHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(svc *ledger.Service, log zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		ledger: svc,
		log:    log,
	}
}

// Profit handles GET /api/analytics/profit
func (h *AnalyticsHandler) Profit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	start, end, err := parseDateRange(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.ledger.Profit(ctx, middleware.OwnerIDFromContext(ctx), start, end)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to calculate profit")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to calculate profit")
		return
	}

	query := r.URL.Query()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"total_sales":    report.TotalSales,
		"total_expenses": report.TotalExpenses,
		"profit":         report.Profit,
		"period": map[string]interface{}{
			"start_date": optional(query.Get("start_date")),
			"end_date":   optional(query.Get("end_date")),
		},
	})
}

// optional maps an absent query value to JSON null.
func optional(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Dashboard handles GET /api/analytics/dashboard
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dashboard, err := h.ledger.Dashboard(ctx, middleware.OwnerIDFromContext(ctx))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build dashboard")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build dashboard")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dashboard)
}

// CategoriesHandler handles category-related endpoints.
type CategoriesHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(svc *ledger.Service, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{
		ledger: svc,
		log:    log,
	}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	categories, err := h.ledger.Categories(ctx, middleware.OwnerIDFromContext(ctx))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list categories")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}
	if categories == nil {
		categories = []string{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler. publisher may be nil when Notion
// sync is not configured.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store:     store,
		publisher: publisher,
		log:       log,
	}
}

// SyncNotion handles POST /api/sync/notion
func (h *JobsHandler) SyncNotion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Notion sync is not configured")
		return
	}

	var req struct {
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
		DryRun    bool   `json:"dry_run"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	job := &jobs.SyncLedgerJob{
		OwnerID: middleware.OwnerIDFromContext(ctx),
		DryRun:  req.DryRun,
	}
	if req.StartDate != "" {
		d, err := time.Parse(dateLayout, req.StartDate)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
		job.StartDate = d
	}
	if req.EndDate != "" {
		d, err := time.Parse(dateLayout, req.EndDate)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
		job.EndDate = d.Add(24*time.Hour - time.Nanosecond)
	}

	if err := h.publisher.PublishSyncLedger(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue sync job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue sync job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("owner_id", job.OwnerID).Msg("Notion sync job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err == nil && job.OwnerID != middleware.OwnerIDFromContext(ctx) {
		err = jobs.ErrJobNotFound
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := jobs.JobFilter{
		OwnerID: middleware.OwnerIDFromContext(ctx),
		Status:  jobs.JobStatus(r.URL.Query().Get("status")),
		Limit:   queryInt(r, "limit", 0),
		Offset:  queryInt(r, "offset", 0),
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
