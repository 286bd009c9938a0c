package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/voice-inventory/internal/api/middleware"
	"github.com/dvloznov/voice-inventory/internal/jobs"
	"github.com/dvloznov/voice-inventory/internal/ledger"
	"github.com/dvloznov/voice-inventory/internal/metrics"
	"github.com/dvloznov/voice-inventory/internal/pipeline"
	"github.com/rs/zerolog"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// RouterConfig holds everything the HTTP API serves.
type RouterConfig struct {
	Ledger         *ledger.Service
	Voice          *pipeline.VoiceService
	JobStore       jobs.JobStore
	Publisher      jobs.Publisher
	JWTSecret      string
	MaxUploadBytes int64
	Log            zerolog.Logger
}

// methods routes a path by HTTP method.
type methods map[string]http.HandlerFunc

func (m methods) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h, ok := m[r.Method]; ok {
		h(w, r)
		return
	}
	middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// withID routes /prefix/{id} to h, rejecting an empty id.
func withID(prefix, what string, h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, prefix)
		if id == "" || strings.Contains(id, "/") {
			middleware.WriteError(w, http.StatusBadRequest, what+" ID is required")
			return
		}
		h(w, r, id)
	}
}

// NewRouter builds the API handler with its middleware chain. Everything
// under /api/ except /api/health requires a bearer token.
func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Log

	inventory := NewInventoryHandler(cfg.Ledger, log)
	transactions := NewTransactionsHandler(cfg.Ledger, log)
	sales := NewSalesHandler(cfg.Ledger, log)
	analytics := NewAnalyticsHandler(cfg.Ledger, log)
	categories := NewCategoriesHandler(cfg.Ledger, log)
	voice := NewVoiceHandler(cfg.Voice, cfg.MaxUploadBytes, log)
	jobsHandler := NewJobsHandler(cfg.JobStore, cfg.Publisher, log)

	api := http.NewServeMux()

	// Voice endpoints
	api.Handle("/api/voice/upload", methods{http.MethodPost: voice.Upload})
	api.Handle("/api/voice/text", methods{http.MethodPost: voice.Text})
	api.Handle("/api/voice/correct", methods{http.MethodPost: voice.Correct})
	api.Handle("/api/voice/history", methods{http.MethodGet: voice.History})

	// Inventory endpoints
	api.Handle("/api/inventory/products", methods{
		http.MethodGet:  inventory.ListProducts,
		http.MethodPost: inventory.CreateProduct,
	})
	api.Handle("/api/inventory/products/", methods{
		http.MethodPut: withID("/api/inventory/products/", "Product", inventory.UpdateProduct),
	})
	api.Handle("/api/inventory/low-stock", methods{http.MethodGet: inventory.LowStock})
	api.Handle("/api/inventory/bulk-update", methods{http.MethodPost: inventory.BulkUpdate})

	// Ledger endpoints
	api.Handle("/api/transactions", methods{http.MethodGet: transactions.ListTransactions})
	api.Handle("/api/transactions/sale", methods{http.MethodPost: transactions.RecordSale})
	api.Handle("/api/transactions/expense", methods{http.MethodPost: transactions.RecordExpense})
	api.Handle("/api/sales", methods{http.MethodGet: sales.ListSales})
	api.Handle("/api/sales/summary", methods{http.MethodGet: sales.Summary})
	api.Handle("/api/analytics/profit", methods{http.MethodGet: analytics.Profit})
	api.Handle("/api/analytics/dashboard", methods{http.MethodGet: analytics.Dashboard})
	api.Handle("/api/categories", methods{http.MethodGet: categories.ListCategories})

	// Jobs endpoints
	api.Handle("/api/sync/notion", methods{http.MethodPost: jobsHandler.SyncNotion})
	api.Handle("/api/jobs", methods{http.MethodGet: jobsHandler.ListJobs})
	api.Handle("/api/jobs/", methods{
		http.MethodGet: withID("/api/jobs/", "Job", jobsHandler.GetJob),
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", middleware.Auth(cfg.JWTSecret)(api))
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   Version,
		})
	})
	mux.Handle("/metrics", metrics.Handler())

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.Metrics,
		middleware.CORS,
	)
}
