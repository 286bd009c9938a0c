// Package actions executes parsed voice commands against the ledger.
package actions

import (
	"context"
	"fmt"

	"github.com/dvloznov/voice-inventory/internal/domain"
	"github.com/dvloznov/voice-inventory/internal/intent"
	"github.com/dvloznov/voice-inventory/internal/ledger"
	"github.com/dvloznov/voice-inventory/internal/logger"
)

// Result is the outcome of one dispatched command. Failures are reported
// here rather than as errors.
type Result struct {
	Success     bool                `json:"success"`
	Message     string              `json:"message"`
	Product     *domain.Product     `json:"product,omitempty"`
	Sale        *domain.Sale        `json:"sale,omitempty"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
}

func failure(msg string) Result {
	return Result{Success: false, Message: msg}
}

// Handler executes one intent for an owner. A returned error means the
// command could not be carried out for reasons other than bad input.
type Handler interface {
	Handle(ctx context.Context, ownerID string, e intent.Entities) (Result, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ownerID string, e intent.Entities) (Result, error)

func (f HandlerFunc) Handle(ctx context.Context, ownerID string, e intent.Entities) (Result, error) {
	return f(ctx, ownerID, e)
}

// Dispatcher routes commands to the handler registered for their intent.
type Dispatcher struct {
	handlers map[intent.Intent]Handler
}

// NewDispatcher registers the five inventory handlers backed by svc.
func NewDispatcher(svc *ledger.Service) *Dispatcher {
	d := &Dispatcher{handlers: make(map[intent.Intent]Handler)}
	d.Register(intent.AddProduct, &AddProductHandler{Ledger: svc})
	d.Register(intent.RecordSale, &RecordSaleHandler{Ledger: svc})
	d.Register(intent.RecordExpense, &RecordExpenseHandler{Ledger: svc})
	d.Register(intent.CheckStock, &CheckStockHandler{Ledger: svc})
	d.Register(intent.UpdateStock, &UpdateStockHandler{Ledger: svc})
	return d
}

// Register installs h for in, replacing any previous handler.
func (d *Dispatcher) Register(in intent.Intent, h Handler) {
	d.handlers[in] = h
}

// Dispatch runs cmd for ownerID. It always returns a Result: handler errors
// and panics become "Command execution failed" results.
func (d *Dispatcher) Dispatch(ctx context.Context, ownerID string, cmd intent.Command) (res Result) {
	log := logger.FromContext(ctx).With().
		Str("owner_id", ownerID).
		Str("intent", string(cmd.Intent)).
		Logger()

	h, ok := d.handlers[cmd.Intent]
	if !ok {
		log.Debug().Msg("No handler for intent")
		return failure("Unknown command intent")
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Action handler panicked")
			res = failure(fmt.Sprintf("Command execution failed: %v", r))
		}
	}()

	res, err := h.Handle(ctx, ownerID, cmd.Entities)
	if err != nil {
		log.Error().Err(err).Msg("Action handler failed")
		return failure("Command execution failed: " + err.Error())
	}

	log.Info().
		Bool("success", res.Success).
		Str("message", res.Message).
		Msg("Command dispatched")
	return res
}
