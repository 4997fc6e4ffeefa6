package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stockroom/internal/amqp"
	"stockroom/internal/core"
	applog "stockroom/internal/log"
	"stockroom/internal/ports"
)

// InventoryStore is the storage InventoryService works against.
type InventoryStore interface {
	ports.TransactionStore
	ports.ProductStore
	ports.SupplierStore
}

// TransactionPublisher announces stored movements to the export worker.
type TransactionPublisher interface {
	PublishTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecorded) error
}

// SeriesInvalidator drops cached dashboard series for a month.
type SeriesInvalidator interface {
	Invalidate(year, month int)
}

// MovementRequest carries the caller's input for a stock movement. UserID is
// taken from the session, never from the request body.
type MovementRequest struct {
	ProductID   int64
	SupplierID  int64
	Quantity    int
	Description string
	Note        string
	UserID      int64
}

// Page is one slice of a paged listing.
type Page[T any] struct {
	Items         []T
	TotalElements int
	TotalPages    int
}

// InventoryService records stock movements and serves the transaction
// history.
type InventoryService struct {
	store     InventoryStore
	publisher TransactionPublisher
	series    SeriesInvalidator
	logger    *applog.Logger
}

// NewInventoryService wires the service. publisher and series may be nil.
func NewInventoryService(store InventoryStore, publisher TransactionPublisher, series SeriesInvalidator, logger *applog.Logger) *InventoryService {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &InventoryService{
		store:     store,
		publisher: publisher,
		series:    series,
		logger:    logger.WithComponent(applog.ComponentInventory),
	}
}

// Restock records a PURCHASE from a supplier and raises stock.
func (s *InventoryService) Restock(ctx context.Context, req MovementRequest) (core.Transaction, error) {
	return s.record(ctx, core.Purchase, req)
}

// Sell records a SALE and lowers stock. It fails with
// core.ErrInsufficientStock when there is not enough on hand.
func (s *InventoryService) Sell(ctx context.Context, req MovementRequest) (core.Transaction, error) {
	return s.record(ctx, core.Sale, req)
}

// ReturnToSupplier records goods sent back to a supplier. The transaction
// carries no price and starts in PROCESSING until the supplier confirms.
func (s *InventoryService) ReturnToSupplier(ctx context.Context, req MovementRequest) (core.Transaction, error) {
	return s.record(ctx, core.ReturnToSupplier, req)
}

func validateMovement(typ core.TransactionType, req MovementRequest) error {
	if req.ProductID < 1 {
		return core.ErrInvalidProduct
	}
	if req.Quantity < 1 {
		return core.ErrInvalidQuantity
	}
	if typ != core.Sale && req.SupplierID < 1 {
		return core.ErrSupplierRequired
	}
	if len(req.Description) > 500 || len(req.Note) > 500 {
		return core.ErrDescriptionLength
	}
	return nil
}

func (s *InventoryService) record(ctx context.Context, typ core.TransactionType, req MovementRequest) (core.Transaction, error) {
	if err := validateMovement(typ, req); err != nil {
		return core.Transaction{}, err
	}

	product, err := s.store.GetProduct(ctx, req.ProductID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get product: %w", err)
	}

	tx := core.Transaction{
		Type:          typ,
		Status:        core.StatusCompleted,
		TotalProducts: req.Quantity,
		TotalPrice:    core.LineTotal(product.Price, req.Quantity),
		Description:   strings.TrimSpace(req.Description),
		Note:          strings.TrimSpace(req.Note),
		ProductID:     product.ID,
		UserID:        req.UserID,
	}

	if typ != core.Sale {
		supplier, err := s.store.GetSupplier(ctx, req.SupplierID)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("get supplier: %w", err)
		}
		tx.SupplierID = supplier.ID
	}
	if typ == core.ReturnToSupplier {
		tx.Status = core.StatusProcessing
		tx.TotalPrice = decimal.Zero
	}

	stored, err := s.store.RecordMovement(ctx, tx, typ.StockDelta(req.Quantity))
	if err != nil {
		if errors.Is(err, core.ErrInsufficientStock) {
			s.logger.WarnContext(ctx, "Movement rejected",
				applog.FieldProductID, product.ID,
				applog.FieldQuantity, req.Quantity,
				applog.FieldTxType, string(typ),
				applog.FieldError, err)
		}
		return core.Transaction{}, fmt.Errorf("record %s: %w", strings.ToLower(string(typ)), err)
	}

	fields := applog.NewFields().
		WithOperation(applog.OpMovement).
		WithTransaction(stored.ID, string(stored.Type), stored.ProductID, stored.TotalProducts, stored.TotalPrice.StringFixed(2))
	s.logger.InfoContext(ctx, "Transaction recorded", fields.ToSlice()...)

	s.afterRecord(ctx, stored)
	return stored, nil
}

// afterRecord runs the optional side effects of a stored movement. Failures
// are logged; the movement itself already succeeded.
func (s *InventoryService) afterRecord(ctx context.Context, tx core.Transaction) {
	if s.series != nil {
		s.series.Invalidate(tx.CreatedAt.Year(), int(tx.CreatedAt.Month()))
	}

	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No publisher configured, skipping transaction message", applog.FieldTxID, tx.ID)
		return
	}
	msg := amqp.NewTransactionRecorded(tx.ID, string(tx.Type), tx.CreatedAt)
	if err := s.publisher.PublishTransactionRecorded(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction message",
			applog.FieldTxID, tx.ID,
			applog.FieldError, err,
			applog.FieldOperation, applog.OpPublish)
	}
}

func (s *InventoryService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return tx, nil
}

// List returns one page of the history, newest first.
func (s *InventoryService) List(ctx context.Context, q ports.TransactionQuery) (Page[core.Transaction], error) {
	q = q.Normalize()
	q.Filter = strings.TrimSpace(q.Filter)
	items, total, err := s.store.ListTransactions(ctx, q)
	if err != nil {
		return Page[core.Transaction]{}, fmt.Errorf("list transactions: %w", err)
	}
	return Page[core.Transaction]{
		Items:         items,
		TotalElements: total,
		TotalPages:    ports.TotalPages(total, q.Size),
	}, nil
}

func (s *InventoryService) ListByMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	if err := core.ValidatePeriod(month, year); err != nil {
		return nil, err
	}
	txs, err := s.store.ListTransactionsByMonth(ctx, year, month)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %04d-%02d: %w", year, month, err)
	}
	return txs, nil
}

func (s *InventoryService) ListByUser(ctx context.Context, userID int64) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions of user %d: %w", userID, err)
	}
	return txs, nil
}

// UpdateStatus moves a transaction to a new status.
func (s *InventoryService) UpdateStatus(ctx context.Context, id int64, status string) (core.Transaction, error) {
	st, err := core.ParseTransactionStatus(status)
	if err != nil {
		return core.Transaction{}, err
	}
	tx, err := s.store.UpdateTransactionStatus(ctx, id, st)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Transaction status updated", applog.FieldTxID, id, "status", string(st))
	return tx, nil
}
