// Package worker exports stored transactions to the spreadsheet ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"stockroom/internal/amqp"
	"stockroom/internal/core"
	applog "stockroom/internal/log"
	"stockroom/internal/ports"
)

// ExportStore is the storage the worker reads transactions from and records
// export outcomes in.
type ExportStore interface {
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ports.ExportTracker
}

// ExportWorker moves transactions to the exporter. Rows already marked
// exported are skipped, whichever of the consumer and the sweep gets there
// second. A row may still be written twice if the worker stops between the
// write and MarkExported; the ID column identifies such duplicates.
type ExportWorker struct {
	store     ExportStore
	exporter  ports.TransactionExporter
	batchSize int
	logger    *applog.Logger

	// one export at a time, so the status check and the write are not
	// interleaved between the consumer and the ticker
	mu sync.Mutex
}

func NewExportWorker(store ExportStore, exporter ports.TransactionExporter, batchSize int, logger *applog.Logger) *ExportWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &ExportWorker{
		store:     store,
		exporter:  exporter,
		batchSize: batchSize,
		logger:    logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleMessage exports the transaction named by msg. A returned error makes
// the broker requeue the message; transactions that no longer exist or were
// already exported are acknowledged and skipped.
func (w *ExportWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionRecorded) error {
	w.logger.InfoContext(ctx, "Processing transaction message", applog.FieldTxID, msg.ID, applog.FieldTxType, msg.Type)

	tx, err := w.store.GetTransaction(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			w.logger.WarnContext(ctx, "Transaction vanished before export", applog.FieldTxID, msg.ID)
			return nil
		}
		return fmt.Errorf("get transaction %d: %w", msg.ID, err)
	}
	_, err = w.export(ctx, tx)
	return err
}

// ProcessPendingExports exports up to one batch of transactions that are
// still pending or failed last time. It recovers from lost messages.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) (exported, failed int, err error) {
	pending, err := w.store.ListPendingExports(ctx, w.batchSize)
	if err != nil {
		return 0, 0, fmt.Errorf("list pending exports: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending exports", "count", len(pending))
	for _, tx := range pending {
		if ctx.Err() != nil {
			return exported, failed, ctx.Err()
		}
		done, err := w.export(ctx, tx)
		switch {
		case err != nil:
			failed++
		case done:
			exported++
		}
	}

	w.logger.InfoContext(ctx, "Pending exports processed", "exported", exported, "failed", failed)
	return exported, failed, nil
}

// Run processes pending exports immediately and then every interval until ctx
// ends.
func (w *ExportWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, _, err := w.ProcessPendingExports(ctx); err != nil && ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "Periodic export failed", applog.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// export writes tx unless it is already exported and reports whether it
// wrote anything.
func (w *ExportWorker) export(ctx context.Context, tx core.Transaction) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	already, err := w.store.IsExported(ctx, tx.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			w.logger.WarnContext(ctx, "Transaction vanished before export", applog.FieldTxID, tx.ID)
			return false, nil
		}
		return false, fmt.Errorf("export status %d: %w", tx.ID, err)
	}
	if already {
		w.logger.DebugContext(ctx, "Transaction already exported", applog.FieldTxID, tx.ID)
		return false, nil
	}

	ref, err := w.exporter.Export(ctx, tx)
	if err != nil {
		if markErr := w.store.MarkExportFailed(ctx, tx.ID); markErr != nil && !errors.Is(markErr, core.ErrNotFound) {
			w.logger.ErrorContext(ctx, "Failed to mark export error", applog.FieldTxID, tx.ID, applog.FieldError, markErr)
		}
		w.logger.ErrorContext(ctx, "Failed to export transaction", applog.NewFields().
			WithError(err).
			WithOperation(applog.OpExport).
			WithTransaction(tx.ID, string(tx.Type), tx.ProductID, tx.TotalProducts, tx.TotalPrice.StringFixed(2)).
			ToSlice()...)
		return false, fmt.Errorf("export transaction %d: %w", tx.ID, err)
	}

	if err := w.store.MarkExported(ctx, tx.ID, ref); err != nil {
		// The row is written; the next pass may write it again.
		w.logger.ErrorContext(ctx, "Failed to mark transaction exported", applog.FieldTxID, tx.ID, applog.FieldError, err)
	}
	w.logger.InfoContext(ctx, "Transaction exported", applog.FieldTxID, tx.ID, applog.FieldExportRef, ref)
	return true, nil
}
