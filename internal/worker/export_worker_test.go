package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockroom/internal/amqp"
	"stockroom/internal/core"
	"stockroom/internal/storage/memory"
)

type fakeExporter struct {
	mu      sync.Mutex
	fail    map[int64]bool
	written []int64
}

func (f *fakeExporter) Export(_ context.Context, tx core.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[tx.ID] {
		return "", errors.New("quota exceeded")
	}
	f.written = append(f.written, tx.ID)
	return fmt.Sprintf("2024 Transactions!A%d:I%d", len(f.written)+1, len(f.written)+1), nil
}

// seedSales stores n sales and returns the store.
func seedSales(t *testing.T, n int) *memory.Store {
	t.Helper()
	store := memory.New([]string{"General"})
	ctx := context.Background()
	p, err := store.CreateProduct(ctx, core.Product{Name: "Widget", SKU: "W", Price: decimal.NewFromInt(1), StockQuantity: 100, CategoryID: 1})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	for i := 0; i < n; i++ {
		if _, err := store.RecordMovement(ctx, core.Transaction{Type: core.Sale, Status: core.StatusCompleted, TotalProducts: 1, TotalPrice: decimal.NewFromInt(1), ProductID: p.ID}, -1); err != nil {
			t.Fatalf("seed sale: %v", err)
		}
	}
	return store
}

func TestHandleMessage(t *testing.T) {
	store := seedSales(t, 2)
	exp := &fakeExporter{fail: map[int64]bool{2: true}}
	w := NewExportWorker(store, exp, 10, nil)
	ctx := context.Background()

	if err := w.HandleMessage(ctx, &amqp.TransactionRecorded{ID: 1}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if err := w.HandleMessage(ctx, &amqp.TransactionRecorded{ID: 2}); err == nil {
		t.Fatal("export failure should be returned so the message is requeued")
	}
	if err := w.HandleMessage(ctx, &amqp.TransactionRecorded{ID: 99}); err != nil {
		t.Fatalf("missing transaction should be acknowledged: %v", err)
	}

	pending, _ := store.ListPendingExports(ctx, 10)
	if len(pending) != 1 || pending[0].ID != 2 {
		t.Fatalf("pending = %+v", pending)
	}
}

func TestProcessPendingExports(t *testing.T) {
	store := seedSales(t, 5)
	exp := &fakeExporter{fail: map[int64]bool{3: true}}
	w := NewExportWorker(store, exp, 3, nil)
	ctx := context.Background()

	exported, failed, err := w.ProcessPendingExports(ctx)
	if err != nil || exported != 2 || failed != 1 {
		t.Fatalf("first batch = %d/%d, %v", exported, failed, err)
	}

	exp.fail = nil
	exported, failed, err = w.ProcessPendingExports(ctx)
	if err != nil || exported != 3 || failed != 0 {
		t.Fatalf("second batch = %d/%d, %v", exported, failed, err)
	}

	exported, _, _ = w.ProcessPendingExports(ctx)
	if exported != 0 {
		t.Fatalf("nothing should be left, exported %d", exported)
	}
	if len(exp.written) != 5 {
		t.Fatalf("rows written = %v", exp.written)
	}
}

func TestQueuedMessageAfterSweepIsNotExportedTwice(t *testing.T) {
	store := seedSales(t, 2)
	exp := &fakeExporter{}
	w := NewExportWorker(store, exp, 10, nil)
	ctx := context.Background()

	exported, _, err := w.ProcessPendingExports(ctx)
	if err != nil || exported != 2 {
		t.Fatalf("sweep = %d, %v", exported, err)
	}
	for _, id := range []int64{1, 2} {
		if err := w.HandleMessage(ctx, &amqp.TransactionRecorded{ID: id}); err != nil {
			t.Fatalf("HandleMessage(%d): %v", id, err)
		}
	}
	if len(exp.written) != 2 {
		t.Fatalf("rows written = %v, want each transaction once", exp.written)
	}
}

func TestSweepSkipsRowsExportedByMessage(t *testing.T) {
	store := seedSales(t, 2)
	exp := &fakeExporter{}
	w := NewExportWorker(store, exp, 10, nil)
	ctx := context.Background()

	// Listed as pending before the message for row 1 is handled.
	pending, err := store.ListPendingExports(ctx, 10)
	if err != nil || len(pending) != 2 {
		t.Fatalf("pending = %v, %v", pending, err)
	}
	if err := w.HandleMessage(ctx, &amqp.TransactionRecorded{ID: 1}); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	for _, tx := range pending {
		if _, err := w.export(ctx, tx); err != nil {
			t.Fatalf("export(%d): %v", tx.ID, err)
		}
	}
	if len(exp.written) != 2 || exp.written[0] != 1 || exp.written[1] != 2 {
		t.Fatalf("rows written = %v", exp.written)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	store := seedSales(t, 1)
	exp := &fakeExporter{}
	w := NewExportWorker(store, exp, 10, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, time.Hour)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		exp.mu.Lock()
		n := len(exp.written)
		exp.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Run did not process pending exports on start")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
