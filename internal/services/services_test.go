package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockroom/internal/amqp"
	"stockroom/internal/core"
	"stockroom/internal/storage/memory"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func newStore() *memory.Store {
	return memory.New([]string{"General"}, memory.WithClock(func() time.Time { return fixedNow }))
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []*amqp.TransactionRecorded
	err  error
}

func (f *fakePublisher) PublishTransactionRecorded(_ context.Context, msg *amqp.TransactionRecorded) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

type fakeInvalidator struct {
	calls [][2]int
}

func (f *fakeInvalidator) Invalidate(year, month int) {
	f.calls = append(f.calls, [2]int{year, month})
}

// seedCatalog adds one supplier and one product priced 2.50 with stock 10.
func seedCatalog(t *testing.T, store *memory.Store) (core.Supplier, core.Product) {
	t.Helper()
	ctx := context.Background()
	sup, err := store.CreateSupplier(ctx, core.Supplier{Name: "Acme", ContactInfo: "acme@example.com", Address: "1 Road"})
	if err != nil {
		t.Fatalf("seed supplier: %v", err)
	}
	p, err := store.CreateProduct(ctx, core.Product{
		Name: "Widget", SKU: "W-1", Price: decimal.RequireFromString("2.50"), StockQuantity: 10, CategoryID: 1,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return sup, p
}
