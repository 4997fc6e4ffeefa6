package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"stockroom/internal/core"
)

type countingFeed struct {
	calls atomic.Int64
	gate  chan struct{}
	txs   []core.Transaction
	err   error
}

func (f *countingFeed) ListTransactionsByMonth(ctx context.Context, _ int, _ int) ([]core.Transaction, error) {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.txs, f.err
}

// waitForCalls blocks until the feed has been entered n times.
func waitForCalls(t *testing.T, f *countingFeed, n int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for f.calls.Load() < n {
		if time.Now().After(deadline) {
			t.Fatalf("feed entered %d times, want %d", f.calls.Load(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func saleOn(day int, amount string) core.Transaction {
	return core.Transaction{
		Type:          core.Sale,
		TotalProducts: 1,
		TotalPrice:    decimal.RequireFromString(amount),
		CreatedAt:     time.Date(2024, 2, day, 12, 0, 0, 0, time.UTC),
	}
}

func TestDashboardService_SeriesCaches(t *testing.T) {
	feed := &countingFeed{txs: []core.Transaction{saleOn(29, "12.50")}}
	svc := NewDashboardService(feed, time.UTC, time.Minute, 8, nil)
	ctx := context.Background()

	buckets, err := svc.Series(ctx, 2024, 2)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(buckets) != 29 || buckets[28].Amount.StringFixed(2) != "12.50" {
		t.Fatalf("unexpected buckets: len=%d last=%+v", len(buckets), buckets[len(buckets)-1])
	}

	buckets[28].Count = 99
	again, _ := svc.Series(ctx, 2024, 2)
	if feed.calls.Load() != 1 {
		t.Fatalf("feed called %d times, want 1", feed.calls.Load())
	}
	if again[28].Count != 1 {
		t.Fatal("caller mutation leaked into the cache")
	}

	svc.Invalidate(2024, 2)
	if _, err := svc.Series(ctx, 2024, 2); err != nil {
		t.Fatalf("Series after invalidate: %v", err)
	}
	if feed.calls.Load() != 2 {
		t.Fatalf("feed called %d times after invalidate, want 2", feed.calls.Load())
	}
}

func TestDashboardService_ConcurrentMissesShareOneFetch(t *testing.T) {
	feed := &countingFeed{gate: make(chan struct{})}
	svc := NewDashboardService(feed, time.UTC, time.Minute, 8, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Series(context.Background(), 2024, 4); err != nil {
				t.Errorf("Series: %v", err)
			}
		}()
	}
	// Let the goroutines pile up behind the first fetch.
	time.Sleep(50 * time.Millisecond)
	close(feed.gate)
	wg.Wait()

	if n := feed.calls.Load(); n != 1 {
		t.Fatalf("feed called %d times, want 1", n)
	}
}

func TestDashboardService_CancelledCallerDoesNotFailOthers(t *testing.T) {
	feed := &countingFeed{gate: make(chan struct{}), txs: []core.Transaction{saleOn(1, "3")}}
	svc := NewDashboardService(feed, time.UTC, time.Minute, 8, nil)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := svc.Series(ctxA, 2024, 2)
		errA <- err
	}()
	waitForCalls(t, feed, 1)

	type result struct {
		buckets []core.DailyBucket
		err     error
	}
	resB := make(chan result, 1)
	go func() {
		b, err := svc.Series(context.Background(), 2024, 2)
		resB <- result{b, err}
	}()
	// Give B time to join the in-flight fetch.
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancelled caller got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting for the shared fetch")
	}

	close(feed.gate)
	select {
	case r := <-resB:
		if r.err != nil {
			t.Fatalf("joined caller failed: %v", r.err)
		}
		if r.buckets[0].Count != 1 {
			t.Fatalf("day 1 = %+v", r.buckets[0])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("joined caller never returned")
	}
	if n := feed.calls.Load(); n != 1 {
		t.Fatalf("feed called %d times, want 1", n)
	}
}

func TestDashboardService_InvalidateDuringFetch(t *testing.T) {
	feed := &countingFeed{gate: make(chan struct{})}
	svc := NewDashboardService(feed, time.UTC, time.Minute, 8, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Series(context.Background(), 2024, 2)
		done <- err
	}()
	waitForCalls(t, feed, 1)
	svc.Invalidate(2024, 2)
	close(feed.gate)
	if err := <-done; err != nil {
		t.Fatalf("Series: %v", err)
	}

	// The result predates the invalidation and must not be served.
	if _, err := svc.Series(context.Background(), 2024, 2); err != nil {
		t.Fatalf("Series: %v", err)
	}
	if n := feed.calls.Load(); n != 2 {
		t.Fatalf("feed called %d times, want 2", n)
	}
}

func TestDashboardService_InvalidateIsPerMonth(t *testing.T) {
	feed := &countingFeed{gate: make(chan struct{})}
	svc := NewDashboardService(feed, time.UTC, time.Minute, 8, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Series(context.Background(), 2024, 4)
		done <- err
	}()
	waitForCalls(t, feed, 1)
	svc.Invalidate(2024, 5)
	close(feed.gate)
	if err := <-done; err != nil {
		t.Fatalf("Series: %v", err)
	}

	if _, err := svc.Series(context.Background(), 2024, 4); err != nil {
		t.Fatalf("Series: %v", err)
	}
	if n := feed.calls.Load(); n != 1 {
		t.Fatalf("feed called %d times, want 1: another month's invalidation blocked caching", n)
	}
}

func TestDashboardService_Errors(t *testing.T) {
	feed := &countingFeed{err: errors.New("upstream down")}
	svc := NewDashboardService(feed, time.UTC, time.Minute, 8, nil)

	if _, err := svc.Series(context.Background(), 2024, 0); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("invalid month: %v", err)
	}
	if feed.calls.Load() != 0 {
		t.Fatal("feed called for an invalid period")
	}
	if _, err := svc.Series(context.Background(), 2024, 5); err == nil {
		t.Fatal("expected feed error")
	}
	if _, err := svc.Series(context.Background(), 2024, 5); err == nil || feed.calls.Load() != 2 {
		t.Fatal("errors must not be cached")
	}
}

func TestDashboardService_ZeroTTLDisablesCache(t *testing.T) {
	feed := &countingFeed{}
	svc := NewDashboardService(feed, time.UTC, 0, 8, nil)
	svc.Series(context.Background(), 2024, 1)
	svc.Series(context.Background(), 2024, 1)
	if feed.calls.Load() != 2 {
		t.Fatalf("feed called %d times, want 2", feed.calls.Load())
	}
}

func TestDashboardService_AggregateRawAndPeriod(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	svc := NewDashboardService(&countingFeed{}, rome, time.Minute, 8, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 31, 23, 30, 0, 0, time.UTC) }
	if y, m := svc.CurrentPeriod(); y != 2024 || m != 4 {
		t.Fatalf("CurrentPeriod = %d-%d, want 2024-4 in Rome", y, m)
	}

	raw, err := core.DecodeRawTransactions([]byte(`[
		{"transactionType":"SALE","totalProducts":2,"totalPrice":"10","createdAt":"2024-04-01 00:30:00"},
		{"type":"PURCHASE","quantity":5,"totalPrice":4,"transactionDate":"2024-04-01T08:00:00"},
		{"transactionType":"RETURN_TO_SUPPLIER","totalProducts":1,"totalPrice":3,"createdAt":"2024-04-02"}
	]`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	buckets, err := svc.AggregateRaw(raw, 2024, 4)
	if err != nil {
		t.Fatalf("AggregateRaw: %v", err)
	}
	if len(buckets) != 30 {
		t.Fatalf("len = %d", len(buckets))
	}
	day1 := buckets[0]
	if day1.Count != 2 || day1.Quantity != 7 || day1.Amount.StringFixed(2) != "6.00" {
		t.Fatalf("day 1 = %+v", day1)
	}
	if buckets[1].Count != 0 {
		t.Fatalf("return counted: %+v", buckets[1])
	}
}
