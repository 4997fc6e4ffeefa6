package core

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func at(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 10, 30, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		month, year int
		want        int
	}{
		{1, 2024, 31},
		{2, 2024, 29},
		{2, 2023, 28},
		{2, 1900, 28},
		{2, 2000, 29},
		{4, 2025, 30},
		{12, 9999, 31},
	}
	for _, tc := range cases {
		got, err := DaysInMonth(tc.month, tc.year)
		if err != nil {
			t.Fatalf("DaysInMonth(%d, %d) error: %v", tc.month, tc.year, err)
		}
		if got != tc.want {
			t.Errorf("DaysInMonth(%d, %d) = %d, want %d", tc.month, tc.year, got, tc.want)
		}
	}
}

func TestAggregateEmptyIsComplete(t *testing.T) {
	for _, tc := range []struct {
		month, year, days int
	}{
		{2, 2024, 29},
		{2, 2023, 28},
		{1, 2025, 31},
		{11, 2025, 30},
	} {
		for _, input := range [][]Transaction{nil, {}} {
			buckets, err := Aggregate(input, tc.month, tc.year)
			if err != nil {
				t.Fatalf("Aggregate(%d/%d) error: %v", tc.month, tc.year, err)
			}
			if len(buckets) != tc.days {
				t.Fatalf("Aggregate(%d/%d) returned %d buckets, want %d", tc.month, tc.year, len(buckets), tc.days)
			}
			for i, b := range buckets {
				if b.Day != i+1 {
					t.Fatalf("bucket %d has day %d", i, b.Day)
				}
				if b.Count != 0 || b.Quantity != 0 || !b.Amount.IsZero() {
					t.Fatalf("bucket %d not zero: %+v", i, b)
				}
			}
		}
	}
}

func TestAggregateFiltersOtherMonths(t *testing.T) {
	txs := []Transaction{
		{Type: Sale, TotalPrice: dec("10"), TotalProducts: 1, CreatedAt: at(2024, 3, 5)},
		{Type: Sale, TotalPrice: dec("10"), TotalProducts: 1, CreatedAt: at(2023, 2, 5)},
	}
	buckets, err := Aggregate(txs, 2, 2024)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	total := Totals(buckets)
	if total.Count != 0 || total.Quantity != 0 || !total.Amount.IsZero() {
		t.Fatalf("expected nothing counted, got %+v", total)
	}
}

func TestAggregateExcludesReturns(t *testing.T) {
	txs := []Transaction{
		{Type: ReturnToSupplier, TotalPrice: dec("100"), TotalProducts: 4, CreatedAt: at(2024, 2, 12)},
	}
	buckets, err := Aggregate(txs, 2, 2024)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	b := buckets[11]
	if b.Count != 0 || b.Quantity != 0 || !b.Amount.IsZero() {
		t.Fatalf("return to supplier leaked into bucket: %+v", b)
	}
}

func TestAggregateSignConvention(t *testing.T) {
	cases := []struct {
		name string
		tx   Transaction
		want decimal.Decimal
	}{
		{"sale is inflow", Transaction{Type: Sale, TotalPrice: dec("50")}, dec("50")},
		{"purchase is outflow", Transaction{Type: Purchase, TotalPrice: dec("30")}, dec("-30")},
		{"unknown type is outflow", Transaction{Type: "ADJUSTMENT", TotalPrice: dec("7.25")}, dec("-7.25")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tx := tc.tx
			tx.CreatedAt = at(2024, 5, 10)
			buckets, err := Aggregate([]Transaction{tx}, 5, 2024)
			if err != nil {
				t.Fatalf("Aggregate error: %v", err)
			}
			b := buckets[9]
			if b.Count != 1 {
				t.Fatalf("count = %d, want 1", b.Count)
			}
			if !b.Amount.Equal(tc.want) {
				t.Fatalf("amount = %s, want %s", b.Amount, tc.want)
			}
		})
	}
}

func TestAggregateAccumulatesSameDay(t *testing.T) {
	txs := []Transaction{
		{Type: Sale, TotalPrice: dec("20"), TotalProducts: 3, CreatedAt: at(2024, 6, 7)},
		{Type: Purchase, TotalPrice: dec("5"), TotalProducts: 1, CreatedAt: at(2024, 6, 7)},
	}
	buckets, err := Aggregate(txs, 6, 2024)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	b := buckets[6]
	if b.Day != 7 || b.Count != 2 || b.Quantity != 4 || !b.Amount.Equal(dec("15")) {
		t.Fatalf("bucket 7 = %+v, want {7 2 4 15}", b)
	}
}

func TestAggregateMissingFieldsStillCount(t *testing.T) {
	raw := []RawTransaction{{TransactionType: "SALE", CreatedAt: "2024-06-03T08:00:00"}}
	txs := NormalizeAll(raw, time.UTC)
	buckets, err := Aggregate(txs, 6, 2024)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	b := buckets[2]
	if b.Count != 1 || b.Quantity != 0 || !b.Amount.IsZero() {
		t.Fatalf("bucket 3 = %+v, want count 1 and zero totals", b)
	}
}

func TestAggregateZeroValuesStillCount(t *testing.T) {
	txs := []Transaction{{Type: Purchase, TotalPrice: decimal.Zero, CreatedAt: at(2024, 1, 1)}}
	buckets, err := Aggregate(txs, 1, 2024)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if buckets[0].Count != 1 {
		t.Fatalf("zero-valued transaction not counted: %+v", buckets[0])
	}
}

func TestAggregateSkipsUnresolvedTimestamp(t *testing.T) {
	txs := []Transaction{{Type: Sale, TotalPrice: dec("9"), TotalProducts: 2}}
	buckets, err := Aggregate(txs, 1, 2024)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if total := Totals(buckets); total.Count != 0 {
		t.Fatalf("transaction without timestamp counted: %+v", total)
	}
}

func TestAggregateIsIdempotentAndPure(t *testing.T) {
	txs := []Transaction{
		{Type: Sale, TotalPrice: dec("12.50"), TotalProducts: 2, CreatedAt: at(2024, 8, 1)},
		{Type: Purchase, TotalPrice: dec("3.10"), TotalProducts: 5, CreatedAt: at(2024, 8, 31)},
		{Type: ReturnToSupplier, TotalPrice: dec("1"), TotalProducts: 1, CreatedAt: at(2024, 8, 15)},
	}
	snapshot := make([]Transaction, len(txs))
	copy(snapshot, txs)

	first, err := Aggregate(txs, 8, 2024)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	second, err := Aggregate(txs, 8, 2024)
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated calls differ")
	}
	if !reflect.DeepEqual(txs, snapshot) {
		t.Fatalf("input was mutated")
	}

	first[0].Count = 99
	third, _ := Aggregate(txs, 8, 2024)
	if third[0].Count != 1 {
		t.Fatalf("result shares state between calls")
	}
}

func TestAggregateConcurrentCalls(t *testing.T) {
	txs := []Transaction{
		{Type: Sale, TotalPrice: dec("1"), TotalProducts: 1, CreatedAt: at(2024, 9, 9)},
	}
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buckets, err := Aggregate(txs, 9, 2024)
			if err != nil || buckets[8].Count != 1 {
				t.Errorf("concurrent Aggregate = %+v, %v", buckets[8], err)
			}
		}()
	}
	wg.Wait()
}

func TestAggregateInvalidPeriod(t *testing.T) {
	txs := []Transaction{{Type: Sale, TotalPrice: dec("1"), CreatedAt: at(2024, 1, 1)}}
	cases := []struct {
		month, year int
		want        error
	}{
		{13, 2024, ErrInvalidMonth},
		{0, 2024, ErrInvalidMonth},
		{-1, 2024, ErrInvalidMonth},
		{1, 999, ErrInvalidYear},
		{1, 10000, ErrInvalidYear},
	}
	for _, tc := range cases {
		buckets, err := Aggregate(txs, tc.month, tc.year)
		if !errors.Is(err, tc.want) {
			t.Fatalf("Aggregate(%d, %d) error = %v, want %v", tc.month, tc.year, err, tc.want)
		}
		if !errors.Is(err, ErrInvalidPeriod) || !errors.Is(err, ErrInvalid) {
			t.Fatalf("Aggregate(%d, %d) error %v does not wrap ErrInvalidPeriod", tc.month, tc.year, err)
		}
		if buckets != nil {
			t.Fatalf("Aggregate(%d, %d) returned a partial series", tc.month, tc.year)
		}
	}
}

func TestAggregateUsesTimestampLocation(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 23:30 UTC on the 31st is already the 1st of the next month in Rome.
	raw := []RawTransaction{{TransactionType: "SALE", CreatedAt: "2024-01-31T23:30:00Z", TotalPrice: LenientDecimal{dec("4")}}}

	utc, _ := Aggregate(NormalizeAll(raw, time.UTC), 1, 2024)
	if utc[30].Count != 1 {
		t.Fatalf("UTC reading should land on Jan 31")
	}
	local, _ := Aggregate(NormalizeAll(raw, rome), 2, 2024)
	if local[0].Count != 1 {
		t.Fatalf("Rome reading should land on Feb 1")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		tx   Transaction
		want Classification
	}{
		{"counted", Transaction{Type: Sale, CreatedAt: at(2024, 4, 2)}, Counted},
		{"excluded", Transaction{Type: ReturnToSupplier, CreatedAt: at(2024, 4, 2)}, Excluded},
		{"excluded without date", Transaction{Type: ReturnToSupplier}, Excluded},
		{"unresolved", Transaction{Type: Sale}, Unresolved},
		{"other month", Transaction{Type: Sale, CreatedAt: at(2024, 5, 2)}, OutOfRange},
		{"other year", Transaction{Type: Sale, CreatedAt: at(2023, 4, 2)}, OutOfRange},
	}
	for _, tc := range cases {
		if got := Classify(tc.tx, 4, 2024); got != tc.want {
			t.Errorf("%s: Classify = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestTotals(t *testing.T) {
	buckets := []DailyBucket{
		{Day: 1, Count: 2, Quantity: 3, Amount: dec("10")},
		{Day: 2, Count: 1, Quantity: 1, Amount: dec("-4.5")},
	}
	got := Totals(buckets)
	if got.Count != 3 || got.Quantity != 4 || !got.Amount.Equal(dec("5.5")) {
		t.Fatalf("Totals = %+v", got)
	}
}
