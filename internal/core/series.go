package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyBucket holds one calendar day's aggregated movements.
type DailyBucket struct {
	Day      int
	Count    int
	Quantity int
	Amount   decimal.Decimal
}

// Classification describes how a transaction relates to a reporting period.
type Classification int

const (
	Counted Classification = iota
	Excluded
	Unresolved
	OutOfRange
)

func (c Classification) String() string {
	switch c {
	case Counted:
		return "counted"
	case Excluded:
		return "excluded"
	case Unresolved:
		return "unresolved"
	case OutOfRange:
		return "out_of_range"
	default:
		return "unknown"
	}
}

// ValidatePeriod reports whether (month, year) names a Gregorian month with a
// four-digit year.
func ValidatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	if year < 1000 || year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// DaysInMonth returns the number of days in the given month, leap years
// included.
func DaysInMonth(month, year int) (int, error) {
	if err := ValidatePeriod(month, year); err != nil {
		return 0, err
	}
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day(), nil
}

// Classify decides whether tx takes part in the series for (month, year). The
// calendar date is read in the timestamp's own location.
func Classify(tx Transaction, month, year int) Classification {
	if tx.Type == ReturnToSupplier {
		return Excluded
	}
	if tx.CreatedAt.IsZero() {
		return Unresolved
	}
	if int(tx.CreatedAt.Month()) != month || tx.CreatedAt.Year() != year {
		return OutOfRange
	}
	return Counted
}

// Aggregate buckets txs by calendar day for the given month. The result always
// has one bucket per day of the month in ascending order. Malformed or
// foreign transactions are skipped; only an invalid period is an error.
func Aggregate(txs []Transaction, month, year int) ([]DailyBucket, error) {
	days, err := DaysInMonth(month, year)
	if err != nil {
		return nil, err
	}

	buckets := make([]DailyBucket, days)
	for i := range buckets {
		buckets[i] = DailyBucket{Day: i + 1, Amount: decimal.Zero}
	}

	for _, tx := range txs {
		if Classify(tx, month, year) != Counted {
			continue
		}
		b := &buckets[tx.CreatedAt.Day()-1]
		b.Count++
		b.Quantity += tx.TotalProducts
		b.Amount = b.Amount.Add(tx.SignedAmount())
	}

	return buckets, nil
}

// Totals folds a series into a single bucket with Day set to 0.
func Totals(buckets []DailyBucket) DailyBucket {
	total := DailyBucket{Amount: decimal.Zero}
	for _, b := range buckets {
		total.Count += b.Count
		total.Quantity += b.Quantity
		total.Amount = total.Amount.Add(b.Amount)
	}
	return total
}
