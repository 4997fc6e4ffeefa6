package core

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Metric selects which bucket field a chart plots.
type Metric string

const (
	MetricCount    Metric = "count"
	MetricQuantity Metric = "quantity"
	MetricAmount   Metric = "amount"
)

type MetricDetails struct {
	Metric   Metric `json:"metric"`
	Label    string `json:"label"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Unit     string `json:"unit"`
}

var metricDetails = map[Metric]MetricDetails{
	MetricCount: {
		Metric:   MetricCount,
		Label:    "Daily Transaction Volume",
		Title:    "Records (units)",
		Subtitle: "Calculates counts of purchase and sale records created each day.",
		Unit:     " Transactions",
	},
	MetricQuantity: {
		Metric:   MetricQuantity,
		Label:    "Daily Unit Movement",
		Title:    "Product Volume (units)",
		Subtitle: "Calculates total number of items moved (in and out) each day.",
		Unit:     " Items",
	},
	MetricAmount: {
		Metric:   MetricAmount,
		Label:    "Net Daily Sales Value",
		Title:    "Daily Sales (USD)",
		Subtitle: "Calculates daily net currency aggregated from transactions.",
		Unit:     "$",
	},
}

// Metrics lists the chartable metrics in display order.
func Metrics() []MetricDetails {
	return []MetricDetails{
		metricDetails[MetricCount],
		metricDetails[MetricQuantity],
		metricDetails[MetricAmount],
	}
}

func ParseMetric(s string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := metricDetails[m]; !ok {
		return "", fmt.Errorf("%w: unknown metric %q", ErrInvalid, s)
	}
	return m, nil
}

func (m Metric) Details() MetricDetails {
	return metricDetails[m]
}

// Value returns the bucket field plotted for m.
func (b DailyBucket) Value(m Metric) decimal.Decimal {
	switch m {
	case MetricCount:
		return decimal.NewFromInt(int64(b.Count))
	case MetricQuantity:
		return decimal.NewFromInt(int64(b.Quantity))
	default:
		return b.Amount
	}
}

// FormatTick renders an axis label. Amounts become whole dollars, rounded
// half up, with thousands separators.
func FormatTick(value decimal.Decimal, m Metric) string {
	if m == MetricAmount {
		return "$" + humanize.Comma(roundHalfUp(value))
	}
	return groupNumber(value)
}

// FormatTooltip renders a hovered value. Amounts keep two decimals; counts
// and quantities carry their unit suffix.
func FormatTooltip(value decimal.Decimal, m Metric) string {
	if m == MetricAmount {
		return "$" + value.StringFixed(2)
	}
	return groupNumber(value) + m.Details().Unit
}

func roundHalfUp(d decimal.Decimal) int64 {
	return d.Add(decimal.NewFromFloat(0.5)).Floor().IntPart()
}

// groupNumber mirrors en-US locale output: grouped integer part and at most
// three fraction digits.
func groupNumber(d decimal.Decimal) string {
	if d.IsInteger() {
		return humanize.Comma(d.IntPart())
	}
	f, _ := d.Round(3).Float64()
	return humanize.CommafWithDigits(f, 3)
}
