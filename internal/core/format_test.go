package core

import (
	"errors"
	"testing"
)

func TestFormatTick(t *testing.T) {
	cases := []struct {
		value  string
		metric Metric
		want   string
	}{
		{"1234.4", MetricAmount, "$1,234"},
		{"1234.5", MetricAmount, "$1,235"},
		{"-15", MetricAmount, "$-15"},
		{"-2.5", MetricAmount, "$-2"},
		{"0", MetricAmount, "$0"},
		{"1000000", MetricCount, "1,000,000"},
		{"12", MetricQuantity, "12"},
		{"1.25", MetricQuantity, "1.25"},
	}
	for _, tc := range cases {
		if got := FormatTick(dec(tc.value), tc.metric); got != tc.want {
			t.Errorf("FormatTick(%s, %s) = %q, want %q", tc.value, tc.metric, got, tc.want)
		}
	}
}

func TestFormatTooltip(t *testing.T) {
	cases := []struct {
		value  string
		metric Metric
		want   string
	}{
		{"15", MetricAmount, "$15.00"},
		{"1234.567", MetricAmount, "$1234.57"},
		{"-30", MetricAmount, "$-30.00"},
		{"3", MetricCount, "3 Transactions"},
		{"1500", MetricQuantity, "1,500 Items"},
	}
	for _, tc := range cases {
		if got := FormatTooltip(dec(tc.value), tc.metric); got != tc.want {
			t.Errorf("FormatTooltip(%s, %s) = %q, want %q", tc.value, tc.metric, got, tc.want)
		}
	}
}

func TestParseMetric(t *testing.T) {
	for _, in := range []string{"count", "QUANTITY", " amount "} {
		if _, err := ParseMetric(in); err != nil {
			t.Errorf("ParseMetric(%q) error: %v", in, err)
		}
	}
	if _, err := ParseMetric("revenue"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("ParseMetric(revenue) error = %v, want ErrInvalid", err)
	}
}

func TestMetricsOrderAndDetails(t *testing.T) {
	ms := Metrics()
	if len(ms) != 3 || ms[0].Metric != MetricCount || ms[2].Metric != MetricAmount {
		t.Fatalf("unexpected metric order: %+v", ms)
	}
	if MetricAmount.Details().Title != "Daily Sales (USD)" {
		t.Fatalf("amount title = %q", MetricAmount.Details().Title)
	}
}

func TestBucketValue(t *testing.T) {
	b := DailyBucket{Day: 3, Count: 2, Quantity: 7, Amount: dec("-4.5")}
	if !b.Value(MetricCount).Equal(dec("2")) {
		t.Errorf("count value = %s", b.Value(MetricCount))
	}
	if !b.Value(MetricQuantity).Equal(dec("7")) {
		t.Errorf("quantity value = %s", b.Value(MetricQuantity))
	}
	if !b.Value(MetricAmount).Equal(dec("-4.5")) {
		t.Errorf("amount value = %s", b.Value(MetricAmount))
	}
}
