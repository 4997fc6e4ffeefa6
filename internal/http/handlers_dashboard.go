package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"stockroom/internal/core"
	applog "stockroom/internal/log"
)

const seriesTimeout = 7 * time.Second

type seriesPoint struct {
	Day      int         `json:"day"`
	Count    int         `json:"count"`
	Quantity int         `json:"quantity"`
	Amount   json.Number `json:"amount"`
	Value    json.Number `json:"value"`
	Tick     string      `json:"tick"`
	Tooltip  string      `json:"tooltip"`
}

type seriesTotals struct {
	Count    int         `json:"count"`
	Quantity int         `json:"quantity"`
	Amount   json.Number `json:"amount"`
	Tooltip  string      `json:"tooltip"`
}

// Month and year are pointers so an explicit zero is rejected instead of
// defaulted.
type seriesFeedRequest struct {
	Month        *int                 `json:"month"`
	Year         *int                 `json:"year"`
	Metric       string               `json:"metric"`
	Transactions core.RawTransactions `json:"transactions"`
}

func parseMetric(raw string) (core.Metric, error) {
	if strings.TrimSpace(raw) == "" {
		return core.MetricAmount, nil
	}
	return core.ParseMetric(raw)
}

// writeSeries renders a series in the chart contract shape.
func writeSeries(w http.ResponseWriter, year, month int, metric core.Metric, buckets []core.DailyBucket) {
	points := make([]seriesPoint, 0, len(buckets))
	for _, b := range buckets {
		v := b.Value(metric)
		points = append(points, seriesPoint{
			Day:      b.Day,
			Count:    b.Count,
			Quantity: b.Quantity,
			Amount:   number(b.Amount),
			Value:    number(v),
			Tick:     core.FormatTick(v, metric),
			Tooltip:  core.FormatTooltip(v, metric),
		})
	}
	total := core.Totals(buckets)

	NewResponse().
		With("month", month).
		With("year", year).
		With("days", len(buckets)).
		With("metric", metric).
		With("details", metric.Details()).
		With("points", points).
		With("totals", seriesTotals{
			Count:    total.Count,
			Quantity: total.Quantity,
			Amount:   number(total.Amount),
			Tooltip:  core.FormatTooltip(total.Value(metric), metric),
		}).
		Write(w)
}

func (s *Server) handleDashboardMetrics(w http.ResponseWriter, r *http.Request) {
	NewResponse().With("metrics", core.Metrics()).Write(w)
}

// handleSeries serves the daily series of a month from the transaction
// feed. Month and year default to the current period.
func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), seriesTimeout)
	defer cancel()
	r = r.WithContext(ctx)

	q := r.URL.Query()
	defYear, defMonth := s.dashboard.CurrentPeriod()
	p, err := ParseMonthParams(q, defYear, defMonth)
	if err != nil {
		writeError(w, r, applog.OpSeries, err)
		return
	}
	metric, err := parseMetric(q.Get("metric"))
	if err != nil {
		writeError(w, r, applog.OpSeries, err)
		return
	}

	buckets, err := s.dashboard.Series(ctx, p.Year, p.Month)
	if err != nil {
		writeError(w, r, applog.OpSeries, err)
		return
	}
	writeSeries(w, p.Year, p.Month, metric, buckets)
}

// handleSeriesFromFeed aggregates transactions supplied in the request body.
func (s *Server) handleSeriesFromFeed(w http.ResponseWriter, r *http.Request) {
	var req seriesFeedRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpSeries, err)
		return
	}
	year, month := s.dashboard.CurrentPeriod()
	if req.Year != nil {
		year = *req.Year
	}
	if req.Month != nil {
		month = *req.Month
	}
	metric, err := parseMetric(req.Metric)
	if err != nil {
		writeError(w, r, applog.OpSeries, err)
		return
	}

	buckets, err := s.dashboard.AggregateRaw(req.Transactions, year, month)
	if err != nil {
		writeError(w, r, applog.OpSeries, err)
		return
	}
	writeSeries(w, year, month, metric, buckets)
}
