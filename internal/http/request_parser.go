// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// path ids, paging and period query parameters, and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"stockroom/internal/core"
)

const maxBodyBytes = 1 << 20

// errBadBody marks a request body that could not be decoded.
var errBadBody = fmt.Errorf("%w: malformed request body", core.ErrInvalid)

// Amount is a price field that accepts a JSON number or a string using
// either decimal separator ("2.50", "2,50"). Negative values are rejected.
type Amount struct {
	decimal.Decimal
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	d, err := core.ParseAmount(raw)
	if err != nil {
		return fmt.Errorf("%w: %q", err, raw)
	}
	a.Decimal = d
	return nil
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, falling
// back to the given defaults when a parameter is absent. A present but
// non-numeric value is an invalid period.
func ParseMonthParams(query url.Values, defYear, defMonth int) (MonthParams, error) {
	params := MonthParams{Year: defYear, Month: defMonth}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, fmt.Errorf("year %q: %w", v, core.ErrInvalidYear)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return MonthParams{}, fmt.Errorf("month %q: %w", v, core.ErrInvalidMonth)
		}
		params.Month = m
	}
	return params, nil
}

// RequireMonthParams is ParseMonthParams without defaults: both parameters
// must be present.
func RequireMonthParams(query url.Values) (MonthParams, error) {
	if strings.TrimSpace(query.Get("month")) == "" {
		return MonthParams{}, fmt.Errorf("month is required: %w", core.ErrInvalidMonth)
	}
	if strings.TrimSpace(query.Get("year")) == "" {
		return MonthParams{}, fmt.Errorf("year is required: %w", core.ErrInvalidYear)
	}
	return ParseMonthParams(query, 0, 0)
}

// QueryInt reads an optional integer query parameter.
func QueryInt(query url.Values, key string, def int) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", core.ErrInvalid, key)
	}
	return n, nil
}

// PathID parses a positive int64 chi URL parameter.
func PathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: invalid %s %q", core.ErrInvalid, name, raw)
	}
	return id, nil
}

// DecodeJSON reads a bounded JSON body into v. Unknown fields are ignored so
// older clients keep working.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body: %w", errBadBody)
		}
		return fmt.Errorf("%v: %w", err, errBadBody)
	}
	return nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
