// Package feed reads monthly transaction lists from an upstream inventory
// API and normalises them into core transactions.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockroom/internal/core"
	"stockroom/internal/ports"
)

const maxBodyBytes = 10 << 20

type Client struct {
	baseURL    string
	token      string
	loc        *time.Location
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.TransactionFeed = (*Client)(nil)

// NewClient builds a feed client. Zone-less upstream timestamps are read in
// loc; a zero timeout falls back to ten seconds.
func NewClient(baseURL, token string, timeout time.Duration, loc *time.Location) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		loc:        loc,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default().With("component", "feed"),
	}
}

type envelope struct {
	Status       int             `json:"status"`
	Message      string          `json:"message"`
	Transactions json.RawMessage `json:"transactions"`
}

// Fetch returns the raw upstream records for one month, before
// normalisation.
func (c *Client) Fetch(ctx context.Context, year, month int) ([]core.RawTransaction, error) {
	if err := core.ValidatePeriod(month, year); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("month", strconv.Itoa(month))
	q.Set("year", strconv.Itoa(year))
	endpoint := c.baseURL + "/transactions/by-month-year?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode feed envelope: %w", err)
	}
	if len(env.Transactions) == 0 || string(env.Transactions) == "null" {
		return nil, nil
	}
	raw, err := core.DecodeRawTransactions(env.Transactions)
	if err != nil {
		return nil, fmt.Errorf("decode feed transactions: %w", err)
	}

	c.logger.DebugContext(ctx, "Fetched upstream transactions",
		"year", year, "month", month, "count", len(raw), "duration", time.Since(start))
	return raw, nil
}

func (c *Client) ListTransactionsByMonth(ctx context.Context, year int, month int) ([]core.Transaction, error) {
	raw, err := c.Fetch(ctx, year, month)
	if err != nil {
		return nil, err
	}
	return core.NormalizeAll(raw, c.loc), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
