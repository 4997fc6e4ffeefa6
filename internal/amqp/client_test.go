package amqp

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{-1, 1 * time.Second},
	}

	for _, tt := range tests {
		if got := exponentialBackoff(tt.attempt); got != tt.want {
			t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"closed", errors.New("Exception (504) Reason: \"channel/connection is not open\" connection closed"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"closed socket", errors.New("use of closed network connection"), true},
		{"other", errors.New("NOT_FOUND - no exchange"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestCircuitBreaker(t *testing.T) {
	client := &Client{url: "amqp://localhost", state: StateClosed}

	for i := 0; i < maxFailures-1; i++ {
		client.recordFailure()
	}
	if client.isCircuitOpen() {
		t.Fatal("circuit opened before reaching maxFailures")
	}

	client.recordFailure()
	if !client.isCircuitOpen() {
		t.Fatal("circuit should be open after maxFailures")
	}

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if client.isCircuitOpen() {
		t.Fatal("circuit should allow a probe after openTimeout")
	}
	if client.state != StateHalfOpen {
		t.Fatalf("state = %d, want half-open", client.state)
	}

	// A failed probe reopens immediately.
	client.recordFailure()
	if client.state != StateOpen {
		t.Fatalf("state = %d, want open after failed probe", client.state)
	}

	client.recordSuccess()
	if client.state != StateClosed || client.failureCount != 0 {
		t.Fatalf("recordSuccess left state=%d failures=%d", client.state, client.failureCount)
	}
}

func TestPublishTransactionRecorded_CircuitOpen(t *testing.T) {
	client := &Client{
		state:       StateOpen,
		lastFailure: time.Now(),
	}
	msg := NewTransactionRecorded(7, "SALE", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	err := client.PublishTransactionRecorded(context.Background(), msg)
	if !errors.Is(err, ErrCircuitOpen) || !strings.Contains(err.Error(), "circuit breaker is open") {
		t.Fatalf("expected circuit breaker error, got %v", err)
	}
}

func TestPublishTransactionRecorded_ContextCancelled(t *testing.T) {
	client := &Client{state: StateClosed}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.PublishTransactionRecorded(ctx, NewTransactionRecorded(1, "RESTOCK", time.Now()))
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTransactionRecordedJSON(t *testing.T) {
	created := time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC)
	msg := NewTransactionRecorded(42, "RETURN", created)
	if msg.Year != 2024 || msg.Month != 2 {
		t.Fatalf("period = %d-%d", msg.Year, msg.Month)
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !strings.Contains(string(data), `"id":42`) || !strings.Contains(string(data), `"type":"RETURN"`) {
		t.Fatalf("unexpected JSON: %s", data)
	}

	got, err := TransactionRecordedFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.ID != 42 || got.Type != "RETURN" || got.Month != 2 {
		t.Fatalf("decoded %+v", got)
	}

	for _, bad := range []string{`{"id":0}`, `not json`} {
		if _, err := TransactionRecordedFromJSON([]byte(bad)); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
