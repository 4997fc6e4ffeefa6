package backend

import (
	"context"
	"time"

	"stockroom/internal/ports"
	"stockroom/internal/services"
)

// CleanupFunc releases the resources held by a backend.
type CleanupFunc func() error

// Result bundles the wired storage, the dashboard feed and the optional
// transaction publisher.
type Result struct {
	Store ports.Store
	// Feed is the remote feed client when one is configured, otherwise
	// Store.
	Feed ports.TransactionFeed
	// Publisher is nil when AMQP is not configured.
	Publisher services.TransactionPublisher
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type BackendType

	// Location is where stored timestamps and month boundaries are read.
	Location *time.Location

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory specific
	DataDirectory string

	// Remote feed; empty FeedBaseURL means the store is the feed
	FeedBaseURL string
	FeedToken   string
	FeedTimeout time.Duration
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
