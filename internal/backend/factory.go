package backend

import (
	"context"
	"errors"
	"fmt"

	"stockroom/internal/amqp"
	"stockroom/internal/feed"
	applog "stockroom/internal/log"
	"stockroom/internal/ports"
	"stockroom/internal/storage"
	"stockroom/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		res, err = f.createMemoryBackend(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	res.Feed = res.Store
	if config.FeedBaseURL != "" {
		res.Feed = feed.NewClient(config.FeedBaseURL, config.FeedToken, config.FeedTimeout, config.Location)
		f.logger.InfoContext(ctx, "Dashboard reads the remote transaction feed", "feed_url", config.FeedBaseURL)
	}
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, storage.WithLocation(config.Location))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	res := &Result{Store: repo}

	// AMQP is optional; the export worker catches up from the database.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without export messages", applog.FieldError, err)
		} else {
			res.Publisher = amqpClient
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}
	res.Cleanup = closeAll(amqpClient, repo)

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", res.Publisher != nil)
	return res, nil
}

func (f *DefaultFactory) createMemoryBackend(ctx context.Context, config Config) (*Result, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data"
	}
	store := memory.NewFromFiles(dataDir, memory.WithLocation(config.Location))
	if config.AMQPURL != "" {
		f.logger.WarnContext(ctx, "AMQP is ignored by the memory backend", "amqp_url_set", true)
	}

	f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dataDir)
	return &Result{Store: store, Cleanup: store.Close}, nil
}

// closeAll closes the AMQP client, then the store.
func closeAll(client *amqp.Client, store ports.Store) CleanupFunc {
	return func() error {
		var errs []error
		if client != nil {
			errs = append(errs, client.Close())
		}
		errs = append(errs, store.Close())
		return errors.Join(errs...)
	}
}
