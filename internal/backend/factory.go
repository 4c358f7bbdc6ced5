package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"rekrutacje/internal/amqp"
	"rekrutacje/internal/localstore"
	"rekrutacje/internal/records/memory"
	"rekrutacje/internal/storage"
)

// Factory opens stores. The zero value is not usable; call NewFactory.
type Factory struct {
	logger *slog.Logger
	// dialAMQP is replaced in tests.
	dialAMQP func(url, exchange, queue string) (*amqp.Client, error)
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{
		logger:   logger.With("component", "backend"),
		dialAMQP: amqp.NewClient,
	}
}

// CreateBackend validates config, opens the selected store and, when a
// broker URL is set, attaches a publisher. The context is reserved for
// stores that dial out on open.
func (f *Factory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	open := map[BackendType]func(Config) (*BackendResult, error){
		SQLiteBackend: f.openSQLite,
		LocalBackend:  f.openLocal,
		MemoryBackend: f.openMemory,
	}[config.Type]
	result, err := open(config)
	if err != nil {
		return nil, err
	}

	f.attachPublisher(result, config)
	return result, nil
}

func (f *Factory) openSQLite(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{
		Store:   repo,
		Pinger:  repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *Factory) openLocal(config Config) (*BackendResult, error) {
	repo, err := localstore.Open(config.LocalStorePath)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	f.logger.Info("Initialized local store backend", "path", config.LocalStorePath)
	return &BackendResult{Store: repo}, nil
}

func (f *Factory) openMemory(config Config) (*BackendResult, error) {
	store := memory.New(nil)
	if config.SeedFile != "" {
		seeded, err := memory.NewFromFile(config.SeedFile)
		if err != nil {
			return nil, fmt.Errorf("seed memory store: %w", err)
		}
		store = seeded
	}

	f.logger.Info("Initialized memory backend", "seed_file", config.SeedFile)
	return &BackendResult{Store: store}, nil
}

// attachPublisher connects to AMQP when configured. A broker that cannot be
// reached degrades to no event publishing.
func (f *Factory) attachPublisher(result *BackendResult, config Config) {
	if config.AMQPURL == "" {
		return
	}

	client, err := f.dialAMQP(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.Publisher = client
	storeCleanup := result.Cleanup
	result.Cleanup = func() error {
		var errs []error
		if storeCleanup != nil {
			if err := storeCleanup(); err != nil {
				errs = append(errs, fmt.Errorf("store: %w", err))
			}
		}
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
		return errors.Join(errs...)
	}
}
