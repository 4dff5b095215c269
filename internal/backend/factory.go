package backend

import (
	"context"
	"fmt"

	"billed/internal/amqp"
	"billed/internal/config"
	"billed/internal/log"
	"billed/internal/proofs"
	"billed/internal/services"
	"billed/internal/storage"
	"billed/internal/store/api"
	"billed/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentApp)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, cfg)
	case APIBackend:
		return f.createAPIBackend(cfg)
	case MemoryBackend:
		return f.createMemoryBackend(cfg)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	proofStorage, err := f.createProofStorage(ctx, cfg)
	if err != nil {
		repo.Close()
		return nil, err
	}

	// AMQP is optional; the worker's catch-up exports bills without it.
	var publisher services.SyncPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync",
				log.FieldError, err)
		} else {
			publisher = client
			f.logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	svc := services.NewBillService(repo, proofStorage, publisher)

	f.logger.Info("Initialized SQLite backend",
		"db_path", cfg.SQLiteDBPath,
		"proof_storage", cfg.ProofStorage,
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Type:     SQLiteBackend,
		Resource: svc,
		Proofs:   svc,
		Ready:    repo.Ping,
		Cleanup:  svc.Close,
	}, nil
}

func (f *DefaultFactory) createProofStorage(ctx context.Context, cfg Config) (proofs.Storage, error) {
	switch cfg.ProofStorage {
	case config.ProofStorageS3:
		s3, err := proofs.NewS3(ctx, cfg.S3, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 proof storage: %w", err)
		}
		return s3, nil
	default:
		local, err := proofs.NewLocal(cfg.ProofDir, cfg.ProofBaseURL, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local proof storage: %w", err)
		}
		return local, nil
	}
}

func (f *DefaultFactory) createAPIBackend(cfg Config) (*BackendResult, error) {
	client, err := api.New(cfg.StoreAPIURL, cfg.StoreAPITimeout, api.WithLogger(f.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store API client: %w", err)
	}

	f.logger.Info("Initialized store API backend", "url", cfg.StoreAPIURL)

	return &BackendResult{
		Type:     APIBackend,
		Resource: client,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(cfg Config) (*BackendResult, error) {
	st := memory.New()
	if cfg.Seed {
		st = memory.NewSeeded()
	}

	f.logger.Info("Initialized memory backend", "seeded", cfg.Seed)

	return &BackendResult{
		Type:     MemoryBackend,
		Resource: st,
	}, nil
}
