package backend

import (
	"context"
	"fmt"

	"smartfin/internal/log"
	"smartfin/internal/session"
	"smartfin/internal/storage"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

func (f *DefaultFactory) CreateSessionStore(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteStore(ctx, config)
	case MemoryBackend:
		return f.createMemoryStore(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteStore(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSessionRepository(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite session store: %w", err)
	}
	store := session.NewSQLiteStore(repo)

	f.logger.InfoContext(ctx, "Initialized SQLite session store", "db_path", config.SQLiteDBPath)

	return &Result{
		Store:   store,
		Cleaner: store,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryStore(ctx context.Context, config Config) (*Result, error) {
	maxSessions := config.MaxSessions
	if maxSessions == 0 {
		maxSessions = defaultMaxSessions
	}
	store := session.NewMemoryStore(maxSessions, config.MaxAge)

	f.logger.InfoContext(ctx, "Initialized memory session store", "max_sessions", maxSessions)

	return &Result{
		Store:   store,
		Cleaner: store,
	}, nil
}
