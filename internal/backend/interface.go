// Package backend builds the session store selected by configuration.
package backend

import (
	"context"
	"time"

	"smartfin/internal/cache"
	"smartfin/internal/session"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result is a ready session store plus what the caller needs to run it.
type Result struct {
	Store session.Store
	// Cleaner sweeps expired sessions; register it with a cache.Manager.
	Cleaner cache.Cleaner
	Cleanup CleanupFunc
}

// Factory creates session stores from configuration.
type Factory interface {
	CreateSessionStore(ctx context.Context, config Config) (*Result, error)
}

type Config struct {
	Type BackendType

	SQLiteDBPath string

	MaxSessions int
	MaxAge      time.Duration
}

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
