package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartfin/internal/cache"
	"smartfin/internal/storage"
)

// ErrNotFound is returned by a Store when no live record exists for an id.
var ErrNotFound = errors.New("session record not found")

// Record is what a Store persists per session: the API credential and the
// user profile serialized as JSON.
type Record struct {
	ID        string
	Token     string
	Profile   []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store is the persistent storage behind the session holder.
type Store interface {
	Load(ctx context.Context, id string) (Record, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps records in a bounded TTL cache. Records vanish on restart.
type MemoryStore struct {
	lru *cache.LRUCache[Record]
}

func NewMemoryStore(maxSessions int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{lru: cache.NewLRUCache[Record](maxSessions, ttl)}
}

func (s *MemoryStore) Load(_ context.Context, id string) (Record, error) {
	rec, ok := s.lru.Get(id)
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.lru.SetWithTTL(rec.ID, rec, time.Until(rec.ExpiresAt))
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.lru.Delete(id)
	return nil
}

func (s *MemoryStore) CleanExpired() int {
	return s.lru.CleanExpired()
}

// SQLiteStore persists records through the storage package so sessions
// survive restarts.
type SQLiteStore struct {
	repo *storage.SessionRepository
	now  func() time.Time
}

func NewSQLiteStore(repo *storage.SessionRepository) *SQLiteStore {
	return &SQLiteStore{repo: repo, now: time.Now}
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (Record, error) {
	row, err := s.repo.Get(ctx, id, s.now())
	if errors.Is(err, storage.ErrNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("load session: %w", err)
	}
	return Record(row), nil
}

func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	return s.repo.Upsert(ctx, storage.SessionRow(rec))
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// CleanExpired purges expired rows. It lets the cache manager sweep the
// SQLite store on the same schedule as the memory one.
func (s *SQLiteStore) CleanExpired() int {
	n, err := s.repo.DeleteExpired(context.Background(), s.now())
	if err != nil {
		return 0
	}
	return int(n)
}

func (s *SQLiteStore) Close() error {
	return s.repo.Close()
}
