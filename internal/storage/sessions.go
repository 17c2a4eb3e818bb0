// Package storage persists session records in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"smartfin/internal/log"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no live row matches.
var ErrNotFound = errors.New("session not found")

// SessionRow is one persisted session: the API credential and the serialized
// user profile.
type SessionRow struct {
	ID        string
	Token     string
	Profile   []byte
	CreatedAt time.Time
	ExpiresAt time.Time
}

type SessionRepository struct {
	db     *sql.DB
	logger *log.Logger
}

// NewSessionRepository opens (creating if needed) the database at dbPath and
// applies migrations.
func NewSessionRepository(dbPath string, logger *log.Logger) (*SessionRepository, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SessionRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SessionRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Get returns the session with id, or ErrNotFound when it is missing or
// expired as of now.
func (r *SessionRepository) Get(ctx context.Context, id string, now time.Time) (SessionRow, error) {
	var (
		row                  SessionRow
		createdAt, expiresAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, token, profile, created_at, expires_at FROM sessions WHERE id = ? AND expires_at > ?`,
		id, now.Unix(),
	).Scan(&row.ID, &row.Token, &row.Profile, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRow{}, ErrNotFound
	}
	if err != nil {
		return SessionRow{}, fmt.Errorf("get session: %w", err)
	}
	row.CreatedAt = time.Unix(createdAt, 0).UTC()
	row.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return row, nil
}

// Upsert inserts or replaces the session row.
func (r *SessionRepository) Upsert(ctx context.Context, row SessionRow) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, token, profile, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   token = excluded.token,
		   profile = excluded.profile,
		   expires_at = excluded.expires_at`,
		row.ID, row.Token, row.Profile, row.CreatedAt.Unix(), row.ExpiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes rows that expired at or before now.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		r.logger.InfoContext(ctx, "Expired sessions purged", "count", n)
	}
	return n, nil
}
