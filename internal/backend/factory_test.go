package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"smartfin/internal/config"
	"smartfin/internal/session"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) error = nil")
	}
	if _, err := FromAppConfig(&config.Config{SessionBackend: "redis"}); err == nil {
		t.Error("FromAppConfig(redis) error = nil")
	}

	cfg, err := FromAppConfig(&config.Config{SessionBackend: "sqlite", SQLiteDBPath: "x.db", SessionMaxAge: time.Hour})
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.MaxAge != time.Hour || cfg.MaxSessions != defaultMaxSessions {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}
}

func TestCreateSessionStore(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		want    any
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend, MaxAge: time.Hour}, &session.MemoryStore{}, false},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "s.db"), MaxAge: time.Hour}, &session.SQLiteStore{}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, nil, true},
		{"unknown", Config{Type: "sheets"}, nil, true},
	}

	f := NewFactory(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.CreateSessionStore(context.Background(), tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreateSessionStore() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if res.Cleanup != nil {
				defer res.Cleanup()
			}
			switch tt.want.(type) {
			case *session.MemoryStore:
				if _, ok := res.Store.(*session.MemoryStore); !ok {
					t.Errorf("Store = %T, want *session.MemoryStore", res.Store)
				}
			case *session.SQLiteStore:
				if _, ok := res.Store.(*session.SQLiteStore); !ok {
					t.Errorf("Store = %T, want *session.SQLiteStore", res.Store)
				}
			}
			if res.Cleaner == nil {
				t.Error("Cleaner is nil")
			}
		})
	}
}
