package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"rudyprotect/internal/storage"

	"go.uber.org/zap"
)

type memoryStore struct {
	logs []storage.AuditLog
	err  error
}

func (m *memoryStore) AddAuditLog(_ context.Context, log storage.AuditLog) error {
	if m.err != nil {
		return m.err
	}
	m.logs = append(m.logs, log)
	return nil
}

func TestLogPersistsAndNotifies(t *testing.T) {
	store := &memoryStore{}
	logger := NewLogger(store, zap.NewNop())
	fixed := time.Unix(1_700_000_000, 0)
	logger.now = func() time.Time { return fixed }

	var notified []storage.AuditLog
	logger.SetNotifier(func(_ context.Context, entry storage.AuditLog) {
		notified = append(notified, entry)
	})

	logger.Log(context.Background(), LevelWarn, "g1", "u1", "captcha_expired", "timeout=10m")

	if len(store.logs) != 1 {
		t.Fatalf("expected 1 stored log, got %d", len(store.logs))
	}
	if store.logs[0].Event != "captcha_expired" || !store.logs[0].CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected entry %+v", store.logs[0])
	}
	if len(notified) != 1 || notified[0].Level != LevelWarn {
		t.Fatalf("expected notifier call, got %+v", notified)
	}
}

func TestLogSurvivesStoreFailure(t *testing.T) {
	store := &memoryStore{err: errors.New("disk full")}
	logger := NewLogger(store, zap.NewNop())

	called := false
	logger.SetNotifier(func(context.Context, storage.AuditLog) { called = true })
	logger.Log(context.Background(), LevelInfo, "g1", "", "captcha_created", "")

	if !called {
		t.Fatalf("notifier should still run when the store fails")
	}
}

func TestLogWithSQLiteStore(t *testing.T) {
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	logger := NewLogger(store, zap.NewNop())
	logger.Log(context.Background(), LevelInfo, "g1", "u1", "captcha_verified", "")

	logs, err := store.ListAuditLogs(context.Background(), "g1", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != "captcha_verified" {
		t.Fatalf("unexpected logs %+v", logs)
	}
}
