package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, MaxElapsedTime: time.Second}
}

func TestOperationRetriesTransientErrors(t *testing.T) {
	calls := 0
	got, err := Operation(context.Background(), fastPolicy(), func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("dial tcp: connection refused")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 || calls != 3 {
		t.Fatalf("expected 42 after 3 calls, got %d after %d", got, calls)
	}
}

func TestOperationStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := NoResult(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return sql.ErrNoRows
	})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestOperationGivesUp(t *testing.T) {
	calls := 0
	err := NoResult(context.Background(), fastPolicy(), func(context.Context) error {
		calls++
		return errors.New("database is locked")
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 4 {
		t.Fatalf("expected 1 call + 3 retries, got %d", calls)
	}
}

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{sql.ErrNoRows, false},
		{context.Canceled, false},
		{errors.New("read: connection reset by peer"), true},
		{&pgconn.PgError{Code: "40P01"}, true},
		{&pgconn.PgError{Code: "23505"}, false},
		{errors.New("UNIQUE constraint failed"), false},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("IsRetryableError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
