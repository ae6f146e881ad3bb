package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()

	pool := newTestPool(t, 2, 5*time.Second)
	exec := NewExecutor(pool)

	err := exec.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)`)
		return err
	})
	if err != nil {
		t.Fatalf("create table failed: %v", err)
	}
	return exec
}

func countItems(t *testing.T, exec *Executor) int {
	t.Helper()

	var count int
	err := exec.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	return count
}

func TestRun_CommitsOnSuccess(t *testing.T) {
	exec := newTestExecutor(t)

	err := exec.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO items (name) VALUES ('a')`)
		return err
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := countItems(t, exec); got != 1 {
		t.Errorf("expected 1 row, got %d", got)
	}
}

func TestRun_RollsBackOnError(t *testing.T) {
	exec := newTestExecutor(t)
	boom := errors.New("boom")

	err := exec.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO items (name) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got: %v", err)
	}

	if got := countItems(t, exec); got != 0 {
		t.Errorf("expected rollback, found %d rows", got)
	}
}

func TestRun_RollsBackOnPanic(t *testing.T) {
	exec := newTestExecutor(t)

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic to propagate")
			}
		}()
		exec.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `INSERT INTO items (name) VALUES ('a')`); err != nil {
				return err
			}
			panic("boom")
		})
	}()

	// Nothing committed, and the connection made it back to the pool.
	if got := countItems(t, exec); got != 0 {
		t.Errorf("expected rollback after panic, found %d rows", got)
	}
}

func TestRun_ReleasesConnection(t *testing.T) {
	pool := newTestPool(t, 1, 300*time.Millisecond)
	exec := NewExecutor(pool)

	// With capacity 1, a leaked connection would make every later Run
	// fail with ErrPoolExhausted.
	for i := 0; i < 5; i++ {
		err := exec.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
			return nil
		})
		if err != nil {
			t.Fatalf("Run %d failed: %v", i, err)
		}
	}

	exec.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return errors.New("force rollback")
	})

	err := exec.Run(context.Background(), func(ctx context.Context, tx *sql.Tx) error {
		return nil
	})
	if err != nil {
		t.Errorf("connection leaked after rollback: %v", err)
	}
}
