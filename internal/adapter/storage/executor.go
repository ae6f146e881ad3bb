package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// TxFunc is one unit of work: an all-or-nothing block of statements run
// against a single transaction. Multi-step logic (read, validate,
// conditionally write) must live inside one TxFunc to be atomic.
type TxFunc func(ctx context.Context, tx *sql.Tx) error

// Executor wraps a unit of work in a transaction on one pooled
// connection. Nesting Run calls is forbidden; a nested acquire could
// deadlock against an exhausted pool.
type Executor struct {
	pool *Pool
}

func NewExecutor(pool *Pool) *Executor {
	return &Executor{pool: pool}
}

// Run acquires a connection, begins a transaction, and executes fn.
// The transaction commits when fn returns nil and rolls back when fn
// returns an error or panics. The connection is returned to the pool on
// every exit path.
func (e *Executor) Run(ctx context.Context, fn TxFunc) error {
	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer e.pool.Release(conn)

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
