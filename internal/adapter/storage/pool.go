package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var ErrPoolExhausted = errors.New("connection pool exhausted")

// Pool hands out a fixed set of pre-opened SQLite connections. Every
// connection runs in WAL mode with a busy timeout, so concurrent
// writers queue at the database rather than erroring immediately.
//
// The pool is created once at startup and lives for the whole process.
type Pool struct {
	db             *sql.DB
	conns          chan *sql.Conn
	acquireTimeout time.Duration
}

// NewPool opens size connections against the database at path.
func NewPool(ctx context.Context, path string, size int, busyTimeout, acquireTimeout time.Duration) (*Pool, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_foreign_keys=on&_txlock=immediate",
		url.PathEscape(path), busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(size)
	db.SetMaxIdleConns(size)
	db.SetConnMaxLifetime(0)

	p := &Pool{
		db:             db,
		conns:          make(chan *sql.Conn, size),
		acquireTimeout: acquireTimeout,
	}

	for i := 0; i < size; i++ {
		conn, err := db.Conn(ctx)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("open connection %d: %w", i, err)
		}
		p.conns <- conn
	}

	return p, nil
}

// Acquire blocks until a connection is available or the configured
// timeout elapses, in which case it fails with ErrPoolExhausted.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case conn := <-p.conns:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrPoolExhausted
	}
}

// Release returns a connection to the pool. If the pool is already at
// capacity the handle is closed instead, which guards against a
// duplicate release growing the pool.
func (p *Pool) Release(conn *sql.Conn) {
	select {
	case p.conns <- conn:
	default:
		conn.Close()
	}
}

// Size reports the pool capacity.
func (p *Pool) Size() int { return cap(p.conns) }

// Close tears down every idle connection and the underlying database.
// Only called at process shutdown.
func (p *Pool) Close() error {
	for {
		select {
		case conn := <-p.conns:
			conn.Close()
		default:
			return p.db.Close()
		}
	}
}
