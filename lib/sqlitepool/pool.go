// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool provides the Caisson-standard SQLite connection
// pool. Local structured storage, above all the durable key
// repository, goes through this package rather than opening ad-hoc
// connections.
//
// It wraps zombiezen.com/go/sqlite with settings chosen for small,
// must-not-lose databases: WAL journaling for concurrent readers, FULL
// synchronous because a lost partition key orphans every object sealed
// under it, and a busy timeout so contending writers queue instead of
// failing with SQLITE_BUSY.
//
// Connections are not safe for concurrent use. Callers [Pool.Take] a
// connection, work, and [Pool.Put] it back:
//
//	conn, err := pool.Take(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pool.Put(conn)
package sqlitepool

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Config holds the parameters for opening a pool. Path is required.
type Config struct {
	// Path is the database file. Created if absent.
	Path string

	// PoolSize is the number of pooled connections. Defaults to
	// NumCPU, floored at 2; key repository traffic is light.
	PoolSize int

	// Logger receives open/close events. Defaults to discard.
	Logger *slog.Logger

	// OnConnect runs once per connection after the standard pragmas,
	// typically to create tables.
	OnConnect func(conn *sqlite.Conn) error
}

// Pool is a fixed-size set of prepared SQLite connections.
type Pool struct {
	inner  *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// Open validates the configuration and opens the pool. The caller must
// Close it.
func Open(cfg Config) (*Pool, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlitepool: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = runtime.NumCPU()
		if poolSize < 2 {
			poolSize = 2
		}
	}

	inner, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			return prepareConnection(conn, cfg.OnConnect)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: opening %s: %w", cfg.Path, err)
	}

	logger.Info("sqlite pool opened", "path", cfg.Path, "pool_size", poolSize)
	return &Pool{inner: inner, logger: logger, path: cfg.Path}, nil
}

// Take borrows a connection, blocking until one is free or ctx is
// cancelled. Pair with Put, typically via defer.
func (p *Pool) Take(ctx context.Context) (*sqlite.Conn, error) {
	conn, err := p.inner.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlitepool: take: %w", err)
	}
	return conn, nil
}

// Put returns a borrowed connection. Safe with nil (no-op). The caller
// must not touch the connection afterwards.
func (p *Pool) Put(conn *sqlite.Conn) {
	p.inner.Put(conn)
}

// Close closes every connection, blocking until borrowed ones return.
func (p *Pool) Close() error {
	if err := p.inner.Close(); err != nil {
		p.logger.Error("sqlite pool close failed", "path", p.path, "error", err)
		return fmt.Errorf("sqlitepool: closing %s: %w", p.path, err)
	}
	p.logger.Info("sqlite pool closed", "path", p.path)
	return nil
}

// prepareConnection applies the Caisson-standard pragmas, then the
// caller's OnConnect. Runs once per pooled connection.
func prepareConnection(conn *sqlite.Conn, onConnect func(*sqlite.Conn) error) error {
	pragmas := []string{
		// Concurrent readers with a single writer; readers never
		// block the writer.
		"PRAGMA journal_mode=WAL",
		// Survive OS crashes and power loss, not just process
		// crashes. Key material is not reconstructible.
		"PRAGMA synchronous=FULL",
		// Queue behind a writer for up to 5s instead of failing.
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-4096",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("sqlitepool: %s: %w", pragma, err)
		}
	}

	if onConnect != nil {
		if err := onConnect(conn); err != nil {
			return fmt.Errorf("sqlitepool: OnConnect: %w", err)
		}
	}
	return nil
}
