// Copyright 2026 The Caisson Authors
// SPDX-License-Identifier: Apache-2.0

package keyring

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/caisson-foundation/caisson/lib/clock"
	"github.com/caisson-foundation/caisson/lib/partition"
	"github.com/caisson-foundation/caisson/lib/secret"
	"github.com/caisson-foundation/caisson/lib/sqlitepool"
)

// keySchema is created on every pooled connection. IF NOT EXISTS makes
// the repeat executions no-ops.
const keySchema = `
	CREATE TABLE IF NOT EXISTS keys (
		partition       TEXT NOT NULL,
		public_hash     TEXT NOT NULL,
		secret_hash     TEXT NOT NULL,
		unlocker_hash   TEXT NOT NULL,
		alias           TEXT NOT NULL,
		public_material TEXT NOT NULL,
		sealed_secret   TEXT NOT NULL,
		created_at      INTEGER NOT NULL,
		PRIMARY KEY (partition, public_hash)
	);
	CREATE INDEX IF NOT EXISTS idx_keys_secret ON keys(partition, secret_hash);
`

// SQLiteConfig configures a durable key repository.
type SQLiteConfig struct {
	// Path is the database file. Created if absent.
	Path string

	// Service is the repository's own keypair. Every stored secret is
	// sealed to this key at rest, so a copied database file is
	// useless without the service identity. Required.
	Service *PrivateKey

	// PoolSize is passed through to the connection pool.
	PoolSize int

	// Clock stamps entries at insert time. Defaults to the real clock.
	Clock clock.Clock

	// Logger receives operational messages. Defaults to discard.
	Logger *slog.Logger
}

// SQLiteStore is a durable Store backed by a WAL-mode SQLite database.
// Secrets are sealed to the service key before they touch the disk;
// authorization on Get is the same unlocker-hash comparison the
// in-memory store performs.
type SQLiteStore struct {
	pool    *sqlitepool.Pool
	service *PrivateKey
	clock   clock.Clock
	logger  *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens (creating if needed) the key database at
// cfg.Path.
func OpenSQLiteStore(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("key store: Path is required")
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("key store: Service is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, keySchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("key store: %w", err)
	}

	return &SQLiteStore{
		pool:    pool,
		service: cfg.Service,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
	}, nil
}

// Close closes the underlying connection pool. The service key is the
// caller's and is not closed.
func (s *SQLiteStore) Close() error {
	return s.pool.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, pk partition.Key, secretHash Hash, access *PrivateKey) ([]byte, bool, error) {
	if access == nil {
		return nil, false, nil
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("key store: get: %w", err)
	}
	defer s.pool.Put(conn)

	var found bool
	var sealedText string
	err = sqlitex.Execute(conn,
		`SELECT sealed_secret FROM keys
		 WHERE partition = ? AND secret_hash = ? AND unlocker_hash = ?
		 LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{
				pk.EncodeString(),
				secretHash.String(),
				access.Public().Hash().String(),
			},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				sealedText = stmt.ColumnText(0)
				return nil
			},
		})
	if err != nil {
		return nil, false, fmt.Errorf("key store: get: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	sealed, err := base64.StdEncoding.DecodeString(sealedText)
	if err != nil {
		return nil, false, fmt.Errorf("key store: get: corrupt sealed secret: %w", err)
	}
	plaintext, err := Unseal(sealed, s.service)
	if err != nil {
		return nil, false, fmt.Errorf("key store: get: unsealing: %w", err)
	}
	return plaintext, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, pk partition.Key, key *PrivateKey, unlocker Hash) error {
	plaintext := key.SecretBytes()
	sealed, err := Seal(plaintext, s.service.Public())
	secret.Zero(plaintext)
	if err != nil {
		return fmt.Errorf("key store: put: sealing: %w", err)
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("key store: put: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT OR REPLACE INTO keys
		 (partition, public_hash, secret_hash, unlocker_hash, alias,
		  public_material, sealed_secret, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				pk.EncodeString(),
				key.Public().Hash().String(),
				key.SecretHash().String(),
				unlocker.String(),
				key.Public().Alias(),
				base64.StdEncoding.EncodeToString(key.Public().Material()),
				base64.StdEncoding.EncodeToString(sealed),
				s.clock.Now().Unix(),
			},
		})
	if err != nil {
		return fmt.Errorf("key store: put: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Exists(ctx context.Context, pk partition.Key, secretHash, unlocker Hash) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, fmt.Errorf("key store: exists: %w", err)
	}
	defer s.pool.Put(conn)

	var found bool
	err = sqlitex.Execute(conn,
		`SELECT 1 FROM keys
		 WHERE partition = ? AND secret_hash = ? AND unlocker_hash = ?
		 LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{pk.EncodeString(), secretHash.String(), unlocker.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				return nil
			},
		})
	if err != nil {
		return false, fmt.Errorf("key store: exists: %w", err)
	}
	return found, nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, pk partition.Key, publicHash Hash) (*PublicKey, bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("key store: lookup: %w", err)
	}
	defer s.pool.Put(conn)

	var found bool
	var alias, materialText string
	err = sqlitex.Execute(conn,
		`SELECT alias, public_material FROM keys
		 WHERE partition = ? AND public_hash = ? LIMIT 1`,
		&sqlitex.ExecOptions{
			Args: []any{pk.EncodeString(), publicHash.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				alias = stmt.ColumnText(0)
				materialText = stmt.ColumnText(1)
				return nil
			},
		})
	if err != nil {
		return nil, false, fmt.Errorf("key store: lookup: %w", err)
	}
	if !found {
		return nil, false, nil
	}

	material, err := base64.StdEncoding.DecodeString(materialText)
	if err != nil {
		return nil, false, fmt.Errorf("key store: lookup: corrupt key material: %w", err)
	}
	return NewPublicKey(alias, material), true, nil
}

func (s *SQLiteStore) Erase(ctx context.Context, pk partition.Key, secretHash Hash) (bool, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return false, fmt.Errorf("key store: erase: %w", err)
	}
	defer s.pool.Put(conn)

	erased := 0
	err = sqlitex.Execute(conn,
		`DELETE FROM keys WHERE partition = ? AND secret_hash = ?
		 RETURNING public_hash`,
		&sqlitex.ExecOptions{
			Args: []any{pk.EncodeString(), secretHash.String()},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				erased++
				return nil
			},
		})
	if err != nil {
		return false, fmt.Errorf("key store: erase: %w", err)
	}
	if erased > 0 {
		s.logger.Info("key erased",
			"partition", pk.String(),
			"entries", erased,
		)
	}
	return erased > 0, nil
}
