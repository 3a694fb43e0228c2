// Package sqlstore is an append-only ledger store over database/sql. It
// supports PostgreSQL (pgx) for shared nodes and SQLite (modernc) for
// embedded single-node deployments, with goose-managed schemas.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/chainkeeper/internal/common"
	"github.com/dmitrijs2005/chainkeeper/internal/dbx"
	"github.com/dmitrijs2005/chainkeeper/internal/ledger"
	"github.com/dmitrijs2005/chainkeeper/internal/ledger/sqlstore/migrations"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour and driver.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func (d Dialect) driver() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) gooseDialect() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite3"
}

// rebind rewrites $n placeholders for SQLite.
func (d Dialect) rebind(query string) string {
	if d == Postgres {
		return query
	}
	return dbx.Rebind(query)
}

const (
	insertTxQuery = `INSERT INTO transactions (id, address, payload, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING seq`
	selectTxQuery = `SELECT id, seq, address, payload, created_at FROM transactions
		WHERE address = $1
		ORDER BY seq`
	selectKeyQuery = `SELECT public_key FROM public_keys WHERE address = $1`
	upsertKeyQuery = `INSERT INTO public_keys (address, public_key) VALUES ($1, $2)
		ON CONFLICT (address) DO UPDATE SET public_key = EXCLUDED.public_key`
)

// Store implements ledger.Ledger.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an open database. The schema must already be migrated.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Open connects to dsn, applies migrations and returns the store.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	if dialect != Postgres && dialect != SQLite {
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	db, err := sql.Open(dialect.driver(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == SQLite {
		// SQLite serializes writers anyway; one connection keeps
		// in-memory databases alive and visible.
		db.SetMaxOpenConns(1)
	}

	s := New(db, dialect)
	if err := s.RunMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return s, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations for the store's dialect.
func (s *Store) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(s.dialect.gooseDialect()); err != nil {
		return err
	}
	return gooseUpContext(ctx, s.db, string(s.dialect))
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Transactions(ctx context.Context, address string) ([]ledger.RawTransaction, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(selectTxQuery), address)
	if err != nil {
		return nil, fmt.Errorf("failed to select transactions: %w", err)
	}
	defer rows.Close()

	var result []ledger.RawTransaction
	for rows.Next() {
		var (
			tx      ledger.RawTransaction
			seq     int64
			created int64
		)
		if err := rows.Scan(&tx.ID, &seq, &tx.Address, &tx.Payload, &created); err != nil {
			return nil, err
		}
		tx.Sequence = uint64(seq)
		tx.CreatedAt = time.Unix(0, created).UTC()
		result = append(result, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) Broadcast(ctx context.Context, address string, payload []byte) (ledger.Receipt, error) {
	id := uuid.NewString()
	if payload == nil {
		payload = []byte{}
	}

	var seq int64
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(insertTxQuery),
		id, address, payload, time.Now().UnixNano()).Scan(&seq)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("error inserting transaction: %w", err)
	}

	return ledger.Receipt{ID: id, Sequence: uint64(seq), Broadcasted: true}, nil
}

func (s *Store) PublicKey(ctx context.Context, address string) (string, error) {
	var key string
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(selectKeyQuery), address).Scan(&key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", fmt.Errorf("error selecting public key: %w", err)
	}
	return key, nil
}

func (s *Store) RegisterKey(ctx context.Context, address, publicKey string) error {
	return registerKey(ctx, s.db, s.dialect, address, publicKey)
}

// RegisterKeys stores several address keys atomically.
func (s *Store) RegisterKeys(ctx context.Context, keys map[string]string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for address, key := range keys {
			if err := registerKey(ctx, tx, s.dialect, address, key); err != nil {
				return err
			}
		}
		return nil
	})
}

func registerKey(ctx context.Context, db dbx.DBTX, d Dialect, address, publicKey string) error {
	if _, err := db.ExecContext(ctx, d.rebind(upsertKeyQuery), address, publicKey); err != nil {
		return fmt.Errorf("error storing public key: %w", err)
	}
	return nil
}
