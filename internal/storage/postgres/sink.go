// Package postgres implements the reload sink on pgx v5.
//
// A reload holds one pooled connection for its whole duration and runs the
// schema, drop, create and COPY steps in a single transaction. Postgres DDL is
// transactional, so a failed COPY rolls back to the previous table.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"koboetl/internal/ddl"
	"koboetl/internal/storage"
)

// Sink is a Postgres-backed storage.Sink.
type Sink struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

var _ storage.Sink = (*Sink)(nil)

// Open parses dsn and creates a pool. The pool connects lazily; the first
// Reload surfaces connection errors.
func Open(ctx context.Context, dsn string) (*Sink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn: %w", err)
	}
	// One run uses one connection.
	cfg.MaxConns = 1
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	return &Sink{pool: pool, log: zap.L().Named("postgres")}, nil
}

// Close releases the pool.
func (s *Sink) Close() { s.pool.Close() }

// Reload replaces schema.table with rows.
func (s *Sink) Reload(
	ctx context.Context,
	schema, table string,
	def ddl.TableDef,
	columns []string,
	rows [][]any,
) (int64, error) {
	stmts, err := ReloadStatements(schema, table, def)
	if err != nil {
		return 0, err
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	// No-op after a successful commit.
	defer func() { _ = tx.Rollback(ctx) }()

	for _, q := range stmts {
		s.log.Debug("exec", zap.String("sql", q))
		if _, err := tx.Exec(ctx, q); err != nil {
			return 0, fmt.Errorf("ddl: %w", pgDetail(err))
		}
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{schema, table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", pgFQN(schema, table), pgDetail(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

// pgDetail folds the server's detail and SQLSTATE into the message.
func pgDetail(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s; sqlstate %s)", err, pgErr.Detail, pgErr.SQLState())
	}
	return err
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return Open(ctx, cfg.DSN)
	})
	storage.RegisterDialect("postgres", Dialect)
}
