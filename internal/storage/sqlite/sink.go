// Package sqlite implements the reload sink on modernc.org/sqlite via
// database/sql. SQLite has no schemas, so schema and table are joined into a
// single table name (schema__table). Drop, create and inserts share one
// transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"koboetl/internal/ddl"
	"koboetl/internal/storage"
)

// Dialect renders SQLite DDL.
var Dialect = ddl.Dialect{
	Name:       "sqlite",
	QuoteIdent: quoteIdent,
	MapType:    MapType,
}

// MapType maps a logical kind to a SQLite column affinity. Dates and
// timestamps are stored as TEXT the way the driver writes time.Time.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case ddl.KindIdentity:
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	case "int", "integer", "bigint":
		return "INTEGER"
	case "float", "double", "real":
		return "REAL"
	case "date":
		return "DATE"
	case "timestamp", "timestamptz":
		return "TIMESTAMP"
	default:
		return "TEXT"
	}
}

func quoteIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// TableName flattens schema and table into one SQLite table name.
func TableName(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "__" + table
}

// Sink is a SQLite-backed storage.Sink.
type Sink struct {
	db  *sql.DB
	log *zap.Logger
}

var _ storage.Sink = (*Sink)(nil)

// Open opens dsn (a file path or file: URI) and pings it.
func Open(ctx context.Context, dsn string) (*Sink, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// A single writer; also keeps :memory: databases on one connection.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Sink{db: db, log: zap.L().Named("sqlite")}, nil
}

// DB exposes the handle for callers that need to read back.
func (s *Sink) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Sink) Close() { _ = s.db.Close() }

// Reload replaces TableName(schema, table) with rows.
func (s *Sink) Reload(
	ctx context.Context,
	schema, table string,
	def ddl.TableDef,
	columns []string,
	rows [][]any,
) (int64, error) {
	name := TableName(schema, table)
	def.FQN = name
	// QuoteFQN splits on dots; the flattened name has none.
	create, err := ddl.BuildCreateTableSQL(def, Dialect)
	if err != nil {
		return 0, err
	}
	plain, err := storage.PlainRows(rows)
	if err != nil {
		return 0, fmt.Errorf("sqlite: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{"DROP TABLE IF EXISTS " + quoteIdent(name), create} {
		s.log.Debug("exec", zap.String("sql", q))
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return 0, fmt.Errorf("sqlite: ddl: %w", err)
		}
	}

	n, err := insertRows(ctx, tx, name, columns, plain)
	if err != nil {
		return n, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return n, nil
}

// insertRows runs one prepared INSERT per row.
func insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: columns must not be empty")
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	stmtSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table),
		strings.Join(Dialect.QuoteAll(columns), ", "),
		placeholders,
	)
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for i, row := range rows {
		if len(row) != len(columns) {
			return inserted, fmt.Errorf("sqlite: row %d: length %d != columns length %d", i, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return inserted, fmt.Errorf("sqlite: insert row %d: %w", i, err)
		}
		inserted++
	}
	return inserted, nil
}

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return Open(ctx, cfg.DSN)
	})
	storage.RegisterDialect("sqlite", Dialect)
}
