// Package mysql implements the reload sink for MySQL. The storage schema maps
// to a MySQL database. MySQL commits DDL implicitly, so only the inserts share
// a transaction; a failed load leaves an empty or partial table behind.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"koboetl/internal/ddl"
	"koboetl/internal/storage"
)

// BatchSize bounds the rows in one multi-row INSERT.
const BatchSize = 500

// Dialect renders MySQL DDL.
var Dialect = ddl.Dialect{
	Name:       "mysql",
	QuoteIdent: myIdent,
	MapType:    MapType,
}

// MapType maps a logical kind to a MySQL column type.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case ddl.KindIdentity:
		return "INT AUTO_INCREMENT PRIMARY KEY"
	case "int", "integer":
		return "INT"
	case "bigint":
		return "BIGINT"
	case "float", "double", "real":
		return "DOUBLE"
	case "date":
		return "DATE"
	case "timestamp", "timestamptz":
		return "DATETIME(6)"
	default:
		return "TEXT"
	}
}

func myIdent(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

func myFQN(schema, table string) string {
	if schema == "" {
		return myIdent(table)
	}
	return myIdent(schema) + "." + myIdent(table)
}

// ReloadStatements returns the DDL run before the inserts.
func ReloadStatements(schema, table string, def ddl.TableDef) ([]string, error) {
	def.FQN = table
	if schema != "" {
		def.FQN = schema + "." + table
	}
	create, err := ddl.BuildCreateTableSQL(def, Dialect)
	if err != nil {
		return nil, err
	}
	var stmts []string
	if schema != "" {
		stmts = append(stmts, "CREATE DATABASE IF NOT EXISTS "+myIdent(schema))
	}
	return append(stmts,
		"DROP TABLE IF EXISTS "+myFQN(schema, table),
		create,
	), nil
}

// insertSQL builds a multi-row INSERT for n rows.
func insertSQL(schema, table string, columns []string, n int) string {
	one := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	values := make([]string, n)
	for i := range values {
		values[i] = one
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		myFQN(schema, table),
		strings.Join(Dialect.QuoteAll(columns), ", "),
		strings.Join(values, ", "),
	)
}

// Sink is a MySQL-backed storage.Sink.
type Sink struct {
	db  *sql.DB
	log *zap.Logger
}

var _ storage.Sink = (*Sink)(nil)

// Open validates the DSN, forces parseTime, opens and pings.
func Open(ctx context.Context, dsn string) (*Sink, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Sink{db: db, log: zap.L().Named("mysql")}, nil
}

// Close closes the connection pool.
func (s *Sink) Close() { _ = s.db.Close() }

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
	plain, err := storage.PlainRows(rows)
	if err != nil {
		return 0, fmt.Errorf("mysql: %w", err)
	}

	for _, q := range stmts {
		s.log.Debug("exec", zap.String("sql", q))
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return 0, fmt.Errorf("ddl: %w", err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	n, err := storage.LoadBatches(ctx, columns, plain, BatchSize,
		func(ctx context.Context, columns []string, batch [][]any) (int64, error) {
			args := make([]any, 0, len(batch)*len(columns))
			for i, r := range batch {
				if len(r) != len(columns) {
					return 0, fmt.Errorf("row %d: length %d != columns length %d", i, len(r), len(columns))
				}
				args = append(args, r...)
			}
			res, err := tx.ExecContext(ctx, insertSQL(schema, table, columns, len(batch)), args...)
			if err != nil {
				return 0, fmt.Errorf("insert: %w", err)
			}
			return res.RowsAffected()
		})
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return n, nil
}

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return Open(ctx, cfg.DSN)
	})
	storage.RegisterDialect("mysql", Dialect)
}
