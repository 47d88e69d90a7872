// Package mssql implements the reload sink for Microsoft SQL Server using the
// go-mssqldb bulk copy API. Schema creation, drop, create and the bulk copy
// run inside one transaction.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
	"go.uber.org/zap"

	"koboetl/internal/ddl"
	"koboetl/internal/storage"
)

// Dialect renders SQL Server DDL.
var Dialect = ddl.Dialect{
	Name:       "mssql",
	QuoteIdent: msIdent,
	MapType:    MapType,
}

// MapType maps a logical kind to a SQL Server column type.
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case ddl.KindIdentity:
		return "INT IDENTITY(1,1) PRIMARY KEY"
	case "int", "integer":
		return "INT"
	case "bigint":
		return "BIGINT"
	case "float", "double", "real":
		return "FLOAT"
	case "date":
		return "DATE"
	case "timestamp":
		return "DATETIME2"
	case "timestamptz":
		return "DATETIMEOFFSET"
	default:
		return "NVARCHAR(MAX)"
	}
}

// msIdent quotes a single identifier with brackets.
func msIdent(id string) string { return "[" + strings.ReplaceAll(id, "]", "]]") + "]" }

func msFQN(schema, table string) string {
	if schema == "" {
		return msIdent(table)
	}
	return msIdent(schema) + "." + msIdent(table)
}

// ReloadStatements returns the DDL run before the bulk copy.
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
		lit := strings.ReplaceAll(schema, "'", "''")
		stmts = append(stmts, fmt.Sprintf(
			"IF NOT EXISTS (SELECT 1 FROM sys.schemas WHERE name = N'%s') EXEC('CREATE SCHEMA %s')",
			lit, strings.ReplaceAll(msIdent(schema), "'", "''"),
		))
	}
	return append(stmts,
		"DROP TABLE IF EXISTS "+msFQN(schema, table),
		create,
	), nil
}

// Sink is an MSSQL-backed storage.Sink.
type Sink struct {
	db  *sql.DB
	log *zap.Logger
}

var _ storage.Sink = (*Sink)(nil)

// Open validates the DSN, opens the database and pings it.
func Open(ctx context.Context, dsn string) (*Sink, error) {
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Sink{db: db, log: zap.L().Named("mssql")}, nil
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
		return 0, fmt.Errorf("mssql: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	for _, q := range stmts {
		s.log.Debug("exec", zap.String("sql", q))
		if _, err := tx.ExecContext(ctx, q); err != nil {
			rollback()
			return 0, fmt.Errorf("ddl: %w", err)
		}
	}

	var copied int64
	if len(plain) > 0 {
		target := table
		if schema != "" {
			target = schema + "." + table
		}
		stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(target, mssql.BulkOptions{}, columns...))
		if err != nil {
			rollback()
			return 0, fmt.Errorf("prepare bulk: %w", err)
		}
		for i := range plain {
			if _, err := stmt.ExecContext(ctx, plain[i]...); err != nil {
				_ = stmt.Close()
				rollback()
				return 0, fmt.Errorf("bulk row %d: %w", i, err)
			}
		}
		res, err := stmt.ExecContext(ctx)
		if cerr := stmt.Close(); cerr != nil && err == nil {
			err = cerr
		}
		if err != nil {
			rollback()
			return 0, fmt.Errorf("bulk finalize: %w", err)
		}
		if copied, err = res.RowsAffected(); err != nil {
			rollback()
			return 0, fmt.Errorf("rows affected: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return copied, nil
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Sink, error) {
		return Open(ctx, cfg.DSN)
	})
	storage.RegisterDialect("mssql", Dialect)
}
