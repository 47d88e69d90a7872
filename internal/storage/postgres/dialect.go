package postgres

import (
	"strings"

	"koboetl/internal/ddl"
)

// Dialect renders Postgres DDL.
var Dialect = ddl.Dialect{
	Name:       "postgres",
	QuoteIdent: pgIdent,
	MapType:    MapType,
}

// MapType maps a logical kind to a Postgres column type.
//
//	identity              -> SERIAL PRIMARY KEY
//	int/integer           -> INTEGER
//	bigint                -> BIGINT
//	float/double          -> DOUBLE PRECISION
//	date                  -> DATE
//	timestamp             -> TIMESTAMP
//	timestamptz           -> TIMESTAMPTZ
//	everything else       -> TEXT
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case ddl.KindIdentity:
		return "SERIAL PRIMARY KEY"
	case "int", "integer":
		return "INTEGER"
	case "bigint":
		return "BIGINT"
	case "float", "double", "real":
		return "DOUBLE PRECISION"
	case "date":
		return "DATE"
	case "timestamp":
		return "TIMESTAMP"
	case "timestamptz":
		return "TIMESTAMPTZ"
	default:
		return "TEXT"
	}
}

// pgIdent safely quotes a single identifier segment for Postgres.
func pgIdent(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// pgFQN quotes schema and table as "schema"."table".
func pgFQN(schema, table string) string {
	if schema == "" {
		return pgIdent(table)
	}
	return pgIdent(schema) + "." + pgIdent(table)
}

// ReloadStatements returns the DDL run before the copy: ensure schema, drop
// the old table, create the new one.
func ReloadStatements(schema, table string, def ddl.TableDef) ([]string, error) {
	def.FQN = schema + "." + table
	if schema == "" {
		def.FQN = table
	}
	create, err := ddl.BuildCreateTableSQL(def, Dialect)
	if err != nil {
		return nil, err
	}
	var stmts []string
	if schema != "" {
		stmts = append(stmts, "CREATE SCHEMA IF NOT EXISTS "+pgIdent(schema))
	}
	return append(stmts,
		"DROP TABLE IF EXISTS "+pgFQN(schema, table),
		create,
	), nil
}
