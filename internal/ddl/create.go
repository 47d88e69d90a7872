// Package ddl defines a small, backend-agnostic model for SQL DDL and a
// renderer that turns that model into CREATE TABLE statements for a given
// Dialect.
//
// Backends (internal/storage/postgres, mssql, sqlite, mysql) each provide a
// Dialect describing identifier quoting and logical-type mapping; the
// rendering rules themselves live here so every backend emits the same shape.
package ddl

import (
	"fmt"
	"sort"
	"strings"
)

// Dialect captures the per-backend differences needed to render DDL.
type Dialect struct {
	// Name is used in error messages (e.g. "postgres").
	Name string

	// QuoteIdent quotes a single identifier segment.
	QuoteIdent func(string) string

	// MapType maps a logical Kind to a SQL type. For KindIdentity it must
	// return the full column clause, e.g. "SERIAL PRIMARY KEY".
	MapType func(kind string) string
}

// QuoteFQN quotes a possibly schema-qualified name like "public.users" using
// the dialect's QuoteIdent. Empty segments are ignored.
func (d Dialect) QuoteFQN(fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, d.QuoteIdent(p))
	}
	return strings.Join(out, ".")
}

// QuoteAll quotes each name in cols.
func (d Dialect) QuoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = d.QuoteIdent(c)
	}
	return out
}

// BuildCreateTableSQL renders a deterministic CREATE TABLE statement.
//
// Rules:
//
//   - t.FQN must be non-empty.
//
//   - Each column must have a non-empty Name and either SQLType or a Kind the
//     dialect can map.
//
//   - Identity columns render as "<name> <MapType(identity)>" and carry their
//     own key clause; they are not repeated in the PRIMARY KEY constraint.
//
//   - Other columns render as:
//
//     <name> <type> [NOT NULL] [DEFAULT <Default>]
//
//     where primary-key columns are always NOT NULL.
//
//   - Remaining primary-key columns are collected into a separate
//     PRIMARY KEY clause, sorted for determinism.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s ddl: table FQN must not be empty", d.Name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s ddl: at least one column is required", d.Name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("%s ddl: column with empty name in table %s", d.Name, fqn)
		}

		if c.Kind == KindIdentity && c.SQLType == "" {
			cols = append(cols, d.QuoteIdent(name)+" "+d.MapType(KindIdentity))
			continue
		}

		typ := strings.TrimSpace(c.SQLType)
		if typ == "" && c.Kind != "" {
			typ = d.MapType(c.Kind)
		}
		if typ == "" {
			return "", fmt.Errorf("%s ddl: column %s missing SQLType", d.Name, name)
		}

		var sb strings.Builder
		sb.WriteString(d.QuoteIdent(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)

		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, d.QuoteIdent(name))
		}
	}

	if len(pks) > 0 {
		sort.Strings(pks)
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	return fmt.Sprintf(
		"CREATE TABLE %s (\n  %s\n);",
		d.QuoteFQN(fqn),
		strings.Join(cols, ",\n  "),
	), nil
}
