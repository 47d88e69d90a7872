package ddl

// KindIdentity marks a surrogate auto-increment primary key. Dialects render
// it as a single column clause (e.g. SERIAL PRIMARY KEY).
const KindIdentity = "identity"

// ColumnDef describes a single column in a table definition. It intentionally
// uses simple, database-agnostic fields.
//
// Fields:
//   - Name: column name (unquoted; quoting happens at render time)
//   - Kind: logical type (identity, timestamp, date, text, int, float) that a
//     Dialect maps to a concrete SQL type
//   - SQLType: explicit SQL type; when set it wins over Kind
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., 'anon', CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	Kind       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the fully-qualified table name (FQN) and an ordered list of
// columns. The FQN is expected in dotted form (e.g., "schema.table") and will
// be quoted/escaped by renderers as needed.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// ColumnNames returns the column names in order, skipping identity columns.
// This is the column list used for bulk inserts.
func (t TableDef) ColumnNames() []string {
	out := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Kind == KindIdentity {
			continue
		}
		out = append(out, c.Name)
	}
	return out
}
