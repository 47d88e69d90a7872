// Package storage defines the reload contract the pipeline loads through and
// a registry of backends keyed by storage kind.
//
// Backends register a Factory and a DDL dialect from their init functions;
// importing koboetl/internal/storage/all enables every built-in backend.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"koboetl/internal/ddl"
)

// Sink replaces the contents of one table.
//
// Reload ensures schema exists, drops schema.table if present, creates it
// from def and inserts rows (aligned to columns). It returns the number of
// rows inserted. Where the backend allows it, the whole sequence runs in one
// transaction so a failure leaves the previous table in place.
type Sink interface {
	Reload(ctx context.Context, schema, table string, def ddl.TableDef, columns []string, rows [][]any) (int64, error)
	Close()
}

// Config selects and opens a backend.
type Config struct {
	Kind string
	DSN  string
}

// Factory opens a Sink for a storage kind.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
	dialects  = map[string]ddl.Dialect{}
)

// Register registers (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens a Sink for cfg.Kind.
func New(ctx context.Context, cfg Config) (Sink, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds, sorted. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// RegisterDialect registers the DDL dialect for kind.
func RegisterDialect(kind string, d ddl.Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[kind] = d
}

// DialectFor returns the dialect registered for kind.
func DialectFor(kind string) (ddl.Dialect, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[kind]
	return d, ok
}

// CreateTableSQL renders def for kind without opening a connection.
func CreateTableSQL(kind string, def ddl.TableDef) (string, error) {
	d, ok := DialectFor(kind)
	if !ok {
		return "", fmt.Errorf("no DDL dialect registered for storage.kind=%s", kind)
	}
	return ddl.BuildCreateTableSQL(def, d)
}
