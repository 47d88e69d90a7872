// Package all wires every built-in storage backend into the storage registry.
//
// It exists for side effects only: a blank import runs each backend's init,
// which registers its Sink factory and DDL dialect. After importing it the
// kinds "postgres", "mssql", "mysql" and "sqlite" resolve through
// storage.New and storage.CreateTableSQL.
//
//	import _ "koboetl/internal/storage/all"
//
// A binary that needs fewer backends can import the individual packages
// instead.
package all

import (
	_ "koboetl/internal/storage/mssql"
	_ "koboetl/internal/storage/mysql"
	_ "koboetl/internal/storage/postgres"
	_ "koboetl/internal/storage/sqlite"
)
