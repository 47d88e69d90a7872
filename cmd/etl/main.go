// Command etl loads the KoboToolbox conflict-incident export into a
// relational table.
//
//	etl run       fetch, normalize and reload once
//	etl validate  lint the configuration (and optionally probe the export)
//	etl schedule  run on a cron schedule
//	etl ddl       print the CREATE TABLE statement for a backend
package main

import (
	"os"

	// Every backend registers itself; storage.kind picks one at runtime.
	_ "koboetl/internal/storage/all"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
