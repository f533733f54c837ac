// Package all wires the built-in storage backends into the storage factory.
//
// Importing it (as a blank import) runs each backend's init function, which
// registers that backend's factory with the storage package. After that, the
// following storage kinds are available through storage.New:
//
//   - "postgres" (csvingest/internal/storage/postgres)
//   - "sqlite"   (csvingest/internal/storage/sqlite)
//   - "mssql"    (csvingest/internal/storage/mssql)
package all

import (
	_ "csvingest/internal/storage/mssql"
	_ "csvingest/internal/storage/postgres"
	_ "csvingest/internal/storage/sqlite"
)
