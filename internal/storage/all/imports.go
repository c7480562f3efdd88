// Package all wires all built-in storage backends into the storage factory.
//
// Importing it for side effects registers the following storage kinds and
// their table bootstrappers:
//
//   - "postgres"
//   - "mssql"
//   - "mysql"
//   - "sqlite"
//
// A binary that needs only a subset can import the backend packages directly.
package all

import (
	_ "github.com/gazihan02-sys/sis-tekniktr/internal/storage/mssql"
	_ "github.com/gazihan02-sys/sis-tekniktr/internal/storage/mysql"
	_ "github.com/gazihan02-sys/sis-tekniktr/internal/storage/postgres"
	_ "github.com/gazihan02-sys/sis-tekniktr/internal/storage/sqlite"
)
