// Package db carries the SQL migrations, embedded so the migrate
// command runs from any working directory.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
