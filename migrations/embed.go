// Package migrations embeds the health data schema for integration tests and
// tooling.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
