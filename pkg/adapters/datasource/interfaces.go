// Package datasource connects the engine to external databases. Each
// adapter runs a read-only query against its database and materializes
// the result set as an engine table. Adapters self-register through
// build-tag-guarded init functions, so a binary carries only the drivers
// it was built with.
package datasource

import (
	"context"

	"github.com/fathom-data/fathom-engine/pkg/table"
)

// AdapterType identifies a database adapter.
type AdapterType string

const (
	TypePostgres AdapterType = "postgres"
	TypeMSSQL    AdapterType = "mssql"
	TypeSQLite   AdapterType = "sqlite"
)

// Config describes one external database connection.
type Config struct {
	Type AdapterType `json:"type"`
	// DSN is the driver connection string. Adapter-specific: a URL for
	// postgres and mssql, a file path for sqlite.
	DSN string `json:"dsn"`
	// MaxRows caps the materialized result. Zero means no cap.
	MaxRows int `json:"maxRows,omitempty"`
}

// TableLoader materializes a query result as a table.
type TableLoader interface {
	// LoadTable runs the query and returns the full result set.
	LoadTable(ctx context.Context, query string) (*table.Table, error)
	// Ping verifies the connection is usable.
	Ping(ctx context.Context) error
	// Close releases the underlying connection.
	Close() error
}

// AdapterInfo describes a registered adapter for discovery.
type AdapterInfo struct {
	Type        AdapterType `json:"type"`
	DisplayName string      `json:"displayName"`
	Description string      `json:"description"`
}

// Registration couples adapter info with its loader factory.
type Registration struct {
	Info    AdapterInfo
	Factory func(cfg Config) (TableLoader, error)
}
