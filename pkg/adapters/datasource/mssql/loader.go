// Package mssql loads tables from Microsoft SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"github.com/fathom-data/fathom-engine/pkg/adapters/datasource"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// Loader materializes SQL Server query results as engine tables.
type Loader struct {
	db      *sql.DB
	maxRows int
}

// NewLoader validates the DSN and prepares a connection. The database is
// not contacted until the first query.
func NewLoader(cfg datasource.Config) (*Loader, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mssql: open: %w", err)
	}
	return &Loader{db: db, maxRows: cfg.MaxRows}, nil
}

func (l *Loader) LoadTable(ctx context.Context, query string) (*table.Table, error) {
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("mssql: query: %w", err)
	}
	defer rows.Close()
	return datasource.ScanRows(rows, l.maxRows)
}

func (l *Loader) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}

func (l *Loader) Close() error {
	return l.db.Close()
}

var _ datasource.TableLoader = (*Loader)(nil)
