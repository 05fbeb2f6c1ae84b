// Package sqlite loads tables from local SQLite database files.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/fathom-data/fathom-engine/pkg/adapters/datasource"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// Loader materializes SQLite query results as engine tables.
type Loader struct {
	db      *sql.DB
	maxRows int
}

// NewLoader opens the database file named by the DSN.
func NewLoader(cfg datasource.Config) (*Loader, error) {
	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	return &Loader{db: db, maxRows: cfg.MaxRows}, nil
}

func (l *Loader) LoadTable(ctx context.Context, query string) (*table.Table, error) {
	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
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
