// Package postgres loads tables from PostgreSQL through pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fathom-data/fathom-engine/pkg/adapters/datasource"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// Loader materializes PostgreSQL query results as engine tables.
type Loader struct {
	pool    *pgxpool.Pool
	maxRows int
}

// NewLoader parses the DSN and prepares a connection pool. Connections
// are established lazily on first query.
func NewLoader(cfg datasource.Config) (*Loader, error) {
	pool, err := pgxpool.New(context.Background(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	return &Loader{pool: pool, maxRows: cfg.MaxRows}, nil
}

func (l *Loader) LoadTable(ctx context.Context, query string) (*table.Table, error) {
	rows, err := l.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f.Name)
	}

	var data [][]any
	for rows.Next() {
		if l.maxRows > 0 && len(data) >= l.maxRows {
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		data = append(data, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows: %w", err)
	}
	return datasource.TableFromValues(names, data)
}

func (l *Loader) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}

func (l *Loader) Close() error {
	l.pool.Close()
	return nil
}

var _ datasource.TableLoader = (*Loader)(nil)
