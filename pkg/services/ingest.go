package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fathom-data/fathom-engine/pkg/adapters/datasource"
	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/logging"
	"github.com/fathom-data/fathom-engine/pkg/parsers"
	"github.com/fathom-data/fathom-engine/pkg/retry"
	"github.com/fathom-data/fathom-engine/pkg/sql"
	"github.com/fathom-data/fathom-engine/pkg/store"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// IngestService parses raw data and registers the result in the table
// store.
type IngestService interface {
	// Ingest parses the data source and registers the table under the
	// given name. An empty id generates one.
	Ingest(ctx context.Context, id, name string, src parsers.DataSource) (*IngestResult, error)
	// IngestFromDataSource loads a table from an external database
	// through the adapter registry and registers it.
	IngestFromDataSource(ctx context.Context, id, name string, cfg datasource.Config, query string) (*IngestResult, error)
}

// IngestResult reports a completed ingestion.
type IngestResult struct {
	Metadata    store.Metadata     `json:"metadata"`
	ParseErrors []parsers.RowError `json:"parseErrors,omitempty"`
}

type ingestService struct {
	store    *store.Store
	adapters *datasource.Registry
	logger   *zap.Logger
}

// NewIngestService creates a new ingest service.
func NewIngestService(st *store.Store, adapters *datasource.Registry, logger *zap.Logger) IngestService {
	return &ingestService{store: st, adapters: adapters, logger: logger}
}

func (s *ingestService) Ingest(ctx context.Context, id, name string, src parsers.DataSource) (*IngestResult, error) {
	if len(src.Data) == 0 {
		return nil, fmt.Errorf("ingest %q: %w", name, apperrors.ErrEmptyInput)
	}
	res, err := parsers.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("ingest %q: %w", name, err)
	}

	meta, err := s.store.Register(id, name, res.Table)
	if err != nil {
		return nil, err
	}
	s.logger.Info("table ingested",
		zap.String("table_id", meta.ID),
		zap.String("name", name),
		zap.String("source_type", string(src.Type)),
		zap.Int("rows", res.RowCount),
		zap.Int("columns", res.ColumnCount),
		zap.Int("parse_errors", len(res.ParseErrors)))
	return &IngestResult{Metadata: meta, ParseErrors: res.ParseErrors}, nil
}

func (s *ingestService) IngestFromDataSource(ctx context.Context, id, name string, cfg datasource.Config, query string) (*IngestResult, error) {
	query, err := sql.ValidateReadOnly(query)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidInput, err)
	}

	loader, err := s.adapters.Loader(cfg)
	if err != nil {
		return nil, err
	}
	defer loader.Close()

	tbl, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (*table.Table, error) {
		return loader.LoadTable(ctx, query)
	})
	if err != nil {
		s.logger.Warn("datasource load failed",
			zap.String("adapter", string(cfg.Type)),
			zap.String("dsn", logging.SanitizeDSN(cfg.DSN)),
			zap.String("query", logging.SanitizeQuery(query)),
			zap.String("error", logging.SanitizeError(err)))
		return nil, fmt.Errorf("load from %s: %w", cfg.Type, err)
	}

	meta, err := s.store.Register(id, name, tbl)
	if err != nil {
		return nil, err
	}
	s.logger.Info("table loaded from datasource",
		zap.String("table_id", meta.ID),
		zap.String("name", name),
		zap.String("adapter", string(cfg.Type)),
		zap.Int("rows", meta.RowCount))
	return &IngestResult{Metadata: meta}, nil
}

var _ IngestService = (*ingestService)(nil)
