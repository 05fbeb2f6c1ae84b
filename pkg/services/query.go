package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/engine"
	"github.com/fathom-data/fathom-engine/pkg/optimizer"
	"github.com/fathom-data/fathom-engine/pkg/query"
	"github.com/fathom-data/fathom-engine/pkg/store"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// QueryService plans and executes operation pipelines against stored
// tables.
type QueryService interface {
	// Execute optimizes and runs the operations against the referenced
	// table.
	Execute(ctx context.Context, req QueryRequest) (*QueryResult, error)
	// Explain returns the optimized plan without executing it.
	Explain(ctx context.Context, req QueryRequest) (*query.Plan, error)
}

// QueryRequest references a registered table and the operations to run.
type QueryRequest struct {
	TableID     string            `json:"tableId"`
	Operations  []query.Operation `json:"operations"`
	UseParallel bool              `json:"useParallel,omitempty"`
	// SaveAs registers the result as a new table under this name.
	SaveAs string `json:"saveAs,omitempty"`
}

// QueryResult is the executed pipeline's output.
type QueryResult struct {
	Table         *table.Table    `json:"-"`
	Plan          *query.Plan     `json:"plan"`
	ExecutionTime time.Duration   `json:"executionTime"`
	RowsProcessed int             `json:"rowsProcessed"`
	Saved         *store.Metadata `json:"saved,omitempty"`
}

type queryService struct {
	store     *store.Store
	optimizer *optimizer.Optimizer
	engine    *engine.Engine
	logger    *zap.Logger
}

// NewQueryService creates a new query service.
func NewQueryService(st *store.Store, opt *optimizer.Optimizer, eng *engine.Engine, logger *zap.Logger) QueryService {
	return &queryService{store: st, optimizer: opt, engine: eng, logger: logger}
}

func (s *queryService) Execute(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	tbl, plan, err := s.plan(req)
	if err != nil {
		return nil, err
	}

	res, err := s.engine.Execute(ctx, tbl, plan, engine.Options{UseParallel: req.UseParallel})
	if err != nil {
		return nil, err
	}

	out := &QueryResult{
		Table:         res.Table,
		Plan:          plan,
		ExecutionTime: res.ExecutionTime,
		RowsProcessed: res.RowsProcessed,
	}
	if req.SaveAs != "" {
		meta, err := s.store.Register("", req.SaveAs, res.Table)
		if err != nil {
			return nil, err
		}
		out.Saved = &meta
	}

	s.logger.Info("query executed",
		zap.String("table_id", req.TableID),
		zap.Int("operations", len(req.Operations)),
		zap.Int("rows_in", res.RowsProcessed),
		zap.Int("rows_out", res.Table.NumRows()),
		zap.Duration("elapsed", res.ExecutionTime))
	return out, nil
}

func (s *queryService) Explain(ctx context.Context, req QueryRequest) (*query.Plan, error) {
	_, plan, err := s.plan(req)
	return plan, err
}

// plan resolves the request's table references and runs the optimizer.
// Join operations referencing a table id get the resolved table attached
// before planning.
func (s *queryService) plan(req QueryRequest) (*table.Table, *query.Plan, error) {
	tbl, err := s.store.Get(req.TableID)
	if err != nil {
		return nil, nil, fmt.Errorf("table %q: %w", req.TableID, err)
	}
	meta, err := s.store.GetMetadata(req.TableID)
	if err != nil {
		return nil, nil, err
	}

	ops := make([]query.Operation, len(req.Operations))
	copy(ops, req.Operations)
	for i := range ops {
		if ops[i].Type != query.OpJoin || ops[i].Join == nil {
			continue
		}
		j := *ops[i].Join
		if j.Right == nil {
			if j.RightTable == "" {
				return nil, nil, fmt.Errorf("join right table: %w", apperrors.ErrMissingParameter)
			}
			right, err := s.store.Get(j.RightTable)
			if err != nil {
				return nil, nil, fmt.Errorf("join table %q: %w", j.RightTable, err)
			}
			j.Right = right
		}
		ops[i].Join = &j
	}

	plan, err := s.optimizer.Plan(ops, meta)
	if err != nil {
		return nil, nil, err
	}
	return tbl, plan, nil
}

var _ QueryService = (*queryService)(nil)
