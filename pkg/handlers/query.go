package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fathom-data/fathom-engine/pkg/query"
	"github.com/fathom-data/fathom-engine/pkg/services"
	"github.com/fathom-data/fathom-engine/pkg/store"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// QueryHandler exposes query execution endpoints.
type QueryHandler struct {
	query  services.QueryService
	logger *zap.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(q services.QueryService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{query: q, logger: logger}
}

// RegisterRoutes registers the query routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tables/{id}/query", h.Execute)
	mux.HandleFunc("POST /api/tables/{id}/explain", h.Explain)
}

// QueryRequestBody is the wire form of a query request; the table id
// comes from the URL path.
type QueryRequestBody struct {
	Operations  []query.Operation `json:"operations"`
	UseParallel bool              `json:"useParallel,omitempty"`
	SaveAs      string            `json:"saveAs,omitempty"`
}

// QueryResponse is the wire form of an executed query.
type QueryResponse struct {
	Columns         table.Schema    `json:"columns"`
	Rows            [][]any         `json:"rows"`
	Plan            *query.Plan     `json:"plan"`
	ExecutionTimeMS float64         `json:"executionTimeMs"`
	RowsProcessed   int             `json:"rowsProcessed"`
	Saved           *store.Metadata `json:"saved,omitempty"`
}

// Execute handles POST /api/tables/{id}/query.
func (h *QueryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.query.Execute(r.Context(), req)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, QueryResponse{
		Columns:         res.Table.Schema(),
		Rows:            res.Table.Rows(),
		Plan:            res.Plan,
		ExecutionTimeMS: float64(res.ExecutionTime) / float64(time.Millisecond),
		RowsProcessed:   res.RowsProcessed,
		Saved:           res.Saved,
	})
}

// Explain handles POST /api/tables/{id}/explain, returning the optimized
// plan without running it.
func (h *QueryHandler) Explain(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	plan, err := h.query.Explain(r.Context(), req)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, plan)
}

func (h *QueryHandler) decode(w http.ResponseWriter, r *http.Request) (services.QueryRequest, bool) {
	var body QueryRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return services.QueryRequest{}, false
	}
	if len(body.Operations) == 0 {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "operations are required")
		return services.QueryRequest{}, false
	}
	return services.QueryRequest{
		TableID:     r.PathValue("id"),
		Operations:  body.Operations,
		UseParallel: body.UseParallel,
		SaveAs:      body.SaveAs,
	}, true
}
