package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/fathom-data/fathom-engine/pkg/adapters/datasource"
	"github.com/fathom-data/fathom-engine/pkg/config"
	"github.com/fathom-data/fathom-engine/pkg/jsonutil"
	"github.com/fathom-data/fathom-engine/pkg/parsers"
	"github.com/fathom-data/fathom-engine/pkg/services"
	"github.com/fathom-data/fathom-engine/pkg/store"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// TablesHandler exposes table ingestion, metadata, and export endpoints.
type TablesHandler struct {
	ingest   services.IngestService
	store    *store.Store
	registry *datasource.Registry
	cfg      config.IngestConfig
	logger   *zap.Logger
}

// NewTablesHandler creates a new TablesHandler. The ingest config
// supplies parser defaults for requests that leave options unset.
func NewTablesHandler(ingest services.IngestService, st *store.Store, registry *datasource.Registry, cfg config.IngestConfig, logger *zap.Logger) *TablesHandler {
	return &TablesHandler{
		ingest:   ingest,
		store:    st,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// RegisterRoutes registers the table routes on the given mux.
func (h *TablesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tables", h.Create)
	mux.HandleFunc("POST /api/tables/load", h.Load)
	mux.HandleFunc("GET /api/tables", h.List)
	mux.HandleFunc("GET /api/tables/{id}", h.GetMetadata)
	mux.HandleFunc("GET /api/tables/{id}/data", h.GetData)
	mux.HandleFunc("GET /api/tables/{id}/stats/{column}", h.GetStats)
	mux.HandleFunc("GET /api/tables/{id}/export/arrow", h.ExportArrow)
	mux.HandleFunc("DELETE /api/tables/{id}", h.Delete)
	mux.HandleFunc("GET /api/adapters", h.Adapters)
}

// CreateTableRequest carries raw data to parse and register. Data may be
// a JSON string (CSV text or embedded JSON) or an inline JSON array.
type CreateTableRequest struct {
	Name    string             `json:"name"`
	Type    parsers.SourceType `json:"type"`
	Data    json.RawMessage    `json:"data"`
	Options parsers.Options    `json:"options"`
}

// Create handles POST /api/tables.
func (h *TablesHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	var req CreateTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Name == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	data, err := jsonutil.FlexibleBytes(req.Data)
	if err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid data payload")
		return
	}

	if req.Options.SampleSize == 0 {
		req.Options.SampleSize = h.cfg.SampleSize
	}
	if len(req.Options.NullTokens) == 0 {
		req.Options.NullTokens = h.cfg.NullTokens
	}

	res, err := h.ingest.Ingest(r.Context(), "", req.Name, parsers.DataSource{
		Type:    req.Type,
		Data:    data,
		Options: req.Options,
	})
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, res)
}

// LoadTableRequest loads a table from an external database.
type LoadTableRequest struct {
	Name   string            `json:"name"`
	Config datasource.Config `json:"config"`
	Query  string            `json:"query"`
}

// Load handles POST /api/tables/load.
func (h *TablesHandler) Load(w http.ResponseWriter, r *http.Request) {
	var req LoadTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Name == "" || req.Query == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "name and query are required")
		return
	}

	res, err := h.ingest.IngestFromDataSource(r.Context(), "", req.Name, req.Config, req.Query)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusCreated, res)
}

// List handles GET /api/tables.
func (h *TablesHandler) List(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]any{"tables": h.store.List()})
}

// GetMetadata handles GET /api/tables/{id}.
func (h *TablesHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	meta, err := h.store.GetMetadata(r.PathValue("id"))
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, meta)
}

// TableDataResponse carries a page of rows with the column schema.
type TableDataResponse struct {
	Columns table.Schema `json:"columns"`
	Rows    [][]any      `json:"rows"`
	Total   int          `json:"total"`
}

// GetData handles GET /api/tables/{id}/data with optional limit/offset
// query parameters.
func (h *TablesHandler) GetData(w http.ResponseWriter, r *http.Request) {
	tbl, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		_ = WriteError(w, err)
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 1000)
	if offset < 0 || offset > tbl.NumRows() {
		offset = 0
	}
	end := offset + limit
	if limit <= 0 || end > tbl.NumRows() {
		end = tbl.NumRows()
	}
	page := tbl.Slice(offset, end)

	_ = WriteJSON(w, http.StatusOK, TableDataResponse{
		Columns: page.Schema(),
		Rows:    page.Rows(),
		Total:   tbl.NumRows(),
	})
}

// GetStats handles GET /api/tables/{id}/stats/{column}.
func (h *TablesHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.PathValue("id"), r.PathValue("column"))
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	_ = WriteJSON(w, http.StatusOK, stats)
}

// ExportArrow handles GET /api/tables/{id}/export/arrow, streaming the
// table as an Arrow IPC file.
func (h *TablesHandler) ExportArrow(w http.ResponseWriter, r *http.Request) {
	tbl, err := h.store.Get(r.PathValue("id"))
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	encoded, err := parsers.EncodeArrow(tbl)
	if err != nil {
		_ = WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.apache.arrow.file")
	w.Header().Set("Content-Length", strconv.Itoa(len(encoded)))
	if _, err := w.Write(encoded); err != nil {
		h.logger.Warn("arrow export write failed", zap.Error(err))
	}
}

// Delete handles DELETE /api/tables/{id}.
func (h *TablesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.PathValue("id")); err != nil {
		_ = WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Adapters handles GET /api/adapters, listing the compiled-in database
// adapters.
func (h *TablesHandler) Adapters(w http.ResponseWriter, r *http.Request) {
	_ = WriteJSON(w, http.StatusOK, map[string]any{"adapters": h.registry.Adapters()})
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
