package main

import (
	"log"
	"net/http"

	"github.com/fathom-data/fathom-engine/pkg/adapters/datasource"
	_ "github.com/fathom-data/fathom-engine/pkg/adapters/datasource/mssql"
	_ "github.com/fathom-data/fathom-engine/pkg/adapters/datasource/postgres"
	_ "github.com/fathom-data/fathom-engine/pkg/adapters/datasource/sqlite"
	"github.com/fathom-data/fathom-engine/pkg/config"
	"github.com/fathom-data/fathom-engine/pkg/engine"
	"github.com/fathom-data/fathom-engine/pkg/handlers"
	"github.com/fathom-data/fathom-engine/pkg/logging"
	"github.com/fathom-data/fathom-engine/pkg/middleware"
	"github.com/fathom-data/fathom-engine/pkg/optimizer"
	"github.com/fathom-data/fathom-engine/pkg/services"
	"github.com/fathom-data/fathom-engine/pkg/store"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	st := store.New(logger)
	registry := datasource.NewRegistry(logger)
	eng := engine.New(engine.Config{
		ParallelRowThreshold: cfg.Engine.ParallelRowThreshold,
		MaxWorkers:           cfg.Engine.MaxWorkers,
		ChunkSize:            cfg.Engine.ChunkSize,
	}, logger)

	ingestSvc := services.NewIngestService(st, registry, logger)
	querySvc := services.NewQueryService(st, optimizer.New(logger), eng, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewTablesHandler(ingestSvc, st, registry, cfg.Ingest, logger).RegisterRoutes(mux)
	handlers.NewQueryHandler(querySvc, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	log.Printf("Starting fathom-engine on %s (version: %s)", cfg.Addr(), cfg.Version)
	if err := http.ListenAndServe(cfg.Addr(), handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
