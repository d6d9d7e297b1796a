// Package app wires the application together: configuration, database,
// Genkit provider, vector store, and the two pipelines. Setup builds the
// container; commands and the HTTP server only consume it.
package app

import (
	"context"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qaforge/casegen/internal/config"
	"github.com/qaforge/casegen/internal/ingest"
	"github.com/qaforge/casegen/internal/log"
	"github.com/qaforge/casegen/internal/model"
	"github.com/qaforge/casegen/internal/testgen"
	"github.com/qaforge/casegen/internal/vectorstore"
)

// App is the application container. Fields are populated by Setup and
// remain read-only afterwards.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit    *genkit.Genkit
	Embedder  model.Embedder
	Generator model.TextGenerator

	DBPool *pgxpool.Pool
	Store  *vectorstore.Store

	Ingest  *ingest.Pipeline
	TestGen *testgen.Generator

	otelCleanup func()
	dbCleanup   func()
	cancel      context.CancelFunc
}

// Close releases all resources in reverse initialization order. Safe to
// call on a partially constructed App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down")
	}

	if a.cancel != nil {
		a.cancel()
	}
	if a.dbCleanup != nil {
		a.dbCleanup()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
