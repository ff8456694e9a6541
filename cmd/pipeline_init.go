package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/qanoon-labs/qanoon-cli/internal/pipeline"
	"github.com/qanoon-labs/qanoon-cli/internal/registry"
	"github.com/qanoon-labs/qanoon-cli/internal/retrieval"
	"github.com/qanoon-labs/qanoon-cli/internal/store"
	"github.com/qanoon-labs/qanoon-cli/pkg/embedding"
	"github.com/qanoon-labs/qanoon-cli/pkg/generation"
	"github.com/qanoon-labs/qanoon-cli/pkg/qdrant"
	"github.com/qanoon-labs/qanoon-cli/pkg/translate"
)

// queryEnv bundles everything the ask and serve commands need.
type queryEnv struct {
	Registry *registry.Manager
	Pipeline *pipeline.Pipeline
	QueryLog store.QueryLog
	Search   qdrant.Client
}

func (e *queryEnv) Close() {
	if e.QueryLog != nil {
		if err := e.QueryLog.Close(); err != nil {
			zap.L().Warn("close query log", zap.Error(err))
		}
	}
}

// newRegistryManager opens the metadata registry at the configured path.
func newRegistryManager() *registry.Manager {
	return registry.NewManager(registry.NewFileStore(cfg.Data.RegistryPath()))
}

// initQueryEnv wires the query pipeline from configuration: translation,
// embedding, vector search, generation, and the query log.
func initQueryEnv(ctx context.Context) (*queryEnv, error) {
	search := qdrant.NewClient(cfg.Qdrant.URL, cfg.Qdrant.Key)

	embedder := embedding.NewClient(embedding.Config{
		APIKey:     cfg.Embedding.Key,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})

	generator := generation.NewClient(generation.Config{
		APIKey:    cfg.Anthropic.Key,
		Models:    cfg.Anthropic.Models,
		MaxTokens: cfg.Anthropic.MaxTokens,
	})

	var translator translate.Client
	if cfg.Translate.URL != "" {
		translator = translate.NewClient(cfg.Translate.URL, cfg.Translate.Key)
	}

	queryLog, err := store.NewSQLite(cfg.Data.QueryLogPath())
	if err != nil {
		return nil, eris.Wrap(err, "open query log")
	}
	if err := queryLog.Migrate(ctx); err != nil {
		queryLog.Close()
		return nil, eris.Wrap(err, "migrate query log")
	}

	p := pipeline.New(pipeline.Config{
		Collection:    cfg.Qdrant.Collection,
		CandidatePool: cfg.Retrieval.CandidatePool,
		Filter: retrieval.FilterConfig{
			MinChunks:         cfg.Retrieval.MinChunks,
			RelativeMargin:    cfg.Retrieval.RelativeMargin,
			AbsoluteThreshold: cfg.Retrieval.AbsoluteThreshold,
		},
	}, translator, embedder, search, generator)

	return &queryEnv{
		Registry: newRegistryManager(),
		Pipeline: p,
		QueryLog: queryLog,
		Search:   search,
	}, nil
}
