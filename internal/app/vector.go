// Package app wires the optional vector stack shared by the server and the reindex command.
package app

import (
	"alcyxob/workout-recommender/internal/config"
	"alcyxob/workout-recommender/internal/embedding"
	"alcyxob/workout-recommender/internal/logger"
	"alcyxob/workout-recommender/internal/vectorindex"
	"context"
	"fmt"
)

// VectorStack is the embedding provider and the vector index.
// Both are nil when the vector path is not configured.
type VectorStack struct {
	Embedder embedding.Embedder
	Index    *vectorindex.Client
	closers  []func() error
}

// Enabled reports whether both halves are available.
func (s *VectorStack) Enabled() bool {
	return s.Embedder != nil && s.Index != nil
}

// Close releases the embedding cache connection, if any.
func (s *VectorStack) Close() {
	for _, c := range s.closers {
		_ = c()
	}
}

// NewVectorStack builds the Gemini embedder, optionally behind a Redis cache, and the
// Qdrant client, and makes sure the collection exists. A missing cache is not fatal.
func NewVectorStack(ctx context.Context, log *logger.Logger, cfg config.Config) (*VectorStack, error) {
	stack := &VectorStack{}
	if !cfg.VectorEnabled() {
		log.Warn("vector path disabled, recommendations will use the catalog fallback",
			"embedding_configured", cfg.Embedding.APIKey != "", "qdrant_configured", cfg.Qdrant.URL != "")
		return stack, nil
	}

	gemini := embedding.NewGeminiClient(log, embedding.GeminiConfig{
		BaseURL:   cfg.Embedding.BaseURL,
		APIKey:    cfg.Embedding.APIKey,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   cfg.Embedding.Timeout,
	})
	stack.Embedder = gemini

	if cfg.Redis.Addr != "" {
		cache, err := embedding.NewRedisVectorCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("embedding cache unavailable, continuing without it", "addr", cfg.Redis.Addr, "error", err)
		} else {
			stack.Embedder = embedding.NewCachedEmbedder(log, gemini, cache, gemini.Model(), cfg.Redis.TTL)
			stack.closers = append(stack.closers, cache.Close)
		}
	}

	index, err := vectorindex.NewClient(log, vectorindex.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
		VectorDim:  gemini.Dimension(),
		Timeout:    cfg.Qdrant.Timeout,
	})
	if err != nil {
		stack.Close()
		return nil, fmt.Errorf("qdrant client: %w", err)
	}
	if err := index.EnsureCollection(ctx); err != nil {
		stack.Close()
		return nil, fmt.Errorf("ensure qdrant collection: %w", err)
	}
	stack.Index = index
	return stack, nil
}
