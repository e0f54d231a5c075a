package app

import (
	"alcyxob/workout-recommender/internal/config"
	"alcyxob/workout-recommender/internal/logger"
	"context"
	"testing"
)

func TestNewVectorStackDisabled(t *testing.T) {
	for _, cfg := range []config.Config{
		{},
		{Embedding: config.EmbeddingConfig{APIKey: "k"}},
		{Qdrant: config.QdrantConfig{URL: "http://localhost:6333"}},
	} {
		stack, err := NewVectorStack(context.Background(), logger.Nop(), cfg)
		if err != nil {
			t.Fatalf("NewVectorStack: %v", err)
		}
		if stack.Enabled() || stack.Embedder != nil || stack.Index != nil {
			t.Errorf("cfg %+v: stack should be empty", cfg)
		}
		stack.Close()
	}
}
