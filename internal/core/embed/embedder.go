// Package embed adapts the raw embedding client to concepts. It is
// stateless per call and caches nothing.
package embed

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/geniusreads/lattice/internal/core/model"
	"github.com/geniusreads/lattice/internal/llm"
)

type ConceptEmbedder struct {
	Client llm.EmbedderClient
	Logger *zap.Logger
}

func NewConceptEmbedder(client llm.EmbedderClient, logger *zap.Logger) *ConceptEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConceptEmbedder{Client: client, Logger: logger}
}

// EmbedConcept embeds "name: description". Returns nil when the concept
// cannot be embedded (empty inputs, no client, service failure); callers
// treat nil as "cannot compare", not as a batch-fatal error.
func (e *ConceptEmbedder) EmbedConcept(ctx context.Context, name, description string) []float32 {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(description) == "" {
		e.Logger.Warn("missing concept name or description, skipping embedding",
			zap.String("name", name))
		return nil
	}
	if e.Client == nil {
		e.Logger.Warn("no embedder client configured, skipping embedding",
			zap.String("name", name))
		return nil
	}

	vec, err := e.Client.Embed(ctx, fmt.Sprintf("%s: %s", name, description))
	if err != nil {
		e.Logger.Warn("embedding service call failed",
			zap.String("name", name), zap.Error(err))
		return nil
	}
	return vec
}

// EmbedConcepts embeds a batch, preserving input order. Unembeddable
// concepts get a nil entry.
func (e *ConceptEmbedder) EmbedConcepts(ctx context.Context, concepts []model.Concept) [][]float32 {
	out := make([][]float32, len(concepts))
	for i, c := range concepts {
		out[i] = e.EmbedConcept(ctx, c.Name, c.Description)
	}
	return out
}
