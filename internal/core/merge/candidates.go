// Package merge proposes and collapses groups of near-duplicate concepts.
package merge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/geniusreads/lattice/internal/config"
	"github.com/geniusreads/lattice/internal/core/embed"
	"github.com/geniusreads/lattice/internal/core/model"
	"github.com/geniusreads/lattice/internal/core/vector"
)

// Identifier finds merge candidates with a single left-to-right greedy
// pass. Single-link and order-dependent: it trades clustering optimality
// for O(n²) simplicity and determinism given a fixed input order.
type Identifier struct {
	Embedder *embed.ConceptEmbedder
	Config   config.SimilarityConfig
	Logger   *zap.Logger
}

func NewIdentifier(embedder *embed.ConceptEmbedder, cfg config.SimilarityConfig, logger *zap.Logger) *Identifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Identifier{Embedder: embedder, Config: cfg, Logger: logger}
}

// FindMergeCandidates groups concepts whose pairwise similarity reaches
// threshold, bounded by MaxClusterSize and gated by MinMergeConfidence.
// A rejected cluster leaves its members eligible under a later primary.
func (id *Identifier) FindMergeCandidates(ctx context.Context, concepts []model.Concept, threshold float64) []model.ConceptMergeCandidate {
	// A cluster needs a primary and at least one secondary; anything below
	// that configured means merging is effectively off.
	maxSecondaries := id.Config.MaxClusterSize - 1
	if maxSecondaries < 1 {
		id.Logger.Warn("merge clustering disabled by cluster size bound",
			zap.Int("max_cluster_size", id.Config.MaxClusterSize))
		return nil
	}

	embeddings := make([][]float32, len(concepts))
	for i, c := range concepts {
		if vector.IsValid(c.Embedding) {
			embeddings[i] = c.Embedding
		} else {
			embeddings[i] = id.Embedder.EmbedConcept(ctx, c.Name, c.Description)
		}
	}

	processed := make(map[string]bool)
	var candidates []model.ConceptMergeCandidate

	for i, primary := range concepts {
		if processed[primary.Key()] {
			continue
		}

		type scored struct {
			idx int
			sim float64
		}
		var similar []scored
		for j := range concepts {
			if j == i || processed[concepts[j].Key()] {
				continue
			}
			sim := vector.CosineSimilarity(embeddings[i], embeddings[j])
			if sim >= threshold {
				similar = append(similar, scored{idx: j, sim: sim})
			}
		}
		if len(similar) == 0 {
			continue
		}

		sort.SliceStable(similar, func(a, b int) bool {
			return similar[a].sim > similar[b].sim
		})
		if len(similar) > maxSecondaries {
			similar = similar[:maxSecondaries]
		}

		secondaries := make([]model.Concept, len(similar))
		confidenceSum := primary.ConfidenceScore
		tags := unionSorted(primary.Tags, nil)
		sessions := unionSorted(primary.SourceChatSessions, nil)
		names := make([]string, len(similar))
		for k, s := range similar {
			secondaries[k] = concepts[s.idx]
			confidenceSum += concepts[s.idx].ConfidenceScore
			tags = unionSorted(tags, concepts[s.idx].Tags)
			sessions = unionSorted(sessions, concepts[s.idx].SourceChatSessions)
			names[k] = fmt.Sprintf("'%s'", concepts[s.idx].Name)
		}
		combinedConfidence := confidenceSum / float64(len(secondaries)+1)

		if combinedConfidence < id.Config.MinMergeConfidence {
			id.Logger.Debug("merge candidate rejected below confidence gate",
				zap.String("primary", primary.Name),
				zap.Float64("combined_confidence", combinedConfidence))
			continue
		}

		candidates = append(candidates, model.ConceptMergeCandidate{
			Primary:            primary,
			Secondaries:        secondaries,
			MergeRationale:     fmt.Sprintf("'%s' overlaps semantically with %s", primary.Name, strings.Join(names, ", ")),
			CombinedConfidence: combinedConfidence,
			CombinedTags:       tags,
			SourceChatSessions: sessions,
		})

		processed[primary.Key()] = true
		for _, s := range secondaries {
			processed[s.Key()] = true
		}
	}

	return candidates
}
