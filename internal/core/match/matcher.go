// Package match ranks a new concept against the knowledge base snapshot and
// classifies each hit into a match tier.
package match

import (
	"context"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/geniusreads/lattice/internal/config"
	"github.com/geniusreads/lattice/internal/core/embed"
	"github.com/geniusreads/lattice/internal/core/model"
	"github.com/geniusreads/lattice/internal/core/vector"
)

type Matcher struct {
	Embedder *embed.ConceptEmbedder
	Config   config.SimilarityConfig
	Logger   *zap.Logger
}

func NewMatcher(embedder *embed.ConceptEmbedder, cfg config.SimilarityConfig, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{Embedder: embedder, Config: cfg, Logger: logger}
}

// FindSimilar returns every existing concept whose similarity to newConcept
// is at least threshold, sorted by similarity descending (stable; exact
// floating ties keep input order). An unembeddable new concept yields an
// empty list. Existing concepts without a valid embedding of matching
// dimensionality are silently excluded.
func (m *Matcher) FindSimilar(ctx context.Context, newConcept model.Concept, existing []model.Concept, threshold float64) []model.ConceptMatch {
	emb := newConcept.Embedding
	if !vector.IsValid(emb) {
		emb = m.Embedder.EmbedConcept(ctx, newConcept.Name, newConcept.Description)
	}
	if emb == nil {
		m.Logger.Warn("cannot compare concept without embedding",
			zap.String("concept", newConcept.Name))
		return nil
	}

	var matches []model.ConceptMatch
	for _, ex := range existing {
		if !vector.Validate(ex.Embedding, len(emb)) {
			continue
		}

		sim := vector.CosineSimilarity(emb, ex.Embedding)
		if sim < threshold {
			continue
		}

		matches = append(matches, model.ConceptMatch{
			SourceConceptID: newConcept.Key(),
			TargetConceptID: ex.Key(),
			SimilarityScore: sim,
			MatchType:       m.Classify(sim),
			Confidence:      m.blendConfidence(sim, newConcept, ex),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].SimilarityScore > matches[j].SimilarityScore
	})

	return matches
}

// Classify maps a similarity score to a match tier, most specific first.
// potential_merge is only reachable when the caller passed a threshold
// below the related tier.
func (m *Matcher) Classify(similarity float64) model.MatchType {
	switch {
	case similarity >= m.Config.ExactThreshold:
		return model.MatchExact
	case similarity >= m.Config.HighThreshold:
		return model.MatchHighSimilarity
	case similarity >= m.Config.RelatedThreshold:
		return model.MatchRelated
	default:
		return model.MatchPotentialMerge
	}
}

// blendConfidence combines the raw similarity with tag overlap and the two
// concepts' own confidence scores: 0.7*sim + 0.2*jaccard + 0.1*avg(conf).
func (m *Matcher) blendConfidence(sim float64, a, b model.Concept) float64 {
	avgConf := (a.ConfidenceScore + b.ConfidenceScore) / 2
	c := 0.7*sim + 0.2*tagJaccard(a.Tags, b.Tags) + 0.1*avgConf
	return math.Min(1.0, c)
}

// tagJaccard is |A∩B| / |A∪B|; an empty union counts as no overlap.
func tagJaccard(a, b []string) float64 {
	union := make(map[string]bool)
	inA := make(map[string]bool)
	for _, t := range a {
		inA[t] = true
		union[t] = true
	}

	intersection := 0
	seen := make(map[string]bool)
	for _, t := range b {
		if seen[t] {
			continue
		}
		seen[t] = true
		union[t] = true
		if inA[t] {
			intersection++
		}
	}

	if len(union) == 0 {
		return 0.0
	}
	return float64(intersection) / float64(len(union))
}
