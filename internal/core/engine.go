// Package core wires the matcher, relationship detector and merge
// components into the per-batch concept processing pipeline.
package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/geniusreads/lattice/internal/config"
	"github.com/geniusreads/lattice/internal/core/embed"
	"github.com/geniusreads/lattice/internal/core/match"
	"github.com/geniusreads/lattice/internal/core/merge"
	"github.com/geniusreads/lattice/internal/core/model"
	"github.com/geniusreads/lattice/internal/core/relate"
	"github.com/geniusreads/lattice/internal/core/vector"
	"github.com/geniusreads/lattice/internal/llm"
)

type Engine struct {
	Embedder   *embed.ConceptEmbedder
	Matcher    *match.Matcher
	Detector   *relate.Detector
	Identifier *merge.Identifier
	Merger     *merge.Merger
	Config     *config.Config
	Logger     *zap.Logger
}

func NewEngine(embedderClient llm.EmbedderClient, cfg *config.Config, logger *zap.Logger) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	embedder := embed.NewConceptEmbedder(embedderClient, logger)
	return &Engine{
		Embedder:   embedder,
		Matcher:    match.NewMatcher(embedder, cfg.Similarity, logger),
		Detector:   relate.NewDetector(relate.KeywordClassifier{}, logger),
		Identifier: merge.NewIdentifier(embedder, cfg.Similarity, logger),
		Merger:     merge.NewMerger(logger),
		Config:     cfg,
		Logger:     logger,
	}
}

// Process runs the full batch pipeline against a snapshot of existing
// concepts: match every new concept, decide link-vs-create, detect
// relationships on matched pairs, then propose merges over the union of
// existing and newly queued concepts. It never returns an error; failures
// surface as a structured result with Success=false.
func (e *Engine) Process(ctx context.Context, req model.ProcessRequest) (res model.ProcessResult) {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Error("batch processing fault", zap.Any("fault", r))
			res = model.ProcessResult{
				Success:      false,
				ErrorMessage: fmt.Sprintf("internal processing fault: %v", r),
			}
		}
	}()

	res = model.ProcessResult{Success: true}

	existingByKey := make(map[string]model.Concept, len(req.ExistingConcepts))
	for _, c := range req.ExistingConcepts {
		existingByKey[c.Key()] = c
	}

	for i := range req.NewConcepts {
		nc := req.NewConcepts[i]

		// Embed once up front so the same vector serves matching, the
		// merge pass and persistence.
		if !vector.IsValid(nc.Embedding) {
			nc.Embedding = e.Embedder.EmbedConcept(ctx, nc.Name, nc.Description)
		}
		if req.ChatSessionID != "" && len(nc.SourceChatSessions) == 0 {
			nc.SourceChatSessions = []string{req.ChatSessionID}
		}
		if nc.SourceChatCount == 0 {
			nc.SourceChatCount = 1
		}

		matches := e.Matcher.FindSimilar(ctx, nc, req.ExistingConcepts, e.Config.Similarity.RelatedThreshold)
		res.Matches = append(res.Matches, matches...)

		// Link-vs-create: first exact or high_similarity match after the
		// similarity-descending sort wins.
		decided := false
		for _, m := range matches {
			if m.MatchType == model.MatchExact || m.MatchType == model.MatchHighSimilarity {
				res.ConceptsToUpdate = append(res.ConceptsToUpdate, model.UpdateDecision{
					Concept: nc,
					Match:   m,
				})
				decided = true
				break
			}
		}
		if !decided {
			res.NewConceptsToAdd = append(res.NewConceptsToAdd, nc)
		}

		// Relationship detection runs over every matched concept,
		// independent of the link-vs-create decision.
		var candidates []model.Concept
		for _, m := range matches {
			if c, ok := existingByKey[m.TargetConceptID]; ok {
				candidates = append(candidates, c)
			}
		}
		for _, rel := range e.Detector.DetectRelationships(nc, candidates) {
			if rel.Strength > e.Config.Similarity.MinRelationStrength {
				res.Relationships = append(res.Relationships, rel)
			}
		}
	}

	pool := make([]model.Concept, 0, len(req.ExistingConcepts)+len(res.NewConceptsToAdd))
	pool = append(pool, req.ExistingConcepts...)
	pool = append(pool, res.NewConceptsToAdd...)
	res.MergeCandidates = e.Identifier.FindMergeCandidates(ctx, pool, e.Config.Similarity.HighThreshold)

	res.Summary = model.ProcessingSummary{
		MatchesFound:          len(res.Matches),
		RelationshipsDetected: len(res.Relationships),
		MergeCandidates:       len(res.MergeCandidates),
		ConceptsToAdd:         len(res.NewConceptsToAdd),
		ConceptsToUpdate:      len(res.ConceptsToUpdate),
	}

	e.Logger.Info("batch processed",
		zap.Int("new_concepts", len(req.NewConcepts)),
		zap.Int("existing_concepts", len(req.ExistingConcepts)),
		zap.Int("matches", res.Summary.MatchesFound),
		zap.Int("to_add", res.Summary.ConceptsToAdd),
		zap.Int("to_update", res.Summary.ConceptsToUpdate),
		zap.Int("merge_candidates", res.Summary.MergeCandidates))

	return res
}
