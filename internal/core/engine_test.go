package core

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geniusreads/lattice/internal/config"
	"github.com/geniusreads/lattice/internal/core/model"
)

func unitVector(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim))}
}

func TestProcess_HighSimilarityUpdatesExisting(t *testing.T) {
	// A 0.92-similar pair: the new concept reinforces the existing one
	// instead of creating a new row.
	newDesc := "A subset of AI that enables learning from data"
	embedder := &MockEmbedder{
		Vectors: map[string][]float32{
			"Machine Learning: " + newDesc: unitVector(0.92),
		},
	}
	e := NewEngine(embedder, config.Default(), nil)

	req := model.ProcessRequest{
		ChatSessionID: "session-1",
		NewConcepts: []model.Concept{
			{Name: "Machine Learning", Description: newDesc, ConfidenceScore: 0.9},
		},
		ExistingConcepts: []model.Concept{
			{
				UUID:            "ml-1",
				Name:            "ML",
				Description:     "Machine learning algorithms that learn patterns from data",
				ConfidenceScore: 0.8,
				Embedding:       []float32{1, 0},
			},
		},
	}

	res := e.Process(context.Background(), req)

	assert.True(t, res.Success)
	assert.Len(t, res.Matches, 1)
	assert.Equal(t, model.MatchHighSimilarity, res.Matches[0].MatchType)
	assert.InDelta(t, 0.92, res.Matches[0].SimilarityScore, 1e-6)

	assert.Len(t, res.ConceptsToUpdate, 1)
	assert.Equal(t, "ml-1", res.ConceptsToUpdate[0].Match.TargetConceptID)
	assert.Empty(t, res.NewConceptsToAdd)

	assert.Equal(t, 1, res.Summary.MatchesFound)
	assert.Equal(t, 1, res.Summary.ConceptsToUpdate)
	assert.Equal(t, 0, res.Summary.ConceptsToAdd)
}

func TestProcess_UnembeddableConceptRoutedToCreate(t *testing.T) {
	// Empty description: no embedding, no matches, no relationships, but
	// the concept is still queued for creation.
	embedder := &MockEmbedder{Default: []float32{1, 0}}
	e := NewEngine(embedder, config.Default(), nil)

	req := model.ProcessRequest{
		ChatSessionID: "session-1",
		NewConcepts: []model.Concept{
			{Name: "Mystery", Description: "", ConfidenceScore: 0.6},
		},
		ExistingConcepts: []model.Concept{
			{UUID: "e-1", Name: "Existing", Description: "d", Embedding: []float32{1, 0}},
		},
	}

	res := e.Process(context.Background(), req)

	assert.True(t, res.Success)
	assert.Empty(t, res.Matches)
	assert.Empty(t, res.Relationships)
	assert.Len(t, res.NewConceptsToAdd, 1)
	assert.Equal(t, "Mystery", res.NewConceptsToAdd[0].Name)
	assert.Empty(t, res.ConceptsToUpdate)
}

func TestProcess_RelatedMatchCreatesNewAndDetectsRelationship(t *testing.T) {
	newDesc := "Calculus requires algebra to manipulate derivatives"
	embedder := &MockEmbedder{
		Vectors: map[string][]float32{
			"Calculus: " + newDesc: unitVector(0.75),
		},
	}
	e := NewEngine(embedder, config.Default(), nil)

	req := model.ProcessRequest{
		ChatSessionID: "session-1",
		NewConcepts: []model.Concept{
			{Name: "Calculus", Description: newDesc, ConfidenceScore: 0.8},
		},
		ExistingConcepts: []model.Concept{
			{
				UUID:        "alg-1",
				Name:        "Algebra",
				Description: "Manipulating symbols and equations",
				Embedding:   []float32{1, 0},
			},
		},
	}

	res := e.Process(context.Background(), req)

	assert.True(t, res.Success)
	assert.Len(t, res.Matches, 1)
	assert.Equal(t, model.MatchRelated, res.Matches[0].MatchType)

	// Related tier is below the update cutoff: create, don't link.
	assert.Len(t, res.NewConceptsToAdd, 1)
	assert.Empty(t, res.ConceptsToUpdate)

	// The prerequisite cue plus the candidate's name surface a strong
	// relationship through the > 0.5 filter.
	assert.Len(t, res.Relationships, 1)
	assert.Equal(t, model.RelationPrerequisite, res.Relationships[0].RelationshipType)
	assert.Equal(t, "alg-1", res.Relationships[0].TargetConceptID)
}

func TestProcess_GenericRelationshipFilteredOut(t *testing.T) {
	newDesc := "A subset of AI that enables learning from data"
	embedder := &MockEmbedder{
		Vectors: map[string][]float32{
			"Machine Learning: " + newDesc: unitVector(0.92),
		},
	}
	e := NewEngine(embedder, config.Default(), nil)

	req := model.ProcessRequest{
		ChatSessionID: "session-1",
		NewConcepts: []model.Concept{
			{Name: "Machine Learning", Description: newDesc, ConfidenceScore: 0.9},
		},
		ExistingConcepts: []model.Concept{
			{
				UUID:        "ml-1",
				Name:        "Statistics",
				Description: "Analysis of numerical data",
				Embedding:   []float32{1, 0},
			},
		},
	}

	res := e.Process(context.Background(), req)

	// No cue keywords anywhere: the default related/0.5 relationship sits
	// exactly at the cutoff and is excluded.
	assert.Empty(t, res.Relationships)
}

func TestProcess_MergeCandidatesOverUnion(t *testing.T) {
	// Two existing near-duplicates plus a new concept embedding onto the
	// same direction: all three land in one merge group.
	vec := []float32{1, 0}
	newDesc := "Networks of artificial neurons"
	embedder := &MockEmbedder{
		Vectors: map[string][]float32{
			"Neural Networks: " + newDesc: unitVector(0.60), // below related for matching
		},
	}
	e := NewEngine(embedder, config.Default(), nil)

	req := model.ProcessRequest{
		ChatSessionID: "session-1",
		NewConcepts: []model.Concept{
			{Name: "Neural Networks", Description: newDesc, ConfidenceScore: 0.9},
		},
		ExistingConcepts: []model.Concept{
			{UUID: "a", Name: "Neural Nets", Description: "d", ConfidenceScore: 0.9, Embedding: vec},
			{UUID: "b", Name: "ANNs", Description: "d", ConfidenceScore: 0.9, Embedding: vec},
		},
	}

	res := e.Process(context.Background(), req)

	assert.True(t, res.Success)
	assert.Len(t, res.NewConceptsToAdd, 1)
	assert.Len(t, res.MergeCandidates, 1)
	assert.Equal(t, "a", res.MergeCandidates[0].Primary.UUID)
	assert.Len(t, res.MergeCandidates[0].Secondaries, 1)
	assert.Equal(t, 1, res.Summary.MergeCandidates)
}

func TestProcess_EmptyBatch(t *testing.T) {
	e := NewEngine(&MockEmbedder{}, config.Default(), nil)

	res := e.Process(context.Background(), model.ProcessRequest{ChatSessionID: "s"})

	assert.True(t, res.Success)
	assert.Empty(t, res.Matches)
	assert.Empty(t, res.MergeCandidates)
	assert.Equal(t, model.ProcessingSummary{}, res.Summary)
}
