package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geniusreads/lattice/internal/core/model"
)

func TestMerge_CombinesFields(t *testing.T) {
	m := NewMerger(nil)

	candidate := model.ConceptMergeCandidate{
		Primary: model.Concept{
			UUID:            "p",
			Name:            "Neural Networks",
			Description:     "Networks of artificial neurons.",
			Tags:            []string{"ml"},
			RelatedConcepts: []string{"Deep Learning"},
			ConfidenceScore: 0.9,
			SourceChatCount: 3,
		},
		Secondaries: []model.Concept{
			{
				UUID:            "s1",
				Name:            "Neural Nets",
				Description:     "Layered models trained by backpropagation.",
				Tags:            []string{"ai", "ml"},
				RelatedConcepts: []string{"Backpropagation"},
				ConfidenceScore: 0.8,
				SourceChatCount: 2,
			},
			{
				UUID:            "s2",
				Name:            "ANNs",
				Description:     "Networks of artificial neurons.", // duplicate text, not re-appended
				ConfidenceScore: 0.7,
				SourceChatCount: 1,
			},
		},
		MergeRationale: "near-duplicate names",
	}

	merged := m.Merge(candidate)

	assert.Equal(t, "p", merged.UUID)
	assert.Equal(t, 6, merged.SourceChatCount)
	assert.Equal(t, []string{"ai", "ml"}, merged.Tags)
	assert.Equal(t, []string{"Backpropagation", "Deep Learning"}, merged.RelatedConcepts)
	assert.Equal(t, "Networks of artificial neurons. Layered models trained by backpropagation.", merged.Description)
	assert.InDelta(t, (0.9+0.8+0.7)/3*1.1, merged.ConfidenceScore, 1e-9)
	assert.Equal(t, []string{"s1", "s2"}, merged.MergedFrom)
	assert.Contains(t, merged.MergeRationale, "near-duplicate names")
}

func TestMerge_ConfidenceCapped(t *testing.T) {
	m := NewMerger(nil)

	candidate := model.ConceptMergeCandidate{
		Primary:     model.Concept{UUID: "p", ConfidenceScore: 1.0, Description: "a"},
		Secondaries: []model.Concept{{UUID: "s", ConfidenceScore: 0.95, Description: "b"}},
	}

	merged := m.Merge(candidate)
	assert.Equal(t, 1.0, merged.ConfidenceScore)
}

func TestMerge_PopulationReduction(t *testing.T) {
	// A candidate with k secondaries absorbs exactly k concepts.
	m := NewMerger(nil)

	candidate := model.ConceptMergeCandidate{
		Primary: model.Concept{UUID: "p", Description: "d", SourceChatCount: 1},
		Secondaries: []model.Concept{
			{UUID: "s1", Description: "d1", SourceChatCount: 1},
			{UUID: "s2", Description: "d2", SourceChatCount: 1},
			{UUID: "s3", Description: "d3", SourceChatCount: 1},
		},
	}

	merged := m.Merge(candidate)

	assert.Len(t, merged.MergedFrom, 3)
	assert.Equal(t, 4, merged.SourceChatCount)
}

func TestMerge_UnpersistedSecondaryUsesName(t *testing.T) {
	m := NewMerger(nil)

	candidate := model.ConceptMergeCandidate{
		Primary:     model.Concept{UUID: "p", Description: "d"},
		Secondaries: []model.Concept{{Name: "Fresh Concept", Description: "x"}},
	}

	merged := m.Merge(candidate)
	assert.Equal(t, []string{"Fresh Concept"}, merged.MergedFrom)
}

func TestAppendSentence(t *testing.T) {
	assert.Equal(t, "A. B", appendSentence("A", "B"))
	assert.Equal(t, "A. B", appendSentence("A.", "B"))
	assert.Equal(t, "B", appendSentence("", "B"))
}

func TestUnionSorted(t *testing.T) {
	assert.Nil(t, unionSorted(nil, nil))
	assert.Equal(t, []string{"a", "b", "c"}, unionSorted([]string{"c", "a"}, []string{"b", "a"}))
}
