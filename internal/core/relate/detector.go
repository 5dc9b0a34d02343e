// Package relate assigns a semantic relationship type between a concept and
// candidates already known to be similar to it.
package relate

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/geniusreads/lattice/internal/core/model"
)

// Classifier decides the relationship between a source concept and one
// candidate. Implementations return a relationship for every candidate;
// the keyword heuristic below can later be swapped for a model-backed
// classifier without touching the orchestration contract.
type Classifier interface {
	Classify(source, candidate model.Concept) model.ConceptRelationship
}

type Detector struct {
	Classifier Classifier
	Logger     *zap.Logger
}

func NewDetector(classifier Classifier, logger *zap.Logger) *Detector {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{Classifier: classifier, Logger: logger}
}

// DetectRelationships classifies concept against each candidate. Candidates
// reaching the detector are already similarity-filtered, so every one
// yields at least the generic "related" relationship.
func (d *Detector) DetectRelationships(concept model.Concept, candidates []model.Concept) []model.ConceptRelationship {
	if len(candidates) == 0 {
		return nil
	}

	relationships := make([]model.ConceptRelationship, 0, len(candidates))
	for _, candidate := range candidates {
		relationships = append(relationships, d.Classifier.Classify(concept, candidate))
	}
	return relationships
}

// KeywordClassifier is a crude text-pattern heuristic: a relationship cue
// keyword and the other concept's name must both appear in the same
// description. Tiers are tested in strict priority order.
type KeywordClassifier struct{}

var (
	prerequisiteCues = []string{"requires", "depends on", "prerequisite", "needed for", "foundation for"}
	oppositeCues     = []string{"versus", "contrary", "opposite", "unlike", "in contrast"}
	similarCues      = []string{"similar", "analogous", "resembles", "akin to", "comparable"}
)

func (KeywordClassifier) Classify(source, candidate model.Concept) model.ConceptRelationship {
	srcText := strings.ToLower(source.Name + " " + source.Description)
	candText := strings.ToLower(candidate.Name + " " + candidate.Description)
	srcName := strings.ToLower(source.Name)
	candName := strings.ToLower(candidate.Name)

	rel := model.ConceptRelationship{
		SourceConceptID: source.Key(),
		TargetConceptID: candidate.Key(),
	}

	if cuePresent(srcText, candName, prerequisiteCues) {
		rel.RelationshipType = model.RelationPrerequisite
		rel.Strength = 0.8
		rel.DetectedReason = fmt.Sprintf("'%s' names '%s' as a requirement", source.Name, candidate.Name)
		return rel
	}
	if cuePresent(candText, srcName, prerequisiteCues) {
		rel.RelationshipType = model.RelationBuildsOn
		rel.Strength = 0.8
		rel.DetectedReason = fmt.Sprintf("'%s' names '%s' as a requirement", candidate.Name, source.Name)
		return rel
	}

	if cuePresent(srcText, candName, oppositeCues) || cuePresent(candText, srcName, oppositeCues) {
		rel.RelationshipType = model.RelationOpposite
		rel.Strength = 0.7
		rel.DetectedReason = fmt.Sprintf("'%s' and '%s' are contrasted in their descriptions", source.Name, candidate.Name)
		return rel
	}

	if cuePresent(srcText, candName, similarCues) || cuePresent(candText, srcName, similarCues) {
		rel.RelationshipType = model.RelationSimilar
		rel.Strength = 0.6
		rel.DetectedReason = fmt.Sprintf("'%s' and '%s' are described as similar", source.Name, candidate.Name)
		return rel
	}

	// Generic fallback sits exactly at the orchestrator's strength cutoff,
	// which filters with a strict '>'; only keyword-matched tiers surface.
	rel.RelationshipType = model.RelationRelated
	rel.Strength = 0.5
	rel.DetectedReason = fmt.Sprintf("'%s' and '%s' share semantic similarity", source.Name, candidate.Name)
	return rel
}

// cuePresent reports whether text contains both a cue keyword and the other
// concept's name.
func cuePresent(text, otherName string, cues []string) bool {
	if otherName == "" || !strings.Contains(text, otherName) {
		return false
	}
	for _, cue := range cues {
		if strings.Contains(text, cue) {
			return true
		}
	}
	return false
}
