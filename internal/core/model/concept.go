package model

import "time"

type MatchType string

const (
	MatchExact          MatchType = "exact"
	MatchHighSimilarity MatchType = "high_similarity"
	MatchRelated        MatchType = "related"
	MatchPotentialMerge MatchType = "potential_merge"
)

type RelationshipType string

const (
	RelationRelated      RelationshipType = "related"
	RelationPrerequisite RelationshipType = "prerequisite"
	RelationBuildsOn     RelationshipType = "builds_on"
	RelationSimilar      RelationshipType = "similar"
	RelationOpposite     RelationshipType = "opposite"
)

type Concept struct {
	UUID               string    `json:"id,omitempty"` // empty until persisted
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	Tags               []string  `json:"tags,omitempty"`
	ConfidenceScore    float64   `json:"confidence_score"`
	Embedding          []float32 `json:"embedding,omitempty"`
	RelatedConcepts    []string  `json:"related_concepts,omitempty"`
	SourceChatCount    int       `json:"source_chat_count"`
	SourceChatSessions []string  `json:"source_chat_sessions,omitempty"`
	MergedFrom         []string  `json:"merged_from,omitempty"`
	MergeRationale     string    `json:"merge_rationale,omitempty"`
	CreatedAt          time.Time `json:"created_at,omitempty"`
	UpdatedAt          time.Time `json:"updated_at,omitempty"`
}

// Key identifies a concept within a batch: the persisted UUID when present,
// otherwise the name (new concepts have no UUID yet).
func (c Concept) Key() string {
	if c.UUID != "" {
		return c.UUID
	}
	return c.Name
}

type ConceptMatch struct {
	SourceConceptID string    `json:"source_concept_id"`
	TargetConceptID string    `json:"target_concept_id"`
	SimilarityScore float64   `json:"similarity_score"`
	MatchType       MatchType `json:"match_type"`
	Confidence      float64   `json:"confidence"`
}

type ConceptRelationship struct {
	SourceConceptID  string           `json:"source_concept_id"`
	TargetConceptID  string           `json:"target_concept_id"`
	RelationshipType RelationshipType `json:"relationship_type"`
	Strength         float64          `json:"strength"`
	DetectedReason   string           `json:"detected_reason"`
}

type ConceptMergeCandidate struct {
	Primary            Concept   `json:"primary_concept"`
	Secondaries        []Concept `json:"secondary_concepts"`
	MergeRationale     string    `json:"merge_rationale"`
	CombinedConfidence float64   `json:"combined_confidence"`
	CombinedTags       []string  `json:"combined_tags"`
	SourceChatSessions []string  `json:"source_chat_sessions,omitempty"`
}
