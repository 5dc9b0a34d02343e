package model

type ProcessRequest struct {
	ChatSessionID    string    `json:"chat_session_id"`
	NewConcepts      []Concept `json:"new_concepts"`
	ExistingConcepts []Concept `json:"existing_concepts,omitempty"`
}

// UpdateDecision records that an incoming concept should reinforce an
// existing one instead of being inserted as a new row.
type UpdateDecision struct {
	Concept Concept      `json:"concept"`
	Match   ConceptMatch `json:"match"`
}

type ProcessingSummary struct {
	MatchesFound          int `json:"matches_found"`
	RelationshipsDetected int `json:"relationships_detected"`
	MergeCandidates       int `json:"merge_candidates"`
	ConceptsToAdd         int `json:"concepts_to_add"`
	ConceptsToUpdate      int `json:"concepts_to_update"`
}

type ProcessResult struct {
	Success          bool                    `json:"success"`
	ErrorMessage     string                  `json:"error_message,omitempty"`
	Matches          []ConceptMatch          `json:"matches"`
	Relationships    []ConceptRelationship   `json:"relationships"`
	MergeCandidates  []ConceptMergeCandidate `json:"merge_candidates"`
	NewConceptsToAdd []Concept               `json:"new_concepts_to_add"`
	ConceptsToUpdate []UpdateDecision        `json:"concepts_to_update"`
	Summary          ProcessingSummary       `json:"processing_summary"`
}

// ApplyResult summarizes the store-side execution of a ProcessResult.
// Field names mirror the persistence layer's historical JSON contract.
type ApplyResult struct {
	Success            bool   `json:"success"`
	NewConceptsCreated int    `json:"newConceptsCreated"`
	ConceptsLinked     int    `json:"conceptsLinked"`
	ConceptsMerged     int    `json:"conceptsMerged"`
	ErrorMessage       string `json:"errorMessage,omitempty"`
}
