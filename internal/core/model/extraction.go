package model

// ExtractedConcept is the raw shape the extraction LLM returns before
// validation turns it into a Concept.
type ExtractedConcept struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Tags            []string `json:"tags,omitempty"`
	ConfidenceScore float64  `json:"confidence_score"`
	RelatedConcepts []string `json:"related_concepts,omitempty"`
}

type ExtractedConcepts struct {
	Concepts []ExtractedConcept `json:"concepts"`
}

type ChatMessage struct {
	Content    string `json:"content"`
	SenderType string `json:"sender_type"`
}

type HighlightedContext struct {
	DocumentTitle string `json:"document_title"`
	PageNumber    int    `json:"page_number"`
	SelectedText  string `json:"selected_text"`
}
