// Package extraction turns chat transcripts and highlighted document
// passages into candidate concepts via the LLM.
package extraction

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/geniusreads/lattice/internal/core/common"
	"github.com/geniusreads/lattice/internal/core/model"
	"github.com/geniusreads/lattice/internal/llm"
)

const defaultPrompt = `You are an expert at extracting key concepts from technical conversations and documents.

Analyze the conversation and highlighted text contexts below and identify the important concepts the user is learning about. Focus on specific, actionable knowledge; avoid overly broad concepts. Assign confidence scores based on how well each concept is explained in the source material.

%s

Return a JSON object with this structure and nothing else:
{
  "concepts": [
    {
      "name": "Concept Name",
      "description": "Clear explanation of what this concept means",
      "tags": ["tag1", "tag2"],
      "confidence_score": 0.85,
      "related_concepts": ["Related Concept 1"]
    }
  ]
}`

type Extractor struct {
	LLM    llm.LLMClient
	Prompt string
	Logger *zap.Logger
}

func NewExtractor(llmClient llm.LLMClient, prompt string, logger *zap.Logger) *Extractor {
	if prompt == "" {
		prompt = defaultPrompt
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{LLM: llmClient, Prompt: prompt, Logger: logger}
}

// ExtractConcepts runs the LLM over the assembled session content and
// validates the result. Concepts with an empty name or description are
// dropped; confidence scores are clamped to [0,1].
func (e *Extractor) ExtractConcepts(ctx context.Context, messages []model.ChatMessage, contexts []model.HighlightedContext) ([]model.ExtractedConcept, error) {
	content := buildContent(messages, contexts)
	if content == "" {
		return nil, fmt.Errorf("no content to extract concepts from")
	}

	response, err := e.LLM.Generate(ctx, fmt.Sprintf(e.Prompt, content))
	if err != nil {
		return nil, fmt.Errorf("failed to generate concepts: %w", err)
	}

	result, err := common.ParseJSON[model.ExtractedConcepts](response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse extracted concepts: %w", err)
	}

	validated := make([]model.ExtractedConcept, 0, len(result.Concepts))
	for _, c := range result.Concepts {
		c.Name = strings.TrimSpace(c.Name)
		c.Description = strings.TrimSpace(c.Description)
		if c.Name == "" || c.Description == "" {
			continue
		}
		c.ConfidenceScore = clamp01(c.ConfidenceScore)
		validated = append(validated, c)
	}

	e.Logger.Info("extracted concepts",
		zap.Int("returned", len(result.Concepts)),
		zap.Int("validated", len(validated)))

	return validated, nil
}

func buildContent(messages []model.ChatMessage, contexts []model.HighlightedContext) string {
	var parts []string

	if len(contexts) > 0 {
		parts = append(parts, "=== HIGHLIGHTED TEXT CONTEXTS ===")
		for _, c := range contexts {
			title := c.DocumentTitle
			if title == "" {
				title = "Unknown Document"
			}
			parts = append(parts, fmt.Sprintf("From '%s' (page %d): %s", title, c.PageNumber, c.SelectedText))
		}
		parts = append(parts, "")
	}

	if len(messages) > 0 {
		parts = append(parts, "=== CONVERSATION MESSAGES ===")
		for _, m := range messages {
			sender := m.SenderType
			if sender == "" {
				sender = "unknown"
			}
			parts = append(parts, fmt.Sprintf("[%s]: %s", strings.ToUpper(sender), m.Content))
		}
	}

	return strings.Join(parts, "\n")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
