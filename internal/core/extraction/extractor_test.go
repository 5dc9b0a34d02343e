package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geniusreads/lattice/internal/core/model"
)

type mockLLM struct {
	response string
	err      error
	prompt   string
}

func (m *mockLLM) Generate(ctx context.Context, prompt string) (string, error) {
	m.prompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func TestExtractConcepts_ParsesMarkdownWrappedJSON(t *testing.T) {
	llm := &mockLLM{response: "Here are the concepts:\n```json\n" +
		`{"concepts": [{"name": "Gradient Descent", "description": "Iterative optimization.", "tags": ["ml"], "confidence_score": 0.9}]}` +
		"\n```"}
	e := NewExtractor(llm, "", nil)

	concepts, err := e.ExtractConcepts(context.Background(),
		[]model.ChatMessage{{Content: "explain gradient descent", SenderType: "user"}}, nil)

	assert.NoError(t, err)
	assert.Len(t, concepts, 1)
	assert.Equal(t, "Gradient Descent", concepts[0].Name)
	assert.Equal(t, []string{"ml"}, concepts[0].Tags)
	assert.Equal(t, 0.9, concepts[0].ConfidenceScore)
}

func TestExtractConcepts_DropsInvalidAndClamps(t *testing.T) {
	llm := &mockLLM{response: `{"concepts": [
		{"name": "  ", "description": "nameless"},
		{"name": "No Description", "description": "   "},
		{"name": "Overconfident", "description": "d", "confidence_score": 1.7},
		{"name": "Pessimistic", "description": "d", "confidence_score": -0.2}
	]}`}
	e := NewExtractor(llm, "", nil)

	concepts, err := e.ExtractConcepts(context.Background(),
		[]model.ChatMessage{{Content: "hi", SenderType: "user"}}, nil)

	assert.NoError(t, err)
	assert.Len(t, concepts, 2)
	assert.Equal(t, 1.0, concepts[0].ConfidenceScore)
	assert.Equal(t, 0.0, concepts[1].ConfidenceScore)
}

func TestExtractConcepts_EmptyInput(t *testing.T) {
	e := NewExtractor(&mockLLM{}, "", nil)

	_, err := e.ExtractConcepts(context.Background(), nil, nil)

	assert.Error(t, err)
}

func TestExtractConcepts_LLMError(t *testing.T) {
	e := NewExtractor(&mockLLM{err: errors.New("rate limited")}, "", nil)

	_, err := e.ExtractConcepts(context.Background(),
		[]model.ChatMessage{{Content: "hi", SenderType: "user"}}, nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestExtractConcepts_UnparseableResponse(t *testing.T) {
	e := NewExtractor(&mockLLM{response: "sorry, I cannot help with that"}, "", nil)

	_, err := e.ExtractConcepts(context.Background(),
		[]model.ChatMessage{{Content: "hi", SenderType: "user"}}, nil)

	assert.Error(t, err)
}

func TestBuildContent_Layout(t *testing.T) {
	messages := []model.ChatMessage{
		{Content: "what is a monad?", SenderType: "user"},
		{Content: "a monoid in the category of endofunctors", SenderType: "assistant"},
	}
	contexts := []model.HighlightedContext{
		{DocumentTitle: "Category Theory", PageNumber: 42, SelectedText: "monads compose"},
		{PageNumber: 7, SelectedText: "untitled source"},
	}

	content := buildContent(messages, contexts)

	assert.Contains(t, content, "=== HIGHLIGHTED TEXT CONTEXTS ===")
	assert.Contains(t, content, "From 'Category Theory' (page 42): monads compose")
	assert.Contains(t, content, "From 'Unknown Document' (page 7): untitled source")
	assert.Contains(t, content, "=== CONVERSATION MESSAGES ===")
	assert.Contains(t, content, "[USER]: what is a monad?")
	assert.Contains(t, content, "[ASSISTANT]: a monoid in the category of endofunctors")
}

func TestBuildContent_Empty(t *testing.T) {
	assert.Equal(t, "", buildContent(nil, nil))
}
