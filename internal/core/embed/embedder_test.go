package embed

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/geniusreads/lattice/internal/core/model"
)

type mockClient struct {
	lastText string
	vector   []float32
	err      error
	calls    int
}

func (m *mockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	m.lastText = text
	if m.err != nil {
		return nil, m.err
	}
	return m.vector, nil
}

func TestEmbedConcept_CombinesNameAndDescription(t *testing.T) {
	client := &mockClient{vector: []float32{0.1, 0.2}}
	e := NewConceptEmbedder(client, nil)

	vec := e.EmbedConcept(context.Background(), "Machine Learning", "A subset of AI")

	assert.Equal(t, []float32{0.1, 0.2}, vec)
	assert.Equal(t, "Machine Learning: A subset of AI", client.lastText)
}

func TestEmbedConcept_EmptyInputs(t *testing.T) {
	client := &mockClient{vector: []float32{0.1}}
	e := NewConceptEmbedder(client, nil)

	assert.Nil(t, e.EmbedConcept(context.Background(), "", "description"))
	assert.Nil(t, e.EmbedConcept(context.Background(), "name", ""))
	assert.Nil(t, e.EmbedConcept(context.Background(), "  ", "description"))
	assert.Zero(t, client.calls)
}

func TestEmbedConcept_ServiceFailure(t *testing.T) {
	client := &mockClient{err: fmt.Errorf("quota exceeded")}
	e := NewConceptEmbedder(client, nil)

	assert.Nil(t, e.EmbedConcept(context.Background(), "name", "description"))
}

func TestEmbedConcept_NoClient(t *testing.T) {
	e := NewConceptEmbedder(nil, nil)
	assert.Nil(t, e.EmbedConcept(context.Background(), "name", "description"))
}

func TestEmbedConcepts_PreservesOrder(t *testing.T) {
	client := &mockClient{vector: []float32{0.5}}
	e := NewConceptEmbedder(client, nil)

	concepts := []model.Concept{
		{Name: "First", Description: "first description"},
		{Name: "Second"}, // missing description, unembeddable
		{Name: "Third", Description: "third description"},
	}

	vecs := e.EmbedConcepts(context.Background(), concepts)

	assert.Len(t, vecs, 3)
	assert.NotNil(t, vecs[0])
	assert.Nil(t, vecs[1])
	assert.NotNil(t, vecs[2])
}
