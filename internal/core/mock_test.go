package core

import (
	"context"
	"fmt"
)

type MockEmbedder struct {
	Vectors map[string][]float32
	Default []float32
	Err     error
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if v, ok := m.Vectors[text]; ok {
		return v, nil
	}
	if m.Default != nil {
		return m.Default, nil
	}
	return nil, fmt.Errorf("no vector configured for %q", text)
}
