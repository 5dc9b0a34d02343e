// Package store is the persistence boundary: it reads the concept snapshot
// a batch runs against and applies the batch's proposed mutations as one
// atomic unit of work.
package store

import (
	"context"

	"github.com/geniusreads/lattice/internal/core/model"
)

type ConceptStore interface {
	// ListConcepts returns a snapshot of all persisted concepts, embeddings
	// included.
	ListConcepts(ctx context.Context) ([]model.Concept, error)

	// ApplyBatch executes a ProcessResult transactionally: inserts queued
	// concepts, links matched concepts to the chat session, bumps usage
	// counters and collapses accepted merge groups. Partial application is
	// rolled back entirely.
	ApplyBatch(ctx context.Context, chatSessionID string, result model.ProcessResult) (model.ApplyResult, error)

	Close()
}
