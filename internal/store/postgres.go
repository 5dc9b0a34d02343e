package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/geniusreads/lattice/internal/core/merge"
	"github.com/geniusreads/lattice/internal/core/model"
	"github.com/geniusreads/lattice/internal/core/vector"
)

type PostgresStore struct {
	Pool         *pgxpool.Pool
	EmbeddingDim int
	Logger       *zap.Logger

	merger *merge.Merger
}

func NewPostgresStore(ctx context.Context, dsn string, embeddingDim int, logger *zap.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &PostgresStore{
		Pool:         pool,
		EmbeddingDim: embeddingDim,
		Logger:       logger,
		merger:       merge.NewMerger(logger),
	}, nil
}

func (s *PostgresStore) Close() {
	s.Pool.Close()
}

// EnsureSchema creates the tables and constraints the engine assumes. The
// unique index on lower(name) is the at-most-one-writer-wins guard for
// concurrent batches racing to insert the same concept.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS concepts (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL,
			tags JSONB NOT NULL DEFAULT '[]',
			confidence_score DOUBLE PRECISION NOT NULL DEFAULT 0.5,
			embedding vector(%d),
			related_concepts JSONB NOT NULL DEFAULT '[]',
			source_chat_count INTEGER NOT NULL DEFAULT 1,
			merged_from JSONB,
			merge_rationale TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.EmbeddingDim),
		`CREATE UNIQUE INDEX IF NOT EXISTS concepts_name_unique ON concepts ((LOWER(name)))`,
		`CREATE TABLE IF NOT EXISTS concept_chat_links (
			id UUID PRIMARY KEY,
			concept_id UUID NOT NULL REFERENCES concepts(id) ON DELETE CASCADE,
			chat_session_id UUID NOT NULL,
			relevance_score DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (concept_id, chat_session_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) ListConcepts(ctx context.Context) ([]model.Concept, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, name, description, tags, confidence_score, embedding::text,
		       related_concepts, source_chat_count, created_at, updated_at
		FROM concepts
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list concepts: %w", err)
	}
	defer rows.Close()

	var concepts []model.Concept
	for rows.Next() {
		var (
			c            model.Concept
			tagsJSON     []byte
			relatedJSON  []byte
			embeddingTxt *string
		)
		if err := rows.Scan(&c.UUID, &c.Name, &c.Description, &tagsJSON, &c.ConfidenceScore,
			&embeddingTxt, &relatedJSON, &c.SourceChatCount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan concept row: %w", err)
		}

		if len(tagsJSON) > 0 {
			if err := json.Unmarshal(tagsJSON, &c.Tags); err != nil {
				return nil, fmt.Errorf("failed to decode tags for concept %s: %w", c.UUID, err)
			}
		}
		if len(relatedJSON) > 0 {
			if err := json.Unmarshal(relatedJSON, &c.RelatedConcepts); err != nil {
				return nil, fmt.Errorf("failed to decode related concepts for %s: %w", c.UUID, err)
			}
		}
		if embeddingTxt != nil {
			emb, err := vector.ParseWireLiteral(*embeddingTxt)
			if err != nil {
				s.Logger.Warn("unreadable embedding, concept excluded from comparison",
					zap.String("concept_id", c.UUID), zap.Error(err))
			} else {
				c.Embedding = emb
			}
		}

		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}

func (s *PostgresStore) ApplyBatch(ctx context.Context, chatSessionID string, result model.ProcessResult) (model.ApplyResult, error) {
	applied := model.ApplyResult{}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		applied.ErrorMessage = err.Error()
		return applied, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Keys (UUID for persisted concepts, name otherwise) to row ids, so
	// merge candidates referencing just-inserted concepts resolve.
	idByKey := make(map[string]string)
	for _, decision := range result.ConceptsToUpdate {
		if err := s.linkAndReinforce(ctx, tx, decision.Match.TargetConceptID, chatSessionID, decision.Match.SimilarityScore); err != nil {
			applied.ErrorMessage = err.Error()
			return applied, err
		}
		idByKey[decision.Concept.Key()] = decision.Match.TargetConceptID
		applied.ConceptsLinked++
	}

	for _, c := range result.NewConceptsToAdd {
		id, created, err := s.insertConcept(ctx, tx, c)
		if err != nil {
			applied.ErrorMessage = err.Error()
			return applied, err
		}
		idByKey[c.Key()] = id

		if created {
			if err := s.insertLink(ctx, tx, id, chatSessionID, c.ConfidenceScore); err != nil {
				applied.ErrorMessage = err.Error()
				return applied, err
			}
			applied.NewConceptsCreated++
		} else {
			// Lost the insert race or a same-name concept predates the
			// snapshot; degrade to the link path, which also reinforces
			// the winner's session counter.
			if err := s.linkAndReinforce(ctx, tx, id, chatSessionID, c.ConfidenceScore); err != nil {
				applied.ErrorMessage = err.Error()
				return applied, err
			}
			applied.ConceptsLinked++
		}
	}

	for _, candidate := range result.MergeCandidates {
		merged, ok, err := s.applyMerge(ctx, tx, candidate, idByKey)
		if err != nil {
			applied.ErrorMessage = err.Error()
			return applied, err
		}
		if ok {
			applied.ConceptsMerged += merged
		}
	}

	if err := tx.Commit(ctx); err != nil {
		applied.ErrorMessage = err.Error()
		return applied, fmt.Errorf("failed to commit batch: %w", err)
	}

	applied.Success = true
	return applied, nil
}

func (s *PostgresStore) linkAndReinforce(ctx context.Context, tx pgx.Tx, conceptID, chatSessionID string, relevance float64) error {
	if err := s.insertLink(ctx, tx, conceptID, chatSessionID, relevance); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		UPDATE concepts
		SET source_chat_count = source_chat_count + 1, updated_at = NOW()
		WHERE id = $1`, conceptID)
	if err != nil {
		return fmt.Errorf("failed to reinforce concept %s: %w", conceptID, err)
	}
	return nil
}

func (s *PostgresStore) insertLink(ctx context.Context, tx pgx.Tx, conceptID, chatSessionID string, relevance float64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO concept_chat_links (id, concept_id, chat_session_id, relevance_score, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (concept_id, chat_session_id) DO NOTHING`,
		uuid.New().String(), conceptID, chatSessionID, relevance)
	if err != nil {
		return fmt.Errorf("failed to link concept %s to session: %w", conceptID, err)
	}
	return nil
}

// insertConcept inserts a new concept row. On a canonical-identity conflict
// the existing row wins and its id is returned with created=false.
func (s *PostgresStore) insertConcept(ctx context.Context, tx pgx.Tx, c model.Concept) (string, bool, error) {
	tagsJSON, err := json.Marshal(emptyAsList(c.Tags))
	if err != nil {
		return "", false, fmt.Errorf("failed to encode tags: %w", err)
	}
	relatedJSON, err := json.Marshal(emptyAsList(c.RelatedConcepts))
	if err != nil {
		return "", false, fmt.Errorf("failed to encode related concepts: %w", err)
	}

	var embedding any
	if vector.IsValid(c.Embedding) {
		embedding = vector.ToWireLiteral(c.Embedding)
	}

	id := uuid.New().String()
	row := tx.QueryRow(ctx, `
		INSERT INTO concepts (id, name, description, tags, confidence_score, embedding,
		                      related_concepts, source_chat_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::vector, $7, 1, NOW(), NOW())
		ON CONFLICT ((LOWER(name))) DO NOTHING
		RETURNING id`,
		id, c.Name, c.Description, tagsJSON, c.ConfidenceScore, embedding, relatedJSON)

	var insertedID string
	if err := row.Scan(&insertedID); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return "", false, fmt.Errorf("failed to insert concept '%s': %w", c.Name, err)
		}
		// Conflict: re-fetch the winner.
		if err := tx.QueryRow(ctx,
			`SELECT id FROM concepts WHERE LOWER(name) = LOWER($1)`, c.Name).Scan(&insertedID); err != nil {
			return "", false, fmt.Errorf("failed to resolve conflicting concept '%s': %w", c.Name, err)
		}
		return insertedID, false, nil
	}
	return insertedID, true, nil
}

// applyMerge collapses one accepted candidate: the primary row absorbs the
// merged fields, secondary links move to the primary, secondary rows go
// away. Returns the number of rows removed. Candidates whose members did
// not all resolve to persisted rows are skipped, not fatal.
func (s *PostgresStore) applyMerge(ctx context.Context, tx pgx.Tx, candidate model.ConceptMergeCandidate, idByKey map[string]string) (int, bool, error) {
	primaryID, ok := s.resolveID(candidate.Primary, idByKey)
	if !ok {
		s.Logger.Warn("merge skipped, primary not persisted",
			zap.String("primary", candidate.Primary.Name))
		return 0, false, nil
	}

	var secondaryIDs []string
	for _, sec := range candidate.Secondaries {
		id, ok := s.resolveID(sec, idByKey)
		if !ok {
			s.Logger.Warn("merge skipped, secondary not persisted",
				zap.String("secondary", sec.Name))
			return 0, false, nil
		}
		secondaryIDs = append(secondaryIDs, id)
	}

	merged := s.merger.Merge(candidate)
	tagsJSON, err := json.Marshal(emptyAsList(merged.Tags))
	if err != nil {
		return 0, false, fmt.Errorf("failed to encode merged tags: %w", err)
	}
	relatedJSON, err := json.Marshal(emptyAsList(merged.RelatedConcepts))
	if err != nil {
		return 0, false, fmt.Errorf("failed to encode merged related concepts: %w", err)
	}
	mergedFromJSON, err := json.Marshal(secondaryIDs)
	if err != nil {
		return 0, false, fmt.Errorf("failed to encode merged_from: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE concepts
		SET description = $2, tags = $3, related_concepts = $4,
		    confidence_score = $5, source_chat_count = $6,
		    merged_from = $7, merge_rationale = $8, updated_at = NOW()
		WHERE id = $1`,
		primaryID, merged.Description, tagsJSON, relatedJSON,
		merged.ConfidenceScore, merged.SourceChatCount, mergedFromJSON, merged.MergeRationale)
	if err != nil {
		return 0, false, fmt.Errorf("failed to update merge primary %s: %w", primaryID, err)
	}

	// Re-point secondary session links, dropping ones the primary already
	// holds to respect the (concept_id, chat_session_id) uniqueness.
	_, err = tx.Exec(ctx, `
		UPDATE concept_chat_links l
		SET concept_id = $1
		WHERE l.concept_id = ANY($2)
		  AND NOT EXISTS (
		    SELECT 1 FROM concept_chat_links p
		    WHERE p.concept_id = $1 AND p.chat_session_id = l.chat_session_id
		  )`, primaryID, secondaryIDs)
	if err != nil {
		return 0, false, fmt.Errorf("failed to move merged links to %s: %w", primaryID, err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM concepts WHERE id = ANY($1)`, secondaryIDs)
	if err != nil {
		return 0, false, fmt.Errorf("failed to delete merged secondaries: %w", err)
	}

	return int(tag.RowsAffected()), true, nil
}

func (s *PostgresStore) resolveID(c model.Concept, idByKey map[string]string) (string, bool) {
	if c.UUID != "" {
		return c.UUID, true
	}
	id, ok := idByKey[c.Key()]
	return id, ok
}

// emptyAsList keeps jsonb columns as [] instead of null.
func emptyAsList(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
